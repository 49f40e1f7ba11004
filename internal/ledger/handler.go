package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type statementReader interface {
	Statement(ctx context.Context, accountID string) (*Statement, error)
}

type Handler struct {
	repo   statementReader
	logger *slog.Logger
}

func NewHandler(repo statementReader, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleStatement(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	if accountID == "" {
		h.writeError(w, http.StatusBadRequest, "missing account id")
		return
	}

	statement, err := h.repo.Statement(r.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to load account statement", "error", err, "account_id", accountID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if statement == nil {
		h.writeError(w, http.StatusNotFound, "account not found")
		return
	}

	h.logger.Info("account statement retrieved", "account_id", accountID, "entries", len(statement.Entries))
	h.writeJSON(w, http.StatusOK, statement)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
