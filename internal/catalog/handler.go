package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

type reader interface {
	Get(ctx context.Context, productID string, variantID *string) (*domain.CatalogLine, error)
	List(ctx context.Context) ([]domain.CatalogLine, error)
}

type Handler struct {
	repo   reader
	logger *slog.Logger
}

func NewHandler(repo reader, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	lines, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(lines))
	h.writeJSON(w, http.StatusOK, lines)
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, nil)
}

func (h *Handler) HandleGetVariant(w http.ResponseWriter, r *http.Request) {
	variantID := r.PathValue("variantId")
	if variantID == "" {
		h.writeError(w, http.StatusBadRequest, "missing variant id")
		return
	}
	h.get(w, r, &variantID)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, variantID *string) {
	productID := r.PathValue("id")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	line, err := h.repo.Get(r.Context(), productID, variantID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			h.writeError(w, http.StatusNotFound, notFound.Resource+" not found")
			return
		}
		h.logger.Error("failed to get product", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product retrieved", "product_id", productID)
	h.writeJSON(w, http.StatusOK, line)
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
