package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

type fakeStatements struct {
	statement *Statement
	err       error
}

func (f *fakeStatements) Statement(_ context.Context, _ string) (*Statement, error) {
	return f.statement, f.err
}

func serveStatement(repo statementReader, path string) *httptest.ResponseRecorder {
	handler := NewHandler(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts/{id}/statement", handler.HandleStatement)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_HandleStatement(t *testing.T) {
	t.Run("returns balance and entries", func(t *testing.T) {
		repo := &fakeStatements{statement: &Statement{
			Balance: domain.Balance{AccountID: "acc-1", CreditLimit: dec("1000"), CurrentDebt: dec("250")},
			Entries: []domain.LedgerEntry{{ID: "e1", AccountID: "acc-1", Type: domain.LedgerEntryDebit, Amount: dec("250")}},
		}}

		rec := serveStatement(repo, "/accounts/acc-1/statement")

		require.Equal(t, http.StatusOK, rec.Code)
		var body Statement
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Entries, 1)
		assert.True(t, dec("750").Equal(body.Balance.Available()))
	})

	t.Run("unknown account", func(t *testing.T) {
		rec := serveStatement(&fakeStatements{}, "/accounts/missing/statement")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("repository failure", func(t *testing.T) {
		rec := serveStatement(&fakeStatements{err: errors.New("connection refused")}, "/accounts/acc-1/statement")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}
