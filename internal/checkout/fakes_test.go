package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCatalog struct {
	lines map[string]domain.CatalogLine
	err   error
	calls atomic.Int32
}

func newFakeCatalog(lines ...domain.CatalogLine) *fakeCatalog {
	c := &fakeCatalog{lines: make(map[string]domain.CatalogLine)}
	for _, l := range lines {
		c.lines[domain.NewStockKey(l.ProductID, l.VariantID).String()] = l
	}
	return c
}

func (c *fakeCatalog) Get(_ context.Context, productID string, variantID *string) (*domain.CatalogLine, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	line, ok := c.lines[domain.NewStockKey(productID, variantID).String()]
	if !ok {
		if variantID != nil {
			return nil, domain.VariantNotFound(*variantID)
		}
		return nil, domain.ProductNotFound(productID)
	}
	return &line, nil
}

type fakeAccounts struct {
	accounts map[string]*domain.Account
	err      error
}

func (a *fakeAccounts) Account(_ context.Context, id string) (*domain.Account, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.accounts[id], nil
}

type fakeCommitter struct {
	mu     sync.Mutex
	drafts []*domain.OrderDraft
	err    error
}

func (c *fakeCommitter) Commit(_ context.Context, draft *domain.OrderDraft) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts = append(c.drafts, draft)
	if c.err != nil {
		return nil, c.err
	}
	return &domain.Order{
		ID:              "order-1",
		OrderNumber:     "ORD-20261019-0000AAAA",
		CustomerID:      draft.CustomerID,
		GuestEmail:      draft.GuestEmail,
		Subtotal:        draft.Subtotal,
		DiscountAmount:  draft.DiscountAmount,
		VATAmount:       draft.VATAmount,
		ShippingCost:    draft.ShippingCost,
		Total:           draft.Total,
		Status:          draft.PaymentMethod.InitialOrderStatus(),
		PaymentMethod:   draft.PaymentMethod,
		ShippingAddress: draft.ShippingAddress,
		Items:           draft.Lines,
		CreatedAt:       time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.OrderPlacedEvent
}

func (n *fakeNotifier) Dispatch(_ context.Context, event domain.OrderPlacedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

var errDatabaseDown = errors.New("dial tcp 10.0.0.5:5432: connection refused")

func strPtr(s string) *string {
	return &s
}
