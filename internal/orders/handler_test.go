package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-settlement/internal/checkout"
	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

type fakePlacer struct {
	gotCustomer string
	gotRequest  checkout.CreateOrderRequest
	order       *domain.Order
	err         error
}

func (f *fakePlacer) PlaceOrder(_ context.Context, customerID string, req checkout.CreateOrderRequest) (*domain.Order, error) {
	f.gotCustomer = customerID
	f.gotRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type fakeStore struct {
	orders   map[string]*domain.Order
	payments map[string]*domain.Payment
	limit    int
	err      error
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[id], nil
}

func (f *fakeStore) Payment(_ context.Context, orderID string) (*domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payments[orderID], nil
}

func (f *fakeStore) List(_ context.Context, limit int) ([]domain.Order, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.Order{}
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, o.Status, status)
	}
	o.Status = status
	return o, nil
}

func newTestMux(placer orderPlacer, store orderStore) *http.ServeMux {
	handler := NewHandler(placer, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", handler.HandleCreate)
	mux.HandleFunc("GET /orders", handler.HandleList)
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)
	mux.HandleFunc("GET /orders/{id}/payment", handler.HandleGetPayment)
	mux.HandleFunc("PATCH /orders/{id}/status", handler.HandleUpdateStatus)
	return mux
}

const createBody = `{
	"items": [{"product_id": "p-1", "quantity": 2}],
	"shipping_address": {"name": "Jamie", "address": "1 Main St", "city": "Izmir", "district": "Konak", "phone": "555"},
	"discount_rate": "10",
	"payment_method": "DEFERRED_ACCOUNT",
	"shipping_cost": "30"
}`

func TestHandler_HandleCreate(t *testing.T) {
	t.Run("returns 201 with order id and number", func(t *testing.T) {
		placer := &fakePlacer{order: &domain.Order{ID: "o-1", OrderNumber: "ORD-20261019-ABCDEF12"}}
		mux := newTestMux(placer, &fakeStore{})

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
		req.Header.Set(CustomerIDHeader, "dealer-1")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp checkout.CreateOrderResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "o-1", resp.OrderID)
		assert.Equal(t, "ORD-20261019-ABCDEF12", resp.OrderNumber)
		assert.Empty(t, resp.Error)

		assert.Equal(t, "dealer-1", placer.gotCustomer)
		assert.Equal(t, domain.PaymentMethodDeferredAccount, placer.gotRequest.PaymentMethod)
		assert.True(t, placer.gotRequest.DiscountRate.Equal(decimal.NewFromInt(10)))
		assert.True(t, placer.gotRequest.ShippingCost.Valid)
		require.Len(t, placer.gotRequest.Items, 1)
		assert.Equal(t, 2, placer.gotRequest.Items[0].Quantity)
	})

	t.Run("missing customer header is a guest checkout", func(t *testing.T) {
		placer := &fakePlacer{order: &domain.Order{ID: "o-2"}}
		mux := newTestMux(placer, &fakeStore{})

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, placer.gotCustomer)
	})

	t.Run("maps outcomes to status codes", func(t *testing.T) {
		cases := []struct {
			name    string
			err     error
			status  int
			message string
		}{
			{
				name:    "validation",
				err:     domain.BelowMinimumQuantity("Treats", 6),
				status:  http.StatusBadRequest,
				message: "minimum order quantity for Treats is 6",
			},
			{
				name:    "not found",
				err:     domain.ProductNotFound("p-9"),
				status:  http.StatusNotFound,
				message: "product not found",
			},
			{
				name:    "credit limit",
				err:     &domain.CreditLimitExceededError{Total: decimal.NewFromInt(2000), Available: decimal.NewFromInt(500)},
				status:  http.StatusUnprocessableEntity,
				message: "credit limit exceeded: order total 2000.00 exceeds available limit 500.00",
			},
			{
				name:    "persistence",
				err:     fmt.Errorf("%w: %w", domain.ErrPersistence, errors.New("connection reset")),
				status:  http.StatusInternalServerError,
				message: "your order could not be created, please try again later",
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				mux := newTestMux(&fakePlacer{err: tc.err}, &fakeStore{})

				req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createBody))
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				assert.Equal(t, tc.status, rec.Code)

				var resp checkout.CreateOrderResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.False(t, resp.Success)
				assert.Empty(t, resp.OrderID)
				assert.Equal(t, tc.message, resp.Error)
			})
		}
	})

	t.Run("malformed body never reaches checkout", func(t *testing.T) {
		placer := &fakePlacer{}
		mux := newTestMux(placer, &fakeStore{})

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, placer.gotRequest.Items)
	})
}

func TestHandler_HandleGet(t *testing.T) {
	store := &fakeStore{
		orders: map[string]*domain.Order{
			"o-1": {ID: "o-1", OrderNumber: "ORD-1", Status: domain.OrderStatusConfirmed},
		},
		payments: map[string]*domain.Payment{
			"o-1": {ID: "pay-1", OrderID: "o-1", Status: domain.PaymentStatusCompleted},
		},
	}
	mux := newTestMux(&fakePlacer{}, store)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var order domain.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
		assert.Equal(t, "ORD-1", order.OrderNumber)
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("payment", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-1/payment", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var payment domain.Payment
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&payment))
		assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := newTestMux(&fakePlacer{}, &fakeStore{err: errors.New("db down")})
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-1", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_HandleList(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		store := &fakeStore{orders: map[string]*domain.Order{}}
		rec := httptest.NewRecorder()
		newTestMux(&fakePlacer{}, store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultListLimit, store.limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		store := &fakeStore{orders: map[string]*domain.Order{}}
		rec := httptest.NewRecorder()
		newTestMux(&fakePlacer{}, store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?limit=10000", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, maxListLimit, store.limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestMux(&fakePlacer{}, &fakeStore{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_HandleUpdateStatus(t *testing.T) {
	newStore := func() *fakeStore {
		return &fakeStore{orders: map[string]*domain.Order{
			"o-1": {ID: "o-1", Status: domain.OrderStatusConfirmed},
			"o-2": {ID: "o-2", Status: domain.OrderStatusDelivered},
		}}
	}

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"allowed transition", "/orders/o-1/status", `{"status":"PROCESSING"}`, http.StatusOK},
		{"skipping a step", "/orders/o-1/status", `{"status":"DELIVERED"}`, http.StatusConflict},
		{"terminal order", "/orders/o-2/status", `{"status":"CANCELLED"}`, http.StatusConflict},
		{"unknown status", "/orders/o-1/status", `{"status":"LOST"}`, http.StatusBadRequest},
		{"malformed body", "/orders/o-1/status", `nope`, http.StatusBadRequest},
		{"unknown order", "/orders/o-9/status", `{"status":"PROCESSING"}`, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestMux(&fakePlacer{}, newStore())

			req := httptest.NewRequest(http.MethodPatch, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
