package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
	"github.com/joao-fontenele/storefront-settlement/internal/ledger"
	"github.com/joao-fontenele/storefront-settlement/internal/postgres"
)

var tracer = otel.Tracer("orders")

const orderNumberConstraint = "orders_order_number_key"

const orderColumns = `
	id, order_number, customer_id, guest_email,
	subtotal, discount_amount, vat_amount, shipping_cost, total,
	status, payment_method,
	shipping_name AS "shipping_address.name",
	shipping_address AS "shipping_address.address",
	shipping_city AS "shipping_address.city",
	shipping_district AS "shipping_address.district",
	shipping_phone AS "shipping_address.phone",
	cargo_company, notes, created_at`

const itemColumns = `
	id, product_id, variant_id, variant_info, product_name, quantity,
	unit_price, applied_discount_rate, vat_rate, line_total`

type LedgerStore interface {
	LockBalance(ctx context.Context, q postgres.DBTX, accountID string) (domain.Balance, error)
	Append(ctx context.Context, q postgres.DBTX, entry *domain.LedgerEntry) error
}

type StockStore interface {
	DecrementStock(ctx context.Context, q postgres.DBTX, key domain.StockKey, quantity int) error
}

type OrderRepository struct {
	db     *sqlx.DB
	ledger LedgerStore
	stock  StockStore
	now    func() time.Time
}

func NewOrderRepository(db *sqlx.DB, ledger LedgerStore, stock StockStore) *OrderRepository {
	return &OrderRepository{
		db:     db,
		ledger: ledger,
		stock:  stock,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Commit persists the order, its items, its payment, the ledger debit for
// deferred-account payments and the stock decrements as one transaction.
// Nothing is visible unless every step succeeds.
func (r *OrderRepository) Commit(ctx context.Context, draft *domain.OrderDraft) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Commit",
		trace.WithAttributes(
			attribute.String("payment.method", string(draft.PaymentMethod)),
			attribute.Int("order.items", len(draft.Lines)),
		),
	)
	defer span.End()

	var (
		order *domain.Order
		err   error
	)
	// An order number collision is the only failure worth a second attempt.
	for attempt := 0; attempt < 2; attempt++ {
		order, err = r.commitOnce(ctx, draft)
		if !postgres.IsUniqueViolation(err, orderNumberConstraint) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

func (r *OrderRepository) commitOnce(ctx context.Context, draft *domain.OrderDraft) (*domain.Order, error) {
	order := newOrder(draft, r.now())
	deferred := draft.PaymentMethod == domain.PaymentMethodDeferredAccount

	err := postgres.RunInTx(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sqlx.Tx) error {
		if deferred {
			if draft.CustomerID == nil {
				return domain.NewValidationError(domain.ReasonPaymentMethod, "current account payment requires a signed-in customer")
			}
			balance, err := r.ledger.LockBalance(ctx, tx, *draft.CustomerID)
			if err != nil {
				return err
			}
			if err := ledger.CheckCredit(balance, order.Total); err != nil {
				return err
			}
		}

		if err := insertOrder(ctx, tx, order); err != nil {
			return err
		}

		for i := range order.Items {
			if err := insertItem(ctx, tx, order.ID, i, &order.Items[i]); err != nil {
				return err
			}
		}

		payment := &domain.Payment{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			Method:    draft.PaymentMethod,
			Status:    draft.PaymentMethod.InitialPaymentStatus(),
			Amount:    order.Total,
			CreatedAt: order.CreatedAt,
		}
		if err := insertPayment(ctx, tx, payment); err != nil {
			return err
		}

		if deferred {
			entry := ledger.OrderDebit(*draft.CustomerID, order)
			entry.CreatedAt = order.CreatedAt
			if err := r.ledger.Append(ctx, tx, &entry); err != nil {
				return fmt.Errorf("append ledger entry: %w", err)
			}
		}

		for _, d := range stockDecrements(order.Items) {
			if err := r.stock.DecrementStock(ctx, tx, d.key, d.quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func newOrder(draft *domain.OrderDraft, now time.Time) *domain.Order {
	items := make([]domain.PricedLine, len(draft.Lines))
	copy(items, draft.Lines)

	return &domain.Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(now),
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
		CargoCompany:    draft.CargoCompany,
		Notes:           draft.Notes,
		Items:           items,
		CreatedAt:       now,
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ORD-" + now.Format("20060102") + "-" + suffix
}

type stockDecrement struct {
	key      domain.StockKey
	quantity int
}

// stockDecrements merges lines that draw from the same stock row and orders
// the rows deterministically, so concurrent commits lock rows in the same order.
func stockDecrements(items []domain.PricedLine) []stockDecrement {
	merged := make(map[domain.StockKey]int, len(items))
	for _, item := range items {
		merged[item.StockKey()] += item.Quantity
	}

	out := make([]stockDecrement, 0, len(merged))
	for key, qty := range merged {
		out = append(out, stockDecrement{key: key, quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].key.ProductID != out[j].key.ProductID {
			return out[i].key.ProductID < out[j].key.ProductID
		}
		return out[i].key.VariantID < out[j].key.VariantID
	})
	return out
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	addr := order.ShippingAddress
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, guest_email,
			subtotal, discount_amount, vat_amount, shipping_cost, total,
			status, payment_method,
			shipping_name, shipping_address, shipping_city, shipping_district, shipping_phone,
			cargo_company, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
	`, order.ID, order.OrderNumber, order.CustomerID, order.GuestEmail,
		order.Subtotal, order.DiscountAmount, order.VATAmount, order.ShippingCost, order.Total,
		order.Status, order.PaymentMethod,
		addr.Name, addr.Address, addr.City, addr.District, addr.Phone,
		order.CargoCompany, order.Notes, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, tx *sqlx.Tx, orderID string, position int, item *domain.PricedLine) error {
	item.ID = uuid.New().String()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_items (
			id, order_id, position, product_id, variant_id, variant_info, product_name, quantity,
			unit_price, applied_discount_rate, vat_rate, line_total
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, item.ID, orderID, position, item.ProductID, item.VariantID, item.VariantInfo, item.ProductName, item.Quantity,
		item.UnitPrice, item.AppliedDiscountRate, item.VATRate, item.LineTotal)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func insertPayment(ctx context.Context, tx *sqlx.Tx, payment *domain.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method, status, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, payment.ID, payment.OrderID, payment.Method, payment.Status, payment.Amount, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.GetContext(ctx, order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	order.Items = []domain.PricedLine{}
	err = r.db.SelectContext(ctx, &order.Items, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) Payment(ctx context.Context, orderID string) (*domain.Payment, error) {
	payment := &domain.Payment{}
	err := r.db.GetContext(ctx, payment, `
		SELECT id, order_id, method, status, amount, created_at
		FROM payments
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return payment, nil
}

// UpdateStatus applies an operator transition; it fails with
// domain.ErrInvalidTransition when the state machine does not allow it.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	found := true
	err := postgres.RunInTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var current domain.OrderStatus
		if err := tx.GetContext(ctx, &current, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				found = false
				return nil
			}
			return err
		}

		if !current.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, current, status)
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2
		`, status, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

func (r *OrderRepository) List(ctx context.Context, limit int) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return orders, nil
	}

	index := make(map[string]int, len(orders))
	orderIDs := make([]string, len(orders))
	for i := range orders {
		orders[i].Items = []domain.PricedLine{}
		index[orders[i].ID] = i
		orderIDs[i] = orders[i].ID
	}

	var items []struct {
		OrderID string `db:"order_id"`
		domain.PricedLine
	}
	err = r.db.SelectContext(ctx, &items, `
		SELECT order_id, `+itemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item.PricedLine)
	}

	return orders, nil
}
