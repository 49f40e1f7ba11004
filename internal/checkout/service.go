// Package checkout turns a create-order request into a committed order: it
// validates the request, resolves the customer's account, prices every line
// against the live catalog and hands the result to the order store. The
// confirmation notification is handed off afterwards and never affects the
// outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

var tracer = otel.Tracer("checkout")

type AccountReader interface {
	Account(ctx context.Context, id string) (*domain.Account, error)
}

type OrderCommitter interface {
	Commit(ctx context.Context, draft *domain.OrderDraft) (*domain.Order, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, event domain.OrderPlacedEvent)
}

type Service struct {
	assembler *Assembler
	accounts  AccountReader
	orders    OrderCommitter
	notifier  Notifier
	bank      *domain.BankDetails
	logger    *slog.Logger

	placed   metric.Int64Counter
	rejected metric.Int64Counter
}

type Option func(*Service)

// WithBankDetails sets the account details shown to bank-transfer customers.
func WithBankDetails(bank domain.BankDetails) Option {
	return func(s *Service) {
		s.bank = &bank
	}
}

func NewService(assembler *Assembler, accounts AccountReader, orders OrderCommitter, notifier Notifier, logger *slog.Logger, opts ...Option) (*Service, error) {
	meter := otel.Meter("checkout")

	placed, err := meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders committed, by payment method"))
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("checkout.orders.rejected",
		metric.WithDescription("Orders rejected, by reason"))
	if err != nil {
		return nil, err
	}

	s := &Service{
		assembler: assembler,
		accounts:  accounts,
		orders:    orders,
		notifier:  notifier,
		logger:    logger,
		placed:    placed,
		rejected:  rejected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PlaceOrder runs the whole checkout. customerID is empty for guests.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, req CreateOrderRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder",
		trace.WithAttributes(
			attribute.String("payment.method", string(req.PaymentMethod)),
			attribute.Int("order.items", len(req.Items)),
			attribute.Bool("customer.guest", customerID == ""),
		),
	)
	defer span.End()

	order, err := s.placeOrder(ctx, customerID, req)
	if err != nil {
		reason := rejectionReason(err)
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		span.SetAttributes(attribute.String("checkout.rejection", reason))
		if reason == "persistence" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(order.PaymentMethod))))
	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, customerID string, req CreateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(customerID); err != nil {
		return nil, err
	}

	var account *domain.Account
	if customerID != "" {
		var err error
		account, err = s.accounts.Account(ctx, customerID)
		if err != nil {
			return nil, s.persistenceError(ctx, "failed to load account", err, customerID, req)
		}
		if account == nil {
			return nil, domain.AccountNotFound(customerID)
		}
	}

	dealerRate := account.EffectiveDiscountRate()
	if !req.DiscountRate.IsZero() && !req.DiscountRate.Equal(dealerRate) {
		s.logger.WarnContext(ctx, "requested discount rate differs from account rate",
			"customer_id", customerID, "requested", req.DiscountRate.String(), "applied", dealerRate.String())
	}

	assembly, err := s.assembler.Assemble(ctx, req.Items, dealerRate, req.shippingCost())
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, s.persistenceError(ctx, "failed to assemble order", err, customerID, req)
	}

	draft := &domain.OrderDraft{
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		CargoCompany:    optional(req.CargoCompany),
		Notes:           optional(req.Notes),
		Lines:           assembly.Lines,
		Subtotal:        assembly.Summary.Subtotal,
		DiscountAmount:  assembly.Summary.DiscountAmount,
		VATAmount:       assembly.Summary.VATAmount,
		ShippingCost:    assembly.Summary.ShippingCost,
		Total:           assembly.Summary.Total,
	}
	if account != nil {
		draft.CustomerID = &account.ID
	} else {
		draft.GuestEmail = optional(req.GuestEmail)
	}

	order, err := s.orders.Commit(ctx, draft)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, s.persistenceError(ctx, "failed to commit order", err, customerID, req)
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"customer_id", customerID,
		"payment_method", order.PaymentMethod,
		"total", order.Total.StringFixed(2),
	)

	s.notifier.Dispatch(ctx, s.placedEvent(order, account, req))
	return order, nil
}

func (s *Service) placedEvent(order *domain.Order, account *domain.Account, req CreateOrderRequest) domain.OrderPlacedEvent {
	event := domain.OrderPlacedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  req.ShippingAddress.Name,
		CustomerEmail: strings.TrimSpace(req.GuestEmail),
		Items:         order.Items,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Timestamp:     order.CreatedAt,
	}
	if account != nil {
		event.CustomerName = account.Name
		event.CustomerEmail = account.Email
	}
	if order.PaymentMethod == domain.PaymentMethodBankTransfer && s.bank != nil {
		bank := *s.bank
		event.BankDetails = &bank
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

func (s *Service) persistenceError(ctx context.Context, msg string, err error, customerID string, req CreateOrderRequest) error {
	s.logger.ErrorContext(ctx, msg,
		"error", err,
		"customer_id", customerID,
		"guest_email", req.GuestEmail,
		"payment_method", req.PaymentMethod,
		"items", len(req.Items),
	)
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrCreditLimitExceeded)
}

func rejectionReason(err error) string {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return string(validation.Reason)
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCreditLimitExceeded):
		return "credit_limit_exceeded"
	default:
		return "persistence"
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
