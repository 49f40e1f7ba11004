package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed         OrderStatus = "CONFIRMED"
	OrderStatusWaitingForPayment OrderStatus = "WAITING_FOR_PAYMENT"
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusProcessing        OrderStatus = "PROCESSING"
	OrderStatusShipped           OrderStatus = "SHIPPED"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusConfirmed:         {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusWaitingForPayment: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusPending:           {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:        {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:           {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusWaitingForPayment, OrderStatusPending,
		OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodDeferredAccount PaymentMethod = "DEFERRED_ACCOUNT"
	PaymentMethodCard            PaymentMethod = "CARD"
	PaymentMethodBankTransfer    PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodDeferredAccount, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// InitialOrderStatus is the status an order is created with for this payment method.
func (m PaymentMethod) InitialOrderStatus() OrderStatus {
	switch m {
	case PaymentMethodDeferredAccount:
		return OrderStatusConfirmed
	case PaymentMethodCard:
		return OrderStatusWaitingForPayment
	default:
		return OrderStatusPending
	}
}

// InitialPaymentStatus is COMPLETED only for deferred-account payments, which are
// settled by the ledger debit written in the same transaction.
func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if m == PaymentMethodDeferredAccount {
		return PaymentStatusCompleted
	}
	return PaymentStatusPending
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// PricedLine is an order line after pricing; persisted as an order item.
type PricedLine struct {
	ID                  string          `json:"id,omitempty" db:"id"`
	ProductID           string          `json:"product_id" db:"product_id"`
	VariantID           *string         `json:"variant_id,omitempty" db:"variant_id"`
	VariantInfo         string          `json:"variant_info,omitempty" db:"variant_info"`
	ProductName         string          `json:"product_name" db:"product_name"`
	Quantity            int             `json:"quantity" db:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price" db:"unit_price"`
	AppliedDiscountRate decimal.Decimal `json:"applied_discount_rate" db:"applied_discount_rate"`
	VATRate             decimal.Decimal `json:"vat_rate" db:"vat_rate"`
	LineTotal           decimal.Decimal `json:"line_total" db:"line_total"`

	NetLineTotal   decimal.Decimal `json:"-" db:"-"`
	VATAmount      decimal.Decimal `json:"-" db:"-"`
	DiscountAmount decimal.Decimal `json:"-" db:"-"`
}

// StockKey identifies the stock row a line draws from.
func (l PricedLine) StockKey() StockKey {
	return NewStockKey(l.ProductID, l.VariantID)
}

type Order struct {
	ID              string          `json:"id" db:"id"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	CustomerID      *string         `json:"customer_id,omitempty" db:"customer_id"`
	GuestEmail      *string         `json:"guest_email,omitempty" db:"guest_email"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	VATAmount       decimal.Decimal `json:"vat_amount" db:"vat_amount"`
	ShippingCost    decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	Total           decimal.Decimal `json:"total" db:"total"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method" db:"payment_method"`
	ShippingAddress ShippingAddress `json:"shipping_address" db:"shipping_address"`
	CargoCompany    *string         `json:"cargo_company,omitempty" db:"cargo_company"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Items           []PricedLine    `json:"items" db:"-"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

type Payment struct {
	ID        string          `json:"id" db:"id"`
	OrderID   string          `json:"order_id" db:"order_id"`
	Method    PaymentMethod   `json:"method" db:"method"`
	Status    PaymentStatus   `json:"status" db:"status"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// OrderDraft is everything the commit step needs; all lines are already priced.
type OrderDraft struct {
	CustomerID      *string
	GuestEmail      *string
	PaymentMethod   PaymentMethod
	ShippingAddress ShippingAddress
	CargoCompany    *string
	Notes           *string
	Lines           []PricedLine
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	VATAmount       decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
}
