package checkout

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

type CreateOrderRequest struct {
	Items           []domain.RequestedLine `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	GuestEmail      string                 `json:"guest_email,omitempty"`
	CargoCompany    string                 `json:"cargo_company,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	DiscountRate    decimal.Decimal        `json:"discount_rate"`
	PaymentMethod   domain.PaymentMethod   `json:"payment_method"`
	ShippingCost    decimal.NullDecimal    `json:"shipping_cost"`
	// ShippingDesi is volumetric weight, used for shipping cost display only.
	ShippingDesi decimal.NullDecimal `json:"shipping_desi"`
}

// Validate runs every check that needs no I/O. The guest e-mail check comes
// first.
func (r *CreateOrderRequest) Validate(customerID string) error {
	guest := customerID == ""
	if guest {
		email := strings.TrimSpace(r.GuestEmail)
		if email == "" {
			return domain.NewValidationError(domain.ReasonGuestEmailRequired, "email is required for guest checkout")
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.NewValidationError(domain.ReasonGuestEmailRequired, "guest email is not a valid address")
		}
	}

	if !r.PaymentMethod.Valid() {
		return domain.NewValidationError(domain.ReasonPaymentMethod, "unsupported payment method")
	}
	if guest && r.PaymentMethod == domain.PaymentMethodDeferredAccount {
		return domain.NewValidationError(domain.ReasonPaymentMethod, "current account payment requires a signed-in customer")
	}

	if len(r.Items) == 0 {
		return domain.NewValidationError(domain.ReasonMalformedRequest, "order must contain at least one item")
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return domain.NewValidationError(domain.ReasonMalformedRequest, "every item needs a product id")
		}
		if item.Quantity < 1 {
			return domain.NewValidationError(domain.ReasonInvalidQuantity, "quantity must be a positive whole number")
		}
	}

	if err := r.ShippingAddress.Validate(); err != nil {
		return err
	}

	if r.ShippingCost.Valid && r.ShippingCost.Decimal.IsNegative() {
		return domain.NewValidationError(domain.ReasonMalformedRequest, "shipping cost must not be negative")
	}

	return nil
}

func (r *CreateOrderRequest) shippingCost() decimal.Decimal {
	if r.ShippingCost.Valid {
		return r.ShippingCost.Decimal
	}
	return decimal.Zero
}

type CreateOrderResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Error       string `json:"error,omitempty"`
}

const genericFailure = "your order could not be created, please try again later"

// NewResponse converts the outcome of PlaceOrder into the caller-facing shape.
// Only domain errors are reported verbatim.
func NewResponse(order *domain.Order, err error) CreateOrderResponse {
	if err == nil {
		return CreateOrderResponse{Success: true, OrderID: order.ID, OrderNumber: order.OrderNumber}
	}
	return CreateOrderResponse{Success: false, Error: ErrorMessage(err)}
}

func ErrorMessage(err error) string {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		credit     *domain.CreditLimitExceededError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &notFound):
		return notFound.Resource + " not found"
	case errors.As(err, &credit):
		return credit.Error()
	default:
		return genericFailure
	}
}
