package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrPersistence         = errors.New("persistence failure")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Reason classifies a validation failure; it is also used as a metric label.
type Reason string

const (
	ReasonMalformedRequest     Reason = "malformed_request"
	ReasonGuestEmailRequired   Reason = "guest_email_required"
	ReasonInvalidAddress       Reason = "invalid_address"
	ReasonInvalidQuantity      Reason = "invalid_quantity"
	ReasonBelowMinimumQuantity Reason = "below_minimum_quantity"
	ReasonInsufficientStock    Reason = "insufficient_stock"
	ReasonPaymentMethod        Reason = "invalid_payment_method"
)

type ValidationError struct {
	Reason  Reason
	Message string
}

func NewValidationError(reason Reason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

func BelowMinimumQuantity(productName string, minimum int) *ValidationError {
	return NewValidationError(ReasonBelowMinimumQuantity,
		fmt.Sprintf("minimum order quantity for %s is %d", productName, minimum))
}

func InsufficientStock(productName string, available int) *ValidationError {
	return NewValidationError(ReasonInsufficientStock,
		fmt.Sprintf("insufficient stock for %s: only %d available", productName, available))
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func ProductNotFound(id string) *NotFoundError { return &NotFoundError{Resource: "product", ID: id} }

func VariantNotFound(id string) *NotFoundError { return &NotFoundError{Resource: "variant", ID: id} }

func AccountNotFound(id string) *NotFoundError { return &NotFoundError{Resource: "account", ID: id} }

type CreditLimitExceededError struct {
	Total     decimal.Decimal
	Available decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded: order total %s exceeds available limit %s",
		e.Total.StringFixed(2), e.Available.StringFixed(2))
}

func (e *CreditLimitExceededError) Unwrap() error { return ErrCreditLimitExceeded }
