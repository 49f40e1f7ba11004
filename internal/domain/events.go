package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BankDetails struct {
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	IBAN          string `json:"iban"`
}

type OrderPlacedEvent struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Items         []PricedLine    `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	BankDetails   *BankDetails    `json:"bank_details,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
