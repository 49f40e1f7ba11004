package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "DEBIT"
	LedgerEntryCredit LedgerEntryType = "CREDIT"
)

const ProcessTypeOrder = "ORDER"

type LedgerEntry struct {
	ID          string          `json:"id" db:"id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	Type        LedgerEntryType `json:"type" db:"entry_type"`
	ProcessType string          `json:"process_type" db:"process_type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	OrderID     *string         `json:"order_id,omitempty" db:"order_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type Account struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Email        string          `json:"email" db:"email"`
	CreditLimit  decimal.Decimal `json:"credit_limit" db:"credit_limit"`
	DiscountRate decimal.Decimal `json:"discount_rate" db:"discount_rate"`
	IsDealer     bool            `json:"is_dealer" db:"is_dealer"`
}

// EffectiveDiscountRate is the dealer rate granted to the account, zero for
// accounts that are not approved dealers.
func (a *Account) EffectiveDiscountRate() decimal.Decimal {
	if a == nil || !a.IsDealer {
		return decimal.Zero
	}
	return a.DiscountRate
}

type Balance struct {
	AccountID   string          `json:"account_id"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CurrentDebt decimal.Decimal `json:"current_debt"`
}

func (b Balance) Available() decimal.Decimal {
	return b.CreditLimit.Sub(b.CurrentDebt)
}
