// Package ledger keeps the running DEBIT/CREDIT balance of deferred-payment
// accounts and decides whether a new order fits in the remaining credit.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

// CurrentDebt is the sum of debits minus the sum of credits.
func CurrentDebt(entries []domain.LedgerEntry) decimal.Decimal {
	debt := decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case domain.LedgerEntryDebit:
			debt = debt.Add(e.Amount)
		case domain.LedgerEntryCredit:
			debt = debt.Sub(e.Amount)
		}
	}
	return debt
}

// CheckCredit fails when total does not fit in the balance's available limit.
func CheckCredit(balance domain.Balance, total decimal.Decimal) error {
	available := balance.Available()
	if total.GreaterThan(available) {
		return &domain.CreditLimitExceededError{Total: total, Available: available}
	}
	return nil
}

// OrderDebit builds the entry posted when a deferred-account order is placed.
func OrderDebit(accountID string, order *domain.Order) domain.LedgerEntry {
	orderID := order.ID
	return domain.LedgerEntry{
		AccountID:   accountID,
		Type:        domain.LedgerEntryDebit,
		ProcessType: domain.ProcessTypeOrder,
		Amount:      order.Total,
		Description: "Order " + order.OrderNumber,
		OrderID:     &orderID,
	}
}
