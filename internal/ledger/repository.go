package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
	"github.com/joao-fontenele/storefront-settlement/internal/postgres"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Account(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.GetContext(ctx, &account, `
		SELECT id, name, email, credit_limit, discount_rate, is_dealer
		FROM accounts
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// LockBalance reads the balance while holding a row lock on the account, so a
// credit check and the debit that follows it in the same transaction cannot
// interleave with another order for the same account.
func (r *Repository) LockBalance(ctx context.Context, q postgres.DBTX, accountID string) (domain.Balance, error) {
	balance := domain.Balance{AccountID: accountID}

	err := q.GetContext(ctx, &balance.CreditLimit, `
		SELECT credit_limit
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Balance{}, domain.AccountNotFound(accountID)
		}
		return domain.Balance{}, fmt.Errorf("lock account: %w", err)
	}

	err = q.GetContext(ctx, &balance.CurrentDebt, `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`, accountID)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("sum ledger entries: %w", err)
	}

	return balance, nil
}

func (r *Repository) Append(ctx context.Context, q postgres.DBTX, entry *domain.LedgerEntry) error {
	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, entry_type, process_type, amount, description, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.AccountID, entry.Type, entry.ProcessType, entry.Amount, entry.Description, entry.OrderID, entry.CreatedAt)
	return err
}

type Statement struct {
	Balance domain.Balance      `json:"balance"`
	Entries []domain.LedgerEntry `json:"entries"`
}

// Statement lists the account's entries and the balance derived from them.
// It takes no locks and is meant for display only.
func (r *Repository) Statement(ctx context.Context, accountID string) (*Statement, error) {
	var creditLimit decimal.Decimal
	err := r.db.GetContext(ctx, &creditLimit, `SELECT credit_limit FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	entries := []domain.LedgerEntry{}
	err = r.db.SelectContext(ctx, &entries, `
		SELECT id, account_id, entry_type, process_type, amount, description, order_id, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at, id
	`, accountID)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Balance: domain.Balance{
			AccountID:   accountID,
			CreditLimit: creditLimit,
			CurrentDebt: CurrentDebt(entries),
		},
		Entries: entries,
	}, nil
}
