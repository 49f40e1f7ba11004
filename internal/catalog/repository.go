package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
	"github.com/joao-fontenele/storefront-settlement/internal/postgres"
)

const productColumns = `
	p.id AS product_id,
	p.list_price,
	p.sale_price,
	p.vat_rate,
	p.min_quantity`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Get always reads from the database; stock and prices may have changed since
// the cart was filled.
func (r *Repository) Get(ctx context.Context, productID string, variantID *string) (*domain.CatalogLine, error) {
	line := &domain.CatalogLine{}

	if variantID == nil {
		err := r.db.GetContext(ctx, line, `
			SELECT `+productColumns+`, p.name AS display_name, p.stock AS available_stock
			FROM products p
			WHERE p.id = $1 AND p.is_active
		`, productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ProductNotFound(productID)
			}
			return nil, fmt.Errorf("get product %s: %w", productID, err)
		}
		return line, nil
	}

	err := r.db.GetContext(ctx, line, `
		SELECT `+productColumns+`,
			v.id AS variant_id,
			p.name || COALESCE(' - ' || v.name, '') AS display_name,
			COALESCE(v.stock, 0) AS available_stock
		FROM products p
		LEFT JOIN product_variants v ON v.product_id = p.id AND v.id = $2
		WHERE p.id = $1 AND p.is_active
	`, productID, *variantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ProductNotFound(productID)
		}
		return nil, fmt.Errorf("get variant %s: %w", *variantID, err)
	}
	if line.VariantID == nil {
		return nil, domain.VariantNotFound(*variantID)
	}

	return line, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.CatalogLine, error) {
	lines := []domain.CatalogLine{}
	err := r.db.SelectContext(ctx, &lines, `
		SELECT `+productColumns+`, p.name AS display_name, p.stock AS available_stock
		FROM products p
		WHERE p.is_active
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// DecrementStock subtracts quantity only if the row keeps a non-negative stock;
// the check and the write are one statement, so concurrent orders for the last
// units cannot both succeed.
func (r *Repository) DecrementStock(ctx context.Context, q postgres.DBTX, key domain.StockKey, quantity int) error {
	var (
		result sql.Result
		err    error
	)
	if key.IsVariant() {
		result, err = q.ExecContext(ctx, `
			UPDATE product_variants
			SET stock = stock - $3
			WHERE product_id = $1 AND id = $2 AND stock >= $3
		`, key.ProductID, key.VariantID, quantity)
	} else {
		result, err = q.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
		`, key.ProductID, quantity)
	}
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.shortage(ctx, q, key)
	}

	return nil
}

func (r *Repository) shortage(ctx context.Context, q postgres.DBTX, key domain.StockKey) error {
	var current struct {
		Name  string `db:"name"`
		Stock int    `db:"stock"`
	}

	var err error
	if key.IsVariant() {
		err = q.GetContext(ctx, &current, `
			SELECT p.name || ' - ' || v.name AS name, v.stock
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.product_id = $1 AND v.id = $2
		`, key.ProductID, key.VariantID)
	} else {
		err = q.GetContext(ctx, &current, `SELECT name, stock FROM products WHERE id = $1`, key.ProductID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if key.IsVariant() {
				return domain.VariantNotFound(key.VariantID)
			}
			return domain.ProductNotFound(key.ProductID)
		}
		return fmt.Errorf("read stock %s: %w", key, err)
	}

	return domain.InsufficientStock(current.Name, current.Stock)
}
