package test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	storepg "github.com/joao-fontenele/storefront-settlement/internal/postgres"
)

const Schema = "storefront"

type PostgresSetup struct {
	ConnStr string
	cleanup func()
}

func (p *PostgresSetup) Cleanup() {
	p.cleanup()
}

func SetupPostgres(ctx context.Context, t *testing.T) *PostgresSetup {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}

	return &PostgresSetup{ConnStr: connStr, cleanup: cleanup}
}

func runMigrations(connStr string) error {
	m, err := migrate.New(migrationsPath(), connStr)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func migrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	testDir := filepath.Dir(filename)
	projectRoot := filepath.Dir(testDir)
	return "file://" + filepath.Join(projectRoot, "migrations")
}

func SetupKafka(ctx context.Context, t *testing.T) ([]string, func()) {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("test-cluster"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers, cleanup
}

// OpenDB connects to the storefront schema the same way the services do.
func OpenDB(ctx context.Context, t *testing.T, connStr string) *sqlx.DB {
	t.Helper()

	db, err := storepg.Open(ctx, connStr, storepg.Options{Schema: Schema, MaxOpenConns: 20})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type Product struct {
	ID          string
	Name        string
	ListPrice   string
	SalePrice   string
	VATRate     string
	MinQuantity int
	Stock       int
}

func SeedProduct(ctx context.Context, t *testing.T, db *sqlx.DB, p Product) {
	t.Helper()

	var sale decimal.NullDecimal
	if p.SalePrice != "" {
		sale = decimal.NewNullDecimal(decimal.RequireFromString(p.SalePrice))
	}
	minQty := max(p.MinQuantity, 1)

	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, list_price, sale_price, vat_rate, min_quantity, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.ListPrice, sale, p.VATRate, minQty, p.Stock)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", p.ID, err)
	}
}

func SeedVariant(ctx context.Context, t *testing.T, db *sqlx.DB, productID, id, name string, stock int) {
	t.Helper()

	_, err := db.ExecContext(ctx, `
		INSERT INTO product_variants (id, product_id, name, stock)
		VALUES ($1, $2, $3, $4)
	`, id, productID, name, stock)
	if err != nil {
		t.Fatalf("failed to seed variant %s: %v", id, err)
	}
}

type Account struct {
	ID           string
	Name         string
	Email        string
	CreditLimit  string
	DiscountRate string
	IsDealer     bool
}

func SeedAccount(ctx context.Context, t *testing.T, db *sqlx.DB, a Account) {
	t.Helper()

	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, credit_limit, discount_rate, is_dealer)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Name, a.Email, a.CreditLimit, a.DiscountRate, a.IsDealer)
	if err != nil {
		t.Fatalf("failed to seed account %s: %v", a.ID, err)
	}
}

func Stock(ctx context.Context, t *testing.T, db *sqlx.DB, productID string) int {
	t.Helper()

	var stock int
	if err := db.GetContext(ctx, &stock, `SELECT stock FROM products WHERE id = $1`, productID); err != nil {
		t.Fatalf("failed to read stock for %s: %v", productID, err)
	}
	return stock
}

func Count(ctx context.Context, t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()

	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
