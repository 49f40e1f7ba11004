package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joao-fontenele/storefront-settlement/internal/telemetry"
)

type Options struct {
	Schema          string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open connects through the instrumented driver and pins every pooled
// connection to opts.Schema.
func Open(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	dsn, err := WithSearchPath(dsn, opts.Schema)
	if err != nil {
		return nil, err
	}

	sqlDB, err := telemetry.OpenDB("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return sqlx.NewDb(sqlDB, "postgres"), nil
}

// WithSearchPath adds search_path as a connection parameter, so it applies to
// every connection the pool opens rather than just the first one.
func WithSearchPath(dsn, schema string) (string, error) {
	if schema == "" {
		return dsn, nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	return strings.TrimSpace(dsn) + " search_path=" + schema, nil
}
