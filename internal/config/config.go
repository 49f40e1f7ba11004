// Package config loads service settings from the environment. A .env file
// in the working directory is read first outside production.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

type Postgres struct {
	URL             string        `envconfig:"POSTGRES_URL" required:"true"`
	Schema          string        `envconfig:"POSTGRES_SCHEMA" default:"storefront"`
	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"20"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"30m"`
}

type Telemetry struct {
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"0.1.0"`
	OTLPEndpoint   string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
}

type Bank struct {
	Name          string `envconfig:"BANK_NAME"`
	AccountHolder string `envconfig:"BANK_ACCOUNT_HOLDER"`
	IBAN          string `envconfig:"BANK_IBAN"`
}

// Details returns nil when no bank account is configured.
func (b Bank) Details() *domain.BankDetails {
	if b.IBAN == "" {
		return nil
	}
	return &domain.BankDetails{BankName: b.Name, AccountHolder: b.AccountHolder, IBAN: b.IBAN}
}

type Orders struct {
	Port                string        `envconfig:"PORT" default:"8081"`
	KafkaBrokers        []string      `envconfig:"KAFKA_BROKERS"`
	CatalogParallelism  int           `envconfig:"CATALOG_PARALLELISM" default:"8"`
	NotificationQueue   int           `envconfig:"NOTIFICATION_QUEUE_SIZE" default:"256"`
	NotificationTimeout time.Duration `envconfig:"NOTIFICATION_TIMEOUT" default:"10s"`

	Postgres
	Telemetry
	Bank
}

type Catalog struct {
	Port string `envconfig:"PORT" default:"8082"`

	Postgres
	Telemetry
}

type Worker struct {
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS" required:"true"`
	ConsumerGroup   string   `envconfig:"CONSUMER_GROUP" default:"notification-worker"`
	EmailServiceURL string   `envconfig:"EMAIL_SERVICE_URL" required:"true"`
	AdminEmail      string   `envconfig:"ADMIN_EMAIL"`

	Telemetry
}

type Email struct {
	Port string `envconfig:"PORT" default:"8083"`

	Telemetry
}

type Gateway struct {
	Port              string `envconfig:"PORT" default:"8080"`
	OrdersServiceURL  string `envconfig:"ORDERS_SERVICE_URL" required:"true"`
	CatalogServiceURL string `envconfig:"CATALOG_SERVICE_URL" required:"true"`

	Telemetry
}

// Load fills cfg, a pointer to one of the structs above.
func Load(cfg any) error {
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("process env: %w", err)
	}
	return nil
}
