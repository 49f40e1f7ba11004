package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/storefront-settlement/internal/catalog"
	"github.com/joao-fontenele/storefront-settlement/internal/checkout"
	"github.com/joao-fontenele/storefront-settlement/internal/config"
	"github.com/joao-fontenele/storefront-settlement/internal/ledger"
	"github.com/joao-fontenele/storefront-settlement/internal/messaging"
	"github.com/joao-fontenele/storefront-settlement/internal/notification"
	"github.com/joao-fontenele/storefront-settlement/internal/orders"
	"github.com/joao-fontenele/storefront-settlement/internal/postgres"
	"github.com/joao-fontenele/storefront-settlement/internal/telemetry"
)

// discardPublisher stands in for Kafka when no brokers are configured.
type discardPublisher struct {
	logger *slog.Logger
}

func (p discardPublisher) Publish(ctx context.Context, key string, _ any) error {
	p.logger.InfoContext(ctx, "kafka disabled, notification not published", "key", key)
	return nil
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.Orders
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", cfg.ServiceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := postgres.Open(ctx, cfg.Postgres.URL, postgres.Options{
		Schema:          cfg.Schema,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var publisher notification.Publisher = discardPublisher{logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderPlaced)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	dispatcher, err := notification.NewDispatcher(publisher, logger,
		notification.WithQueueSize(cfg.NotificationQueue),
		notification.WithPublishTimeout(cfg.NotificationTimeout),
	)
	if err != nil {
		logger.Error("failed to create notification dispatcher", "error", err)
		os.Exit(1)
	}
	dispatcher.Start()
	defer dispatcher.Close()

	catalogRepo := catalog.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	ordersRepo := orders.NewOrderRepository(db, ledgerRepo, catalogRepo)

	var opts []checkout.Option
	if bank := cfg.Bank.Details(); bank != nil {
		opts = append(opts, checkout.WithBankDetails(*bank))
	} else {
		logger.Warn("no bank account configured, bank transfer confirmations will omit payment details")
	}

	service, err := checkout.NewService(
		checkout.NewAssembler(catalogRepo, cfg.CatalogParallelism),
		ledgerRepo,
		ordersRepo,
		dispatcher,
		logger,
		opts...,
	)
	if err != nil {
		logger.Error("failed to create checkout service", "error", err)
		os.Exit(1)
	}

	handler := orders.NewHandler(service, ordersRepo, logger)
	ledgerHandler := ledger.NewHandler(ledgerRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleCreate))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("GET /orders/{id}/payment", telemetry.WithHTTPRoute(handler.HandleGetPayment))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleUpdateStatus))
	mux.HandleFunc("GET /accounts/{id}/statement", telemetry.WithHTTPRoute(ledgerHandler.HandleStatement))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.NewHTTPHandler(mux, "orders"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", cfg.Port, "kafka", len(cfg.KafkaBrokers) > 0)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
