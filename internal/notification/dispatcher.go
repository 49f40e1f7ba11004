// Package notification hands order confirmations to the message bus off the
// request path. Delivery is best effort: a full queue or a failed publish is
// logged and counted, never reported to the caller.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

var tracer = otel.Tracer("notification")

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 10 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type job struct {
	event domain.OrderPlacedEvent
	link  trace.Link
}

type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	queue     chan job
	timeout   time.Duration

	dropped   metric.Int64Counter
	published metric.Int64Counter

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

type Option func(*Dispatcher)

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan job, n)
		}
	}
}

func WithPublishTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func NewDispatcher(publisher Publisher, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	meter := otel.Meter("notification")

	dropped, err := meter.Int64Counter("notification.dropped",
		metric.WithDescription("Order notifications dropped before publishing"))
	if err != nil {
		return nil, err
	}

	published, err := meter.Int64Counter("notification.published",
		metric.WithDescription("Order notifications handed to the message bus"))
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan job, defaultQueueSize),
		timeout:   defaultPublishTimeout,
		dropped:   dropped,
		published: published,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start launches the background publisher. It runs until Close.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for j := range d.queue {
			d.publish(j)
		}
	}()
}

// Dispatch enqueues the event and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.OrderPlacedEvent) {
	j := job{
		event: event,
		link:  trace.LinkFromContext(ctx),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, event, "closed")
		return
	}

	select {
	case d.queue <- j:
	default:
		d.drop(ctx, event, "queue_full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, event domain.OrderPlacedEvent, reason string) {
	d.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	d.logger.WarnContext(ctx, "order notification dropped",
		"order_id", event.OrderID,
		"order_number", event.OrderNumber,
		"reason", reason,
	)
}

// The publish runs on its own context so a finished request cannot cancel it.
func (d *Dispatcher) publish(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "notification.publish",
		trace.WithLinks(j.link),
		trace.WithAttributes(attribute.String("order.id", j.event.OrderID)),
	)
	defer span.End()

	if err := d.publisher.Publish(ctx, j.event.OrderID, j.event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "publish_failed")))
		d.logger.ErrorContext(ctx, "failed to publish order notification",
			"error", err,
			"order_id", j.event.OrderID,
			"order_number", j.event.OrderNumber,
		)
		return
	}

	d.published.Add(ctx, 1)
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for range d.queue {
		}
		return
	}
	d.wg.Wait()
}
