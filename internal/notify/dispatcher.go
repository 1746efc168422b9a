package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"homeservices/internal/observability"
)

// Options tunes a Dispatcher.
type Options struct {
	BufferSize      int
	Workers         int
	DeliveryTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = 2 * time.Second
	}
	return o
}

// Dispatcher queues notifications on a buffered channel and hands them to a Sink from worker goroutines.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration
	queue   chan Notification

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(sink Sink, logger *slog.Logger, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		sink:    sink,
		logger:  logger.With("component", "notify"),
		timeout: opts.DeliveryTimeout,
		queue:   make(chan Notification, opts.BufferSize),
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.run()
	}
	return d
}

// Notify enqueues n. When the queue is full or the dispatcher is closed the notification is dropped.
func (d *Dispatcher) Notify(_ context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher closed")
		return
	}

	select {
	case d.queue <- n:
	default:
		d.drop(n, "queue full")
	}
}

// Close stops accepting notifications, drains the queue and closes the sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return d.sink.Close()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Deliver(ctx, n); err != nil {
		observability.NotificationsTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		d.logger.Warn("notification delivery failed",
			"kind", n.Kind, "recipient_id", n.RecipientID, "notification_id", n.ID, "error", err)
		return
	}
	observability.NotificationsTotal.WithLabelValues(observability.OutcomeSent).Inc()
}

func (d *Dispatcher) drop(n Notification, reason string) {
	observability.NotificationsTotal.WithLabelValues(observability.OutcomeDropped).Inc()
	d.logger.Warn("notification dropped",
		"kind", n.Kind, "recipient_id", n.RecipientID, "notification_id", n.ID, "reason", reason)
}
