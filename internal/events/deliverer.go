package events

import (
	"context"
	"time"

	"github.com/wolfman30/callflow-ai/pkg/logging"
)

const (
	defaultBatchSize       = 25
	defaultDeliverInterval = 2 * time.Second
)

// DeliveryHandler relays one staged entry downstream.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry OutboxEntry) error
}

// Deliverer moves staged events from the outbox to a DeliveryHandler.
type Deliverer struct {
	store     *OutboxStore
	handler   DeliveryHandler
	logger    *logging.Logger
	batchSize int
	interval  time.Duration
}

type DelivererOption func(*Deliverer)

func WithBatchSize(n int) DelivererOption {
	return func(d *Deliverer) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

func WithInterval(interval time.Duration) DelivererOption {
	return func(d *Deliverer) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

func WithDelivererLogger(logger *logging.Logger) DelivererOption {
	return func(d *Deliverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDeliverer(store *OutboxStore, handler DeliveryHandler, opts ...DelivererOption) *Deliverer {
	d := &Deliverer{
		store:     store,
		handler:   handler,
		logger:    logging.Default(),
		batchSize: defaultBatchSize,
		interval:  defaultDeliverInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drains once, then again every interval, until ctx is done.
func (d *Deliverer) Run(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	d.drain(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain relays one batch and reports how many entries went out.
func (d *Deliverer) drain(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	entries, err := d.store.Pending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return 0
	}

	delivered := 0
	for _, entry := range entries {
		if err := d.handler.Handle(ctx, entry); err != nil {
			d.logger.Warn("outbox delivery failed",
				"event_id", entry.ID, "subject", entry.Subject, "attempt", entry.Attempts+1, "error", err)
			if markErr := d.store.MarkFailed(ctx, entry.ID, err); markErr != nil {
				d.logger.Error("outbox bookkeeping failed", "event_id", entry.ID, "error", markErr)
			}
			continue
		}
		if err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
			// The entry goes out again on the next drain.
			d.logger.Error("outbox bookkeeping failed", "event_id", entry.ID, "error", err)
			continue
		}
		delivered++
	}
	if delivered > 0 {
		d.logger.Debug("outbox drained", "delivered", delivered, "fetched", len(entries))
	}
	return delivered
}
