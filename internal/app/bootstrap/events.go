package bootstrap

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/callflow-ai/internal/config"
	"github.com/wolfman30/callflow-ai/internal/events"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

// EventPipeline is the publisher handed to services plus whatever runs behind it.
// Publisher is nil when NATS is not configured, which turns events off.
type EventPipeline struct {
	Publisher events.Publisher
	Deliverer *events.Deliverer
	nats      *events.NATSPublisher
}

// BuildEventPipeline connects to NATS when configured. With the outbox enabled,
// services write events to Postgres and the Deliverer relays them to NATS.
func BuildEventPipeline(cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) (*EventPipeline, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.NatsURL) == "" {
		logger.Info("nats not configured; domain events disabled")
		return &EventPipeline{}, nil
	}

	natsPub, err := events.NewNATSPublisher(cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		return nil, err
	}

	if cfg.EventsOutbox && pool != nil {
		store := events.NewOutboxStore(pool)
		deliverer := events.NewDeliverer(store, natsPub,
			events.WithInterval(cfg.OutboxInterval),
			events.WithDelivererLogger(logger),
		)
		logger.Info("domain events staged through outbox", "interval", cfg.OutboxInterval)
		return &EventPipeline{Publisher: store, Deliverer: deliverer, nats: natsPub}, nil
	}

	logger.Info("domain events published directly to nats")
	return &EventPipeline{Publisher: natsPub, nats: natsPub}, nil
}

// Run blocks relaying outbox entries until ctx is done. It returns at once
// when the outbox is not in use.
func (p *EventPipeline) Run(ctx context.Context) {
	if p == nil || p.Deliverer == nil {
		return
	}
	p.Deliverer.Run(ctx)
}

func (p *EventPipeline) Close() {
	if p == nil {
		return
	}
	p.nats.Close()
}
