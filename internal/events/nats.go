package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes JSON payloads on a core NATS connection.
type NATSPublisher struct {
	conn   natsConn
	logger *logging.Logger
}

func NewNATSPublisher(url, token string, logger *logging.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []nats.Option{
		nats.Name("callflow-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: nats connect: %w", err)
	}
	return &NATSPublisher{conn: nc, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s payload: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

// Handle forwards an outbox entry as-is, satisfying DeliveryHandler.
func (p *NATSPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.Publish(entry.Subject, entry.Payload); err != nil {
		return fmt.Errorf("events: publish %s: %w", entry.Subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
