package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/callflow-ai/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultCacheTTL = 10 * time.Minute

// CachedRepository is a read-through redis cache in front of another Repository.
// Redis failures degrade to the underlying repository and are only logged.
type CachedRepository struct {
	Repository
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logging.Logger
}

func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if next == nil {
		panic("sessions: underlying repository cannot be nil")
	}
	if client == nil {
		panic("sessions: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{
		Repository: next,
		redis:      client,
		ttl:        ttl,
		tracer:     otel.Tracer("callflow.internal.sessions.cache"),
		logger:     logger,
	}
}

func (c *CachedRepository) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := c.tracer.Start(ctx, "sessions.cache.get")
	defer span.End()

	data, err := c.redis.Get(ctx, sessionKey(id)).Bytes()
	switch {
	case err == nil:
		var s Session
		jsonErr := json.Unmarshal(data, &s)
		if jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &s, nil
		}
		span.RecordError(jsonErr)
		c.logger.Warn("session cache entry unreadable", "session_id", id, "error", jsonErr)
	case errors.Is(err, redis.Nil):
	default:
		span.RecordError(err)
		c.logger.Warn("session cache read failed", "session_id", id, "error", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	s, err := c.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, s)
	return s, nil
}

func (c *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedRepository) SaveAgentConfig(ctx context.Context, cfg *AgentConfig) error {
	if err := c.Repository.SaveAgentConfig(ctx, cfg); err != nil {
		return err
	}
	c.invalidate(ctx, cfg.SessionID)
	return nil
}

func (c *CachedRepository) store(ctx context.Context, s *Session) {
	data, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("session cache encode failed", "session_id", s.ID, "error", err)
		return
	}
	if err := c.redis.Set(ctx, sessionKey(s.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("session cache write failed", "session_id", s.ID, "error", err)
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		c.logger.Warn("session cache invalidate failed", "session_id", id, "error", err)
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("callflow:session:%s", id)
}
