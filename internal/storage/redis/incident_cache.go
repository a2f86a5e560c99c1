package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/domain/incident"
)

const incidentCacheTTL = 5 * time.Minute

// IncidentCache is a read-through cache of incidents by ID. Cache
// trouble is never surfaced to callers; a miss just falls back to the
// repository.
type IncidentCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewIncidentCache(client *redis.Client, logger *zap.Logger) *IncidentCache {
	return &IncidentCache{
		client: client,
		logger: logger.Named("IncidentCache"),
	}
}

func incidentKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id)
}

func (c *IncidentCache) Get(ctx context.Context, id uuid.UUID) (*incident.Incident, bool) {
	data, err := c.client.Get(ctx, incidentKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read incident from cache", zap.String("id", id.String()), zap.Error(err))
		}
		return nil, false
	}

	var inc incident.Incident
	if err := json.Unmarshal(data, &inc); err != nil {
		c.logger.Warn("Failed to decode cached incident, dropping entry", zap.String("id", id.String()), zap.Error(err))
		c.Invalidate(ctx, id)
		return nil, false
	}

	return &inc, true
}

func (c *IncidentCache) Set(ctx context.Context, inc *incident.Incident) {
	data, err := json.Marshal(inc)
	if err != nil {
		c.logger.Warn("Failed to encode incident for cache", zap.String("id", inc.ID.String()), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, incidentKey(inc.ID), data, incidentCacheTTL).Err(); err != nil {
		c.logger.Warn("Failed to write incident to cache", zap.String("id", inc.ID.String()), zap.Error(err))
	}
}

func (c *IncidentCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, incidentKey(id)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate cached incident", zap.String("id", id.String()), zap.Error(err))
	}
}
