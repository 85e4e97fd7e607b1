package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

// IdentityCache is a read-through cache in front of provider and patient
// lookups. Redis failures fall back to the wrapped repository; misses for
// absent identities are not cached.
type IdentityCache struct {
	next   scheduling.IdentityRepository
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

var _ scheduling.IdentityRepository = (*IdentityCache)(nil)

func NewIdentityCache(next scheduling.IdentityRepository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *IdentityCache {
	return &IdentityCache{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    logger.With().Str("component", "identity_cache").Logger(),
	}
}

func (c *IdentityCache) GetProviderByID(ctx context.Context, id uuid.UUID) (*scheduling.Provider, error) {
	key := "provider:" + id.String()

	var p scheduling.Provider
	if c.get(ctx, key, &p) {
		return &p, nil
	}

	found, err := c.next.GetProviderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, found)
	return found, nil
}

func (c *IdentityCache) GetPatientByID(ctx context.Context, id uuid.UUID) (*scheduling.Patient, error) {
	key := "patient:" + id.String()

	var p scheduling.Patient
	if c.get(ctx, key, &p) {
		return &p, nil
	}

	found, err := c.next.GetPatientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, found)
	return found, nil
}

func (c *IdentityCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("identity cache read")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("identity cache decode")
		return false
	}
	return true
}

func (c *IdentityCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("identity cache write")
	}
}

type cachedRepository struct {
	scheduling.Repository
	cache *IdentityCache
}

func (r cachedRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*scheduling.Provider, error) {
	return r.cache.GetProviderByID(ctx, id)
}

func (r cachedRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*scheduling.Patient, error) {
	return r.cache.GetPatientByID(ctx, id)
}

// WithIdentityCache returns repo with its identity lookups served through a
// Redis cache. Every other method goes straight to repo.
func WithIdentityCache(repo scheduling.Repository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) scheduling.Repository {
	return cachedRepository{
		Repository: repo,
		cache:      NewIdentityCache(repo, client, ttl, logger),
	}
}
