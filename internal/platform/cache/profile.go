package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

const profilePrefix = "profile:"

// ProfileCache stores user gamification snapshots as JSON.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileCache creates a snapshot cache with the given entry TTL.
func NewProfileCache(c *Cache, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: c.Client, ttl: ttl}
}

// ProfileKey returns the cache key of a user profile.
func ProfileKey(userID string) string {
	return profilePrefix + userID
}

// Get returns the cached snapshot. A miss is reported with ok == false and no error.
func (p *ProfileCache) Get(ctx context.Context, userID string) (progress.UserSnapshot, bool, error) {
	data, err := p.client.Get(ctx, ProfileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return progress.UserSnapshot{}, false, nil
	}
	if err != nil {
		return progress.UserSnapshot{}, false, fmt.Errorf("get profile %s: %w", userID, err)
	}

	var s progress.UserSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		return progress.UserSnapshot{}, false, nil
	}
	return s, true, nil
}

// Set stores the snapshot.
func (p *ProfileCache) Set(ctx context.Context, s progress.UserSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", s.ID, err)
	}
	if err := p.client.Set(ctx, ProfileKey(s.ID), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("set profile %s: %w", s.ID, err)
	}
	return nil
}

// Invalidate drops the cached snapshot.
func (p *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	if err := p.client.Del(ctx, ProfileKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate profile %s: %w", userID, err)
	}
	return nil
}
