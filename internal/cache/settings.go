package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anonsched/scheduler/internal/model"
)

const (
	// PublicSettingsTTL bounds staleness if an invalidation is lost.
	PublicSettingsTTL = 10 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetPublicSettings returns the cached public settings.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetPublicSettings(ctx context.Context) (*model.PublicSettings, error) {
	raw, err := c.client.Get(ctx, c.key("settings", "public")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var settings model.PublicSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		// Treat a corrupt entry as a miss; the next Set overwrites it.
		return nil, ErrCacheMiss
	}
	return &settings, nil
}

// SetPublicSettings stores the public settings view.
func (c *Cache) SetPublicSettings(ctx context.Context, settings model.PublicSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal public settings: %w", err)
	}
	if err := c.client.Set(ctx, c.key("settings", "public"), raw, PublicSettingsTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache public settings: %w", err)
	}
	return nil
}

// DeletePublicSettings invalidates the cached public settings.
func (c *Cache) DeletePublicSettings(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key("settings", "public")).Err(); err != nil {
		return fmt.Errorf("failed to invalidate public settings: %w", err)
	}
	return nil
}
