package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/redis"
	"go.uber.org/zap"
)

// TTL groups the cache lifetimes used across the planner.
type TTL struct {
	Geocode time.Duration
	POIs    time.Duration
	Plan    time.Duration
	Summary time.Duration
}

// DefaultTTL returns the default cache lifetimes. Geocoding results are
// stable for a long time, computed plans much less so.
func DefaultTTL() TTL {
	return TTL{
		Geocode: 24 * time.Hour,
		POIs:    1 * time.Hour,
		Plan:    15 * time.Minute,
		Summary: 1 * time.Hour,
	}
}

// Keys builds namespaced cache keys.
type Keys struct{}

// Geocode keys geocoding results by normalized city name.
func (Keys) Geocode(city string) string {
	return "geocode:" + strings.ToLower(strings.TrimSpace(city))
}

// POIs keys point-of-interest results by the H3 cell of the search center.
func (Keys) POIs(cell string) string {
	return "pois:" + cell
}

// Plan keys computed plans by city and duration.
func (Keys) Plan(city string, durationMinutes int) string {
	return fmt.Sprintf("plan:%s:%d", strings.ToLower(strings.TrimSpace(city)), durationMinutes)
}

// Manager provides JSON get/set semantics on top of the redis client.
// A nil Manager is valid and behaves as a cache miss on every call.
type Manager struct {
	client redis.ClientInterface
	ttl    TTL
}

// NewManager creates a cache manager. client may be nil to disable caching.
func NewManager(client redis.ClientInterface, ttl TTL) *Manager {
	if client == nil {
		return nil
	}
	return &Manager{client: client, ttl: ttl}
}

// TTLs exposes the configured lifetimes.
func (m *Manager) TTLs() TTL {
	if m == nil {
		return DefaultTTL()
	}
	return m.ttl
}

// Get loads a cached JSON value into out. Returns false on a miss.
func (m *Manager) Get(ctx context.Context, key string, out interface{}) bool {
	if m == nil {
		return false
	}

	raw, err := m.client.GetString(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			logger.WarnContext(ctx, "Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.WarnContext(ctx, "Cache entry is corrupt, dropping it", zap.String("key", key), zap.Error(err))
		_ = m.client.Delete(ctx, key)
		return false
	}

	return true
}

// Set stores value as JSON under key with the given TTL. Failures are
// logged, not returned: the cache is best effort.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if m == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.WarnContext(ctx, "Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := m.client.SetWithExpiration(ctx, key, raw, ttl); err != nil {
		logger.WarnContext(ctx, "Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetOrSet returns the cached value for key, computing and storing it on a
// miss.
func (m *Manager) GetOrSet(ctx context.Context, key string, ttl time.Duration, out interface{}, compute func(ctx context.Context) (interface{}, error)) error {
	if m.Get(ctx, key, out) {
		return nil
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	m.Set(ctx, key, value, ttl)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode computed value: %w", err)
	}
	return json.Unmarshal(raw, out)
}

// Invalidate removes the given keys.
func (m *Manager) Invalidate(ctx context.Context, keys ...string) {
	if m == nil || len(keys) == 0 {
		return
	}
	if err := m.client.Delete(ctx, keys...); err != nil {
		logger.WarnContext(ctx, "Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
