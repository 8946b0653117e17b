package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/marcheroute/marcheroute/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	City string `json:"city"`
	Lat  float64
}

func newMockedManager(t *testing.T) (*Manager, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	manager := NewManager(redis.NewClientFromRedis(db), DefaultTTL())
	return manager, mock
}

func TestGetMiss(t *testing.T) {
	manager, mock := newMockedManager(t)
	mock.ExpectGet("geocode:paris").RedisNil()

	var out payload
	assert.False(t, manager.Get(context.Background(), "geocode:paris", &out))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetThenGet(t *testing.T) {
	manager, mock := newMockedManager(t)

	value := payload{City: "Paris", Lat: 48.85}
	raw, err := json.Marshal(value)
	require.NoError(t, err)

	mock.ExpectSet("geocode:paris", raw, time.Hour).SetVal("OK")
	manager.Set(context.Background(), "geocode:paris", value, time.Hour)

	mock.ExpectGet("geocode:paris").SetVal(string(raw))
	var out payload
	require.True(t, manager.Get(context.Background(), "geocode:paris", &out))
	assert.Equal(t, value, out)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDropsCorruptEntries(t *testing.T) {
	manager, mock := newMockedManager(t)
	mock.ExpectGet("pois:abc").SetVal("not json at all")
	mock.ExpectDel("pois:abc").SetVal(1)

	var out payload
	assert.False(t, manager.Get(context.Background(), "pois:abc", &out))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilManagerIsAMissEverywhere(t *testing.T) {
	var manager *Manager

	var out payload
	assert.False(t, manager.Get(context.Background(), "k", &out))
	manager.Set(context.Background(), "k", out, time.Minute) // must not panic
	manager.Invalidate(context.Background(), "k")
	assert.Equal(t, DefaultTTL(), manager.TTLs())
}

func TestGetOrSetComputesOnMiss(t *testing.T) {
	manager, mock := newMockedManager(t)

	value := payload{City: "Paris", Lat: 48.85}
	raw, err := json.Marshal(value)
	require.NoError(t, err)

	mock.ExpectGet("geocode:paris").RedisNil()
	mock.ExpectSet("geocode:paris", raw, time.Hour).SetVal("OK")

	var out payload
	computed := 0
	err = manager.GetOrSet(context.Background(), "geocode:paris", time.Hour, &out, func(ctx context.Context) (interface{}, error) {
		computed++
		return value, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, computed)
	assert.Equal(t, value, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeys(t *testing.T) {
	keys := Keys{}
	assert.Equal(t, "geocode:paris", keys.Geocode("  Paris "))
	assert.Equal(t, "pois:871fb4662ffffff", keys.POIs("871fb4662ffffff"))
	assert.Equal(t, "plan:paris:120", keys.Plan("Paris", 120))
}
