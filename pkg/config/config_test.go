package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("planner")
	require.NoError(t, err)

	assert.Equal(t, "planner", cfg.Server.ServiceName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Upstreams.NominatimURL)
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.Upstreams.OverpassURL)
	assert.Empty(t, cfg.Upstreams.RouterURL)
	assert.Equal(t, "marcheroute/0.0.1", cfg.Upstreams.UserAgent)
	assert.Equal(t, "https://api.mistral.ai/v1", cfg.Mistral.BaseURL)
	assert.Equal(t, "mistral-small-latest", cfg.Mistral.Model)
	assert.Equal(t, "http://localhost:8000", cfg.Gateway.PlannerURL)
	assert.Equal(t, "walk-route", cfg.Map.OverlayName)
	assert.Equal(t, 40, cfg.Map.FitPadding)
	assert.Equal(t, float64(2), cfg.Map.Zoom)
	assert.False(t, cfg.Resilience.CircuitBreaker.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ROUTER_URL", "http://router.project-osrm.org")
	t.Setenv("PLANNER_TIMEOUT_SECONDS", "30")

	cfg, err := Load("walkview")
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, "http://router.project-osrm.org", cfg.Upstreams.RouterURL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout())
}

func TestCircuitBreakerServiceOverrides(t *testing.T) {
	t.Setenv("CB_ENABLED", "true")
	t.Setenv("CB_SERVICE_OVERRIDES", `{"overpass": {"failure_threshold": 10, "timeout_seconds": 120}}`)

	cfg, err := Load("planner")
	require.NoError(t, err)
	require.True(t, cfg.Resilience.CircuitBreaker.Enabled)

	overridden := cfg.Resilience.CircuitBreaker.SettingsFor("overpass")
	assert.Equal(t, 10, overridden.FailureThreshold)
	assert.Equal(t, 120, overridden.TimeoutSeconds)
	// unset override fields keep the defaults
	assert.Equal(t, 1, overridden.SuccessThreshold)

	defaulted := cfg.Resilience.CircuitBreaker.SettingsFor("nominatim")
	assert.Equal(t, 5, defaulted.FailureThreshold)
}

func TestInvalidServiceOverridesIsAnError(t *testing.T) {
	t.Setenv("CB_SERVICE_OVERRIDES", "{not json")

	_, err := Load("planner")
	assert.Error(t, err)
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: "6380"}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
