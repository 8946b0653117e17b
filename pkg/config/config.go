package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Upstreams  UpstreamsConfig
	Mistral    MistralConfig
	Gateway    GatewayConfig
	Map        MapConfig
	Resilience ResilienceConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	CORSOrigins    string // Comma-separated list of allowed origins
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// UpstreamsConfig holds the external geo services the planner depends on
type UpstreamsConfig struct {
	NominatimURL string
	OverpassURL  string
	RouterURL    string // optional OSRM/GraphHopper-style router; empty enables the fallback polyline
	UserAgent    string
	TimeoutSecs  int
}

// MistralConfig holds the text-generation upstream configuration
type MistralConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GatewayConfig points the view service at the planner backend
type GatewayConfig struct {
	PlannerURL  string
	TimeoutSecs int
}

// MapConfig holds the map widget defaults pushed to browser sessions
type MapConfig struct {
	StyleURL    string
	CenterLat   float64
	CenterLon   float64
	Zoom        float64
	FitPadding  int
	OverlayName string
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures default and per-upstream breaker tuning
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
	ServiceOverrides map[string]CircuitBreakerSettings
}

// CircuitBreakerSettings overrides defaults for a specific upstream service
type CircuitBreakerSettings struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 60),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 60),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Upstreams: UpstreamsConfig{
			NominatimURL: getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			OverpassURL:  getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			RouterURL:    getEnv("ROUTER_URL", ""),
			UserAgent:    getEnv("GEO_USER_AGENT", "marcheroute/0.0.1"),
			TimeoutSecs:  getEnvAsInt("GEO_TIMEOUT_SECONDS", 30),
		},
		Mistral: MistralConfig{
			APIKey:  getEnv("MISTRAL_API_KEY", ""),
			BaseURL: getEnv("MISTRAL_API_URL", "https://api.mistral.ai/v1"),
			Model:   getEnv("MISTRAL_MODEL", "mistral-small-latest"),
		},
		Gateway: GatewayConfig{
			PlannerURL:  getEnv("PLANNER_URL", "http://localhost:8000"),
			TimeoutSecs: getEnvAsInt("PLANNER_TIMEOUT_SECONDS", 120),
		},
		Map: MapConfig{
			StyleURL:    getEnv("MAP_STYLE_URL", "https://demotiles.maplibre.org/style.json"),
			CenterLat:   0,
			CenterLon:   0,
			Zoom:        2,
			FitPadding:  getEnvAsInt("MAP_FIT_PADDING", 40),
			OverlayName: getEnv("MAP_OVERLAY_ID", "walk-route"),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", false),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
	}

	if breakerOverrides := getEnv("CB_SERVICE_OVERRIDES", ""); breakerOverrides != "" {
		var serviceConfig map[string]CircuitBreakerSettings
		if err := json.Unmarshal([]byte(breakerOverrides), &serviceConfig); err != nil {
			return nil, fmt.Errorf("invalid CB_SERVICE_OVERRIDES value: %w", err)
		}
		cfg.Resilience.CircuitBreaker.ServiceOverrides = serviceConfig
	}

	if cfg.Upstreams.TimeoutSecs <= 0 {
		cfg.Upstreams.TimeoutSecs = 30
	}
	if cfg.Gateway.TimeoutSecs <= 0 {
		cfg.Gateway.TimeoutSecs = 120
	}

	return cfg, nil
}

// SettingsFor returns effective breaker settings for a specific upstream service name
func (c CircuitBreakerConfig) SettingsFor(service string) CircuitBreakerSettings {
	settings := CircuitBreakerSettings{
		FailureThreshold: c.FailureThreshold,
		SuccessThreshold: c.SuccessThreshold,
		TimeoutSeconds:   c.TimeoutSeconds,
		IntervalSeconds:  c.IntervalSeconds,
	}

	if c.ServiceOverrides != nil {
		if override, ok := c.ServiceOverrides[service]; ok {
			if override.FailureThreshold > 0 {
				settings.FailureThreshold = override.FailureThreshold
			}
			if override.SuccessThreshold > 0 {
				settings.SuccessThreshold = override.SuccessThreshold
			}
			if override.TimeoutSeconds > 0 {
				settings.TimeoutSeconds = override.TimeoutSeconds
			}
			if override.IntervalSeconds > 0 {
				settings.IntervalSeconds = override.IntervalSeconds
			}
		}
	}

	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = 1
	}
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = 30
	}
	if settings.IntervalSeconds <= 0 {
		settings.IntervalSeconds = 60
	}

	return settings
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Timeout returns the upstream HTTP timeout as a duration
func (c *UpstreamsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the gateway HTTP timeout as a duration
func (c *GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
