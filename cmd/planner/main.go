package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marcheroute/marcheroute/internal/generate"
	"github.com/marcheroute/marcheroute/internal/plan"
	"github.com/marcheroute/marcheroute/pkg/cache"
	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/config"
	apperrors "github.com/marcheroute/marcheroute/pkg/errors"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/middleware"
	"github.com/marcheroute/marcheroute/pkg/redis"
	"github.com/marcheroute/marcheroute/pkg/resilience"
	"github.com/marcheroute/marcheroute/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	serviceName = "planner"
	version     = "0.1.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if os.Getenv("PORT") == "" {
		cfg.Server.Port = "8000"
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	sentryEnabled := false
	if sentryCfg := apperrors.DefaultSentryConfig(); sentryCfg.DSN != "" {
		if err := apperrors.InitSentry(sentryCfg); err != nil {
			logger.Warn("Sentry initialization failed", zap.Error(err))
		} else {
			sentryEnabled = true
			defer apperrors.Flush(2 * time.Second)
		}
	}

	if os.Getenv("OTEL_ENABLED") == "true" {
		tp, err := tracing.InitTracer(tracing.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    cfg.Server.Environment,
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Enabled:        true,
		}, logger.Get())
		if err != nil {
			logger.Warn("Tracer initialization failed", zap.Error(err))
		} else if tp != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()
		}
	}

	var redisClient *redis.Client
	redisClient, err = redis.NewClient(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var cacheManager *cache.Manager
	if redisClient != nil {
		cacheManager = cache.NewManager(redisClient, cache.DefaultTTL())
	}

	geocoder := plan.NewGeocodingService(cfg.Upstreams.NominatimURL, cfg.Upstreams.UserAgent, cacheManager)
	pois := plan.NewPOIService(cfg.Upstreams.OverpassURL, cfg.Upstreams.UserAgent, cacheManager)
	router := plan.NewRouterService(cfg.Upstreams.RouterURL, cfg.Upstreams.UserAgent)
	generator := generate.NewService(cfg.Mistral)

	if cfg.Resilience.CircuitBreaker.Enabled {
		breakers := cfg.Resilience.CircuitBreaker
		geocoder.SetCircuitBreaker(resilience.NewCircuitBreaker(
			resilience.BuildSettings("nominatim", breakers.SettingsFor("nominatim")), nil))
		pois.SetCircuitBreaker(resilience.NewCircuitBreaker(
			resilience.BuildSettings("overpass", breakers.SettingsFor("overpass")), nil))
		router.SetCircuitBreaker(resilience.NewCircuitBreaker(
			resilience.BuildSettings("router", breakers.SettingsFor("router")), nil))
		generator.SetCircuitBreaker(resilience.NewCircuitBreaker(
			resilience.BuildSettings("mistral", breakers.SettingsFor("mistral")), nil))
	}

	planService := plan.NewService(geocoder, pois, router, cacheManager)
	planHandler := plan.NewHandler(planService)
	generateHandler := generate.NewHandler(generator)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RecoveryWithSentry())
	if sentryEnabled {
		engine.Use(middleware.SentryMiddleware())
	}
	engine.Use(middleware.CorrelationID())
	if os.Getenv("OTEL_ENABLED") == "true" {
		engine.Use(middleware.TracingMiddleware(serviceName))
	}
	engine.Use(middleware.RequestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	engine.Use(middleware.RequestLogger(serviceName))
	engine.Use(middleware.CORS(cfg.Server.CORSOrigins))
	engine.Use(middleware.Metrics(serviceName))
	engine.Use(middleware.ErrorHandler())
	engine.NoRoute(common.NoRouteHandler())
	engine.NoMethod(common.NoMethodHandler())

	engine.GET("/healthz", common.HealthCheck(serviceName, version))
	engine.GET("/health/live", common.LivenessProbe(serviceName, version))
	engine.GET("/health/ready", common.ReadinessProbe(serviceName, version, readinessChecks(redisClient)))
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": version})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	planHandler.RegisterRoutes(engine)
	generateHandler.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Planner service starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Planner service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Planner service stopped")
}

func readinessChecks(redisClient *redis.Client) map[string]func() error {
	checks := map[string]func() error{}
	if redisClient != nil {
		checks["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		}
	}
	return checks
}
