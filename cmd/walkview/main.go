package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marcheroute/marcheroute/internal/gateway"
	"github.com/marcheroute/marcheroute/internal/maproom"
	"github.com/marcheroute/marcheroute/internal/ui"
	"github.com/marcheroute/marcheroute/internal/walk"
	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/config"
	apperrors "github.com/marcheroute/marcheroute/pkg/errors"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/middleware"
	"github.com/marcheroute/marcheroute/pkg/tracing"
	"github.com/marcheroute/marcheroute/pkg/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	serviceName = "walkview"
	version     = "0.1.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
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

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()

	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	maps := maproom.NewManager(maproom.Config{
		StyleURL: cfg.Map.StyleURL,
		Camera: maproom.Camera{
			CenterLat: cfg.Map.CenterLat,
			CenterLon: cfg.Map.CenterLon,
			Zoom:      cfg.Map.Zoom,
		},
	}, hub)

	planner := gateway.New(cfg.Gateway)
	controller := walk.NewController(planner, maps, walk.Options{
		OverlayID:  cfg.Map.OverlayName,
		FitPadding: cfg.Map.FitPadding,
	})

	walkHandler := walk.NewHandler(controller, hub)
	pageHandler := ui.NewHandler()

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
	engine.Use(middleware.RequestLogger(serviceName))
	engine.Use(middleware.CORS(cfg.Server.CORSOrigins))
	engine.Use(middleware.Metrics(serviceName))
	engine.Use(middleware.ErrorHandler())
	engine.NoMethod(common.NoMethodHandler())

	// The generate sequence makes two planner calls back to back, so the
	// request deadline must outlast both gateway budgets.
	requestTimeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if floor := 2*cfg.Gateway.Timeout() + 5*time.Second; requestTimeout < floor {
		requestTimeout = floor
	}

	engine.GET("/healthz", common.HealthCheck(serviceName, version))
	engine.GET("/health/live", common.LivenessProbe(serviceName, version))
	engine.GET("/health/ready", common.ReadinessProbe(serviceName, version, readinessChecks(cfg)))
	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": version})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	timed := engine.Group("", middleware.RequestTimeout(requestTimeout))
	pageHandler.RegisterRoutes(timed)
	walkHandler.RegisterRoutes(timed)

	// The websocket upgrade hijacks the connection; a request deadline would
	// tear the command stream down mid-session.
	walkHandler.RegisterSocket(engine)

	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	if writeTimeout < requestTimeout+5*time.Second {
		writeTimeout = requestTimeout + 5*time.Second
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: writeTimeout,
	}

	go func() {
		logger.Info("Walkview service starting",
			zap.String("port", cfg.Server.Port),
			zap.String("planner_url", cfg.Gateway.PlannerURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Walkview service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Walkview service stopped")
}

func readinessChecks(cfg *config.Config) map[string]func() error {
	client := &http.Client{Timeout: 2 * time.Second}
	return map[string]func() error{
		"planner": func() error {
			resp, err := client.Get(cfg.Gateway.PlannerURL + "/health/live")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return errNotReady
			}
			return nil
		},
	}
}

var errNotReady = errors.New("planner is not ready")
