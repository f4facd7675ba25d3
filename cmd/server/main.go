package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomhub/internal/adapter/httpserver"
	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/adapter/redis"
	"github.com/pscheid92/roomhub/internal/adapter/websocket"
	"github.com/pscheid92/roomhub/internal/app"
	"github.com/pscheid92/roomhub/internal/platform/config"
	"github.com/pscheid92/roomhub/internal/platform/logging"
	"github.com/pscheid92/roomhub/internal/platform/version"
	"github.com/pscheid92/roomhub/internal/registry"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, relayMetrics *metrics.RelayMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL,
		redis.NewMetricsHook(relayMetrics),
		redis.NewCircuitBreakerHook(relayMetrics),
	)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"version", version.Get().String(),
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"instance_id", cfg.InstanceID,
		"relay", cfg.RelayEnabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry := metrics.NewRegistry()
	wsMetrics := metrics.NewWebSocketMetrics(promRegistry)
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	transport := websocket.NewTransport(websocket.Config{
		MaxConnections:  cfg.MaxWebSocketConnections,
		MaxPerAddress:   cfg.MaxConnectionsPerIP,
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		CheckOrigin:     websocket.NewCheckOrigin(cfg.AppURL, !cfg.IsProduction()),
		Clock:           clock,
		Metrics:         wsMetrics,
	})

	reg := registry.New(
		registry.WithClock(clock),
		registry.WithMetrics(metrics.NewRegistryMetrics(promRegistry)),
		registry.WithEvictionHook(transport.Disconnect),
	)
	app.NewGateway(reg, transport, wsMetrics).Bind()
	broadcaster := registry.NewBroadcaster(reg, transport)

	var (
		relay        *redis.Relay
		heartbeat    *redis.Heartbeat
		healthChecks []httpserver.HealthCheck
	)
	if cfg.RelayEnabled() {
		relayMetrics := metrics.NewRelayMetrics(promRegistry)
		redisClient := setupRedis(ctx, cfg, relayMetrics)
		defer func() { _ = redisClient.Close() }()

		relay = redis.NewRelay(redisClient, cfg.InstanceID, relayMetrics)
		heartbeat = redis.NewHeartbeat(redisClient, cfg.InstanceID, version.Get().Version, cfg.HeartbeatInterval, clock,
			func() int { return reg.Stats().TotalConnections })
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	// Pass nil explicitly to avoid a typed-nil interface.
	var dispatcher *app.Dispatcher
	if relay != nil {
		dispatcher = app.NewDispatcher(broadcaster, relay)
	} else {
		dispatcher = app.NewDispatcher(broadcaster, nil)
	}

	deps := httpserver.Deps{
		Registry:       reg,
		Dispatcher:     dispatcher,
		Verifier:       websocket.NewTokenVerifier(cfg.JWTSecret, clock),
		Transport:      transport,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metrics.Handler(promRegistry),
		HealthChecks:   healthChecks,
		Clock:          clock,
	}
	if heartbeat != nil {
		deps.Instances = heartbeat
	}
	srv := httpserver.NewServer(cfg, deps)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.NewSweeper(reg, cfg.SweepInterval, cfg.MaxConnectionAge, clock).Run(gctx)
		return nil
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Start(gctx, dispatcher.HandleRelayed)
		})
		g.Go(func() error {
			heartbeat.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		transport.Close()
		slog.Info("Shutdown complete", "remaining_connections", reg.Stats().TotalConnections)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
