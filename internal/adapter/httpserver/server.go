// Package httpserver exposes the registry over HTTP: the WebSocket endpoint for dashboard
// clients, an authenticated JSON API for backend services, health probes and metrics.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/pscheid92/roomhub/internal/platform/config"
)

type registryService interface {
	Stats() domain.Stats
	Connection(id domain.ConnectionID) (domain.ConnectionInfo, bool)
	IdentityConnections(userID string) []domain.ConnectionID
	Sweep(maxAge time.Duration) int
}

type dispatcher interface {
	Dispatch(ctx context.Context, b domain.Broadcast) (int, error)
}

type tokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type connectionAcceptor interface {
	Accept(w http.ResponseWriter, r *http.Request, identity domain.Identity) error
}

type instanceLister interface {
	Instances(ctx context.Context) ([]domain.InstanceInfo, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	registry   registryService
	dispatcher dispatcher
	verifier   tokenVerifier
	transport  connectionAcceptor
	instances  instanceLister

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// Deps are the collaborators of the server. Instances, HTTPMetrics and MetricsHandler may be nil.
type Deps struct {
	Registry       registryService
	Dispatcher     dispatcher
	Verifier       tokenVerifier
	Transport      connectionAcceptor
	Instances      instanceLister
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
	Clock          clockwork.Clock
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:           e,
		config:         cfg,
		clock:          clock,
		registry:       deps.Registry,
		dispatcher:     deps.Dispatcher,
		verifier:       deps.Verifier,
		transport:      deps.Transport,
		instances:      deps.Instances,
		httpMetrics:    deps.HTTPMetrics,
		metricsHandler: deps.MetricsHandler,
		healthChecks:   deps.HealthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler returns the fully routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
