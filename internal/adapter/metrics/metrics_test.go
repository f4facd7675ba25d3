package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryMetrics(t *testing.T) {
	m := NewRegistryMetrics(prometheus.NewRegistry())

	m.ConnectionRegistered(domain.RoleAdmin)
	m.ConnectionRegistered(domain.RoleAdmin)
	m.ConnectionUnregistered(domain.RoleUser)
	m.DuplicateRegistration()
	m.JoinDenied(domain.RoomKindUser)
	m.Tables(3, 5, 2)
	m.Broadcast(domain.TargetRoom, 4)
	m.SendFailed()
	m.Evicted(2)
	m.Evicted(0)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("admin")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Unregistrations.WithLabelValues("user")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Duplicates), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.JoinsDenied.WithLabelValues("user")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.Connections), 0)
	assert.InDelta(t, 5.0, testutil.ToFloat64(m.Rooms), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Identities), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("room")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.SendFailures), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.SweepEvictions), 0)
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/stats", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/health/live", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/api/stats", "/api/stats", "/health/live"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/stats", "200")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.InFlightGauge), 0)

	m.RecordError("validation")
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("validation")), 0)
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := NewRegistry()
	ws := NewWebSocketMetrics(reg)
	relay := NewRelayMetrics(reg)
	ws.ActiveConnections.Set(7)
	relay.CircuitBreakerState.Set(2)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "roomhub_websocket_active_connections 7"))
	assert.True(t, strings.Contains(body, "roomhub_relay_circuit_breaker_state 2"))
	assert.Contains(t, body, "go_goroutines")
}
