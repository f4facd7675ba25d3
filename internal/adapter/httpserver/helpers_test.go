package httpserver

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/roomhub/internal/adapter/metrics"
	"github.com/pscheid92/roomhub/internal/app"
	"github.com/pscheid92/roomhub/internal/domain"
	"github.com/pscheid92/roomhub/internal/platform/config"
	"github.com/pscheid92/roomhub/internal/registry"
	"github.com/stretchr/testify/require"
)

const testAPIToken = "test-api-token"

type sentEvent struct {
	To      domain.ConnectionID
	Event   string
	Payload any
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (r *recordingSender) Send(id domain.ConnectionID, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{To: id, Event: event, Payload: payload})
	return nil
}

func (r *recordingSender) recipients(event string) []domain.ConnectionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []domain.ConnectionID
	for _, s := range r.sent {
		if s.Event == event {
			ids = append(ids, s.To)
		}
	}
	return ids
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(string) (domain.Identity, error) {
	return domain.Identity{}, io.ErrUnexpectedEOF
}

type testEnv struct {
	srv         *Server
	registry    *registry.Registry
	sender      *recordingSender
	clock       *clockwork.FakeClock
	httpMetrics *metrics.HTTPMetrics
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		APIToken:           testAPIToken,
		MaxConnectionAge:   time.Hour,
		BroadcastRateLimit: 1000,
		BroadcastBurst:     1000,
	}
}

func newTestEnv(t *testing.T, opts ...func(*config.Config, *Deps)) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClock()
	reg := registry.New(registry.WithClock(clock))
	sender := &recordingSender{}
	promReg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promReg)

	cfg := testConfig()
	deps := Deps{
		Registry:       reg,
		Dispatcher:     app.NewDispatcher(registry.NewBroadcaster(reg, sender), nil),
		Verifier:       rejectingVerifier{},
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metrics.Handler(promReg),
		Clock:          clock,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	return &testEnv{
		srv:         NewServer(cfg, deps),
		registry:    reg,
		sender:      sender,
		clock:       clock,
		httpMetrics: httpMetrics,
	}
}

func (e *testEnv) register(t *testing.T, id domain.ConnectionID, identity domain.Identity) {
	t.Helper()
	require.NoError(t, e.registry.Register(id, identity))
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	return e.doWithToken(method, path, body, testAPIToken)
}

func (e *testEnv) doWithToken(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}
