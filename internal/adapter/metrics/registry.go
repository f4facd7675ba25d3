package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/roomhub/internal/domain"
)

// RegistryMetrics exports membership and fan-out activity of the room registry.
type RegistryMetrics struct {
	Connections      prometheus.Gauge
	Rooms            prometheus.Gauge
	Identities       prometheus.Gauge
	Registrations    *prometheus.CounterVec
	Unregistrations  *prometheus.CounterVec
	Duplicates       prometheus.Counter
	JoinsDenied      *prometheus.CounterVec
	Broadcasts       *prometheus.CounterVec
	BroadcastTargets *prometheus.HistogramVec
	SendFailures     prometheus.Counter
	SweepEvictions   prometheus.Counter
}

func NewRegistryMetrics(reg prometheus.Registerer) *RegistryMetrics {
	m := &RegistryMetrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "connections",
			Help:      "Number of registered connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "rooms",
			Help:      "Number of non-empty rooms.",
		}),
		Identities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "identities",
			Help:      "Number of identities with at least one connection.",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "registrations_total",
			Help:      "Total number of connection registrations, by role.",
		}, []string{"role"}),
		Unregistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "unregistrations_total",
			Help:      "Total number of connection unregistrations, by role.",
		}, []string{"role"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "duplicate_registrations_total",
			Help:      "Total number of rejected registrations of an already known connection id.",
		}),
		JoinsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "joins_denied_total",
			Help:      "Total number of room joins rejected by policy, by room kind.",
		}, []string{"kind"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "broadcasts_total",
			Help:      "Total number of broadcasts, by target.",
		}, []string{"target"}),
		BroadcastTargets: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "broadcast_targets",
			Help:      "Number of connections targeted per broadcast.",
			Buckets:   []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"target"}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "send_failures_total",
			Help:      "Total number of per-recipient send failures during broadcasts.",
		}),
		SweepEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sweep_evictions_total",
			Help:      "Total number of connections evicted by the sweeper.",
		}),
	}

	reg.MustRegister(
		m.Connections, m.Rooms, m.Identities,
		m.Registrations, m.Unregistrations, m.Duplicates, m.JoinsDenied,
		m.Broadcasts, m.BroadcastTargets, m.SendFailures, m.SweepEvictions,
	)
	return m
}

func (m *RegistryMetrics) ConnectionRegistered(role domain.Role) {
	m.Registrations.WithLabelValues(role.String()).Inc()
}

func (m *RegistryMetrics) ConnectionUnregistered(role domain.Role) {
	m.Unregistrations.WithLabelValues(role.String()).Inc()
}

func (m *RegistryMetrics) DuplicateRegistration() { m.Duplicates.Inc() }

func (m *RegistryMetrics) JoinDenied(kind domain.RoomKind) {
	m.JoinsDenied.WithLabelValues(kind.String()).Inc()
}

func (m *RegistryMetrics) Tables(connections, rooms, identities int) {
	m.Connections.Set(float64(connections))
	m.Rooms.Set(float64(rooms))
	m.Identities.Set(float64(identities))
}

func (m *RegistryMetrics) Broadcast(target domain.BroadcastTarget, targeted int) {
	m.Broadcasts.WithLabelValues(string(target)).Inc()
	m.BroadcastTargets.WithLabelValues(string(target)).Observe(float64(targeted))
}

func (m *RegistryMetrics) SendFailed() { m.SendFailures.Inc() }

func (m *RegistryMetrics) Evicted(n int) { m.SweepEvictions.Add(float64(n)) }
