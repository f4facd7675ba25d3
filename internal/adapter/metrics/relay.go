package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics tracks cross-instance broadcast relaying through Redis.
type RelayMetrics struct {
	Published           *prometheus.CounterVec
	Received            *prometheus.CounterVec
	CircuitBreakerState prometheus.Gauge
	RedisOperations     *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Total number of broadcasts published to other instances, by result.",
		}, []string{"result"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "received_total",
			Help:      "Total number of relay messages received, by result.",
		}, []string{"result"}),
		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "circuit_breaker_state",
			Help:      "Redis circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		RedisOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "redis_operations_total",
			Help:      "Total number of Redis commands, by command and result.",
		}, []string{"command", "result"}),
	}

	reg.MustRegister(m.Published, m.Received, m.CircuitBreakerState, m.RedisOperations)
	return m
}
