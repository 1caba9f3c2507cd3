package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vodeneev/sportsfeed/internal/pkg/resolver"
)

// Resolver implements resolver.Observer on top of Prometheus collectors.
type Resolver struct {
	attempts *prometheus.CounterVec
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ resolver.Observer = (*Resolver)(nil)

// NewResolver creates the collectors and registers them with reg.
func NewResolver(reg prometheus.Registerer) (*Resolver, error) {
	m := &Resolver{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sportsfeed",
				Subsystem: "resolve",
				Name:      "attempts_total",
				Help:      "Fetch attempts by stage (direct, relay name, browser) and result",
			},
			[]string{"stage", "result"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sportsfeed",
				Subsystem: "resolve",
				Name:      "calls_total",
				Help:      "Resolve calls by final result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sportsfeed",
				Subsystem: "resolve",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of a single fetch attempt",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.calls, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Resolver) ObserveAttempt(stage, result string, elapsed time.Duration) {
	m.attempts.WithLabelValues(stage, result).Inc()
	m.duration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Resolver) ObserveResolve(result string) {
	m.calls.WithLabelValues(result).Inc()
}
