package resilience

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

type Metrics struct {
	calls   *prometheus.CounterVec
	retries *prometheus.CounterVec
	state   *prometheus.GaugeVec
}

// NewMetrics registers the resilience collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "movielist",
				Subsystem: "resilience",
				Name:      "calls_total",
				Help:      "Guarded calls by instance and outcome.",
			},
			[]string{"instance", "outcome"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "movielist",
				Subsystem: "resilience",
				Name:      "retries_total",
				Help:      "Retried attempts by instance.",
			},
			[]string{"instance"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "movielist",
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"instance"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.calls, m.retries, m.state)
	}

	return m
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRetriesExhausted):
		return "retries_exhausted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func (m *Metrics) observe(instance string, err error) {
	if m == nil {
		return
	}

	m.calls.WithLabelValues(instance, outcome(err)).Inc()
}

func (m *Metrics) retried(instance string) {
	if m == nil {
		return
	}

	m.retries.WithLabelValues(instance).Inc()
}

func (m *Metrics) stateChanged(instance string, to gobreaker.State) {
	if m == nil {
		return
	}

	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}

	m.state.WithLabelValues(instance).Set(v)
}
