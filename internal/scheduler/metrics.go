package scheduler

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics records tick outcomes and durations per job.
type Metrics struct {
	TicksTotal   *prometheus.CounterVec
	TickDuration *prometheus.HistogramVec
	LastSuccess  *prometheus.GaugeVec
}

// NewMetrics creates the scheduler metrics and registers them with reg.
// Collectors already registered by another scheduler on the same registry
// are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satcore",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Job ticks partitioned by job name and outcome.",
		}, []string{"job", "outcome"}),
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "satcore",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one job tick.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
		}, []string{"job"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "satcore",
			Subsystem: "scheduler",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful tick.",
		}, []string{"job"}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.TicksTotal, err = register(reg, m.TicksTotal); err != nil {
		return nil, err
	}
	if m.TickDuration, err = register(reg, m.TickDuration); err != nil {
		return nil, err
	}
	if m.LastSuccess, err = register(reg, m.LastSuccess); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register scheduler metrics: %w", err)
	}
	return c, nil
}
