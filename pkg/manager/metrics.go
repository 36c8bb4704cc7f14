package manager

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	renderDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	renderDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "views",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time taken to resolve, compile and render a view",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"extension", "outcome"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "views",
			Subsystem: "template_cache",
			Name:      "total",
			Help:      "Compiled template lookups by result (hit, miss, uncached)",
		},
		[]string{"extension", "result"},
	)

	var err error
	if renderDuration, err = register(reg, renderDuration); err != nil {
		return nil, err
	}
	if cacheLookups, err = register(reg, cacheLookups); err != nil {
		return nil, err
	}
	return &metrics{renderDuration: renderDuration, cacheLookups: cacheLookups}, nil
}

// register reuses a collector already registered under the same descriptor so
// several managers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func (m *metrics) observeRender(extension string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.renderDuration.WithLabelValues(extension, outcome).Observe(time.Since(start).Seconds())
}

func (m *metrics) cacheLookup(extension, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(extension, result).Inc()
}
