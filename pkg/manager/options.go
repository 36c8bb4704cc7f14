package manager

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-views/pkg/jsmodule"
)

// Option customises the manager.
type Option func(*Manager)

// WithLogger sets the logger used for helper load and cache warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRegisterer enables render metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		m.registerer = reg
	}
}

// WithModules shares a helper module registry with other managers.
func WithModules(modules *jsmodule.Registry) Option {
	return func(m *Manager) {
		if modules != nil {
			m.modules = modules
		}
	}
}
