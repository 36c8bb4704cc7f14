package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-views/pkg/jsmodule"
	"github.com/goliatone/go-views/internal/resolver"
	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// Manager renders named templates through the engine registered for their
// extension. The engine set is fixed at construction.
type Manager struct {
	engines          map[string]*engine.Entry
	defaultExtension string
	context          ContextSource

	logger     *slog.Logger
	registerer prometheus.Registerer
	modules    *jsmodule.Registry
	metrics    *metrics
}

// New validates cfg and registers every engine. Partials and helpers are
// loaded here; adapters with a Prepare step are initialised on first render.
func New(cfg Config, options ...Option) (*Manager, error) {
	m := &Manager{
		engines: make(map[string]*engine.Entry, len(cfg.Engines)),
		context: cfg.Context,
		logger:  slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(m)
	}
	if m.modules == nil {
		m.modules = jsmodule.NewRegistry()
	}

	if len(cfg.Engines) == 0 {
		return nil, viewerrors.Configf("views manager requires at least one registered extension handler")
	}

	base := settings.Defaults().Apply(&cfg.Overrides)
	for extension, value := range cfg.Engines {
		ext := strings.TrimPrefix(strings.TrimSpace(extension), ".")
		if ext == "" {
			return nil, viewerrors.Configf("engine extension must not be empty")
		}
		if _, exists := m.engines[ext]; exists {
			return nil, viewerrors.Configf("engine %q registered twice", ext)
		}

		module, engineSettings, err := engineFromConfig(ext, value, base)
		if err != nil {
			return nil, err
		}
		entry, err := engine.NewEntry(ext, module, engineSettings,
			engine.WithLogger(m.logger),
			engine.WithModules(m.modules),
		)
		if err != nil {
			return nil, err
		}
		m.engines[ext] = entry
	}

	m.defaultExtension = strings.TrimPrefix(strings.TrimSpace(cfg.DefaultExtension), ".")
	if m.defaultExtension == "" && len(m.engines) == 1 {
		for ext := range m.engines {
			m.defaultExtension = ext
		}
	}
	if m.defaultExtension != "" {
		if _, ok := m.engines[m.defaultExtension]; !ok {
			return nil, viewerrors.Configf("defaultExtension %q has no registered engine", m.defaultExtension)
		}
	}

	collector, err := newMetrics(m.registerer)
	if err != nil {
		return nil, fmt.Errorf("manager: register metrics: %w", err)
	}
	m.metrics = collector
	return m, nil
}

func engineFromConfig(ext string, value any, base settings.Settings) (any, settings.Settings, error) {
	switch v := value.(type) {
	case EngineConfig:
		return v.Module, base.Apply(&v.Overrides), nil
	case *EngineConfig:
		if v == nil {
			return nil, settings.Settings{}, viewerrors.Configf("engine %q: config is nil", ext)
		}
		return v.Module, base.Apply(&v.Overrides), nil
	default:
		if !engine.IsAdapter(value) {
			return nil, settings.Settings{}, viewerrors.Configf("engine %q: missing compile (got %T)", ext, value)
		}
		return value, base, nil
	}
}

// GetEngine returns the engine registered for ext. An empty ext selects the
// default extension.
func (m *Manager) GetEngine(ext string) (*engine.Entry, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		if m.defaultExtension == "" {
			return nil, viewerrors.Configf("must provide an extension or set defaultExtension in manager options")
		}
		return m.engines[m.defaultExtension], nil
	}
	entry, ok := m.engines[ext]
	if !ok {
		return nil, viewerrors.Configf("extension %q not found on manager", ext)
	}
	return entry, nil
}

// Extensions returns the registered extensions in sorted order.
func (m *Manager) Extensions() []string {
	out := make([]string, 0, len(m.engines))
	for ext := range m.engines {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// RegisterHelper hands fn to every engine that accepts helpers. Engines
// without helper support are skipped.
func (m *Manager) RegisterHelper(name string, fn any) error {
	var errs []error
	for _, ext := range m.Extensions() {
		if _, err := m.engines[ext].RegisterHelper(name, fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearCache drops the compiled template for name. entry may be nil, in
// which case the engine is inferred from the extension or the default. A
// missing cache entry is only logged.
func (m *Manager) ClearCache(name string, entry *engine.Entry) error {
	if strings.TrimSpace(name) == "" {
		return viewerrors.Configf("template is required")
	}

	fileExt := strings.TrimPrefix(filepath.Ext(name), ".")
	if entry == nil {
		if fileExt == "" && m.defaultExtension == "" {
			return viewerrors.Configf("must pass the engine, have a single engine, have an extension on %q, or set defaultExtension", name)
		}
		var err error
		if entry, err = m.GetEngine(fileExt); err != nil {
			return err
		}
	}

	filename := name
	if fileExt == "" {
		filename += entry.Suffix
	}
	key, err := cacheKey(filename, entry.Settings)
	if err != nil {
		return err
	}

	cache := entry.Cache()
	if cache == nil || !cache.Delete(key) {
		m.logger.Warn("views: template cache not found, cache not cleared", "path", key, "extension", entry.Extension)
	}
	return nil
}

// cacheKey resolves filename the way a render would and falls back to the
// first candidate when no file exists any more.
func cacheKey(filename string, s settings.Settings) (string, error) {
	if path, err := resolver.Resolve(filename, s, false); err == nil {
		return path, nil
	}
	candidates, err := resolver.Candidates(filename, s, false)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return filename, nil
	}
	return candidates[0], nil
}
