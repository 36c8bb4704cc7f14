package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-views/pkg/jsmodule"
	"github.com/goliatone/go-views/internal/source"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// Option configures an Entry before its partials and helpers are loaded.
type Option func(*Entry)

// WithLogger routes helper load warnings to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Entry) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithModules shares a helper module registry between entries.
func WithModules(modules *jsmodule.Registry) Option {
	return func(e *Entry) {
		if modules != nil {
			e.modules = modules
		}
	}
}

// Entry is one registered engine: the adapter, its resolved settings, the
// compiled-template cache and the one-time prepare state.
type Entry struct {
	Extension string
	Suffix    string
	Module    any
	Settings  settings.Settings

	compile   CompileFunc
	cache     *Cache
	ready     atomic.Bool
	prepareMu sync.Mutex
	logger    *slog.Logger
	modules   *jsmodule.Registry
}

// NewEntry validates module, adapts its compile convention, and loads
// partials and helpers from the configured directories.
func NewEntry(extension string, module any, cfg settings.Settings, options ...Option) (*Entry, error) {
	if extension == "" {
		return nil, viewerrors.Configf("engine extension is required")
	}
	if module == nil || !IsAdapter(module) {
		return nil, viewerrors.Configf("engine %q: adapter must implement Compile or CompileAsync (got %T)", extension, module)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine %q: %w", extension, err)
	}
	if !source.Supported(cfg.Encoding) {
		return nil, viewerrors.Configf("engine %q: unsupported encoding %q", extension, cfg.Encoding)
	}

	compile, err := NewCompileFunc(module, cfg.CompileMode)
	if err != nil {
		return nil, fmt.Errorf("engine %q: %w", extension, err)
	}

	e := &Entry{
		Extension: extension,
		Suffix:    "." + extension,
		Module:    module,
		Settings:  cfg.Clone(),
		compile:   compile,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.modules == nil {
		e.modules = jsmodule.NewRegistry()
	}
	if e.Settings.IsCached {
		e.cache = NewCache()
	}
	if _, needsPrepare := module.(Initializer); !needsPrepare {
		e.ready.Store(true)
	}

	if err := e.LoadPartials(); err != nil {
		return nil, err
	}
	if err := e.LoadHelpers(); err != nil {
		return nil, err
	}
	return e, nil
}

// Ready reports whether the engine finished its one-time Prepare.
func (e *Entry) Ready() bool {
	return e.ready.Load()
}

// EnsureReady runs Prepare until it succeeds once. A failure leaves the
// entry unready so the next caller tries again.
func (e *Entry) EnsureReady(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	initializer, ok := e.Module.(Initializer)
	if !ok {
		e.ready.Store(true)
		return nil
	}

	e.prepareMu.Lock()
	defer e.prepareMu.Unlock()
	if e.ready.Load() {
		return nil
	}

	if err := runPrepare(ctx, initializer, e.Settings.Clone()); err != nil {
		return fmt.Errorf("%w: engine %q: %w", viewerrors.ErrPrepare, e.Extension, err)
	}
	e.ready.Store(true)
	return nil
}

func runPrepare(ctx context.Context, initializer Initializer, cfg settings.Settings) (err error) {
	defer recoverInto(&err, "prepare")
	return initializer.Prepare(ctx, cfg)
}

// Compile returns the compiled template for the file at path, reporting
// whether it came from the cache. A miss reads the file with the snapshot's
// encoding and stores the result when caching is enabled. Failed compiles
// are never cached.
func (e *Entry) Compile(ctx context.Context, path string, snapshot settings.Settings) (Template, bool, error) {
	if e.cache != nil {
		if tpl, ok := e.cache.Get(path); ok {
			return tpl, true, nil
		}
	}

	src, err := source.Read(ctx, path, snapshot.Encoding)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read view file %s: %w", viewerrors.ErrNotFound, path, err)
	}

	options := maps.Clone(snapshot.CompileOptions)
	if options == nil {
		options = map[string]any{}
	}
	options["filename"] = path

	tpl, err := e.compile(ctx, src, options)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", viewerrors.ErrCompile, path, err)
	}

	if e.cache != nil {
		e.cache.Set(path, tpl)
	}
	return tpl, false, nil
}

// Cache returns the compiled-template cache, or nil when caching is
// disabled for this engine.
func (e *Entry) Cache() *Cache {
	return e.cache
}

// Reload re-reads partials and helpers from disk. The manager calls it before
// every render when caching is disabled.
func (e *Entry) Reload() error {
	if err := e.LoadPartials(); err != nil {
		return err
	}
	return e.LoadHelpers()
}

// RegisterHelper forwards to the adapter and reports whether it supports
// helpers at all.
func (e *Entry) RegisterHelper(name string, fn any) (bool, error) {
	registrar, ok := e.Module.(HelperRegistrar)
	if !ok {
		return false, nil
	}
	if err := registrar.RegisterHelper(name, fn); err != nil {
		return true, fmt.Errorf("engine %q: register helper %q: %w", e.Extension, name, err)
	}
	return true, nil
}
