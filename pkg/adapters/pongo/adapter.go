// Package pongo adapts pongo2 template sets to the engine capabilities.
package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-views/internal/sanitize"
	"github.com/goliatone/go-views/pkg/engine"
)

// Option configures the pongo2 adapter before construction.
type Option func(*config)

type config struct {
	name    string
	debug   bool
	globals map[string]any
	helpers map[string]any
}

// WithName sets the pongo2 template set name used in error messages.
func WithName(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.name = trimmed
		}
	}
}

// WithDebug toggles pongo2 debug mode on the template set.
func WithDebug(debug bool) Option {
	return func(cfg *config) {
		cfg.debug = debug
	}
}

// WithGlobals seeds values visible to every template rendered by the engine.
func WithGlobals(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[strings.TrimSpace(key)] = value
		}
	}
}

// WithHelpers registers callables when the engine is created.
func WithHelpers(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.helpers == nil {
			cfg.helpers = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.helpers[strings.TrimSpace(name)] = fn
		}
	}
}

// Engine compiles pongo2 (Django syntax) templates. Partials are served from
// memory so `{% include "nav/item" %}` resolves against registered names.
type Engine struct {
	mu sync.RWMutex

	set    *pongo2.TemplateSet
	loader *partialLoader
}

var (
	_ engine.Compiler         = (*Engine)(nil)
	_ engine.PartialRegistrar = (*Engine)(nil)
	_ engine.HelperRegistrar  = (*Engine)(nil)
)

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{name: "views"}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	loader := &partialLoader{partials: make(map[string]string)}
	set := pongo2.NewSet(cfg.name, loader)
	set.Debug = cfg.debug
	set.Globals = make(pongo2.Context)

	e := &Engine{set: set, loader: loader}
	registerDefaultFilters()

	if len(cfg.globals) > 0 {
		globals, err := convertToContext(cfg.globals)
		if err != nil {
			return nil, fmt.Errorf("pongo: apply globals: %w", err)
		}
		e.set.Globals.Update(globals)
	}
	for name, fn := range cfg.helpers {
		if err := e.RegisterHelper(name, fn); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Compile parses src into a pongo2 template. Includes and extends are
// resolved against the registered partials at parse time.
func (e *Engine) Compile(src string, options map[string]any) (engine.RenderFunc, error) {
	if e == nil || e.set == nil {
		return nil, errors.New("pongo: engine is nil")
	}

	tpl, err := e.set.FromString(src)
	if err != nil {
		return nil, fmt.Errorf("pongo: parse %s: %w", filenameOf(options), err)
	}

	return func(data engine.Context, _ map[string]any) (string, error) {
		viewContext, err := convertToContext(data)
		if err != nil {
			return "", fmt.Errorf("pongo: convert data: %w", err)
		}

		var buf bytes.Buffer

		e.mu.RLock()
		err = tpl.ExecuteWriter(viewContext, &buf)
		e.mu.RUnlock()

		if err != nil {
			return "", fmt.Errorf("pongo: execute %s: %w", filenameOf(options), err)
		}
		return buf.String(), nil
	}, nil
}

// RegisterPartial makes src available to include and extends tags under name.
// Registering a name again replaces it for templates compiled afterwards.
func (e *Engine) RegisterPartial(name, src string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("pongo: partial name required")
	}
	e.loader.set(name, src)
	e.set.CleanCache(name)
	return nil
}

// RegisterHelper exposes fn as a global callable. pongo2 filter functions
// are registered as filters instead.
func (e *Engine) RegisterHelper(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return errors.New("pongo: helper name and function required")
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return pongo2.ReplaceFilter(trimmed, filter)
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return fmt.Errorf("pongo: helper %q is not a function (got %T)", trimmed, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Globals[trimmed] = fn
	return nil
}

// Partials returns the registered partial names.
func (e *Engine) Partials() []string {
	return e.loader.names()
}

type partialLoader struct {
	mu       sync.RWMutex
	partials map[string]string
}

func (l *partialLoader) Abs(_, name string) string {
	return name
}

func (l *partialLoader) Get(name string) (io.Reader, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if src, ok := l.partials[name]; ok {
		return strings.NewReader(src), nil
	}
	trimmed := strings.TrimSuffix(name, path.Ext(name))
	if src, ok := l.partials[trimmed]; ok {
		return strings.NewReader(src), nil
	}
	return nil, fmt.Errorf("pongo: partial %q not registered", name)
}

func (l *partialLoader) set(name, src string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partials[name] = src
}

func (l *partialLoader) names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.partials))
	for name := range l.partials {
		out = append(out, name)
	}
	return out
}

func filenameOf(options map[string]any) string {
	if name, ok := options["filename"].(string); ok && name != "" {
		return fmt.Sprintf("%q", name)
	}
	return "template"
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}

func convertToContext(data map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(data))
	for key, value := range data {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		converted, err := convertValue(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = converted
	}
	return out, nil
}

// convertValue keeps scalars, funcs and containers as they are and flattens
// structs through their JSON form so templates see json tag names.
func convertValue(value any) (any, error) {
	if value == nil || isCallable(value) {
		return value, nil
	}

	switch v := value.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, nil
	case pongo2.Context:
		return convertMap(map[string]any(v))
	case map[string]any:
		return convertMap(v)
	case []any:
		return convertSlice(v)
	}

	kind := reflect.Indirect(reflect.ValueOf(value)).Kind()
	if kind != reflect.Struct {
		return value, nil
	}
	raw, err := jsonToAny(value)
	if err != nil {
		return nil, err
	}
	switch decoded := raw.(type) {
	case map[string]any:
		return convertMap(decoded)
	case []any:
		return convertSlice(decoded)
	default:
		return decoded, nil
	}
}

func convertMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertSlice(in []any) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func jsonToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("sanitize") {
		_ = pongo2.RegisterFilter("sanitize", filterSanitize)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(sanitize.HTML(in.String())), nil
}
