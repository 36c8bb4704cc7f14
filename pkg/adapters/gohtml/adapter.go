package gohtml

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"sync"

	"github.com/goliatone/go-views/internal/sanitize"
	"github.com/goliatone/go-views/pkg/engine"
)

// Option configures the html/template adapter before construction.
type Option func(*config)

type config struct {
	left, right string
	funcs       template.FuncMap
}

// WithDelims replaces the default {{ }} action delimiters.
func WithDelims(left, right string) Option {
	return func(cfg *config) {
		cfg.left, cfg.right = left, right
	}
}

// WithFuncs registers template functions when the engine is created.
func WithFuncs(funcs template.FuncMap) Option {
	return func(cfg *config) {
		for name, fn := range funcs {
			cfg.funcs[strings.TrimSpace(name)] = fn
		}
	}
}

// Engine compiles html/template sources. Every compile builds a fresh
// template tree holding the partials and helpers registered so far; partials
// are invoked with {{ template "name" . }}.
type Engine struct {
	mu sync.RWMutex

	left, right string
	funcs       template.FuncMap
	partials    map[string]string
}

var (
	_ engine.Compiler         = (*Engine)(nil)
	_ engine.PartialRegistrar = (*Engine)(nil)
	_ engine.HelperRegistrar  = (*Engine)(nil)
)

// New constructs an Engine with the built-in safe and sanitize functions.
func New(options ...Option) *Engine {
	cfg := &config{funcs: template.FuncMap{}}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	funcs := template.FuncMap{
		"safe":     func(s string) template.HTML { return template.HTML(s) },
		"sanitize": func(s string) template.HTML { return template.HTML(sanitize.HTML(s)) },
	}
	for name, fn := range cfg.funcs {
		funcs[name] = fn
	}

	return &Engine{
		left:     cfg.left,
		right:    cfg.right,
		funcs:    funcs,
		partials: make(map[string]string),
	}
}

// Compile parses src together with every registered partial. The compile
// option "missingkey" is passed through to template.Option.
func (e *Engine) Compile(src string, options map[string]any) (engine.RenderFunc, error) {
	name, _ := options["filename"].(string)
	if name == "" {
		name = "view"
	}

	e.mu.RLock()
	root := template.New(name).Delims(e.left, e.right).Funcs(e.funcs)
	var err error
	for partial, body := range e.partials {
		if _, err = root.New(partial).Parse(body); err != nil {
			err = fmt.Errorf("gohtml: parse partial %q: %w", partial, err)
			break
		}
	}
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if missing, ok := options["missingkey"].(string); ok && missing != "" {
		root.Option("missingkey=" + missing)
	}
	if _, err := root.Parse(src); err != nil {
		return nil, fmt.Errorf("gohtml: parse %q: %w", name, err)
	}

	return func(data engine.Context, _ map[string]any) (string, error) {
		var buf bytes.Buffer
		if err := root.ExecuteTemplate(&buf, name, data); err != nil {
			return "", fmt.Errorf("gohtml: execute %q: %w", name, err)
		}
		return buf.String(), nil
	}, nil
}

// RegisterPartial stores src for templates compiled afterwards.
func (e *Engine) RegisterPartial(name, src string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("gohtml: partial name required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.partials[name] = src
	return nil
}

// RegisterHelper adds fn to the function map of templates compiled
// afterwards.
func (e *Engine) RegisterHelper(name string, fn any) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("gohtml: helper name and function required")
	}
	if reflect.TypeOf(fn).Kind() != reflect.Func {
		return fmt.Errorf("gohtml: helper %q is not a function (got %T)", name, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	funcs := make(template.FuncMap, len(e.funcs)+1)
	for k, v := range e.funcs {
		funcs[k] = v
	}
	funcs[name] = fn
	e.funcs = funcs
	return nil
}
