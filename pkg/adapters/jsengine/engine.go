// Package jsengine renders CommonJS view modules on a single goja runtime.
// Every compile and render is queued to the goroutine that owns the runtime.
package jsengine

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/goliatone/go-views/pkg/jsmodule"
	"github.com/goliatone/go-views/internal/sanitize"
	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/settings"
)

var (
	// ErrNotPrepared is returned by compiles issued before Prepare succeeded.
	ErrNotPrepared = errors.New("jsengine: engine not prepared")
	// ErrClosed is returned once Close has stopped the runtime.
	ErrClosed = errors.New("jsengine: engine closed")
)

// PreludeOption is the compileOptions key holding JavaScript evaluated once
// during Prepare, before any template is compiled.
const PreludeOption = "prelude"

// Option configures the engine before construction.
type Option func(*Engine)

// WithQueueSize sets how many jobs may wait for the runtime goroutine.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithPrelude sets JavaScript evaluated during Prepare ahead of any prelude
// supplied through compile options.
func WithPrelude(src string) Option {
	return func(e *Engine) {
		e.prelude = src
	}
}

// Engine renders CommonJS view modules on a single goja runtime. A view
// exports a function (or an object with a render function) called as
// render(data, h, options) where h carries escape, sanitize, partial and the
// registered helpers. Every runtime access happens on one goroutine; compile
// and render report through continuations.
type Engine struct {
	mu       sync.RWMutex
	partials map[string]string
	helpers  map[string]any

	queueSize int
	prelude   string

	startOnce sync.Once
	closeOnce sync.Once
	prepared  atomic.Bool
	jobs      chan job
	quit      chan struct{}

	// owned by the runtime goroutine
	vm       *goja.Runtime
	compiled map[string]compiledPartial
}

type job struct {
	run  func(vm *goja.Runtime)
	fail func(error)
}

type compiledPartial struct {
	src string
	fn  goja.Callable
}

var (
	_ engine.AsyncCompiler    = (*Engine)(nil)
	_ engine.Initializer      = (*Engine)(nil)
	_ engine.PartialRegistrar = (*Engine)(nil)
	_ engine.HelperRegistrar  = (*Engine)(nil)
)

// New constructs an Engine. The runtime goroutine starts on the first
// Prepare.
func New(options ...Option) *Engine {
	e := &Engine{
		partials:  make(map[string]string),
		helpers:   make(map[string]any),
		queueSize: 64,
		quit:      make(chan struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Prepare starts the runtime and evaluates the preludes. A failed prelude
// leaves the engine unprepared so Prepare can be retried.
func (e *Engine) Prepare(ctx context.Context, cfg settings.Settings) error {
	e.startOnce.Do(e.start)

	var preludes []string
	if e.prelude != "" {
		preludes = append(preludes, e.prelude)
	}
	if src, ok := cfg.CompileOptions[PreludeOption].(string); ok && strings.TrimSpace(src) != "" {
		preludes = append(preludes, src)
	}

	errc := make(chan error, 1)
	e.submit(job{
		run: func(vm *goja.Runtime) {
			for i, src := range preludes {
				if _, err := vm.RunScript(fmt.Sprintf("prelude-%d.js", i), src); err != nil {
					errc <- fmt.Errorf("jsengine: prelude: %w", err)
					return
				}
			}
			errc <- nil
		},
		fail: func(err error) { errc <- err },
	})

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	e.prepared.Store(true)
	return nil
}

// CompileAsync evaluates src as a CommonJS module and hands back its render
// function.
func (e *Engine) CompileAsync(src string, options map[string]any, done func(engine.AsyncRenderFunc, error)) {
	if !e.prepared.Load() {
		done(nil, ErrNotPrepared)
		return
	}
	name, _ := options["filename"].(string)
	if name == "" {
		name = "view.js"
	}

	e.submit(job{
		run: func(vm *goja.Runtime) {
			fn, err := compileModule(vm, name, src)
			if err != nil {
				done(nil, err)
				return
			}
			done(e.renderFunc(name, fn), nil)
		},
		fail: func(err error) { done(nil, err) },
	})
}

func (e *Engine) renderFunc(name string, fn goja.Callable) engine.AsyncRenderFunc {
	return func(data engine.Context, runtimeOptions map[string]any, done func(string, error)) {
		if runtimeOptions == nil {
			runtimeOptions = map[string]any{}
		}
		e.submit(job{
			run: func(vm *goja.Runtime) {
				out, err := fn(goja.Undefined(), vm.ToValue(data), e.helperObject(vm), vm.ToValue(runtimeOptions))
				if err != nil {
					done("", fmt.Errorf("jsengine: render %s: %w", name, err))
					return
				}
				done(stringOf(out), nil)
			},
			fail: func(err error) { done("", err) },
		})
	}
}

// RegisterPartial stores a CommonJS partial callable from views as
// h.partial(name, data).
func (e *Engine) RegisterPartial(name, src string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("jsengine: partial name required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.partials[name] = src
	return nil
}

// RegisterHelper exposes fn on the h argument of every render.
func (e *Engine) RegisterHelper(name string, fn any) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("jsengine: helper name and function required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.helpers[name] = fn
	return nil
}

// Close stops the runtime goroutine. Pending and later jobs fail with
// ErrClosed.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.quit) })
	return nil
}

func (e *Engine) start() {
	e.vm = goja.New()
	e.compiled = make(map[string]compiledPartial)
	e.jobs = make(chan job, e.queueSize)
	go e.loop()
}

func (e *Engine) loop() {
	for {
		select {
		case j := <-e.jobs:
			e.run(j)
		case <-e.quit:
			for {
				select {
				case j := <-e.jobs:
					j.fail(ErrClosed)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			j.fail(fmt.Errorf("jsengine: job panicked: %v", r))
		}
	}()
	j.run(e.vm)
}

func (e *Engine) submit(j job) {
	select {
	case <-e.quit:
		j.fail(ErrClosed)
		return
	default:
	}
	select {
	case e.jobs <- j:
	case <-e.quit:
		j.fail(ErrClosed)
	}
}

func (e *Engine) helperObject(vm *goja.Runtime) *goja.Object {
	h := vm.NewObject()
	_ = h.Set("escape", html.EscapeString)
	_ = h.Set("sanitize", sanitize.HTML)
	_ = h.Set("partial", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		out, err := e.renderPartial(vm, name, call.Argument(1), h)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(out)
	})

	e.mu.RLock()
	for name, fn := range e.helpers {
		_ = h.Set(name, fn)
	}
	e.mu.RUnlock()
	return h
}

func (e *Engine) renderPartial(vm *goja.Runtime, name string, data goja.Value, h *goja.Object) (string, error) {
	e.mu.RLock()
	src, ok := e.partials[name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("jsengine: partial %q not registered", name)
	}

	cached, ok := e.compiled[name]
	if !ok || cached.src != src {
		fn, err := compileModule(vm, name, src)
		if err != nil {
			return "", err
		}
		cached = compiledPartial{src: src, fn: fn}
		e.compiled[name] = cached
	}

	out, err := cached.fn(goja.Undefined(), data, h)
	if err != nil {
		return "", fmt.Errorf("jsengine: partial %q: %w", name, err)
	}
	return stringOf(out), nil
}

func compileModule(vm *goja.Runtime, name, src string) (goja.Callable, error) {
	exports, err := jsmodule.RunCommonJS(vm, name, src)
	if err != nil {
		return nil, err
	}
	if fn, ok := goja.AssertFunction(exports); ok {
		return fn, nil
	}
	if obj, ok := exports.(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(obj.Get("render")); ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("jsengine: %s must export a render function", name)
}

func stringOf(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
