package manager_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/settings"
)

// stubEngine substitutes {{key}} with context values and {{name:key}} with
// helper calls. It counts compiles and renders.
type stubEngine struct {
	compiles atomic.Int32
	renders  atomic.Int32

	mu      sync.RWMutex
	helpers map[string]func(any) string
}

func (s *stubEngine) Compile(src string, _ map[string]any) (engine.RenderFunc, error) {
	s.compiles.Add(1)
	if strings.Contains(src, "{{!") {
		return nil, errors.New("stub: bad tag")
	}
	return func(data engine.Context, _ map[string]any) (string, error) {
		s.renders.Add(1)
		if strings.Contains(src, "{{fail}}") {
			return "", errors.New("stub: render failed")
		}
		return s.expand(src, data), nil
	}, nil
}

func (s *stubEngine) expand(src string, data engine.Context) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	s.mu.RLock()
	for name, fn := range s.helpers {
		for _, key := range keys {
			pairs = append(pairs, "{{"+name+":"+key+"}}", fn(data[key]))
		}
	}
	s.mu.RUnlock()
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", fmt.Sprint(data[key]))
	}
	return strings.NewReplacer(pairs...).Replace(src)
}

type helperStub struct {
	stubEngine
}

func (h *helperStub) RegisterHelper(name string, fn any) error {
	helper, ok := fn.(func(any) string)
	if !ok {
		return fmt.Errorf("stub: unsupported helper type %T", fn)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.helpers == nil {
		h.helpers = map[string]func(any) string{}
	}
	h.helpers[name] = helper
	return nil
}

// preparingStub fails its first Prepare.
type preparingStub struct {
	stubEngine
	prepares atomic.Int32
}

func (p *preparingStub) Prepare(context.Context, settings.Settings) error {
	if p.prepares.Add(1) == 1 {
		return errors.New("stub: not warmed up")
	}
	return nil
}

// gatedAsyncStub renders in a goroutine that announces itself on started and
// waits for release before reading the context.
type gatedAsyncStub struct {
	stubEngine
	started chan string
	release chan struct{}
}

func (g *gatedAsyncStub) CompileAsync(src string, options map[string]any, done func(engine.AsyncRenderFunc, error)) {
	fn, err := g.Compile(src, options)
	if err != nil {
		done(nil, err)
		return
	}
	done(func(data engine.Context, runtimeOptions map[string]any, finish func(string, error)) {
		go func() {
			g.started <- src
			<-g.release
			finish(fn(data, runtimeOptions))
		}()
	}, nil)
}
