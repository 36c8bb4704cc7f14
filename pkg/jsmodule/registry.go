// Package jsmodule evaluates CommonJS style helper files with goja and keeps
// the results in an explicit registry keyed by absolute path. Callers decide
// when an entry is stale and reload it; there is no process-wide cache.
package jsmodule

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Func is the Go shape of an exported JavaScript function.
type Func func(args ...any) (any, error)

// Extensions lists the file extensions the registry can load.
var Extensions = []string{".js", ".cjs"}

// Loadable reports whether path has a loadable extension.
func Loadable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range Extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Registry caches evaluated modules by absolute path.
type Registry struct {
	mu      sync.Mutex
	modules map[string]*Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Load returns the module at path, evaluating it on first use.
func (r *Registry) Load(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("jsmodule: resolve %s: %w", path, err)
	}

	r.mu.Lock()
	if mod, ok := r.modules[abs]; ok {
		r.mu.Unlock()
		return mod, nil
	}
	r.mu.Unlock()

	mod, err := evaluate(abs)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[abs] = mod
	return mod, nil
}

// Invalidate drops the cached module for path, if any.
func (r *Registry) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modules, abs)
}

// Reload invalidates path and evaluates it again.
func (r *Registry) Reload(path string) (*Module, error) {
	r.Invalidate(path)
	return r.Load(path)
}

// Len reports how many modules are cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}

// Module is one evaluated file. A goja runtime is not safe for concurrent
// use, so every call into it holds mu.
type Module struct {
	path    string
	mu      sync.Mutex
	vm      *goja.Runtime
	exports goja.Value
}

// Path returns the absolute file path the module was loaded from.
func (m *Module) Path() string { return m.path }

// Resolve picks exports[name], then exports.default, then exports itself,
// using the first one that is set. It reports false when that value is not
// callable.
func (m *Module) Resolve(name string) (Func, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.exports
	if obj, ok := m.exports.(*goja.Object); ok {
		if named := obj.Get(name); isSet(named) {
			candidate = named
		} else if def := obj.Get("default"); isSet(def) {
			candidate = def
		}
	}

	fn, ok := goja.AssertFunction(candidate)
	if !ok {
		return nil, false
	}
	return m.wrap(fn), true
}

func (m *Module) wrap(fn goja.Callable) Func {
	return func(args ...any) (out any, err error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("jsmodule: %s: %v", filepath.Base(m.path), r)
			}
		}()

		values := make([]goja.Value, len(args))
		for i, arg := range args {
			values[i] = m.vm.ToValue(arg)
		}
		result, err := fn(goja.Undefined(), values...)
		if err != nil {
			return nil, fmt.Errorf("jsmodule: %s: %w", filepath.Base(m.path), err)
		}
		if !isSet(result) {
			return nil, nil
		}
		return result.Export(), nil
	}
}

func evaluate(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jsmodule: read %s: %w", path, err)
	}

	vm := goja.New()
	exports, err := runCommonJS(vm, path, string(data))
	if err != nil {
		return nil, err
	}
	return &Module{path: path, vm: vm, exports: exports}, nil
}

// runCommonJS evaluates src with module and exports bound and returns the
// final module.exports value.
func runCommonJS(vm *goja.Runtime, name, src string) (goja.Value, error) {
	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("module", module); err != nil {
		return nil, err
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, err
	}
	if _, err := vm.RunScript(name, src); err != nil {
		return nil, fmt.Errorf("jsmodule: evaluate %s: %w", name, err)
	}
	return module.Get("exports"), nil
}

// RunCommonJS evaluates src as a CommonJS module inside vm. Adapters that
// keep their own runtime use it to share the module convention.
func RunCommonJS(vm *goja.Runtime, name, src string) (goja.Value, error) {
	return runCommonJS(vm, name, src)
}

func isSet(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
