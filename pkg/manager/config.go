package manager

import (
	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/settings"
)

// Config is the manager construction layer.
type Config struct {
	// Overrides applies to every engine, above the built-in defaults.
	settings.Overrides

	// Engines maps a file extension (without the dot) to either an adapter
	// value or an EngineConfig carrying per-engine overrides.
	Engines map[string]any

	// DefaultExtension is used for template names without an extension.
	// When a single engine is registered it is implied.
	DefaultExtension string

	// Context supplies default render context values. Call context wins on
	// key conflicts.
	Context ContextSource
}

// EngineConfig registers Module with overrides that apply to its engine
// only.
type EngineConfig struct {
	Module any
	settings.Overrides
}

// ContextSource produces the global default context for one render. It is
// implemented by StaticContext and DynamicContext.
type ContextSource interface {
	resolve(req any) engine.Context
}

// StaticContext is the same default context for every render.
type StaticContext engine.Context

func (c StaticContext) resolve(any) engine.Context {
	return engine.Context(c)
}

// DynamicContext builds the default context from the request-like value
// passed as Request.Source. It must not mutate manager state.
type DynamicContext func(req any) engine.Context

func (f DynamicContext) resolve(req any) engine.Context {
	if f == nil {
		return nil
	}
	return f(req)
}
