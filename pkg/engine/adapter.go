package engine

import (
	"context"

	"github.com/goliatone/go-views/pkg/settings"
)

// Context is the data a template renders against.
type Context = map[string]any

// RenderFunc renders a compiled template synchronously.
type RenderFunc func(data Context, runtimeOptions map[string]any) (string, error)

// AsyncRenderFunc renders a compiled template and reports through done.
type AsyncRenderFunc func(data Context, runtimeOptions map[string]any, done func(string, error))

// Compiler is the required capability of a synchronous adapter.
type Compiler interface {
	Compile(src string, options map[string]any) (RenderFunc, error)
}

// AsyncCompiler is the required capability of a continuation style adapter.
// done must be called exactly once; later calls are ignored.
type AsyncCompiler interface {
	CompileAsync(src string, options map[string]any, done func(AsyncRenderFunc, error))
}

// Initializer adapters need one successful Prepare before they can compile.
type Initializer interface {
	Prepare(ctx context.Context, cfg settings.Settings) error
}

// PartialRegistrar adapters accept named sub-templates.
type PartialRegistrar interface {
	RegisterPartial(name, src string) error
}

// HelperRegistrar adapters expose named callables to templates. fn is always
// a Go func value.
type HelperRegistrar interface {
	RegisterHelper(name string, fn any) error
}

// Template is the uniform render contract every adapter is normalised into.
type Template func(ctx context.Context, data Context, runtimeOptions map[string]any) (string, error)

// CompileFunc is the uniform compile contract stored on an Entry.
type CompileFunc func(ctx context.Context, src string, options map[string]any) (Template, error)
