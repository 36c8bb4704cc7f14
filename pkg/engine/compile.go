package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// IsAdapter reports whether module exposes any compile capability.
func IsAdapter(module any) bool {
	switch module.(type) {
	case Compiler, AsyncCompiler:
		return true
	default:
		return false
	}
}

// NewCompileFunc resolves module and mode into one CompileFunc. The choice is
// made once here so renders never branch on the adapter's calling convention.
func NewCompileFunc(module any, mode settings.CompileMode) (CompileFunc, error) {
	switch mode {
	case settings.CompileSync:
		c, ok := module.(Compiler)
		if !ok {
			return nil, viewerrors.Configf("sync compile mode requires an adapter implementing Compile (got %T)", module)
		}
		return syncCompile(c), nil
	case settings.CompileAsync:
		c, ok := module.(AsyncCompiler)
		if !ok {
			return nil, viewerrors.Configf("async compile mode requires an adapter implementing CompileAsync (got %T)", module)
		}
		return asyncCompile(c), nil
	default:
		return nil, viewerrors.Configf("unknown compile mode %s", mode)
	}
}

func syncCompile(c Compiler) CompileFunc {
	return func(_ context.Context, src string, options map[string]any) (tpl Template, err error) {
		defer recoverInto(&err, "compile")

		fn, err := c.Compile(src, options)
		if err != nil {
			return nil, err
		}
		if fn == nil {
			return nil, errors.New("engine: adapter returned a nil render function")
		}
		return func(_ context.Context, data Context, runtimeOptions map[string]any) (out string, err error) {
			defer recoverInto(&err, "render")
			return fn(data, runtimeOptions)
		}, nil
	}
}

func asyncCompile(c AsyncCompiler) CompileFunc {
	return func(ctx context.Context, src string, options map[string]any) (Template, error) {
		fn, err := await(ctx, func(done func(AsyncRenderFunc, error)) {
			c.CompileAsync(src, options, done)
		})
		if err != nil {
			return nil, err
		}
		if fn == nil {
			return nil, errors.New("engine: adapter returned a nil render function")
		}
		return func(ctx context.Context, data Context, runtimeOptions map[string]any) (string, error) {
			return await(ctx, func(done func(string, error)) {
				fn(data, runtimeOptions, done)
			})
		}, nil
	}
}

// await starts a continuation style call and blocks until its first
// completion signal. ctx is only checked before the call starts; once the
// adapter holds the arguments it runs to completion. Panics raised while
// starting the call count as its completion.
func await[T any](ctx context.Context, start func(done func(T, error))) (T, error) {
	type result struct {
		value T
		err   error
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	ch := make(chan result, 1)
	var once sync.Once
	done := func(value T, err error) {
		once.Do(func() { ch <- result{value: value, err: err} })
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done(zero, panicError(r))
			}
		}()
		start(done)
	}()

	res := <-ch
	return res.value, res.err
}

func recoverInto(err *error, stage string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("engine: %s panicked: %w", stage, panicError(r))
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
