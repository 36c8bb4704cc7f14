package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-views/internal/source"
	"github.com/goliatone/go-views/pkg/engine"
)

// ErrNotPrepared is returned by Response.Path before Prepare succeeded.
var ErrNotPrepared = errors.New("manager: response not prepared")

// Response is a two phase render for response marshalling layers. Prepare
// resolves and compiles; Marshal renders with the context as it is at that
// moment and encodes the output.
type Response struct {
	manager  *Manager
	req      Request
	compiled *compiled
}

// Response validates req.Options and returns an unprepared response.
func (m *Manager) Response(req Request) (*Response, error) {
	if err := req.Options.ValidateForRender(); err != nil {
		return nil, err
	}
	return &Response{manager: m, req: req}, nil
}

// Prepare runs lookup, engine initialisation, settings merge and
// compilation. Calling it again after success is a no-op.
func (r *Response) Prepare(ctx context.Context) error {
	if r.compiled != nil {
		return nil
	}
	c, err := r.manager.prepare(ctx, r.req.Template, r.req.Options)
	if err != nil {
		return err
	}
	r.compiled = c
	return nil
}

// Marshal renders the prepared template and encodes it with the resolved
// encoding. It prepares first when needed.
func (r *Response) Marshal(ctx context.Context) (out []byte, err error) {
	if err := r.Prepare(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		r.manager.metrics.observeRender(r.compiled.entry.Extension, start, err)
	}()

	rendered, err := r.manager.render(ctx, r.compiled, r.req.Context, r.req.Source)
	if err != nil {
		return nil, err
	}
	encoded, err := source.Encode(rendered, r.compiled.settings.Encoding)
	if err != nil {
		return nil, fmt.Errorf("manager: encode %s output: %w", r.compiled.settings.Encoding, err)
	}
	return encoded, nil
}

// ContentType is the resolved content type, empty before Prepare.
func (r *Response) ContentType() string {
	if r.compiled == nil {
		return ""
	}
	return r.compiled.settings.ContentType
}

// Encoding is the resolved output encoding, empty before Prepare.
func (r *Response) Encoding() string {
	if r.compiled == nil {
		return ""
	}
	return r.compiled.settings.Encoding
}

// Template returns the requested template name.
func (r *Response) Template() string {
	return r.req.Template
}

// Context returns the render context. Callers may change it until Marshal.
func (r *Response) Context() engine.Context {
	return r.req.Context
}

// SetContext replaces the render context before Marshal.
func (r *Response) SetContext(data engine.Context) {
	r.req.Context = data
}

// Path returns the resolved template path.
func (r *Response) Path() (string, error) {
	if r.compiled == nil {
		return "", ErrNotPrepared
	}
	return r.compiled.path, nil
}
