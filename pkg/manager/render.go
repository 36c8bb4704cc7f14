package manager

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-views/internal/resolver"
	"github.com/goliatone/go-views/internal/source"
	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// Request describes one render.
type Request struct {
	// Template is the logical template name. Without an extension the
	// default extension is appended.
	Template string

	// Context is the call's render data. It is laid over the global context
	// when one is configured.
	Context engine.Context

	// Options are per-call overrides above the engine settings.
	Options *settings.Overrides

	// Source is the request-like value handed to a DynamicContext.
	Source any
}

// compiled is the per-call result of resolving and compiling a template and
// its optional layout.
type compiled struct {
	entry    *engine.Entry
	settings settings.Settings
	path     string
	template engine.Template
	layout   engine.Template
}

// Render resolves, compiles and renders name with data and per-call
// overrides.
func (m *Manager) Render(ctx context.Context, name string, data engine.Context, overrides *settings.Overrides) (string, error) {
	return m.RenderRequest(ctx, Request{Template: name, Context: data, Options: overrides})
}

// RenderRequest runs the full pipeline for req. Either the complete output
// is returned or an error, never both.
func (m *Manager) RenderRequest(ctx context.Context, req Request) (out string, err error) {
	start := time.Now()
	extension := ""
	defer func() {
		m.metrics.observeRender(extension, start, err)
	}()

	c, err := m.prepare(ctx, req.Template, req.Options)
	if err != nil {
		return "", err
	}
	extension = c.entry.Extension
	return m.render(ctx, c, req.Context, req.Source)
}

func (m *Manager) lookup(name string) (*engine.Entry, string, error) {
	fileExt := strings.TrimPrefix(filepath.Ext(name), ".")
	ext := fileExt
	if ext == "" {
		ext = m.defaultExtension
	}
	if ext == "" {
		return nil, "", viewerrors.Configf("unknown extension and no defaultExtension configured for view template: %s", name)
	}

	entry, ok := m.engines[ext]
	if !ok {
		return nil, "", viewerrors.Configf("no view engine found for file: %s", name)
	}
	if fileExt == "" {
		name += entry.Suffix
	}
	return entry, name, nil
}

// prepare covers engine lookup, one-time initialisation, settings merge,
// path resolution and compilation of the template and its layout.
func (m *Manager) prepare(ctx context.Context, name string, overrides *settings.Overrides) (*compiled, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, filename, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := entry.EnsureReady(ctx); err != nil {
		return nil, err
	}

	snapshot := entry.Settings.Apply(overrides)
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if !source.Supported(snapshot.Encoding) {
		return nil, viewerrors.Configf("unsupported encoding %q", snapshot.Encoding)
	}

	path, err := resolver.Resolve(filename, snapshot, false)
	if err != nil {
		return nil, err
	}

	if !entry.Settings.IsCached {
		if err := entry.Reload(); err != nil {
			return nil, err
		}
	}

	tpl, err := m.compile(ctx, entry, path, snapshot)
	if err != nil {
		return nil, err
	}
	c := &compiled{entry: entry, settings: snapshot, path: path, template: tpl}

	if !snapshot.Layout.Enabled {
		return c, nil
	}

	layoutPath, err := resolver.Resolve(snapshot.Layout.TemplateName()+entry.Suffix, snapshot, true)
	if err != nil {
		return nil, err
	}
	if c.layout, err = m.compile(ctx, entry, layoutPath, snapshot); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Manager) compile(ctx context.Context, entry *engine.Entry, path string, snapshot settings.Settings) (engine.Template, error) {
	tpl, hit, err := entry.Compile(ctx, path, snapshot)
	if err != nil {
		return nil, err
	}

	result := "miss"
	switch {
	case entry.Cache() == nil:
		result = "uncached"
	case hit:
		result = "hit"
	}
	m.metrics.cacheLookup(entry.Extension, result)
	m.logger.Debug("views: template compiled", "path", path, "extension", entry.Extension, "cache", result)
	return tpl, nil
}

// render builds the effective context and runs the template and layout. The
// layout keyword is removed from the context again even when the layout
// fails.
func (m *Manager) render(ctx context.Context, c *compiled, data engine.Context, src any) (string, error) {
	effective := m.effectiveContext(data, src)
	keyword := c.settings.LayoutKeyword

	if c.layout != nil {
		if _, exists := effective[keyword]; exists {
			return "", fmt.Errorf("%w: context already defines %q", viewerrors.ErrKeywordConflict, keyword)
		}
	}

	content, err := c.template(ctx, effective, c.settings.RuntimeOptions)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", viewerrors.ErrRender, c.path, err)
	}
	if c.layout == nil {
		return content, nil
	}

	effective[keyword] = content
	defer delete(effective, keyword)

	out, err := c.layout(ctx, effective, c.settings.RuntimeOptions)
	if err != nil {
		return "", fmt.Errorf("%w: layout for %s: %w", viewerrors.ErrRender, c.path, err)
	}
	return out, nil
}

// effectiveContext lays data over a fresh copy of the global context. With
// no global context the call's own map is used as is.
func (m *Manager) effectiveContext(data engine.Context, src any) engine.Context {
	if m.context == nil {
		if data == nil {
			return engine.Context{}
		}
		return data
	}

	base := m.context.resolve(src)
	out := make(engine.Context, len(base)+len(data))
	maps.Copy(out, base)
	maps.Copy(out, data)
	return out
}
