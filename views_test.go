package views_test

import (
	"path/filepath"
	"testing"

	views "github.com/goliatone/go-views"
	"github.com/goliatone/go-views/pkg/adapters/gohtml"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/testsupport"
)

func TestNewFromFile(t *testing.T) {
	dir := testsupport.TempTree(t, map[string]string{
		"views.yaml": `path: views
layout: true
layoutPath: layouts
engines:
  tpl:
    adapter: pongo
context:
  site: Acme
`,
		"views/index.tpl":    "Hi {{ name }}",
		"layouts/layout.tpl": "<body>{{ site }}: {{ content|safe }}</body>",
	})

	m, err := views.NewFromFile(filepath.Join(dir, "views.yaml"))
	if err != nil {
		t.Fatalf("new from file: %v", err)
	}
	out, err := m.Render(testsupport.Context(), "index", views.Context{"name": "Ada"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<body>Acme: Hi Ada</body>" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRender(t *testing.T) {
	dir := testsupport.TempTree(t, map[string]string{
		"hello.html": "Hello {{.name}}",
	})
	cfg := views.Config{
		Overrides: views.Overrides{RelativeTo: settings.String(dir)},
		Engines:   map[string]any{"html": gohtml.New()},
	}
	out, err := views.Render(testsupport.Context(), cfg, "hello", views.Context{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Ada" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDefaultAdaptersUnknown(t *testing.T) {
	if _, err := views.DefaultAdapters("handlebars", nil); err == nil {
		t.Fatalf("expected unknown adapter error")
	}
}
