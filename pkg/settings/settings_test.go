package settings_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

func TestDefaults(t *testing.T) {
	got := settings.Defaults()
	want := settings.Settings{
		LayoutKeyword:  "content",
		Encoding:       "utf8",
		IsCached:       true,
		ContentType:    "text/html",
		CompileMode:    settings.CompileSync,
		CompileOptions: map[string]any{},
		RuntimeOptions: map[string]any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_ShallowReplacesNestedValues(t *testing.T) {
	base := settings.Defaults().Apply(&settings.Overrides{
		Path:           settings.PathList{"views", "shared"},
		CompileOptions: map[string]any{"a": 1, "b": 2},
		Layout:         settings.LayoutOf(settings.DefaultLayout()),
	})

	got := base.Apply(&settings.Overrides{
		Path:           settings.PathList{"other"},
		CompileOptions: map[string]any{"c": 3},
		LayoutKeyword:  settings.String("body"),
	})

	if diff := cmp.Diff([]string{"other"}, got.Path); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"c": 3}, got.CompileOptions); diff != "" {
		t.Fatalf("compile options must be replaced wholesale (-want +got):\n%s", diff)
	}
	if got.LayoutKeyword != "body" {
		t.Fatalf("layout keyword: got %q", got.LayoutKeyword)
	}
	if !got.Layout.Enabled || got.Layout.TemplateName() != "layout" {
		t.Fatalf("layout should be inherited, got %+v", got.Layout)
	}
	if base.LayoutKeyword != "content" {
		t.Fatalf("base must not change, got keyword %q", base.LayoutKeyword)
	}
}

func TestApply_SnapshotsDoNotAlias(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 1, 5).Draw(t, "keys")
		base := settings.Defaults().Apply(&settings.Overrides{
			Path:           settings.PathList(keys),
			CompileOptions: map[string]any{"shared": true},
		})

		snapshot := base.Apply(nil)
		snapshot.Path[0] = "mutated"
		snapshot.CompileOptions["filename"] = "x"

		if base.Path[0] == "mutated" {
			t.Fatalf("path slice aliased between snapshots")
		}
		if _, ok := base.CompileOptions["filename"]; ok {
			t.Fatalf("compile options aliased between snapshots")
		}
	})
}

func TestApply_LaterLayerWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lower := rapid.StringMatching(`[a-z/]{0,10}`).Draw(t, "lower")
		upper := rapid.StringMatching(`[a-z/]{0,10}`).Draw(t, "upper")
		setUpper := rapid.Bool().Draw(t, "setUpper")

		base := settings.Defaults().Apply(&settings.Overrides{RelativeTo: settings.String(lower)})
		var call *settings.Overrides
		if setUpper {
			call = &settings.Overrides{RelativeTo: settings.String(upper)}
		}
		got := base.Apply(call).RelativeTo

		want := lower
		if setUpper {
			want = upper
		}
		if got != want {
			t.Fatalf("relativeTo: want %q got %q", want, got)
		}
	})
}

func TestLookupPath(t *testing.T) {
	s := settings.Defaults().Apply(&settings.Overrides{Path: settings.PathList{"views"}})
	if diff := cmp.Diff([]string{"views"}, s.LookupPath(true)); diff != "" {
		t.Fatalf("layout lookups fall back to path (-want +got):\n%s", diff)
	}

	s = s.Apply(&settings.Overrides{LayoutPath: settings.PathList{"layouts"}})
	if diff := cmp.Diff([]string{"layouts"}, s.LookupPath(true)); diff != "" {
		t.Fatalf("layout path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"views"}, s.LookupPath(false)); diff != "" {
		t.Fatalf("template path mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateForRender(t *testing.T) {
	allowed := &settings.Overrides{
		Path:   settings.PathList{"x"},
		Layout: settings.LayoutOf(settings.NamedLayout("admin")),
	}
	if err := allowed.ValidateForRender(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rejected := &settings.Overrides{IsCached: settings.Bool(false), HelpersPath: settings.PathList{"h"}}
	err := rejected.ValidateForRender()
	if !errors.Is(err, viewerrors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	s := settings.Defaults()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	s.LayoutKeyword = " "
	if err := s.Validate(); !errors.Is(err, viewerrors.ErrConfig) {
		t.Fatalf("expected ErrConfig for empty keyword, got %v", err)
	}
}

func TestOverrides_DecodeYAML(t *testing.T) {
	src := `
path: views
layoutPath: [layouts, shared/layouts]
layout: true
compileMode: async
isCached: false
runtimeOptions:
  pretty: true
`
	var got settings.Overrides
	if err := yaml.Unmarshal([]byte(src), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if diff := cmp.Diff(settings.PathList{"views"}, got.Path); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(settings.PathList{"layouts", "shared/layouts"}, got.LayoutPath); diff != "" {
		t.Fatalf("layout path mismatch (-want +got):\n%s", diff)
	}
	if got.Layout == nil || !got.Layout.Enabled || got.Layout.TemplateName() != "layout" {
		t.Fatalf("layout: got %+v", got.Layout)
	}
	if got.CompileMode == nil || *got.CompileMode != settings.CompileAsync {
		t.Fatalf("compile mode: got %v", got.CompileMode)
	}
	if got.IsCached == nil || *got.IsCached {
		t.Fatalf("isCached: got %v", got.IsCached)
	}
}

func TestOverrides_DecodeJSON(t *testing.T) {
	src := `{"path":["a","b"],"layout":"admin","compileMode":"sync"}`
	var got settings.Overrides
	if err := json.Unmarshal([]byte(src), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(settings.PathList{"a", "b"}, got.Path); diff != "" {
		t.Fatalf("path mismatch (-want +got):\n%s", diff)
	}
	if got.Layout == nil || got.Layout.TemplateName() != "admin" {
		t.Fatalf("layout: got %+v", got.Layout)
	}

	var off settings.Overrides
	if err := json.Unmarshal([]byte(`{"layout":false}`), &off); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if off.Layout == nil || off.Layout.Enabled {
		t.Fatalf("layout false: got %+v", off.Layout)
	}
}

func TestParseCompileMode(t *testing.T) {
	if _, err := settings.ParseCompileMode("eventually"); err == nil {
		t.Fatalf("expected error for unknown compile mode")
	}
}
