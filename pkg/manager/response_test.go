package manager_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/testsupport"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

func TestResponse_PrepareThenMarshal(t *testing.T) {
	root := viewsTree(t)
	cfg := baseConfig(root, &stubEngine{})
	cfg.ContentType = settings.String("text/plain")
	m := newManager(t, cfg)

	resp, err := m.Response(manager.Request{Template: "hello", Context: engine.Context{"name": "first"}})
	if err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp.ContentType() != "" {
		t.Fatalf("content type must be empty before prepare")
	}
	if _, err := resp.Path(); !errors.Is(err, manager.ErrNotPrepared) {
		t.Fatalf("expected ErrNotPrepared, got %v", err)
	}

	if err := resp.Prepare(testsupport.Context()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if resp.ContentType() != "text/plain" || resp.Encoding() != "utf8" {
		t.Fatalf("unexpected headers: %q %q", resp.ContentType(), resp.Encoding())
	}

	resp.Context()["name"] = "changed"
	out, err := resp.Marshal(testsupport.Context())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "Hello changed" {
		t.Fatalf("unexpected body %q", out)
	}
}

func TestResponse_EncodesOutput(t *testing.T) {
	root := testsupport.TempTree(t, map[string]string{"views/cafe.html": "{{word}}"})
	cfg := baseConfig(root, &stubEngine{})
	cfg.Encoding = settings.String("latin1")
	m := newManager(t, cfg)

	resp, err := m.Response(manager.Request{Template: "cafe", Context: engine.Context{"word": "café"}})
	if err != nil {
		t.Fatalf("response: %v", err)
	}
	out, err := resp.Marshal(testsupport.Context())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := []byte{'c', 'a', 'f', 0xe9}; string(out) != string(want) {
		t.Fatalf("want latin1 bytes %v got %v", want, out)
	}
	if resp.Encoding() != "latin1" {
		t.Fatalf("unexpected encoding %q", resp.Encoding())
	}
}

func TestResponse_RejectsEngineOnlyOverrides(t *testing.T) {
	m := newManager(t, baseConfig(viewsTree(t), &stubEngine{}))
	_, err := m.Response(manager.Request{
		Template: "hello",
		Options:  &settings.Overrides{PartialsPath: settings.PathList{"partials"}},
	})
	if !errors.Is(err, viewerrors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
