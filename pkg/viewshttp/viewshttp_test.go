package viewshttp_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-views/pkg/adapters/gohtml"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/realm"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/testsupport"
	"github.com/goliatone/go-views/pkg/viewshttp"
)

func newViews(t *testing.T) *manager.Manager {
	t.Helper()
	dir := testsupport.TempTree(t, map[string]string{
		"views/user.html":    "{{.params.id}}|{{.query.tab}}|{{.title}}",
		"views/payload.html": "{{.payload.name}}",
		"views/list.html":    "{{range .query.tag}}[{{.}}]{{end}}",
		"views/broken.html":  `{{template "missing" .}}`,
	})
	m, err := manager.New(manager.Config{
		Overrides: settings.Overrides{
			RelativeTo: settings.String(dir),
			Path:       settings.PathList{"views"},
		},
		Engines: map[string]any{"html": gohtml.New()},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestHandler_RouteParamsQueryAndContext(t *testing.T) {
	views := newViews(t)
	router := mux.NewRouter()
	router.Handle("/users/{id}", viewshttp.Handler(views, "user",
		viewshttp.WithContext(map[string]any{"title": "Profile"}),
	))

	req := httptest.NewRequest(http.MethodGet, "/users/42?tab=posts", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%q", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "42|posts|Profile" {
		t.Fatalf("unexpected body %q", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestHandler_RepeatedQueryKeys(t *testing.T) {
	views := newViews(t)
	req := httptest.NewRequest(http.MethodGet, "/?tag=a&tag=b", nil)
	rr := httptest.NewRecorder()
	viewshttp.Handler(views, "list").ServeHTTP(rr, req)

	if got := rr.Body.String(); got != "[a][b]" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestHandler_Payload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "json", contentType: "application/json", body: `{"name":"Ada"}`},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: url.Values{"name": {"Ada"}}.Encode()},
	}

	views := newViews(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			viewshttp.Handler(views, "payload").ServeHTTP(rr, req)

			if rr.Code != http.StatusOK || rr.Body.String() != "Ada" {
				t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandler_InvalidPayload(t *testing.T) {
	views := newViews(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	viewshttp.Handler(views, "payload").ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandler_PayloadTooLarge(t *testing.T) {
	views := newViews(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada Lovelace"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	viewshttp.Handler(views, "payload", viewshttp.WithMaxPayload(8)).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     int
	}{
		{name: "missing template", template: "nope", want: http.StatusNotFound},
		{name: "traversal", template: "../outside", want: http.StatusForbidden},
		{name: "render failure", template: "broken", want: http.StatusInternalServerError},
	}

	views := newViews(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testsupport.CaptureLogger()
			rr := httptest.NewRecorder()
			viewshttp.Handler(views, tt.template, viewshttp.WithLogger(logger)).
				ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if !logs.Contains("views: render view failed") {
				t.Fatalf("expected failure log, got %q", logs.String())
			}
		})
	}
}

func TestView_KeepsExistingContentType(t *testing.T) {
	views := newViews(t)
	rr := httptest.NewRecorder()
	rr.Header().Set("Content-Type", "application/xhtml+xml")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := viewshttp.View(rr, req, views, "payload", map[string]any{"payload": map[string]any{"name": "Ada"}}, nil); err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/xhtml+xml" {
		t.Fatalf("content type overwritten: %q", got)
	}
}

func TestView_OverridesContentType(t *testing.T) {
	views := newViews(t)
	rr := httptest.NewRecorder()
	overrides := &settings.Overrides{ContentType: settings.String("text/plain; charset=utf-8")}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	data := map[string]any{"payload": map[string]any{"name": "Ada"}}
	if err := viewshttp.View(rr, req, views, "payload", data, overrides); err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestView_WithoutManager(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if err := viewshttp.View(rr, req, nil, "user", nil, nil); err == nil {
		t.Fatalf("expected error without responder")
	}

	scope := realm.NewRoot("server").Child("plugin")
	if err := viewshttp.View(rr, req, scope, "user", nil, nil); err == nil {
		t.Fatalf("expected error for scope without manager")
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("nothing must be written on error, got %q", rr.Body.String())
	}
}
