// Package viewshttp serves rendered views over net/http.
package viewshttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// DefaultMaxPayload bounds request bodies decoded into the view context.
const DefaultMaxPayload int64 = 1 << 20

// Responder builds response sources. *manager.Manager and *realm.Scope
// both satisfy it.
type Responder interface {
	Response(req manager.Request) (*manager.Response, error)
}

// Option configures a view handler.
type Option func(*handler)

// WithContext adds fixed keys to every request context. They override the
// params, query and payload keys.
func WithContext(data engine.Context) Option {
	return func(h *handler) {
		h.context = maps.Clone(data)
	}
}

// WithOverrides sets per-render overrides for the handler's template.
func WithOverrides(overrides *settings.Overrides) Option {
	return func(h *handler) {
		h.overrides = overrides
	}
}

// WithLogger sets the logger used for render failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxPayload bounds the request body size. Non-positive values keep the
// default.
func WithMaxPayload(n int64) Option {
	return func(h *handler) {
		if n > 0 {
			h.maxPayload = n
		}
	}
}

type handler struct {
	views      Responder
	template   string
	context    engine.Context
	overrides  *settings.Overrides
	logger     *slog.Logger
	maxPayload int64
}

// Handler renders template for every request. The context carries the
// route params, the query string and the decoded payload.
func Handler(views Responder, template string, options ...Option) http.Handler {
	h := &handler{
		views:      views,
		template:   template,
		logger:     slog.Default(),
		maxPayload: DefaultMaxPayload,
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r, h.maxPayload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := engine.Context{
		"params":  params(r),
		"query":   flatten(r.URL.Query()),
		"payload": payload,
	}
	maps.Copy(data, h.context)

	if err := View(w, r, h.views, h.template, data, h.overrides); err != nil {
		h.logger.Error("views: render view failed", "template", h.template, "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(statusOf(err)), statusOf(err))
	}
}

// View renders template and writes it to w. The content type is only set
// when w has none yet. Nothing is written when an error is returned.
func View(w http.ResponseWriter, r *http.Request, views Responder, template string, data engine.Context, overrides *settings.Overrides) error {
	if views == nil {
		return fmt.Errorf("viewshttp: cannot render view without a views manager configured")
	}
	resp, err := views.Response(manager.Request{
		Template: template,
		Context:  data,
		Options:  overrides,
		Source:   r,
	})
	if err != nil {
		return err
	}
	body, err := resp.Marshal(r.Context())
	if err != nil {
		return err
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentType(resp.ContentType(), resp.Encoding()))
	}
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, viewerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewerrors.ErrSecurity):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func contentType(mediaType, encoding string) string {
	if mediaType == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(mediaType); err == nil {
		if _, ok := params["charset"]; ok {
			return mediaType
		}
	}
	charset := encoding
	if charset == "" || charset == settings.DefaultEncoding {
		charset = "utf-8"
	}
	return mediaType + "; charset=" + charset
}

func params(r *http.Request) map[string]any {
	vars := mux.Vars(r)
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// flatten keeps single values as strings and repeated keys as lists.
func flatten(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch len(v) {
		case 0:
			out[k] = ""
		case 1:
			out[k] = v[0]
		default:
			list := make([]any, len(v))
			for i, item := range v {
				list[i] = item
			}
			out[k] = list
		}
	}
	return out
}

func readPayload(r *http.Request, limit int64) (any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		if err != nil {
			return nil, fmt.Errorf("viewshttp: read payload: %w", err)
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("viewshttp: payload exceeds %d bytes", limit)
		}
		if len(data) == 0 {
			return nil, nil
		}
		var payload any
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("viewshttp: invalid JSON payload: %w", err)
		}
		return payload, nil
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(nil, r.Body, limit)
		if err := r.ParseMultipartForm(limit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("viewshttp: invalid form payload: %w", err)
		}
		return flatten(r.PostForm), nil
	default:
		return nil, nil
	}
}
