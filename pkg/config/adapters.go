package config

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-views/pkg/adapters/gohtml"
	"github.com/goliatone/go-views/pkg/adapters/jsengine"
	"github.com/goliatone/go-views/pkg/adapters/pongo"
)

// DefaultFactory builds the bundled adapters:
//
//	pongo, django, twig  pongo2 (options: name, debug)
//	html, gohtml, tmpl   html/template (options: leftDelim, rightDelim)
//	js, jsengine         goja CommonJS views (options: prelude, queueSize)
func DefaultFactory(name string, options map[string]any) (any, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pongo", "pongo2", "django", "twig":
		var opts []pongo.Option
		if v, ok := options["name"].(string); ok {
			opts = append(opts, pongo.WithName(v))
		}
		if v, ok := options["debug"].(bool); ok {
			opts = append(opts, pongo.WithDebug(v))
		}
		return pongo.New(opts...)
	case "html", "gohtml", "tmpl":
		var opts []gohtml.Option
		left, _ := options["leftDelim"].(string)
		right, _ := options["rightDelim"].(string)
		if left != "" || right != "" {
			opts = append(opts, gohtml.WithDelims(left, right))
		}
		return gohtml.New(opts...), nil
	case "js", "jsengine":
		var opts []jsengine.Option
		if v, ok := options["prelude"].(string); ok {
			opts = append(opts, jsengine.WithPrelude(v))
		}
		if n, ok := asInt(options["queueSize"]); ok {
			opts = append(opts, jsengine.WithQueueSize(n))
		}
		return jsengine.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
