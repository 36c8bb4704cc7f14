package jsmodule_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-views/pkg/jsmodule"
	"github.com/goliatone/go-views/pkg/testsupport"
)

func TestModule_ResolveExportShapes(t *testing.T) {
	root := testsupport.TempTree(t, map[string]string{
		"whole.js":    `module.exports = function (name) { return "hi " + name; };`,
		"named.js":    `exports.named = function (a, b) { return a + b; }; exports.other = 1;`,
		"default.js":  `exports.default = function () { return "from default"; };`,
		"notfunc.js":  `module.exports = { notfunc: 42 };`,
		"syntax.js":   `module.exports = function ( {`,
		"throwing.js": `throw new Error("boom");`,
	})
	reg := jsmodule.NewRegistry()

	tests := []struct {
		file     string
		name     string
		args     []any
		want     any
		callable bool
	}{
		{file: "whole.js", name: "whole", args: []any{"ada"}, want: "hi ada", callable: true},
		{file: "named.js", name: "named", args: []any{2, 3}, want: int64(5), callable: true},
		{file: "default.js", name: "default", want: "from default", callable: true},
		{file: "notfunc.js", name: "notfunc", callable: false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			mod, err := reg.Load(filepath.Join(root, tt.file))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			fn, ok := mod.Resolve(tt.name)
			if ok != tt.callable {
				t.Fatalf("callable: want %v got %v", tt.callable, ok)
			}
			if !ok {
				return
			}
			got, err := fn(tt.args...)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %#v got %#v", tt.want, got)
			}
		})
	}

	for _, bad := range []string{"syntax.js", "throwing.js"} {
		if _, err := reg.Load(filepath.Join(root, bad)); err == nil {
			t.Fatalf("%s: expected load error", bad)
		}
	}
}

func TestRegistry_CachesUntilReload(t *testing.T) {
	root := testsupport.TempTree(t, map[string]string{
		"v.js": `module.exports = function () { return "one"; };`,
	})
	path := filepath.Join(root, "v.js")
	reg := jsmodule.NewRegistry()

	first, err := reg.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.WriteFile(path, []byte(`module.exports = function () { return "two"; };`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	cached, err := reg.Load(path)
	if err != nil {
		t.Fatalf("load cached: %v", err)
	}
	if cached != first {
		t.Fatalf("expected cached module instance")
	}

	reloaded, err := reg.Reload(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	fn, ok := reloaded.Resolve("v")
	if !ok {
		t.Fatalf("reloaded export not callable")
	}
	got, err := fn()
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "two" {
		t.Fatalf("want reloaded source, got %v", got)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry should hold one module, got %d", reg.Len())
	}
}

func TestFunc_PropagatesJSException(t *testing.T) {
	root := testsupport.TempTree(t, map[string]string{
		"fail.js": `module.exports = function () { throw new Error("nope"); };`,
	})
	mod, err := jsmodule.NewRegistry().Load(filepath.Join(root, "fail.js"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fn, ok := mod.Resolve("fail")
	if !ok {
		t.Fatalf("expected callable export")
	}
	if _, err := fn(); err == nil {
		t.Fatalf("expected error from throwing helper")
	}
}

func TestLoadable(t *testing.T) {
	if !jsmodule.Loadable("a/b.js") || !jsmodule.Loadable("x.CJS") {
		t.Fatalf("js files should be loadable")
	}
	if jsmodule.Loadable("a.txt") {
		t.Fatalf("txt should not be loadable")
	}
}
