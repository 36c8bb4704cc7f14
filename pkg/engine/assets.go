package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-views/pkg/jsmodule"
	"github.com/goliatone/go-views/internal/resolver"
	"github.com/goliatone/go-views/internal/source"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// LoadPartials walks every partials directory in order and registers each
// file carrying the engine suffix. The partial name is the path relative to
// its root, suffix stripped, with forward slashes.
func (e *Entry) LoadPartials() error {
	registrar, ok := e.Module.(PartialRegistrar)
	if !ok || len(e.Settings.PartialsPath) == 0 {
		return nil
	}

	for _, dir := range e.Settings.PartialsPath {
		root := resolver.Join(e.Settings.RelativeTo, dir, "")
		err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			if strings.HasPrefix(entry.Name(), ".") || filepath.Ext(path) != e.Suffix {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(strings.TrimSuffix(rel, e.Suffix))

			src, err := source.Read(context.Background(), path, e.Settings.Encoding)
			if err != nil {
				return err
			}
			if err := registrar.RegisterPartial(name, src); err != nil {
				return fmt.Errorf("register partial %q: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: engine %q: load partials from %s: %w", viewerrors.ErrConfig, e.Extension, root, err)
		}
	}
	return nil
}

// LoadHelpers registers the callable export of every loadable file directly
// inside each helpers directory. A file that fails to evaluate is logged and
// skipped; only an unreadable directory is an error. With caching disabled
// every file is re-evaluated so edits show up on the next render.
func (e *Entry) LoadHelpers() error {
	registrar, ok := e.Module.(HelperRegistrar)
	if !ok || len(e.Settings.HelpersPath) == 0 {
		return nil
	}

	for _, dir := range e.Settings.HelpersPath {
		root := resolver.Join(e.Settings.RelativeTo, dir, "")
		if !filepath.IsAbs(root) {
			if abs, err := filepath.Abs(root); err == nil {
				root = abs
			}
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			return fmt.Errorf("%w: engine %q: read helpers dir %s: %w", viewerrors.ErrConfig, e.Extension, root, err)
		}

		for _, entry := range entries {
			file := entry.Name()
			path := filepath.Join(root, file)
			if strings.HasPrefix(file, ".") || !jsmodule.Loadable(file) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}

			e.loadHelper(registrar, path, strings.TrimSuffix(file, filepath.Ext(file)))
		}
	}
	return nil
}

func (e *Entry) loadHelper(registrar HelperRegistrar, path, name string) {
	load := e.modules.Load
	if !e.Settings.IsCached {
		load = e.modules.Reload
	}

	mod, err := load(path)
	if err != nil {
		e.logger.Warn("views: failed to load helper", "file", path, "error", err)
		return
	}
	fn, ok := mod.Resolve(name)
	if !ok {
		return
	}
	if err := registrar.RegisterHelper(name, (func(...any) (any, error))(fn)); err != nil {
		e.logger.Warn("views: failed to register helper", "file", path, "helper", name, "error", err)
	}
}
