package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/settings"
)

// File is the on-disk manager configuration. Top-level option keys use the
// same names as settings.Overrides.
type File struct {
	settings.Overrides `yaml:",inline"`

	DefaultExtension string                `json:"defaultExtension,omitempty" yaml:"defaultExtension,omitempty"`
	Engines          map[string]EngineFile `json:"engines" yaml:"engines"`
	Context          map[string]any        `json:"context,omitempty" yaml:"context,omitempty"`

	// Source is the file the configuration was read from, if any.
	Source string `json:"-" yaml:"-"`
}

// EngineFile configures one extension. Adapter names the factory entry and
// defaults to the extension itself.
type EngineFile struct {
	settings.Overrides `yaml:",inline"`

	Adapter string         `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// Factory builds the adapter registered under name.
type Factory func(name string, options map[string]any) (any, error)

// Load reads and parses path. A missing relativeTo defaults to the config
// file's directory and a relative one is resolved against it.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	switch {
	case f.RelativeTo == nil:
		f.RelativeTo = settings.String(dir)
	case !filepath.IsAbs(*f.RelativeTo):
		f.RelativeTo = settings.String(filepath.Join(dir, *f.RelativeTo))
	}
	f.Source = abs
	return f, nil
}

// Parse decodes data as JSON, falling back to YAML.
func Parse(data []byte, source string) (*File, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config: file %s is empty", source)
	}

	var f File
	jsonErr := json.Unmarshal(data, &f)
	if jsonErr != nil {
		f = File{}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("config: parse %s: invalid JSON or YAML: %w", source, err)
		}
	}
	f.Source = source
	return &f, nil
}

// ManagerConfig builds adapters through factory and returns the manager
// construction layer.
func (f *File) ManagerConfig(factory Factory) (manager.Config, error) {
	if factory == nil {
		return manager.Config{}, fmt.Errorf("config: adapter factory is required")
	}
	if len(f.Engines) == 0 {
		return manager.Config{}, fmt.Errorf("config: %s defines no engines", f.Source)
	}

	cfg := manager.Config{
		Overrides:        f.Overrides,
		DefaultExtension: f.DefaultExtension,
		Engines:          make(map[string]any, len(f.Engines)),
	}
	if f.Context != nil {
		cfg.Context = manager.StaticContext(f.Context)
	}

	extensions := make([]string, 0, len(f.Engines))
	for ext := range f.Engines {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)

	for _, ext := range extensions {
		entry := f.Engines[ext]
		name := strings.TrimSpace(entry.Adapter)
		if name == "" {
			name = strings.TrimPrefix(ext, ".")
		}
		module, err := factory(name, entry.Options)
		if err != nil {
			return manager.Config{}, fmt.Errorf("config: engine %q: %w", ext, err)
		}
		overrides := entry.Overrides
		if overrides.CompileMode == nil && f.CompileMode == nil && asyncOnly(module) {
			overrides.CompileMode = settings.Mode(settings.CompileAsync)
		}
		cfg.Engines[ext] = manager.EngineConfig{Module: module, Overrides: overrides}
	}
	return cfg, nil
}

func asyncOnly(module any) bool {
	_, sync := module.(engine.Compiler)
	_, async := module.(engine.AsyncCompiler)
	return async && !sync
}
