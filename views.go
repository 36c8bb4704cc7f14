package views

import (
	"context"

	"github.com/goliatone/go-views/pkg/config"
	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/settings"
)

// Manager aliases manager.Manager for callers importing only the root
// package.
type Manager = manager.Manager

// Config aliases manager.Config.
type Config = manager.Config

// EngineConfig aliases manager.EngineConfig for per-engine overrides.
type EngineConfig = manager.EngineConfig

// Overrides aliases settings.Overrides, the shape of every option layer.
type Overrides = settings.Overrides

// Context is the data a template renders against.
type Context = engine.Context

// Request describes one render through Manager.RenderRequest.
type Request = manager.Request

// New builds a manager, mirroring manager.New.
func New(cfg Config, options ...manager.Option) (*Manager, error) {
	return manager.New(cfg, options...)
}

// NewFromFile loads a JSON or YAML configuration file and builds a manager
// with the bundled adapters.
func NewFromFile(path string, options ...manager.Option) (*Manager, error) {
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg, err := file.ManagerConfig(DefaultAdapters)
	if err != nil {
		return nil, err
	}
	return manager.New(cfg, options...)
}

// DefaultAdapters builds the bundled pongo2, html/template and JavaScript
// adapters by name. See config.DefaultFactory.
func DefaultAdapters(name string, options map[string]any) (any, error) {
	return config.DefaultFactory(name, options)
}

// Render builds a throwaway manager from cfg and renders one template. Use
// New for anything that renders more than once so the template cache is
// kept.
func Render(ctx context.Context, cfg Config, name string, data Context) (string, error) {
	m, err := manager.New(cfg)
	if err != nil {
		return "", err
	}
	return m.Render(ctx, name, data, nil)
}
