// Package realm scopes view managers to a tree of plugin-like realms. Each
// scope owns at most one manager; renders use the nearest manager walking
// towards the root.
package realm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-views/pkg/engine"
	"github.com/goliatone/go-views/pkg/manager"
	"github.com/goliatone/go-views/pkg/settings"
)

var (
	// ErrManagerExists is returned when a scope already owns a manager.
	ErrManagerExists = errors.New("realm: cannot set views manager more than once per realm")
	// ErrNoManager is returned when no scope up to the root has a manager.
	ErrNoManager = errors.New("realm: missing views manager")
)

// Scope is one node in the realm tree.
type Scope struct {
	name   string
	parent *Scope

	mu         sync.RWMutex
	relativeTo string
	manager    *manager.Manager
}

// NewRoot returns a scope without a parent.
func NewRoot(name string) *Scope {
	return &Scope{name: name}
}

// Child returns a new scope below s.
func (s *Scope) Child(name string) *Scope {
	return &Scope{name: name, parent: s}
}

// Name returns the label given at construction.
func (s *Scope) Name() string { return s.name }

// Parent returns nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Root walks up to the top scope.
func (s *Scope) Root() *Scope {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// SetRelativeTo sets the base directory managers created in s inherit.
func (s *Scope) SetRelativeTo(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relativeTo = dir
}

// RelativeTo returns the scope's base directory, empty when unset.
func (s *Scope) RelativeTo() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relativeTo
}

// SetManager attaches m to s.
func (s *Scope) SetManager(m *manager.Manager) error {
	if m == nil {
		return fmt.Errorf("realm: manager is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager != nil {
		return fmt.Errorf("%w (%s)", ErrManagerExists, s.name)
	}
	s.manager = m
	return nil
}

// Manager returns the manager owned by s itself.
func (s *Scope) Manager() *manager.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// Views builds a manager from cfg and attaches it to s. When cfg has no
// relativeTo the scope's own is used.
func (s *Scope) Views(cfg manager.Config, options ...manager.Option) (*manager.Manager, error) {
	if existing := s.Manager(); existing != nil {
		return nil, fmt.Errorf("%w (%s)", ErrManagerExists, s.name)
	}
	if cfg.RelativeTo == nil {
		if dir := s.RelativeTo(); dir != "" {
			cfg.RelativeTo = settings.String(dir)
		}
	}

	m, err := manager.New(cfg, options...)
	if err != nil {
		return nil, err
	}
	if err := s.SetManager(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Nearest returns the first manager found from s up to the root.
func (s *Scope) Nearest() (*manager.Manager, error) {
	for scope := s; scope != nil; scope = scope.parent {
		if m := scope.Manager(); m != nil {
			return m, nil
		}
	}
	return nil, ErrNoManager
}

// Render renders through the nearest manager.
func (s *Scope) Render(ctx context.Context, name string, data engine.Context, overrides *settings.Overrides) (string, error) {
	m, err := s.Nearest()
	if err != nil {
		return "", err
	}
	return m.Render(ctx, name, data, overrides)
}

// Response builds a response source through the nearest manager.
func (s *Scope) Response(req manager.Request) (*manager.Response, error) {
	m, err := s.Nearest()
	if err != nil {
		return nil, fmt.Errorf("realm: cannot render view without a views manager configured: %w", err)
	}
	return m.Response(req)
}
