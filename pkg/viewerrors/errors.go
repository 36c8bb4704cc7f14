// Package viewerrors defines the error categories surfaced by the view
// manager. Pipeline errors wrap exactly one category sentinel so callers can
// branch with errors.Is while still reaching the adapter's original cause.
package viewerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig marks invalid options, missing engines or unresolvable
	// extensions. Never retried automatically.
	ErrConfig = errors.New("views: configuration error")

	// ErrSecurity marks a template name rejected by the absolute path or
	// parent traversal policies.
	ErrSecurity = errors.New("views: path policy violation")

	// ErrNotFound marks a template or layout that exists in none of the
	// searched locations, or that could not be read.
	ErrNotFound = errors.New("views: template not found")

	// ErrPrepare marks a failed one-time engine initialisation.
	ErrPrepare = errors.New("views: engine prepare failed")

	// ErrCompile marks an adapter compile failure.
	ErrCompile = errors.New("views: compile failed")

	// ErrRender marks an adapter render failure, template or layout pass.
	ErrRender = errors.New("views: render failed")

	// ErrKeywordConflict marks a render context that already holds the
	// layout keyword.
	ErrKeywordConflict = errors.New("views: layout keyword conflict")
)

// LookupError reports every candidate path probed for a template.
type LookupError struct {
	Template string
	Searched []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("views: view file not found: %q, locations searched: [%s]", e.Template, strings.Join(e.Searched, ","))
}

// Unwrap ties LookupError to the ErrNotFound category.
func (e *LookupError) Unwrap() error {
	return ErrNotFound
}

// Configf builds an ErrConfig wrapped error.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
