// Package resolver turns a logical template name plus the configured search
// directories into one verified file path.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-views/pkg/settings"
	"github.com/goliatone/go-views/pkg/viewerrors"
)

// Join builds base/dir/file. A dir that is already absolute ignores base.
func Join(base, dir, file string) string {
	if dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, file)
	}
	return filepath.Join(base, dir, file)
}

// CheckPolicy applies the absolute path and parent traversal policies.
func CheckPolicy(filename string, s settings.Settings) error {
	if !s.AllowAbsolutePaths && filepath.IsAbs(filename) {
		return fmt.Errorf("%w: absolute paths are not allowed in views (%q)", viewerrors.ErrSecurity, filename)
	}
	if !s.AllowInsecureAccess && isInsecure(filename) {
		return fmt.Errorf("%w: view paths cannot lookup templates outside root path (path includes one or more '../'): %q", viewerrors.ErrSecurity, filename)
	}
	return nil
}

// Candidates returns the ordered list of absolute paths probed for filename.
// The policy check runs first; a rejected name yields no candidates.
func Candidates(filename string, s settings.Settings, isLayout bool) ([]string, error) {
	if err := CheckPolicy(filename, s); err != nil {
		return nil, err
	}
	if filepath.IsAbs(filename) {
		return []string{filepath.Clean(filename)}, nil
	}

	dirs := s.LookupPath(isLayout)
	if len(dirs) == 0 {
		dirs = []string{""}
	}

	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, absolute(Join(s.RelativeTo, dir, filename)))
	}
	return out, nil
}

// Resolve returns the first candidate that exists and is a regular file.
// Candidates after the first hit are never probed.
func Resolve(filename string, s settings.Settings, isLayout bool) (string, error) {
	candidates, err := Candidates(filename, s, isLayout)
	if err != nil {
		return "", err
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", &viewerrors.LookupError{Template: filename, Searched: candidates}
}

func isInsecure(filename string) bool {
	return strings.Contains(filepath.ToSlash(filename), "../")
}

func absolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
