package settings

import (
	"strings"

	"github.com/goliatone/go-views/pkg/viewerrors"
)

// Defaults applied below every other layer.
const (
	DefaultLayoutKeyword = "content"
	DefaultEncoding      = "utf8"
	DefaultContentType   = "text/html"
)

// Settings is a fully resolved configuration snapshot. Values returned by
// Defaults and Apply never share slices or maps with their inputs.
type Settings struct {
	Path                []string
	RelativeTo          string
	Layout              Layout
	LayoutPath          []string
	LayoutKeyword       string
	Encoding            string
	IsCached            bool
	AllowAbsolutePaths  bool
	AllowInsecureAccess bool
	PartialsPath        []string
	HelpersPath         []string
	ContentType         string
	CompileMode         CompileMode
	CompileOptions      map[string]any
	RuntimeOptions      map[string]any
}

// Defaults returns the built-in configuration layer.
func Defaults() Settings {
	return Settings{
		Layout:         NoLayout(),
		LayoutKeyword:  DefaultLayoutKeyword,
		Encoding:       DefaultEncoding,
		IsCached:       true,
		ContentType:    DefaultContentType,
		CompileMode:    CompileSync,
		CompileOptions: map[string]any{},
		RuntimeOptions: map[string]any{},
	}
}

// Overrides is one configuration layer. Nil pointers, nil slices and nil
// maps leave the lower layer untouched.
type Overrides struct {
	Path                PathList       `json:"path,omitempty" yaml:"path,omitempty"`
	RelativeTo          *string        `json:"relativeTo,omitempty" yaml:"relativeTo,omitempty"`
	Layout              *Layout        `json:"layout,omitempty" yaml:"layout,omitempty"`
	LayoutPath          PathList       `json:"layoutPath,omitempty" yaml:"layoutPath,omitempty"`
	LayoutKeyword       *string        `json:"layoutKeyword,omitempty" yaml:"layoutKeyword,omitempty"`
	Encoding            *string        `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	IsCached            *bool          `json:"isCached,omitempty" yaml:"isCached,omitempty"`
	AllowAbsolutePaths  *bool          `json:"allowAbsolutePaths,omitempty" yaml:"allowAbsolutePaths,omitempty"`
	AllowInsecureAccess *bool          `json:"allowInsecureAccess,omitempty" yaml:"allowInsecureAccess,omitempty"`
	PartialsPath        PathList       `json:"partialsPath,omitempty" yaml:"partialsPath,omitempty"`
	HelpersPath         PathList       `json:"helpersPath,omitempty" yaml:"helpersPath,omitempty"`
	ContentType         *string        `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	CompileMode         *CompileMode   `json:"compileMode,omitempty" yaml:"compileMode,omitempty"`
	CompileOptions      map[string]any `json:"compileOptions,omitempty" yaml:"compileOptions,omitempty"`
	RuntimeOptions      map[string]any `json:"runtimeOptions,omitempty" yaml:"runtimeOptions,omitempty"`
}

// Apply returns a copy of s with the set fields of o laid over it.
func (s Settings) Apply(o *Overrides) Settings {
	out := s.Clone()
	if o == nil {
		return out
	}
	if o.Path != nil {
		out.Path = cloneStrings(o.Path)
	}
	if o.RelativeTo != nil {
		out.RelativeTo = *o.RelativeTo
	}
	if o.Layout != nil {
		out.Layout = *o.Layout
	}
	if o.LayoutPath != nil {
		out.LayoutPath = cloneStrings(o.LayoutPath)
	}
	if o.LayoutKeyword != nil {
		out.LayoutKeyword = *o.LayoutKeyword
	}
	if o.Encoding != nil {
		out.Encoding = *o.Encoding
	}
	if o.IsCached != nil {
		out.IsCached = *o.IsCached
	}
	if o.AllowAbsolutePaths != nil {
		out.AllowAbsolutePaths = *o.AllowAbsolutePaths
	}
	if o.AllowInsecureAccess != nil {
		out.AllowInsecureAccess = *o.AllowInsecureAccess
	}
	if o.PartialsPath != nil {
		out.PartialsPath = cloneStrings(o.PartialsPath)
	}
	if o.HelpersPath != nil {
		out.HelpersPath = cloneStrings(o.HelpersPath)
	}
	if o.ContentType != nil {
		out.ContentType = *o.ContentType
	}
	if o.CompileMode != nil {
		out.CompileMode = *o.CompileMode
	}
	if o.CompileOptions != nil {
		out.CompileOptions = cloneMap(o.CompileOptions)
	}
	if o.RuntimeOptions != nil {
		out.RuntimeOptions = cloneMap(o.RuntimeOptions)
	}
	return out
}

// Clone returns a deep copy of the slices and top-level maps in s.
func (s Settings) Clone() Settings {
	out := s
	out.Path = cloneStrings(s.Path)
	out.LayoutPath = cloneStrings(s.LayoutPath)
	out.PartialsPath = cloneStrings(s.PartialsPath)
	out.HelpersPath = cloneStrings(s.HelpersPath)
	out.CompileOptions = cloneMap(s.CompileOptions)
	out.RuntimeOptions = cloneMap(s.RuntimeOptions)
	if out.CompileOptions == nil {
		out.CompileOptions = map[string]any{}
	}
	if out.RuntimeOptions == nil {
		out.RuntimeOptions = map[string]any{}
	}
	return out
}

// LookupPath returns the directories searched for a template or, when
// isLayout is set and a layout path is configured, for a layout.
func (s Settings) LookupPath(isLayout bool) []string {
	if isLayout && len(s.LayoutPath) > 0 {
		return s.LayoutPath
	}
	return s.Path
}

// Validate reports settings that can never render.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.LayoutKeyword) == "" {
		return viewerrors.Configf("layoutKeyword must not be empty")
	}
	if strings.TrimSpace(s.Encoding) == "" {
		return viewerrors.Configf("encoding must not be empty")
	}
	if s.CompileMode != CompileSync && s.CompileMode != CompileAsync {
		return viewerrors.Configf("unknown compile mode %s", s.CompileMode)
	}
	if s.Layout.Enabled && strings.TrimSpace(s.Layout.TemplateName()) == "" {
		return viewerrors.Configf("layout name must not be empty")
	}
	return nil
}

// ValidateForRender rejects fields that only make sense when an engine is
// registered. Per-render overrides may not change them.
func (o *Overrides) ValidateForRender() error {
	if o == nil {
		return nil
	}
	var fields []string
	if o.PartialsPath != nil {
		fields = append(fields, "partialsPath")
	}
	if o.HelpersPath != nil {
		fields = append(fields, "helpersPath")
	}
	if o.IsCached != nil {
		fields = append(fields, "isCached")
	}
	if o.CompileMode != nil {
		fields = append(fields, "compileMode")
	}
	if len(fields) > 0 {
		return viewerrors.Configf("render options cannot override %s", strings.Join(fields, ", "))
	}
	return nil
}

// String returns a pointer to v, for building Overrides literals.
func String(v string) *string { return &v }

// Bool returns a pointer to v, for building Overrides literals.
func Bool(v bool) *bool { return &v }

// LayoutOf returns a pointer to l, for building Overrides literals.
func LayoutOf(l Layout) *Layout { return &l }

// Mode returns a pointer to m, for building Overrides literals.
func Mode(m CompileMode) *CompileMode { return &m }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
