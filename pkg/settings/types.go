package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLayoutName is the layout template used when layout is set to true.
const DefaultLayoutName = "layout"

// Layout selects the outer template a rendered view is wrapped in. The zero
// value disables layouts.
type Layout struct {
	Enabled bool
	Name    string
}

// NoLayout disables layout composition.
func NoLayout() Layout { return Layout{} }

// DefaultLayout enables the layout named "layout".
func DefaultLayout() Layout { return Layout{Enabled: true} }

// NamedLayout enables the named layout. An empty name behaves like
// DefaultLayout.
func NamedLayout(name string) Layout {
	return Layout{Enabled: true, Name: strings.TrimSpace(name)}
}

// TemplateName returns the logical layout template name.
func (l Layout) TemplateName() string {
	if l.Name == "" {
		return DefaultLayoutName
	}
	return l.Name
}

func (l Layout) String() string {
	if !l.Enabled {
		return "false"
	}
	if l.Name == "" {
		return "true"
	}
	return l.Name
}

// UnmarshalYAML accepts a boolean or a layout name.
func (l *Layout) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("settings: layout must be a boolean or a string (line %d)", node.Line)
	}
	if node.Tag == "!!bool" {
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return err
		}
		*l = Layout{Enabled: enabled}
		return nil
	}
	*l = NamedLayout(node.Value)
	return nil
}

// UnmarshalJSON accepts a boolean or a layout name.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*l = Layout{Enabled: enabled}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("settings: layout must be a boolean or a string")
	}
	*l = NamedLayout(name)
	return nil
}

// PathList is an ordered list of directories. Configuration files may give a
// single directory as a plain string.
type PathList []string

// UnmarshalYAML accepts a scalar or a sequence.
func (p *PathList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = PathList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = PathList(list)
		return nil
	default:
		return fmt.Errorf("settings: path must be a string or a list of strings (line %d)", node.Line)
	}
}

// UnmarshalJSON accepts a string or an array of strings.
func (p *PathList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*p = PathList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("settings: path must be a string or a list of strings")
	}
	*p = PathList(list)
	return nil
}

// CompileMode tells the engine registry which calling convention an adapter
// follows. It is resolved once when the engine is registered.
type CompileMode int

const (
	// CompileSync adapters return their render function (or fail) directly.
	CompileSync CompileMode = iota
	// CompileAsync adapters signal completion through a continuation.
	CompileAsync
)

func (m CompileMode) String() string {
	switch m {
	case CompileSync:
		return "sync"
	case CompileAsync:
		return "async"
	default:
		return fmt.Sprintf("CompileMode(%d)", int(m))
	}
}

// ParseCompileMode maps "sync" and "async" to their CompileMode.
func ParseCompileMode(raw string) (CompileMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sync":
		return CompileSync, nil
	case "async":
		return CompileAsync, nil
	default:
		return CompileSync, fmt.Errorf("settings: compile mode must be \"sync\" or \"async\", got %q", raw)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *CompileMode) UnmarshalText(text []byte) error {
	mode, err := ParseCompileMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m CompileMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalYAML decodes "sync" or "async".
func (m *CompileMode) UnmarshalYAML(node *yaml.Node) error {
	return m.UnmarshalText([]byte(node.Value))
}
