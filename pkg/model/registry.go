package model

import (
	"fmt"
	"sort"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
	Line    int
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Field, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	if len(es) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, e := range es {
		sb.WriteString(fmt.Sprintf("  - %s\n", e.Error()))
	}
	return sb.String()
}

// Registry is the on-disk description of the tools procrunner knows about.
type Registry struct {
	Includes   []string     `yaml:"includes,omitempty" toml:"includes,omitempty"` // Other registry files merged before this one
	Replay     bool         `yaml:"replay,omitempty" toml:"replay,omitempty"`
	FixtureDir string       `yaml:"fixture-dir,omitempty" toml:"fixture-dir,omitempty"`
	Tools      []ToolConfig `yaml:"tools" toml:"tools"`
}

// ToolConfig describes one external command. Args elements may be
// text/template strings evaluated against the invocation options.
type ToolConfig struct {
	Name     string   `yaml:"name" toml:"name"`
	Command  string   `yaml:"command" toml:"command"`
	Args     []string `yaml:"args,omitempty" toml:"args,omitempty"`
	Required []string `yaml:"required,omitempty" toml:"required,omitempty"`
	Fixture  string   `yaml:"fixture,omitempty" toml:"fixture,omitempty"`
}

func (r *Registry) Sort() {
	sort.Slice(r.Tools, func(i, j int) bool {
		return r.Tools[i].Name < r.Tools[j].Name
	})
}

// Tool returns the tool with the given name.
func (r *Registry) Tool(name string) (ToolConfig, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolConfig{}, false
}

func (r *Registry) Validate() ValidationErrors {
	var errs ValidationErrors

	for i, include := range r.Includes {
		if strings.TrimSpace(include) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("includes[%d]", i), Message: "include path cannot be empty"})
		}
	}

	seen := make(map[string]bool)
	for i, tool := range r.Tools {
		if strings.TrimSpace(tool.Name) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tools[%d].name", i), Message: "tool name cannot be empty"})
		} else if !isValidToolName(tool.Name) {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tools[%d].name", i), Message: "tool name contains invalid characters (only lowercase letters, numbers, hyphens, and underscores allowed)"})
		}
		if seen[tool.Name] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tools[%d].name", i), Message: fmt.Sprintf("duplicate tool '%s'", tool.Name)})
		}
		seen[tool.Name] = true

		if strings.TrimSpace(tool.Command) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tools[%d].command", i), Message: "command cannot be empty"})
		}
		for j, opt := range tool.Required {
			if strings.TrimSpace(opt) == "" {
				errs = append(errs, ValidationError{Field: fmt.Sprintf("tools[%d].required[%d]", i, j), Message: "required option name cannot be empty"})
			}
		}
		if strings.Contains(tool.Fixture, "..") {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tools[%d].fixture", i), Message: "fixture path cannot contain '..'"})
		}
	}

	return errs
}

func isValidToolName(name string) bool {
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
