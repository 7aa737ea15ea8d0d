// Package catalog keeps the set of tools procrunner can run, combining the
// built-in descriptors with tools declared in a registry file.
package catalog

import (
	"fmt"
	"sort"

	"procrunner/pkg/log"
	"procrunner/pkg/model"
	"procrunner/pkg/runner"
)

type Registry struct {
	tools  map[string]runner.Descriptor
	logger log.Logger
}

func New(logger log.Logger, descs ...runner.Descriptor) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Registry{tools: make(map[string]runner.Descriptor), logger: logger}
	for _, d := range descs {
		r.Add(d)
	}
	return r
}

// Add registers d under its name. A later descriptor replaces an earlier one.
func (r *Registry) Add(d runner.Descriptor) {
	if _, exists := r.tools[d.Name]; exists {
		r.logger.Warn("Tool overridden", "tool", d.Name, "command", d.Command)
	}
	r.tools[d.Name] = d
}

func (r *Registry) Lookup(name string) (runner.Descriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromConfig turns registry file entries into descriptors.
func FromConfig(cfg *model.Registry) ([]runner.Descriptor, error) {
	descs := make([]runner.Descriptor, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		args, err := runner.ParseTemplateArgs(tool.Args)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		descs = append(descs, runner.Descriptor{
			Name:            tool.Name,
			Command:         tool.Command,
			Args:            args,
			RequiredOptions: tool.Required,
			FixturePath:     tool.Fixture,
		})
	}
	return descs, nil
}

// Load builds a registry from the built-ins followed by the tools in cfg.
// cfg may be nil.
func Load(cfg *model.Registry, logger log.Logger) (*Registry, error) {
	r := New(logger, Builtins()...)
	if cfg == nil {
		return r, nil
	}
	descs, err := FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	for _, d := range descs {
		r.Add(d)
	}
	return r, nil
}
