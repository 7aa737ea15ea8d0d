package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"procrunner/pkg/log"
	"procrunner/pkg/model"
	"procrunner/pkg/system"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func LoadConfig(filename string, logger log.Logger) (*model.Registry, error) {
	cfg, err := loadConfigFile(filename)
	if err != nil {
		return nil, err
	}

	// Validate includes before processing
	if errs := validateIncludes(cfg.Includes); len(errs) > 0 {
		return nil, errs
	}

	if len(cfg.Includes) > 0 {
		cfg, err = processIncludes(cfg, filename, logger)
		if err != nil {
			return nil, err
		}
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	cfg.Sort()

	return &cfg, nil
}

// processIncludes loads and merges included registry files recursively.
func processIncludes(cfg model.Registry, baseFile string, logger log.Logger) (model.Registry, error) {
	visited := make(map[string]bool) // Files on the current include path
	return processIncludesRecursive(cfg, baseFile, visited, logger)
}

func processIncludesRecursive(cfg model.Registry, baseFile string, visited map[string]bool, logger log.Logger) (model.Registry, error) {
	result := &model.Registry{}

	absBase, err := filepath.Abs(baseFile)
	if err != nil {
		return model.Registry{}, fmt.Errorf("failed to resolve absolute path for %s: %w", baseFile, err)
	}
	if visited[absBase] {
		return model.Registry{}, fmt.Errorf("circular include detected: %s", baseFile)
	}
	visited[absBase] = true
	defer delete(visited, absBase)

	for _, includePath := range cfg.Includes {
		resolvedPath := resolveIncludePath(baseFile, includePath)

		includedCfg, err := loadConfigFile(resolvedPath)
		if err != nil {
			return model.Registry{}, fmt.Errorf("failed to load include '%s': %w", includePath, err)
		}

		if len(includedCfg.Includes) > 0 {
			includedCfg, err = processIncludesRecursive(includedCfg, resolvedPath, visited, logger)
			if err != nil {
				return model.Registry{}, err
			}
		}

		result = mergeConfigs(result, &includedCfg, logger)
	}

	// The including file has the highest priority
	result = mergeConfigs(result, &cfg, logger)

	return *result, nil
}

func loadConfigFile(filename string) (model.Registry, error) {
	f, err := afero.ReadFile(system.AppFs, filename)
	if err != nil {
		return model.Registry{}, err
	}

	var cfg model.Registry
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if _, err := toml.Decode(string(f), &cfg); err != nil {
			return model.Registry{}, fmt.Errorf("error parsing %s: %w", filename, err)
		}
	default:
		if err := yaml.Unmarshal(f, &cfg); err != nil {
			return model.Registry{}, fmt.Errorf("error parsing %s: %w", filename, err)
		}
	}

	// fixture-dir is relative to the file that declares it
	if cfg.FixtureDir != "" && !filepath.IsAbs(cfg.FixtureDir) {
		cfg.FixtureDir = filepath.Join(filepath.Dir(filename), cfg.FixtureDir)
	}

	return cfg, nil
}

func resolveIncludePath(baseFile, includePath string) string {
	if filepath.IsAbs(includePath) {
		return includePath
	}
	return filepath.Join(filepath.Dir(baseFile), includePath)
}

// mergeConfigs merges two registries. The override takes priority:
// - Tools: last-wins by name, with a warning
// - FixtureDir: last non-empty value wins
// - Replay: enabled if any file enables it
func mergeConfigs(base, override *model.Registry, logger log.Logger) *model.Registry {
	result := &model.Registry{
		Replay:     base.Replay || override.Replay,
		FixtureDir: base.FixtureDir,
	}
	if override.FixtureDir != "" {
		result.FixtureDir = override.FixtureDir
	}

	result.Tools = mergeTools(base.Tools, override.Tools, logger)

	// Includes are not merged (already processed)
	return result
}

func mergeTools(base, override []model.ToolConfig, logger log.Logger) []model.ToolConfig {
	toolMap := make(map[string]model.ToolConfig)

	for _, tool := range base {
		toolMap[tool.Name] = tool
	}

	for _, tool := range override {
		if existing, exists := toolMap[tool.Name]; exists {
			logger.Warn("Tool overridden",
				"tool", tool.Name,
				"was_command", existing.Command,
				"now_command", tool.Command)
		}
		toolMap[tool.Name] = tool
	}

	result := []model.ToolConfig{}
	for _, tool := range toolMap {
		result = append(result, tool)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

func validateIncludes(includes []string) model.ValidationErrors {
	var errs model.ValidationErrors
	for i, include := range includes {
		if strings.TrimSpace(include) == "" {
			errs = append(errs, model.ValidationError{Field: fmt.Sprintf("includes[%d]", i), Message: "include path cannot be empty"})
		}
	}
	return errs
}
