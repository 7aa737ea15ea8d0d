// Package fixture reads and writes canned process output used by replay mode.
//
// A fixture is plain text. Replay delivers it line by line, splitting on "\n"
// without trimming, so a trailing newline yields a final empty line.
package fixture

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/afero"
)

// Load reads the whole fixture at path and splits it into lines.
func Load(fs afero.Fs, path string) ([]string, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return Lines(string(content)), nil
}

// Lines splits text the same way Load does.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// Save writes captured output to path, creating parent directories.
func Save(fs afero.Fs, path, text string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating fixture directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, []byte(text), 0644); err != nil {
		return fmt.Errorf("error writing fixture %s: %w", path, err)
	}
	return nil
}

// Compare reports whether actual matches expected. When they differ the
// second return value holds a human-readable diff.
func Compare(expected, actual string) (bool, string) {
	if expected == actual {
		return true, ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return false, dmp.DiffPrettyText(diffs)
}
