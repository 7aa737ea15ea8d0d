package test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// SetupTestFilesystem creates a temporary directory and returns an afero filesystem
// rooted at it. The caller is responsible for setting system.AppFs if needed.
// Returns the filesystem and a cleanup function that should be deferred.
func SetupTestFilesystem(t *testing.T) (afero.Fs, func()) {
	tempDir, err := os.MkdirTemp("", "procrunner-test-")
	require.NoError(t, err)

	fs := afero.NewBasePathFs(afero.NewOsFs(), tempDir)

	return fs, func() {
		os.RemoveAll(tempDir)
	}
}

// CreateTestFile creates a file with content in the test filesystem.
func CreateTestFile(t *testing.T, fs afero.Fs, path, content string) {
	err := fs.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(t, err)
	err = afero.WriteFile(fs, path, []byte(content), 0644)
	require.NoError(t, err)
}

// CreateFixture writes a replay fixture holding lines, one per line.
func CreateFixture(t *testing.T, fs afero.Fs, path string, lines ...string) {
	CreateTestFile(t, fs, path, strings.Join(lines, "\n"))
}

// AssertFileExists checks that a file exists and has expected content.
func AssertFileExists(t *testing.T, fs afero.Fs, path, expectedContent string) {
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	require.True(t, exists, "File %s should exist", path)

	if expectedContent != "" {
		content, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		require.Equal(t, expectedContent, string(content))
	}
}

// AssertFileNotExists checks that a file does not exist.
func AssertFileNotExists(t *testing.T, fs afero.Fs, path string) {
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	require.False(t, exists, "File %s should not exist", path)
}

// AssertLogContains checks that the logger captured a message containing the substring.
func AssertLogContains(t *testing.T, logger *MockLogger, substring string) {
	require.True(t, logger.HasMessage(substring), "Log should contain: %s", substring)
}
