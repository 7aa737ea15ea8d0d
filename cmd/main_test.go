package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"procrunner/pkg/system"
	"procrunner/pkg/test"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so tests do not leak state
// into each other through the package-level command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(args ...string) (string, string, error) {
	resetFlags(rootCmd)
	out := new(bytes.Buffer)
	logs := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(logs)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), logs.String(), err
}

func setupTest(t *testing.T) afero.Fs {
	original := system.AppFs
	fs := afero.NewMemMapFs()
	system.AppFs = fs
	t.Cleanup(func() { system.AppFs = original })
	return fs
}

const liveRegistry = `
tools:
  - name: greet
    command: sh
    args: ["-c", "echo hello {{.name}}"]
    required: [name]
    fixture: /fixtures/greet_output.txt
  - name: fail
    command: sh
    args: ["-c", "echo failing >&2; exit 3"]
  - name: missing-binary
    command: procrunner-no-such-binary
`

func TestList(t *testing.T) {
	setupTest(t)

	output, _, err := executeCommand("list")
	require.NoError(t, err)

	assert.Contains(t, output, "tiler => gdal2tiles.py")
	assert.Contains(t, output, "   - required: zoomLevels, inputFile, outputDir")
	assert.Contains(t, output, "   - fixture: gdal2tiles_output.txt")
	assert.Contains(t, output, "potree => PotreeConverter")
	assert.Contains(t, output, "pdal-translate => /code/SuperBuild/build/pdal/bin/pdal")
}

func TestList_JSONWithConfig(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/etc/procrunner/tools.yaml", test.SampleRegistryYAML())

	output, _, err := executeCommand("list", "--config", "/etc/procrunner/tools.yaml", "--json")
	require.NoError(t, err)

	var tools []toolForJSON
	require.NoError(t, json.Unmarshal([]byte(output), &tools))
	require.Len(t, tools, 4)

	assert.Equal(t, "greet", tools[0].Name)
	assert.Equal(t, "/etc/procrunner/fixtures/greet_output.txt", tools[0].Fixture)
	assert.Equal(t, "pdal-translate", tools[1].Name)
	assert.Empty(t, tools[1].Fixture)
	assert.Equal(t, "tiler", tools[3].Name)
	assert.Equal(t, []string{"zoomLevels", "inputFile", "outputDir"}, tools[3].Required)
}

func TestList_ConfigOverridesBuiltin(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", test.SampleRegistryYAML())

	_, logs, err := executeCommand("list", "--config", "/tools.yaml")
	require.NoError(t, err)
	assert.Contains(t, logs, "Tool overridden")
}

func TestList_MissingExplicitConfig(t *testing.T) {
	setupTest(t)

	_, _, err := executeCommand("list", "--config", "/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file /nope.yaml not found")
}

func TestInvalidLogLevel(t *testing.T) {
	setupTest(t)

	_, _, err := executeCommand("list", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level: loud")
}

func TestRun_Replay(t *testing.T) {
	fs := setupTest(t)
	test.CreateFixture(t, fs, "/fixtures/gdal2tiles_output.txt", test.GdalFixture()...)

	output, logs, err := executeCommand("run", "tiler", "--replay", "--fixture-dir", "/fixtures",
		"--set", "zoomLevels=12-21", "--set", "inputFile=odm_orthophoto.tif", "--set", "outputDir=tiles")
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "/fixtures/gdal2tiles_output.txt")
	require.NoError(t, err)
	assert.Equal(t, string(content), output)
	assert.Contains(t, logs, "About to run: gdal2tiles.py -z 12-21 -n -w none odm_orthophoto.tif tiles")
	assert.Contains(t, logs, "Replay mode is on")
}

func TestRun_ReplayFromConfig(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/etc/procrunner/tools.yaml", test.SampleRegistryYAML())
	test.CreateFixture(t, fs, "/etc/procrunner/fixtures/greet_output.txt", "canned hello", "")

	output, _, err := executeCommand("run", "greet", "--config", "/etc/procrunner/tools.yaml", "--set", "name=world")
	require.NoError(t, err)
	assert.Equal(t, "canned hello\n", output)
}

func TestRun_ReplayWithoutTrailingNewline(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/etc/procrunner/tools.yaml", test.SampleRegistryYAML())
	test.CreateFixture(t, fs, "/etc/procrunner/fixtures/greet_output.txt", "first", "second")

	output, _, err := executeCommand("run", "greet", "--config", "/etc/procrunner/tools.yaml", "--set", "name=world")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", output)
}

func TestRun_ReplayMissingFixture(t *testing.T) {
	setupTest(t)

	output, logs, err := executeCommand("run", "potree", "--replay",
		"--set", "inputFile=a.laz", "--set", "outputDir=out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "potree: error reading fixture potree_output.txt")
	assert.Empty(t, output)
	assert.Contains(t, logs, "level=WARN")
}

func TestRun_MissingOption(t *testing.T) {
	setupTest(t)

	_, logs, err := executeCommand("run", "tiler", "--replay", "--set", "inputFile=a.tif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be defined")
	assert.NotContains(t, logs, "About to run")
}

func TestRun_InvalidOption(t *testing.T) {
	setupTest(t)

	_, _, err := executeCommand("run", "tiler", "--set", "zoomLevels")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid option "zoomLevels"`)
}

func TestRun_UnknownTool(t *testing.T) {
	setupTest(t)

	_, _, err := executeCommand("run", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool nope")
}

func TestRun_Live(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	output, logs, err := executeCommand("run", "greet", "--config", "/tools.yaml", "--set", "name=world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", output)
	assert.Contains(t, logs, "About to run: sh -c echo hello world")
}

func TestRun_LiveNonZeroExit(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	output, _, err := executeCommand("run", "fail", "--config", "/tools.yaml")
	require.Error(t, err)
	assert.Equal(t, "fail exited with code 3", err.Error())
	assert.Equal(t, "failing\n", output)
}

func TestRun_LiveLaunchFailure(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	_, _, err := executeCommand("run", "missing-binary", "--config", "/tools.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-binary:")
}

func TestRecord(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	// Replay mode is ignored when recording.
	output, logs, err := executeCommand("record", "greet", "--config", "/tools.yaml", "--replay", "--set", "name=fixture")
	require.NoError(t, err)

	assert.Contains(t, output, "Recorded greet output to /fixtures/greet_output.txt")
	assert.Contains(t, logs, "Fixture recorded")
	test.AssertFileExists(t, fs, "/fixtures/greet_output.txt", "hello fixture\n")
}

func TestRecord_Out(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	_, logs, err := executeCommand("record", "fail", "--config", "/tools.yaml", "--out", "/captured/fail.txt")
	require.NoError(t, err)

	test.AssertFileExists(t, fs, "/captured/fail.txt", "failing\n")
	assert.Contains(t, logs, "Recorded run did not succeed")
}

func TestRecord_NoFixture(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	_, _, err := executeCommand("record", "fail", "--config", "/tools.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail has no fixture configured")
}

func TestRecord_LaunchFailureWritesNothing(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	_, _, err := executeCommand("record", "missing-binary", "--config", "/tools.yaml", "--out", "/captured/missing.txt")
	require.Error(t, err)
	test.AssertFileNotExists(t, fs, "/captured/missing.txt")
}

func TestVerify_Matches(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)
	test.CreateTestFile(t, fs, "/fixtures/greet_output.txt", "hello world\n")

	output, _, err := executeCommand("verify", "greet", "--config", "/tools.yaml", "--set", "name=world")
	require.NoError(t, err)
	assert.Contains(t, output, "greet matches /fixtures/greet_output.txt (exit code 0)")
}

func TestVerify_Differs(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)
	test.CreateTestFile(t, fs, "/fixtures/greet_output.txt", "hello world\n")

	output, _, err := executeCommand("verify", "greet", "--config", "/tools.yaml", "--set", "name=moon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greet output does not match fixture /fixtures/greet_output.txt")
	assert.Contains(t, output, "--- diff ---")
	assert.Contains(t, output, "moon")
}

func TestVerify_MissingFixture(t *testing.T) {
	fs := setupTest(t)
	test.CreateTestFile(t, fs, "/tools.yaml", liveRegistry)

	_, _, err := executeCommand("verify", "greet", "--config", "/tools.yaml", "--set", "name=world")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading fixture /fixtures/greet_output.txt")
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"a=1", "b=x=y", " c =", "filters=[{\"type\":\"filters.range\"}]"})
	require.NoError(t, err)
	assert.Equal(t, "1", opts["a"])
	assert.Equal(t, "x=y", opts["b"])
	assert.Equal(t, "", opts["c"])
	assert.Equal(t, `[{"type":"filters.range"}]`, opts["filters"])

	_, err = parseOptions([]string{"=1"})
	assert.Error(t, err)
}
