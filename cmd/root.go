package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"procrunner/pkg/catalog"
	"procrunner/pkg/config"
	"procrunner/pkg/log"
	"procrunner/pkg/model"
	"procrunner/pkg/runner"
	"procrunner/pkg/system"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "./tools.yaml"

type contextKey string

const loggerKey contextKey = "logger"

var (
	cfgFile    string
	logLevel   string
	replayMode bool
	fixtureDir string
	jsonOutput bool
	rootCmd    = &cobra.Command{
		Use:   "procrunner",
		Short: "procrunner runs external processing tools described in a registry",
		Long: `procrunner launches external command-line tools from declarative descriptors,
streams their combined output, and reports how they terminated.

In replay mode every tool plays back a canned fixture file instead of running,
which makes pipelines testable on machines without the tools installed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			logger := log.NewSlogLogger(level, cmd.ErrOrStderr())
			ctx := context.WithValue(cmd.Context(), loggerKey, log.Logger(logger))
			cmd.SetContext(ctx)
			return nil
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func parseLogLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

func loggerFrom(cmd *cobra.Command) log.Logger {
	if logger, ok := cmd.Context().Value(loggerKey).(log.Logger); ok {
		return logger
	}
	return log.Discard()
}

// environment is what every subcommand needs: the tool registry and the
// runner settings derived from the registry file and the flags.
type environment struct {
	registry *catalog.Registry
	runner   runner.Config
}

func (e *environment) factory() *runner.Factory {
	return runner.NewFactory(e.runner)
}

// liveFactory ignores replay mode.
func (e *environment) liveFactory() *runner.Factory {
	cfg := e.runner
	cfg.Replay = false
	return runner.NewFactory(cfg)
}

func (e *environment) lookup(name string) (runner.Descriptor, error) {
	d, ok := e.registry.Lookup(name)
	if !ok {
		return runner.Descriptor{}, fmt.Errorf("unknown tool %s (see 'procrunner list')", name)
	}
	return d, nil
}

func loadEnvironment(logger log.Logger) (*environment, error) {
	var cfg *model.Registry
	exists, err := afero.Exists(system.AppFs, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error checking config %s: %w", cfgFile, err)
	}
	switch {
	case exists:
		cfg, err = config.LoadConfig(cfgFile, logger)
		if err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", cfgFile, err)
		}
	case cfgFile != defaultConfigFile:
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	}

	registry, err := catalog.Load(cfg, logger)
	if err != nil {
		return nil, err
	}

	runCfg := runner.Config{
		Replay:     replayMode,
		FixtureDir: fixtureDir,
		Fs:         system.AppFs,
		Logger:     logger,
	}
	if cfg != nil {
		runCfg.Replay = runCfg.Replay || cfg.Replay
		if runCfg.FixtureDir == "" {
			runCfg.FixtureDir = cfg.FixtureDir
		}
	}

	return &environment{registry: registry, runner: runCfg}, nil
}

func parseOptions(pairs []string) (runner.Options, error) {
	opts := runner.Options{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid option %q, expected key=value", pair)
		}
		opts[strings.TrimSpace(key)] = value
	}
	return opts, nil
}

// resultError turns an unsuccessful completion into an error for the CLI.
func resultError(tool string, res runner.Result) error {
	switch {
	case res.Err != nil:
		return fmt.Errorf("%s: %w", tool, res.Err)
	case res.Signal != "":
		return fmt.Errorf("%s terminated by %s", tool, res.Signal)
	case res.ExitCode != 0:
		return fmt.Errorf("%s exited with code %d", tool, res.ExitCode)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "tool registry file, YAML or TOML")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&replayMode, "replay", false, "Play back fixtures instead of running tools")
	rootCmd.PersistentFlags().StringVar(&fixtureDir, "fixture-dir", "", "Directory relative fixture paths are resolved against")
}
