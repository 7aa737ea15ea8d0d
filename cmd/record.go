package cmd

import (
	"fmt"
	"strings"

	"procrunner/pkg/fixture"
	"procrunner/pkg/runner"
	"procrunner/pkg/system"

	"github.com/spf13/cobra"
)

var (
	recordOptions []string
	recordOut     string
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record <tool>",
	Short: "Runs a tool for real and saves its output as the tool's fixture",
	Long: `The record command always launches the tool, even when replay mode is on,
and writes its combined output to the tool's fixture file (or --out), so later
replays reproduce this run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := loggerFrom(cmd)
		env, err := loadEnvironment(logger)
		if err != nil {
			return err
		}
		d, err := env.lookup(args[0])
		if err != nil {
			return err
		}
		opts, err := parseOptions(recordOptions)
		if err != nil {
			return err
		}

		factory := env.liveFactory()
		path := recordOut
		if path == "" {
			path = factory.FixturePath(d)
		}
		if path == "" {
			return fmt.Errorf("%s has no fixture configured, use --out", d.Name)
		}

		fragments, res, err := runner.Collect(cmd.Context(), factory.MakeRunner(d), opts)
		if err != nil {
			return err
		}
		if res.Err != nil {
			return resultError(d.Name, res)
		}

		if err := fixture.Save(system.AppFs, path, strings.Join(fragments, "")); err != nil {
			return err
		}
		logger.Info("Fixture recorded", "tool", d.Name, "path", path, "result", res.String())
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s output to %s\n", d.Name, path)

		if !res.Success() {
			logger.Warn("Recorded run did not succeed", "tool", d.Name, "result", res.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringArrayVar(&recordOptions, "set", nil, "Tool option as key=value (repeatable)")
	recordCmd.Flags().StringVar(&recordOut, "out", "", "Write the fixture here instead of the tool's fixture path")
}
