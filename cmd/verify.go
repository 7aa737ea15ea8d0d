package cmd

import (
	"fmt"
	"strings"

	"procrunner/pkg/fixture"
	"procrunner/pkg/runner"
	"procrunner/pkg/system"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var verifyOptions []string

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <tool>",
	Short: "Checks that a tool's fixture still matches a real run",
	Long: `The verify command launches the tool and compares its combined output with
the tool's fixture. Differences are printed and make the command fail.

stdout and stderr are interleaved in whatever order the OS delivers them, so
tools writing to both streams may not verify reliably.`,
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
		opts, err := parseOptions(verifyOptions)
		if err != nil {
			return err
		}

		factory := env.liveFactory()
		path := factory.FixturePath(d)
		if path == "" {
			return fmt.Errorf("%s has no fixture configured", d.Name)
		}
		expected, err := afero.ReadFile(system.AppFs, path)
		if err != nil {
			return fmt.Errorf("error reading fixture %s: %w", path, err)
		}

		fragments, res, err := runner.Collect(cmd.Context(), factory.MakeRunner(d), opts)
		if err != nil {
			return err
		}
		if res.Err != nil {
			return resultError(d.Name, res)
		}

		same, diff := fixture.Compare(string(expected), strings.Join(fragments, ""))
		if !same {
			fmt.Fprintf(cmd.OutOrStdout(), "Output of %s differs from %s:\n", d.Name, path)
			fmt.Fprintln(cmd.OutOrStdout(), "--- diff ---")
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			fmt.Fprintln(cmd.OutOrStdout(), "--- end diff ---")
			return fmt.Errorf("%s output does not match fixture %s", d.Name, path)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s matches %s (%s)\n", d.Name, path, res.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringArrayVar(&verifyOptions, "set", nil, "Tool option as key=value (repeatable)")
}
