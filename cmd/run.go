package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runOptions []string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Runs a tool and streams its output",
	Long: `The run command launches the named tool with the options given through --set
and streams its combined stdout and stderr. In replay mode the tool's fixture
is printed line by line instead.

The command fails if the tool cannot be launched, exits with a non-zero code
or is terminated by a signal.`,
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
		opts, err := parseOptions(runOptions)
		if err != nil {
			return err
		}

		factory := env.factory()
		inv, err := factory.MakeRunner(d).Start(cmd.Context(), opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		first := true
		for text := range inv.Output() {
			// Replayed fragments are the fixture's lines; live fragments are
			// raw chunks.
			if factory.Replay() && !first {
				fmt.Fprint(out, "\n")
			}
			first = false
			fmt.Fprint(out, text)
		}

		res := inv.Wait()
		logger.Debug("Tool finished", "tool", d.Name, "invocation", inv.ID(), "result", res.String())
		return resultError(d.Name, res)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVar(&runOptions, "set", nil, "Tool option as key=value (repeatable)")
}
