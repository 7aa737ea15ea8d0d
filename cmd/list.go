package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the tools that can be run",
	Long: `The list command prints every tool in the registry: the built-in tools
followed by those declared in the registry file, which override built-ins of
the same name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := loggerFrom(cmd)
		env, err := loadEnvironment(logger)
		if err != nil {
			return err
		}
		factory := env.factory()

		tools := []toolForJSON{}
		for _, name := range env.registry.Names() {
			d, _ := env.registry.Lookup(name)
			tools = append(tools, toolForJSON{
				Name:     d.Name,
				Command:  d.Command,
				Required: d.RequiredOptions,
				Fixture:  factory.FixturePath(d),
			})
		}

		if jsonOutput {
			jsonBytes, err := json.MarshalIndent(tools, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal tools to JSON: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(jsonBytes))
			return nil
		}

		for _, tool := range tools {
			fmt.Fprintf(cmd.OutOrStdout(), "%s => %s\n", tool.Name, tool.Command)
			if len(tool.Required) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "   - required: %s\n", strings.Join(tool.Required, ", "))
			}
			if tool.Fixture != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "   - fixture: %s\n", tool.Fixture)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the tools in JSON format")
}
