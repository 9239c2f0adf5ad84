package cmd

import (
	"fmt"

	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Check .rest files for syntax errors",
	Long: `Parse .rest files and report syntax errors without sending any
requests.

Examples:
  restspec validate f1.rest
  restspec validate ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .rest files found")
	}

	hasErrors := false
	for _, file := range files {
		if _, err := scenario.ParseFile(file); err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}
	return nil
}
