package cmd

import (
	"fmt"
	"strings"

	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List the scenarios in .rest files",
	Long: `List every scenario defined in .rest files, with tags and
dependencies.

Examples:
  restspec list f1.rest
  restspec list ./checks/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .rest files found")
	}

	for _, file := range files {
		f, err := scenario.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for _, s := range f.Scenarios {
			line := fmt.Sprintf("  - %s (%s %s)", s.Name, s.Method, s.URL)
			if s.Skip != "" {
				line += " [skip]"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			if len(s.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(s.Tags, ", "))
			}
			if len(s.Depends) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    depends: %s\n", strings.Join(s.Depends, ", "))
			}
		}
	}
	return nil
}
