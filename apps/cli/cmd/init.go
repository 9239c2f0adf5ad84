package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new restspec project",
	Long: `Initialize a new restspec project in the current directory.

This creates:
  - restspec.yaml  - Configuration file with environments
  - example.rest   - Example scenario file

Examples:
  restspec init
  restspec init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleScenarios = `@base = {{baseUrl}}

expect jsonOK:
  status == 200
  header Content-Type contains json

### health check
@tags smoke
when:
  GET {{base}}/health
then:
  use jsonOK

### create a resource
@tags crud
given:
  header Content-Type: application/json
  body:
    {
      "name": "Test Resource"
    }
when:
  POST {{base}}/resources
then:
  status == 201
  body.id exists
  body.name == "Test Resource"
extract:
  resourceId = body.id

### fetch the created resource
@tags crud
@depends create a resource
given:
  path id = {{resourceId}}
when:
  GET {{base}}/resources/{id}
then:
  use jsonOK
  body.id == {{resourceId}}
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "restspec.yaml")
	exampleFile := filepath.Join(cwd, "example.rest")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	configContent := map[string]any{
		"defaultEnvironment": "dev",
		"timeout":            "30s",
		"retries":            0,
		"followRedirects":    true,
		"maxRedirects":       10,
		"validateSSL":        true,
		"reporter":           "console",
		"headers": map[string]string{
			"User-Agent": "restspec/1.0",
		},
		"environments": map[string]map[string]string{
			"dev": {
				"baseUrl": "http://localhost:3000",
			},
			"staging": {
				"baseUrl": "https://staging.api.example.com",
			},
			"prod": {
				"baseUrl": "https://api.example.com",
			},
		},
	}

	configYAML, _ := yaml.Marshal(configContent)
	if err := os.WriteFile(configFile, configYAML, 0o644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleScenarios), 0o644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nrestspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'restspec run example.rest' to execute the example scenarios.\n")
	return nil
}
