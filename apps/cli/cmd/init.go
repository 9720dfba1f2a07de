package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pagespec/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new pagespec project",
	Long: `Initialize a new pagespec project.

This creates:
  - pagespec.yaml      - Configuration file with environments
  - example.pagespec   - Example suite

Examples:
  pagespec init
  pagespec init ./checks --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleSuite = `@suite Example site
@viewport 1280x800
@suppress-page-errors true

### Home page has a title
# @tags smoke
visit {{baseUrl}}/
expect title contains "Example"

### More information link is visible
# @tags smoke, links
visit {{baseUrl}}/
expect get("a").contains("More information") in-viewport
expect a attr href contains "iana.org"
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return wrapExit(ExitConfigError, "creating directory", err)
		}
	}

	configFile := filepath.Join(dir, "pagespec.yaml")
	exampleFile := filepath.Join(dir, "example.pagespec")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return exitErrorf(ExitUsageError, "file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Viewport = "1280x800"
	cfg.SuppressPageErrors = config.BoolPtr(true)
	cfg.History = config.DefaultHistory
	cfg.Environments = map[string]map[string]any{
		"dev":  {"baseUrl": "http://localhost:8080"},
		"prod": {"baseUrl": "https://example.com"},
	}
	if err := cfg.SaveConfig(configFile); err != nil {
		return wrapExit(ExitConfigError, "failed to create config file", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0o644); err != nil {
		return wrapExit(ExitConfigError, "failed to create example suite", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\npagespec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'pagespec run %s --env prod' to execute the example suite.\n", exampleFile)
	return nil
}
