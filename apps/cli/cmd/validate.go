package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pagespec/packages/core/config"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate suite files without executing them",
	Long: `Validate suite files for syntax errors and for assertions that can never
pass, such as in-viewport checks without a configured viewport or
clipboard checks without a preceding copy step.

Examples:
  pagespec validate marketing.pagespec
  pagespec validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return wrapExit(ExitUsageError, "", err)
	}
	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no %s files found", SuiteExt)
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return wrapExit(ExitConfigError, "loading config", err)
	}
	vp, err := cfg.GetViewport()
	if err != nil {
		return wrapExit(ExitConfigError, "viewport", err)
	}

	hasErrors := false
	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err == nil {
			err = errors.Join(parser.Validate(suite, vp, cfg.Isolation)...)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s:\n%v\n", file, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d cases)\n", file, len(suite.Cases))
	}

	if hasErrors {
		return exitErrorf(ExitParseError, "validation failed")
	}
	return nil
}

func init() {
	validateCmd.Flags().StringVar(&configFlag, "config", getEnvString("PAGESPEC_CONFIG", ""), "Path to config file, for the default viewport (env: PAGESPEC_CONFIG)")
}
