package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the cases in suite files",
	Long: `List every case defined in .pagespec files, with tags and annotations.

Examples:
  pagespec list marketing.pagespec
  pagespec list ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return wrapExit(ExitUsageError, "", err)
	}
	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no %s files found", SuiteExt)
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			failed = true
			continue
		}

		title := file
		if suite.Name != "" {
			title = fmt.Sprintf("%s (%s)", suite.Name, file)
		}
		fmt.Fprintf(out, "\n%s:\n", title)
		for _, c := range suite.Cases {
			fmt.Fprintf(out, "  - %s\n", caseName(c))
			if len(c.Tags) > 0 {
				fmt.Fprintf(out, "    tags: %s\n", strings.Join(c.Tags, ", "))
			}
			if m := c.Metadata; m != nil {
				if m.Skip != "" {
					fmt.Fprintf(out, "    skip: %s\n", m.Skip)
				}
				if m.Only {
					fmt.Fprintf(out, "    only\n")
				}
				if m.Viewport != nil {
					fmt.Fprintf(out, "    viewport: %s\n", m.Viewport)
				}
			}
		}
	}

	if failed {
		return exitErrorf(ExitParseError, "some files could not be parsed")
	}
	return nil
}
