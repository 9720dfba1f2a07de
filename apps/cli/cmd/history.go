package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pagespec/packages/core/config"
	"github.com/abdul-hamid-achik/pagespec/packages/history"
)

var (
	historyDBFlag    string
	historyLimitFlag int
	historyRunFlag   string
	historyPruneFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history [suite-file]",
	Short: "Show recorded runs",
	Long: `Show runs recorded with 'pagespec run --history', newest first.

Examples:
  pagespec history
  pagespec history suites/raptormaps/marketing.pagespec --limit 5
  pagespec history --run 3f1c9a2e-...
  pagespec history --prune 50`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("PAGESPEC_HISTORY", ""), "History database, default from config (env: PAGESPEC_HISTORY)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", getEnvInt("PAGESPEC_HISTORY_LIMIT", 20), "Number of runs to show (env: PAGESPEC_HISTORY_LIMIT)")
	historyCmd.Flags().StringVar(&historyRunFlag, "run", "", "Show the cases of one run")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", 0, "Keep only the N most recent runs per suite file")
	historyCmd.Flags().StringVar(&configFlag, "config", getEnvString("PAGESPEC_CONFIG", ""), "Path to config file (env: PAGESPEC_CONFIG)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path := historyDBFlag
	if path == "" {
		cfg, err := config.LoadConfig(configFlag)
		if err != nil {
			return wrapExit(ExitConfigError, "loading config", err)
		}
		path = cfg.History
	}
	if path == "" {
		path = config.DefaultHistory
	}

	store, err := history.Open(path)
	if err != nil {
		return wrapExit(ExitConfigError, "opening history", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if historyPruneFlag > 0 {
		n, err := store.Prune(ctx, historyPruneFlag)
		if err != nil {
			return wrapExit(ExitConfigError, "pruning history", err)
		}
		fmt.Fprintf(out, "Pruned %d run(s)\n", n)
		return nil
	}

	if historyRunFlag != "" {
		cases, err := store.Cases(ctx, historyRunFlag)
		if err != nil {
			return wrapExit(ExitConfigError, "loading run", err)
		}
		if len(cases) == 0 {
			return exitErrorf(ExitUsageError, "no cases recorded for run %s", historyRunFlag)
		}
		for _, c := range cases {
			switch c.Status {
			case history.StatusPassed:
				fmt.Fprintf(out, "  %s %s (%dms)\n", green("✓"), c.Name, c.Duration.Milliseconds())
			case history.StatusSkipped:
				fmt.Fprintf(out, "  %s %s\n", yellow("-"), c.Name)
			default:
				fmt.Fprintf(out, "  %s %s [%s] %s\n", red("✗"), c.Name, c.Kind, c.Message)
			}
		}
		return nil
	}

	file := ""
	if len(args) == 1 {
		file = args[0]
	}
	runs, err := store.Recent(ctx, file, historyLimitFlag)
	if err != nil {
		return wrapExit(ExitConfigError, "loading history", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	for _, run := range runs {
		status := green("PASS")
		if !run.Success() {
			status = red("FAIL")
		}
		name := run.File
		if run.Suite != "" {
			name = run.Suite + " (" + run.File + ")"
		}
		fmt.Fprintf(out, "%s  %s  %s  %d passed, %d failed, %d skipped  %s  %s\n",
			status,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration.Round(time.Millisecond),
			run.Passed, run.Failed, run.Skipped,
			name, run.ID)
	}
	return nil
}
