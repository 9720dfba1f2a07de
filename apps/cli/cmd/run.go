package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/config"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
	"github.com/abdul-hamid-achik/pagespec/packages/export/metrics"
	"github.com/abdul-hamid-achik/pagespec/packages/history"
	"github.com/abdul-hamid-achik/pagespec/packages/notify"
	"github.com/abdul-hamid-achik/pagespec/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run page-assertion suites",
	Long: `Run the cases in .pagespec suite files against live sites.

Cases run strictly in order in one browser context. With isolation "none"
(the default) cookies, storage, scroll position and the current page carry
over from one case to the next; "per-case" resets the context before each
case. The browser is only launched once a case needs it, so suites made of
fetch steps alone never start Chrome.

Examples:
  pagespec run suites/raptormaps
  pagespec run marketing.pagespec --env prod --tags smoke
  pagespec run ./suites --isolation per-case --output junit --output-file report.xml
  pagespec run api.pagespec --notify slack --notify-on recovery --history .pagespec/history.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var (
	envFlag                string
	envFileFlag            string
	configFlag             string
	nameFlag               string
	tagsFlag               string
	verboseFlag            int
	quietFlag              bool
	noColorFlag            bool
	outputFlag             string
	outputFileFlag         string
	bailFlag               bool
	timeoutFlag            string
	headlessFlag           bool
	isolationFlag          string
	suppressPageErrorsFlag bool
	viewportFlag           string
	navigationRateFlag     float64
	watchFlag              bool
	dryRunFlag             bool
	progressFlag           bool
	historyFlag            string
	userAgentFlag          string

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string

	// Metrics flags
	metricsFlag       string
	metricsFileFlag   string
	datadogAPIKeyFlag string
	datadogSiteFlag   string
	datadogTagsFlag   string
)

// flagEnv maps run flags to the environment variables that set them.
var flagEnv = map[string]string{
	"env":                  "PAGESPEC_ENV",
	"env-file":             "PAGESPEC_ENV_FILE",
	"config":               "PAGESPEC_CONFIG",
	"tags":                 "PAGESPEC_TAGS",
	"quiet":                "PAGESPEC_QUIET",
	"no-color":             "PAGESPEC_NO_COLOR",
	"output":               "PAGESPEC_OUTPUT",
	"output-file":          "PAGESPEC_OUTPUT_FILE",
	"bail":                 "PAGESPEC_BAIL",
	"timeout":              "PAGESPEC_TIMEOUT",
	"headless":             "PAGESPEC_HEADLESS",
	"isolation":            "PAGESPEC_ISOLATION",
	"suppress-page-errors": "PAGESPEC_SUPPRESS_PAGE_ERRORS",
	"viewport":             "PAGESPEC_VIEWPORT",
	"navigation-rate":      "PAGESPEC_NAVIGATION_RATE",
	"progress":             "PAGESPEC_PROGRESS",
	"history":              "PAGESPEC_HISTORY",
	"user-agent":           "PAGESPEC_USER_AGENT",
	"notify":               "PAGESPEC_NOTIFY",
	"notify-on":            "PAGESPEC_NOTIFY_ON",
	"slack-webhook":        "SLACK_WEBHOOK",
	"slack-channel":        "SLACK_CHANNEL",
	"teams-webhook":        "TEAMS_WEBHOOK",
	"metrics":              "PAGESPEC_METRICS",
	"metrics-file":         "PAGESPEC_METRICS_FILE",
	"datadog-api-key":      "DD_API_KEY",
	"datadog-site":         "DD_SITE",
	"datadog-tags":         "DD_TAGS",
}

func init() {
	f := runCmd.Flags()

	// Core flags
	f.StringVarP(&envFlag, "env", "e", getEnvString("PAGESPEC_ENV", ""), "Environment to use, default from config (env: PAGESPEC_ENV)")
	f.StringVar(&envFileFlag, "env-file", getEnvString("PAGESPEC_ENV_FILE", ""), "Path to .env file for variable interpolation (env: PAGESPEC_ENV_FILE)")
	f.StringVar(&configFlag, "config", getEnvString("PAGESPEC_CONFIG", ""), "Path to config file (env: PAGESPEC_CONFIG)")
	f.StringVarP(&nameFlag, "name", "n", "", "Run only cases matching name pattern (* wildcard at either end)")
	f.StringVarP(&tagsFlag, "tags", "t", getEnvString("PAGESPEC_TAGS", ""), "Run only cases with any of these tags, comma-separated (env: PAGESPEC_TAGS)")

	// Output flags
	f.CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v shows steps and case logs, -vv adds debug logs)")
	f.BoolVarP(&quietFlag, "quiet", "q", getEnvBool("PAGESPEC_QUIET", false), "Only log errors (env: PAGESPEC_QUIET)")
	f.BoolVar(&noColorFlag, "no-color", getEnvBool("PAGESPEC_NO_COLOR", false), "Disable colored output (env: PAGESPEC_NO_COLOR)")
	f.StringVarP(&outputFlag, "output", "o", getEnvString("PAGESPEC_OUTPUT", ""), "Output format: console, json, junit, tap, html (env: PAGESPEC_OUTPUT)")
	f.StringVar(&outputFileFlag, "output-file", getEnvString("PAGESPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: PAGESPEC_OUTPUT_FILE)")
	f.BoolVar(&progressFlag, "progress", getEnvBool("PAGESPEC_PROGRESS", false), "Show a progress bar on stderr (env: PAGESPEC_PROGRESS)")

	// Execution flags
	f.BoolVar(&bailFlag, "bail", getEnvBool("PAGESPEC_BAIL", false), "Skip remaining cases after the first failure (env: PAGESPEC_BAIL)")
	f.StringVar(&timeoutFlag, "timeout", getEnvString("PAGESPEC_TIMEOUT", "10s"), "Wait budget for navigation, element queries and fetch steps (env: PAGESPEC_TIMEOUT)")
	f.BoolVar(&headlessFlag, "headless", getEnvBool("PAGESPEC_HEADLESS", true), "Run the browser without a window (env: PAGESPEC_HEADLESS)")
	f.StringVar(&isolationFlag, "isolation", getEnvString("PAGESPEC_ISOLATION", ""), "Case isolation: none or per-case, overrides @isolation (env: PAGESPEC_ISOLATION)")
	f.BoolVar(&suppressPageErrorsFlag, "suppress-page-errors", getEnvBool("PAGESPEC_SUPPRESS_PAGE_ERRORS", false), "Record uncaught page script errors instead of failing cases (env: PAGESPEC_SUPPRESS_PAGE_ERRORS)")
	f.StringVar(&viewportFlag, "viewport", getEnvString("PAGESPEC_VIEWPORT", ""), "Default viewport as WxH (env: PAGESPEC_VIEWPORT)")
	f.Float64Var(&navigationRateFlag, "navigation-rate", getEnvFloat("PAGESPEC_NAVIGATION_RATE", 0), "Maximum visit steps per second, 0 for unlimited (env: PAGESPEC_NAVIGATION_RATE)")
	f.BoolVar(&dryRunFlag, "dry-run", false, "Parse and show what would run without executing")
	f.BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")
	f.StringVar(&historyFlag, "history", getEnvString("PAGESPEC_HISTORY", ""), "Record runs in the SQLite database at `PATH`, e.g. "+config.DefaultHistory+" (env: PAGESPEC_HISTORY)")

	f.StringVar(&userAgentFlag, "user-agent", getEnvString("PAGESPEC_USER_AGENT", ""), "User-Agent header for fetch steps (env: PAGESPEC_USER_AGENT)")

	// Notification flags
	f.StringVar(&notifyFlag, "notify", getEnvString("PAGESPEC_NOTIFY", ""), "Notification services: slack, teams (env: PAGESPEC_NOTIFY)")
	f.StringVar(&notifyOnFlag, "notify-on", getEnvString("PAGESPEC_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: PAGESPEC_NOTIFY_ON)")
	f.StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	f.StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	f.StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")

	// Metrics flags
	f.StringVar(&metricsFlag, "metrics", getEnvString("PAGESPEC_METRICS", ""), "Export run metrics: prometheus, json, datadog (env: PAGESPEC_METRICS)")
	f.StringVar(&metricsFileFlag, "metrics-file", getEnvString("PAGESPEC_METRICS_FILE", ""), "File for prometheus or json metrics (default: stderr) (env: PAGESPEC_METRICS_FILE)")
	f.StringVar(&datadogAPIKeyFlag, "datadog-api-key", getEnvString("DD_API_KEY", ""), "DataDog API key (env: DD_API_KEY)")
	f.StringVar(&datadogSiteFlag, "datadog-site", getEnvString("DD_SITE", "datadoghq.com"), "DataDog site (env: DD_SITE)")
	f.StringVar(&datadogTagsFlag, "datadog-tags", getEnvString("DD_TAGS", ""), "Extra DataDog tags, comma-separated (env: DD_TAGS)")
}

// flagSet reports whether a flag was given on the command line or through
// its environment variable, so config file values only yield to those.
func flagSet(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Changed(name) {
		return true
	}
	key, ok := flagEnv[name]
	return ok && os.Getenv(key) != ""
}

// loadRunConfig merges the config file with explicitly set flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	fileCfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, wrapExit(ExitConfigError, "loading config", err)
	}

	o := &config.Config{}
	if flagSet(cmd, "env") {
		o.DefaultEnvironment = envFlag
	}
	if flagSet(cmd, "env-file") {
		o.EnvFile = envFileFlag
	}
	if flagSet(cmd, "timeout") {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil || d <= 0 {
			return nil, exitErrorf(ExitUsageError, "invalid timeout value %q (use format like 10s, 1m, 500ms)", timeoutFlag)
		}
		o.Timeout = int(d.Milliseconds())
	}
	if flagSet(cmd, "headless") {
		o.Headless = config.BoolPtr(headlessFlag)
	}
	if flagSet(cmd, "isolation") {
		o.Isolation = isolationFlag
	}
	if flagSet(cmd, "suppress-page-errors") {
		o.SuppressPageErrors = config.BoolPtr(suppressPageErrorsFlag)
	}
	if flagSet(cmd, "viewport") {
		o.Viewport = viewportFlag
	}
	if flagSet(cmd, "navigation-rate") {
		if navigationRateFlag < 0 {
			return nil, exitErrorf(ExitUsageError, "--navigation-rate must not be negative")
		}
		o.NavigationRate = navigationRateFlag
	}
	if flagSet(cmd, "bail") {
		o.Bail = config.BoolPtr(bailFlag)
	}
	if flagSet(cmd, "no-color") {
		o.NoColor = config.BoolPtr(noColorFlag)
	}
	if flagSet(cmd, "output") {
		o.Reporters = []string{strings.ToLower(outputFlag)}
	}
	if flagSet(cmd, "output-file") {
		o.OutputFile = outputFileFlag
	}
	if flagSet(cmd, "history") {
		o.History = historyFlag
	}
	if flagSet(cmd, "user-agent") {
		o.UserAgent = userAgentFlag
	}
	if flagSet(cmd, "notify-on") || flagSet(cmd, "slack-webhook") || flagSet(cmd, "slack-channel") || flagSet(cmd, "teams-webhook") {
		o.Notify = &config.NotifyConfig{
			SlackWebhook: slackWebhookFlag,
			SlackChannel: slackChannelFlag,
			TeamsWebhook: teamsWebhookFlag,
		}
		if flagSet(cmd, "notify-on") {
			o.Notify.On = notifyOnFlag
		}
	}

	cfg := fileCfg.Merge(o)
	if err := cfg.Validate(); err != nil {
		return nil, wrapExit(ExitUsageError, "invalid flags", err)
	}
	return cfg, nil
}

// newLogger writes structured logs to stderr. Reports go to stdout through
// the formatters.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quietFlag:
		level = slog.LevelError
	case verboseFlag >= 2:
		level = slog.LevelDebug
	case verboseFlag == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newHarness(cfg *config.Config) *browser.Rod {
	bc := browser.DefaultConfig()
	bc.Headless = cfg.GetHeadless()
	bc.Timeout = cfg.TimeoutDuration()
	bc.ControlURL = cfg.ControlURL
	bc.Bin = cfg.Browser
	return browser.NewRod(bc)
}

func runnerConfig(cfg *config.Config) (*runner.Config, error) {
	vp, err := cfg.GetViewport()
	if err != nil {
		return nil, wrapExit(ExitConfigError, "viewport", err)
	}
	rc := &runner.Config{
		Environment:    cfg.DefaultEnvironment,
		Environments:   cfg.Environments,
		EnvFile:        cfg.EnvFile,
		Timeout:        cfg.TimeoutDuration(),
		ValidateSSL:    cfg.GetValidateSSL(),
		Headers:        cfg.Headers,
		UserAgent:      cfg.UserAgent,
		Bail:           cfg.GetBail(),
		NameFilter:     nameFlag,
		TagsFilter:     splitList(tagsFlag),
		Isolation:      cfg.Isolation,
		Viewport:       vp,
		NavigationRate: cfg.NavigationRate,
	}
	if v, set := cfg.GetSuppressPageErrors(); set {
		rc.SuppressPageErrors = &v
	}
	return rc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr())

	files, err := collectFiles(args)
	if err != nil {
		return wrapExit(ExitUsageError, "", err)
	}
	if len(files) == 0 {
		return exitErrorf(ExitUsageError, "no %s files found", SuiteExt)
	}

	if dryRunFlag {
		return dryRun(cmd, files)
	}

	rc, err := runnerConfig(cfg)
	if err != nil {
		return err
	}

	notifier, err := newNotifyManager(cfg)
	if err != nil {
		return err
	}

	collector, err := newMetricsCollector(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if collector != nil {
		defer collector.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *history.Store
	if cfg.History != "" {
		store, err = history.Open(cfg.History)
		if err != nil {
			return wrapExit(ExitConfigError, "opening history", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("closing history", "error", err)
			}
		}()
	}

	harness := newHarness(cfg)
	defer func() {
		if err := harness.Close(); err != nil {
			logger.Warn("closing browser", "error", err)
		}
	}()

	p := &pass{
		cmd:      cmd,
		cfg:      cfg,
		rc:       rc,
		logger:   logger,
		harness:  harness,
		store:    store,
		notifier: notifier,
		metrics:  collector,
	}

	err = p.run(ctx, files)
	if !watchFlag {
		return err
	}
	return watch(ctx, cmd, args, logger, func() {
		files, err := collectFiles(args)
		if err != nil {
			logger.Error("collecting files", "error", err)
			return
		}
		if err := p.run(ctx, files); err != nil && exitCode(err) != ExitTestFailure {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

// pass is one execution of every suite file. Watch mode runs it again on
// each change.
type pass struct {
	cmd      *cobra.Command
	cfg      *config.Config
	rc       *runner.Config
	logger   *slog.Logger
	harness  browser.Harness
	store    *history.Store
	notifier *notify.Manager
	metrics  *metrics.Collector
}

func (p *pass) formatter() (output.Formatter, io.Closer, error) {
	format := "console"
	if len(p.cfg.Reporters) > 0 {
		format = p.cfg.Reporters[0]
	}

	var w io.Writer = p.cmd.OutOrStdout()
	var closer io.Closer
	if p.cfg.OutputFile != "" {
		f, err := os.Create(p.cfg.OutputFile)
		if err != nil {
			return nil, nil, wrapExit(ExitConfigError, "cannot create output file", err)
		}
		w, closer = f, f
	}

	formatter, err := output.NewFormatter(format, output.Options{
		Writer:  w,
		Verbose: verboseFlag > 0,
		NoColor: p.cfg.GetNoColor() || p.cfg.OutputFile != "",
	})
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, wrapExit(ExitUsageError, "", err)
	}
	return formatter, closer, nil
}

func (p *pass) run(ctx context.Context, files []string) error {
	formatter, closer, err := p.formatter()
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	formatter.FormatHeader(version)

	opts := []runner.Option{runner.WithLogger(p.logger)}
	var progress *output.Progress
	if progressFlag {
		progress = output.NewProgress(countCases(files), p.cmd.ErrOrStderr())
		opts = append(opts, runner.WithCaseHook(progress.Observe))
	}

	start := time.Now()
	var (
		results   []*runner.RunResult
		suiteErrs []error
	)
	for _, file := range files {
		r := runner.NewRunner(p.harness, p.rc, opts...)
		res, err := r.RunFile(ctx, file)
		if res != nil {
			formatter.FormatResult(res)
			results = append(results, res)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			err = fmt.Errorf("%s: %w", file, err)
			formatter.FormatError(err)
			suiteErrs = append(suiteErrs, err)
			continue
		}
		if p.rc.Bail && res.Failed > 0 {
			break
		}
	}
	total := time.Since(start)

	if progress != nil {
		progress.Finish()
	}

	if f, ok := formatter.(output.Flushable); ok {
		if err := f.Flush(total); err != nil {
			return wrapExit(ExitConfigError, "error writing output", err)
		}
	}

	p.record(ctx, results)
	p.notify(ctx, results)
	if p.metrics != nil {
		if err := p.metrics.Export(metrics.FromResults(results)); err != nil {
			p.logger.Warn("failed to export metrics", "error", err)
		}
	}

	if ctx.Err() != nil {
		return wrapExit(ExitTestFailure, "interrupted", ctx.Err())
	}
	return outcome(results, suiteErrs)
}

// record stores results in the history database. The previous outcome is
// read first so recovery notifications see the run before this one.
func (p *pass) record(ctx context.Context, results []*runner.RunResult) {
	if p.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, res := range results {
		if p.notifier != nil {
			if ok, found, err := p.store.LastSuccess(ctx, res.File); err == nil && found && !ok {
				p.notifier.SetPrevious(false)
			}
		}
		if err := p.store.Record(ctx, history.FromResult(res)); err != nil {
			p.logger.Error("recording history", "file", res.File, "error", err)
		}
	}
}

func (p *pass) notify(ctx context.Context, results []*runner.RunResult) {
	if p.notifier == nil || len(results) == 0 {
		return
	}
	summary := notify.Summarize(p.cfg.DefaultEnvironment, results)
	if err := p.notifier.Notify(context.WithoutCancel(ctx), summary); err != nil {
		p.logger.Warn("failed to send notification", "error", err)
	}
}

// outcome maps a pass to its exit code.
func outcome(results []*runner.RunResult, suiteErrs []error) error {
	for _, err := range suiteErrs {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			return wrapExit(ExitParseError, "", err)
		}
	}
	if len(suiteErrs) > 0 {
		return wrapExit(ExitConfigError, "", errors.Join(suiteErrs...))
	}

	failed, infra := 0, 0
	for _, res := range results {
		for _, cr := range res.Results {
			if cr.Failure == nil {
				continue
			}
			failed++
			if cr.Failure.Kind == runner.FailureLoad || cr.Failure.Kind == runner.FailureRequest {
				infra++
			}
		}
	}
	switch {
	case failed == 0:
		return nil
	case failed == infra:
		return exitErrorf(ExitNetworkError, "%d case(s) could not reach their pages", failed)
	default:
		return exitErrorf(ExitTestFailure, "%d case(s) failed", failed)
	}
}

func newNotifyManager(cfg *config.Config) (*notify.Manager, error) {
	nc := cfg.Notify
	if nc == nil {
		nc = &config.NotifyConfig{}
	}

	services := splitList(notifyFlag)
	if len(services) == 0 {
		if nc.SlackWebhook != "" {
			services = append(services, "slack")
		}
		if nc.TeamsWebhook != "" {
			services = append(services, "teams")
		}
	}
	if len(services) == 0 {
		return nil, nil
	}

	on, err := notify.ParseNotifyOn(nc.On)
	if err != nil {
		return nil, wrapExit(ExitUsageError, "", err)
	}

	m := notify.NewManager(on)
	for _, service := range services {
		switch strings.ToLower(service) {
		case "slack":
			if nc.SlackWebhook == "" {
				return nil, exitErrorf(ExitUsageError, "--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if nc.SlackChannel != "" {
				opts = append(opts, notify.WithSlackChannel(nc.SlackChannel))
			}
			m.AddNotifier(notify.NewSlackNotifier(nc.SlackWebhook, opts...))
		case "teams":
			if nc.TeamsWebhook == "" {
				return nil, exitErrorf(ExitUsageError, "--teams-webhook is required when using --notify teams")
			}
			m.AddNotifier(notify.NewTeamsNotifier(nc.TeamsWebhook))
		default:
			return nil, exitErrorf(ExitUsageError, "unknown notification service %q (expected slack or teams)", service)
		}
	}
	return m, nil
}

func newMetricsCollector(stderr io.Writer) (*metrics.Collector, error) {
	exporters := splitList(metricsFlag)
	if len(exporters) == 0 {
		return nil, nil
	}

	var list []metrics.Exporter
	for _, name := range exporters {
		switch strings.ToLower(name) {
		case "prometheus":
			opt := metrics.WithPrometheusWriter(stderr)
			if metricsFileFlag != "" {
				opt = metrics.WithPrometheusFile(metricsFileFlag)
			}
			list = append(list, metrics.NewPrometheusExporter(opt))
		case "json":
			opts := []metrics.JSONOption{metrics.WithJSONVersion(version)}
			if metricsFileFlag != "" {
				opts = append(opts, metrics.WithJSONFile(metricsFileFlag))
			} else {
				opts = append(opts, metrics.WithJSONWriter(stderr))
			}
			list = append(list, metrics.NewJSONExporter(opts...))
		case "datadog":
			dd, err := metrics.NewDataDogExporter(datadogAPIKeyFlag,
				metrics.WithDataDogSite(datadogSiteFlag),
				metrics.WithDataDogTags(splitList(datadogTagsFlag)),
			)
			if err != nil {
				return nil, exitErrorf(ExitUsageError, "--datadog-api-key is required when using --metrics datadog")
			}
			list = append(list, dd)
		default:
			return nil, exitErrorf(ExitUsageError, "unknown metrics exporter %q (expected prometheus, json or datadog)", name)
		}
	}
	return metrics.NewCollector(list...), nil
}

// countCases sums the cases of every parseable file for the progress bar.
func countCases(files []string) int {
	n := 0
	for _, file := range files {
		if suite, err := parser.ParseFile(file); err == nil {
			n += len(suite.Cases)
		}
	}
	return n
}

func dryRun(cmd *cobra.Command, files []string) error {
	out := cmd.OutOrStdout()
	var errs []error
	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			continue
		}
		fmt.Fprintf(out, "Would run: %s\n", file)
		for _, c := range suite.Cases {
			fmt.Fprintf(out, "  - %s (%d steps)\n", caseName(c), len(c.Steps))
		}
	}
	if len(errs) > 0 {
		return wrapExit(ExitParseError, "", errors.Join(errs...))
	}
	return nil
}

func caseName(c *parser.Case) string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("(unnamed case, line %d)", c.Line)
}
