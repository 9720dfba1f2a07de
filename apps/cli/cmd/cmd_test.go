package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
	"github.com/abdul-hamid-achik/pagespec/packages/history"
	"github.com/abdul-hamid-achik/pagespec/packages/output"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func farmsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authentication-Token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"solar_farms":[{"name":"Test Postman Routes - QA Team","uuid":"8bb07ba1-2661-4f89-8dca-4292c378e665"}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func apiSuite(url, expectedStatus string) string {
	return fmt.Sprintf(`@suite Solar farms API
### Lists farms
# @tags api
fetch get %s/api/v2/solar_farms?org_id=228
header Authentication-Token "secret"
expect status == %s
expect body solar_farms[name="Test Postman Routes - QA Team"].uuid == "8bb07ba1-2661-4f89-8dca-4292c378e665"

### Rejects missing token
# @tags api, auth
fetch get %s/api/v2/solar_farms?org_id=228
expect status == 401
`, url, expectedStatus, url)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.pagespec", "")
	a := writeFile(t, dir, "nested/a.pagespec", "")
	writeFile(t, dir, "notes.txt", "")
	explicit := writeFile(t, dir, "other.txt", "")

	files, err := collectFiles([]string{dir, explicit, b})
	require.NoError(t, err)
	assert.Equal(t, []string{b, a, explicit}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "cannot access")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PAGESPEC_TEST_STRING", "prod")
	t.Setenv("PAGESPEC_TEST_BOOL", "yes")
	t.Setenv("PAGESPEC_TEST_INT", "7")
	t.Setenv("PAGESPEC_TEST_BAD_INT", "seven")
	t.Setenv("PAGESPEC_TEST_FLOAT", "0.5")

	assert.Equal(t, "prod", getEnvString("PAGESPEC_TEST_STRING", "dev"))
	assert.Equal(t, "dev", getEnvString("PAGESPEC_TEST_UNSET", "dev"))
	assert.True(t, getEnvBool("PAGESPEC_TEST_BOOL", false))
	assert.Equal(t, 7, getEnvInt("PAGESPEC_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("PAGESPEC_TEST_BAD_INT", 1))
	assert.Equal(t, 0.5, getEnvFloat("PAGESPEC_TEST_FLOAT", 0))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitParseError, exitCode(fmt.Errorf("wrapped: %w", exitErrorf(ExitParseError, "bad"))))
	assert.Equal(t, ExitUsageError, exitCode(errors.New("unknown flag")))
}

func TestOutcome(t *testing.T) {
	failed := func(kind runner.FailureKind) *runner.RunResult {
		return &runner.RunResult{Results: []*runner.CaseResult{{Failure: &runner.Failure{Kind: kind}}}}
	}
	passed := &runner.RunResult{Results: []*runner.CaseResult{{Passed: true}}}

	assert.NoError(t, outcome([]*runner.RunResult{passed}, nil))
	assert.Equal(t, ExitTestFailure, exitCode(outcome([]*runner.RunResult{failed(runner.FailureAssertion), failed(runner.FailureLoad)}, nil)))
	assert.Equal(t, ExitNetworkError, exitCode(outcome([]*runner.RunResult{failed(runner.FailureLoad), failed(runner.FailureRequest)}, nil)))

	parseErr := fmt.Errorf("a.pagespec: parsing file: %w", &parser.ParseError{File: "a.pagespec", Line: 2, Message: "unknown step"})
	assert.Equal(t, ExitParseError, exitCode(outcome(nil, []error{parseErr})))
	assert.Equal(t, ExitConfigError, exitCode(outcome(nil, []error{errors.New("loading environment: cannot read env file")})))
}

func TestRun_APISuiteWithoutBrowser(t *testing.T) {
	srv := farmsServer(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "api.pagespec", apiSuite(srv.URL, "200"))

	stdout, _, err := execute(t, "run", file, "--output", "json")
	require.NoError(t, err)

	var out output.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, output.JSONSummary{Total: 2, Passed: 2}, out.Summary)
	assert.Equal(t, "Solar farms API", out.Suites[0].Name)
}

func TestRun_FailureExitCode(t *testing.T) {
	srv := farmsServer(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "api.pagespec", apiSuite(srv.URL, "201"))

	stdout, _, err := execute(t, "run", file, "--no-color")
	require.Error(t, err)
	assert.Equal(t, ExitTestFailure, exitCode(err))
	assert.Contains(t, stdout, "✗ Lists farms")
	assert.Contains(t, stdout, "[assertion]")
	assert.Contains(t, stdout, "1 passed, 1 failed")
}

func TestRun_TagFilterAndHistory(t *testing.T) {
	srv := farmsServer(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "api.pagespec", apiSuite(srv.URL, "200"))
	db := filepath.Join(dir, "history.db")

	stdout, _, err := execute(t, "run", file, "--tags", "auth", "--output", "tap", "--history", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok 1 - Lists farms # SKIP filtered out")
	assert.Contains(t, stdout, "ok 2 - Rejects missing token\n")

	store, err := history.Open(db)
	require.NoError(t, err)
	defer store.Close()
	success, found, err := store.LastSuccess(t.Context(), file)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, success)

	stdout, _, err = execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "PASS")
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 skipped")
}

func TestRun_HistoryPathBeforeFile(t *testing.T) {
	srv := farmsServer(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "api.pagespec", apiSuite(srv.URL, "200"))
	db := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "run", "--history", db, file, "--output", "tap")
	require.NoError(t, err)
	assert.FileExists(t, db)

	store, err := history.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(t.Context(), file, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRun_MetricsFile(t *testing.T) {
	srv := farmsServer(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "api.pagespec", apiSuite(srv.URL, "200"))
	prom := filepath.Join(dir, "pagespec.prom")

	_, _, err := execute(t, "run", file, "--output", "tap", "--metrics", "prometheus", "--metrics-file", prom)
	require.NoError(t, err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pagespec_cases{outcome=\"passed\"} 2\n")
	assert.Contains(t, string(data), "pagespec_steps{suite=\"Solar farms API\",kind=\"fetch\"}")

	_, _, err = execute(t, "run", file, "--metrics", "statsd")
	assert.Equal(t, ExitUsageError, exitCode(err))

	_, _, err = execute(t, "run", file, "--metrics", "datadog", "--datadog-api-key", "")
	assert.ErrorContains(t, err, "--datadog-api-key is required")
}

func TestRun_ParseErrorExitCode(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "bad.pagespec", "### c\nhover a\n")

	_, _, err := execute(t, "run", file, "--output", "json")
	require.Error(t, err)
	assert.Equal(t, ExitParseError, exitCode(err))
}

func TestRun_InvalidFlags(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.pagespec", "### c\nvisit https://example.com\n")

	_, _, err := execute(t, "run", file, "--isolation", "sometimes")
	assert.Equal(t, ExitUsageError, exitCode(err))

	_, _, err = execute(t, "run", file, "--timeout", "soon")
	assert.Equal(t, ExitUsageError, exitCode(err))

	_, _, err = execute(t, "run", file, "--notify", "slack")
	assert.ErrorContains(t, err, "--slack-webhook is required")

	_, _, err = execute(t, "run", dir+"/none")
	assert.Equal(t, ExitUsageError, exitCode(err))
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "site.pagespec", "@suite Site\n### Home\nvisit https://example.com\nexpect title contains \"Example\"\n")

	stdout, _, err := execute(t, "run", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Would run: ")
	assert.Contains(t, stdout, "  - Home (2 steps)")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.pagespec", "### c\nviewport 1500x1000\nvisit https://example.com\nexpect h1 in-viewport\n")
	stdout, _, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Valid: "+good+" (1 cases)")

	bad := writeFile(t, dir, "bad.pagespec", "### c\nvisit https://example.com\nexpect h1 in-viewport\n")
	_, stderr, err := execute(t, "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitParseError, exitCode(err))
	assert.Contains(t, stderr, "no configured viewport")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "site.pagespec", "@suite Site\n### Home\n# @tags smoke, links\n# @skip down for maintenance\nvisit https://example.com\nvisit https://example.com/about\n")

	stdout, _, err := execute(t, "list", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Site ("+file+"):")
	assert.Contains(t, stdout, "  - Home\n    tags: smoke, links\n    skip: down for maintenance\n")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "pagespec project initialized!")
	assert.FileExists(t, filepath.Join(dir, "pagespec.yaml"))

	suite, err := parser.ParseFile(filepath.Join(dir, "example.pagespec"))
	require.NoError(t, err)
	assert.Empty(t, parser.Validate(suite, nil, ""))

	_, _, err = execute(t, "init", dir)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "init", dir, "--force")
	assert.NoError(t, err)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pagespec version dev")
}
