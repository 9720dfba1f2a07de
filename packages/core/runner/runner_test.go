package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/browser/browsertest"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

const farmsJSON = `{"farms":[{"name":"A","uuid":"u-1"},{"name":"B","uuid":"u-2"},{"name":"B","uuid":"u-3"}]}`

func newSite() *browsertest.Harness {
	El := browsertest.El
	return browsertest.New().
		Route("https://example.com/jobs/", func() *browsertest.Page {
			return &browsertest.Page{Title: "Jobs", Root: El("html", nil, "",
				El("body", nil, "",
					El("a", []string{"id", "menu-item-6777", "href", "https://example.com/tech/"}, "TECHNOLOGY").At(10, 20),
				),
			)}
		}).
		Route("https://example.com/tech/", func() *browsertest.Page {
			return &browsertest.Page{Title: "Tech", Root: El("html", nil, "",
				El("body", nil, "",
					El("section", []string{"id", "tech-api"}, "",
						El("h1", nil, "API Integration").At(2000, 50),
						El("a", []string{"href", "https://example.com/docs", "target", "_blank"}, "KNOWLEDGE HUB").At(2100, 30),
					).At(1980, 400),
				),
			)}
		}).
		Route("https://example.com/docs", func() *browsertest.Page {
			return &browsertest.Page{Title: "Docs", Root: El("html", nil, "",
				El("body", nil, "",
					El("button", []string{"class", "copy"}, "Copy").At(100, 20).Clicks(func(h *browsertest.Harness) error {
						h.SetClipboard(farmsJSON)
						return nil
					}),
				),
			)}
		}).
		Route("https://example.com/broken", func() *browsertest.Page {
			return &browsertest.Page{
				Title:  "Broken",
				Root:   El("html", nil, "", El("body", nil, "ok")),
				Errors: []string{"TypeError: x is undefined"},
			}
		})
}

func runSuite(t *testing.T, h *browsertest.Harness, cfg *Config, src string, opts ...Option) *RunResult {
	t.Helper()
	suite, err := parser.Parse(src, filepath.Join(t.TempDir(), "suite.pagespec"))
	require.NoError(t, err)
	var r *Runner
	if h == nil {
		r = NewRunner(nil, cfg, opts...)
	} else {
		r = NewRunner(h, cfg, opts...)
	}
	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	return result
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil, nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.client)
		assert.NotNil(t, r.resolver)
		assert.NotNil(t, r.timings)
		assert.Nil(t, r.limiter)
	})

	t.Run("with navigation rate", func(t *testing.T) {
		r := NewRunner(newSite(), &Config{NavigationRate: 2, Environment: "prod"})
		assert.NotNil(t, r.limiter)
		assert.Equal(t, "prod", r.config.Environment)
	})
}

func TestRunSuite_StatePersistsAcrossCases(t *testing.T) {
	h := newSite()
	result := runSuite(t, h, nil, `@suite Runner
@viewport 1500x1000

### Jobs links to technology
visit https://example.com/jobs/
click #menu-item-6777
expect url == "https://example.com/tech/"

### Technology page continues where the last case ended
scroll #tech-api
expect get("h1").contains("API Integration") in-viewport
expect get("a").contains("KNOWLEDGE HUB") attr target == "_blank"
remove-attr get("a").contains("KNOWLEDGE HUB") target
click get("a").contains("KNOWLEDGE HUB")
expect url == "https://example.com/docs"
`)

	assert.Equal(t, 2, result.Passed, "%+v", result.Results)
	assert.Zero(t, result.Failed)
	assert.True(t, result.Success())
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "Runner", result.Suite)
	assert.Empty(t, h.NewTabs)
	assert.Equal(t, []string{"https://example.com/jobs/", "https://example.com/tech/", "https://example.com/docs"}, h.Visits)
	assert.Len(t, result.Results[1].Assertions, 3)
	assert.Len(t, result.Results[1].Steps, 6)
}

func TestRunSuite_CopyAndSearchClipboard(t *testing.T) {
	result := runSuite(t, newSite(), nil, `### Copy farms
visit https://example.com/docs
copy button.copy
expect clipboard farms[name="B"].uuid == "u-2"
expect clipboard farms[*].uuid exists
`)

	require.Equal(t, 1, result.Passed, "%+v", result.Results[0].Failure)
	cr := result.Results[0]
	require.Len(t, cr.Notes, 1)
	assert.Contains(t, cr.Notes[0], "2 records matched")
}

func TestRunSuite_FailureKinds(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name  string
		setup func(h *browsertest.Harness)
		src   string
		kind  FailureKind
		line  int
	}{
		{
			name: "navigation failure",
			src:  "### c\nvisit https://example.com/missing\n",
			kind: FailureLoad,
			line: 2,
		},
		{
			name: "interaction locator matches nothing",
			src:  "### c\nvisit https://example.com/jobs/\nclick #nope\n",
			kind: FailureNotFound,
			line: 3,
		},
		{
			name: "assertion locator matches nothing",
			src:  "### c\nvisit https://example.com/jobs/\nexpect .missing text == \"x\"\n",
			kind: FailureNotFound,
			line: 3,
		},
		{
			name: "predicate false",
			src:  "### c\nvisit https://example.com/jobs/\nexpect title == \"Nope\"\n",
			kind: FailureAssertion,
			line: 3,
		},
		{
			name:  "clipboard read fails",
			setup: func(h *browsertest.Harness) { h.FailClipboard(errors.New("denied")) },
			src:   "### c\nvisit https://example.com/docs\ncopy button.copy\n",
			kind:  FailurePostCondition,
			line:  3,
		},
		{
			name: "record search has no match",
			src:  "### c\nvisit https://example.com/docs\ncopy button.copy\nexpect clipboard farms[name=\"Z\"].uuid == \"x\"\n",
			kind: FailurePostCondition,
			line: 4,
		},
		{
			name: "page error not suppressed",
			src:  "### c\nvisit https://example.com/broken\nexpect title == \"Broken\"\n",
			kind: FailurePageError,
			line: 2,
		},
		{
			name: "fetch transport error",
			src:  "### c\nfetch GET " + closedURL + "/farms\nexpect status == 200\n",
			kind: FailureRequest,
			line: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSite()
			if tt.setup != nil {
				tt.setup(h)
			}
			result := runSuite(t, h, nil, tt.src)
			require.Equal(t, 1, result.Failed)
			f := result.Results[0].Failure
			require.NotNil(t, f)
			assert.Equal(t, tt.kind, f.Kind, f.Error())
			require.NotNil(t, f.Step)
			assert.Equal(t, tt.line, f.Step.Line)
		})
	}
}

func TestRunSuite_AssertionFailureCarriesExpectedAndActual(t *testing.T) {
	result := runSuite(t, newSite(), nil, "### c\nvisit https://example.com/jobs/\nexpect title == \"Nope\"\nexpect title == \"Jobs\"\n")
	cr := result.Results[0]
	require.NotNil(t, cr.Failure)
	assert.Equal(t, "Nope", cr.Failure.Expected)
	assert.Equal(t, "Jobs", cr.Failure.Actual)
	// the first failing predicate ends the case
	assert.Len(t, cr.Assertions, 1)
}

func TestRunSuite_SuiteContinuesAfterFailure(t *testing.T) {
	result := runSuite(t, newSite(), nil, `### fails
visit https://example.com/jobs/
click #nope

### still runs
visit https://example.com/docs
expect title == "Docs"
`)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Passed)
}

func TestRunSuite_PageErrorPolicy(t *testing.T) {
	src := "@suppress-page-errors true\n### c\nvisit https://example.com/broken\nexpect title == \"Broken\"\n"

	t.Run("suite suppresses", func(t *testing.T) {
		result := runSuite(t, newSite(), nil, src)
		require.Equal(t, 1, result.Passed)
		require.Len(t, result.Results[0].PageErrors, 1)
		assert.Equal(t, "TypeError: x is undefined", result.Results[0].PageErrors[0].Message)
	})

	t.Run("run config overrides suite", func(t *testing.T) {
		off := false
		result := runSuite(t, newSite(), &Config{SuppressPageErrors: &off}, src)
		require.Equal(t, 1, result.Failed)
		assert.Equal(t, FailurePageError, result.Results[0].Failure.Kind)
	})
}

func TestRunSuite_PerCaseIsolation(t *testing.T) {
	src := `### first
visit https://example.com/jobs/

### second starts from a blank page
expect url == "about:blank"
`
	h := newSite()
	result := runSuite(t, h, &Config{Isolation: parser.IsolationPerCase}, src)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, h.Resets)

	h = newSite()
	result = runSuite(t, h, nil, src)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, h.Resets)
}

func TestRunSuite_Bail(t *testing.T) {
	result := runSuite(t, newSite(), &Config{Bail: true}, `### one
visit https://example.com/missing

### two
visit https://example.com/jobs/

### three
visit https://example.com/docs
`)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "bail", result.Results[1].SkipReason)
	assert.Equal(t, "bail", result.Results[2].SkipReason)
}

func TestRunSuite_Filters(t *testing.T) {
	src := `### Jobs smoke
# @tags smoke
visit https://example.com/jobs/

### Docs
# @tags docs
visit https://example.com/docs

### Flaky
# @tags smoke
# @skip upstream outage
visit https://example.com/docs
`
	t.Run("tags", func(t *testing.T) {
		result := runSuite(t, newSite(), &Config{TagsFilter: []string{"smoke"}}, src)
		assert.Equal(t, 1, result.Passed)
		assert.Equal(t, 2, result.Skipped)
		assert.Equal(t, "filtered out", result.Results[1].SkipReason)
		assert.Equal(t, "upstream outage", result.Results[2].SkipReason)
	})

	t.Run("name pattern", func(t *testing.T) {
		result := runSuite(t, newSite(), &Config{NameFilter: "Doc*"}, src)
		assert.Equal(t, 1, result.Passed)
		assert.Equal(t, "Docs", result.Results[1].Name)
		assert.True(t, result.Results[1].Passed)
	})

	t.Run("only", func(t *testing.T) {
		result := runSuite(t, newSite(), nil, src+"\n### Focus\n# @only\nvisit https://example.com/jobs/\n")
		assert.Equal(t, 1, result.Passed)
		assert.Equal(t, 3, result.Skipped)
		assert.True(t, result.Results[3].Passed)
	})
}

func TestRunSuite_Viewports(t *testing.T) {
	t.Run("case annotation then suite default", func(t *testing.T) {
		var seen [][2]int
		h := newSite()
		hook := func(cr *CaseResult) {
			w, ht := h.Viewport()
			seen = append(seen, [2]int{w, ht})
		}
		result := runSuite(t, h, nil, `@viewport 1500x1000
### narrow
# @viewport 800x600
visit https://example.com/jobs/

### default again
visit https://example.com/jobs/

### step
viewport 375x812
visit https://example.com/jobs/
`, WithCaseHook(hook))
		require.Equal(t, 3, result.Passed)
		assert.Equal(t, [][2]int{{800, 600}, {1500, 1000}, {375, 812}}, seen)
	})

	t.Run("run config viewport", func(t *testing.T) {
		h := newSite()
		runSuite(t, h, &Config{Viewport: &parser.Viewport{Width: 1024, Height: 768}}, "### c\nvisit https://example.com/jobs/\n")
		w, ht := h.Viewport()
		assert.Equal(t, 1024, w)
		assert.Equal(t, 768, ht)
	})
}

func TestRunSuite_ValidationError(t *testing.T) {
	suite, err := parser.Parse("### c\nvisit https://example.com/jobs/\nexpect a in-viewport\n", "v.pagespec")
	require.NoError(t, err)

	_, err = NewRunner(newSite(), nil).RunSuite(context.Background(), suite)
	require.Error(t, err)
	var pe *parser.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
}

func TestRunSuite_IsolationOverrideDropsCarriedViewport(t *testing.T) {
	src := `### sizes the window
viewport 1500x1000
visit https://example.com/jobs/

### checks the heading
visit https://example.com/tech/
scroll get("#tech-api")
expect get("h1") in-viewport
`
	suite, err := parser.Parse(src, "iso.pagespec")
	require.NoError(t, err)

	h := newSite()
	_, err = NewRunner(h, nil).RunSuite(context.Background(), suite)
	require.NoError(t, err)

	h = newSite()
	_, err = NewRunner(h, &Config{Isolation: parser.IsolationPerCase}).RunSuite(context.Background(), suite)
	require.Error(t, err)
	var pe *parser.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 8, pe.Line)
	assert.Contains(t, pe.Message, "no configured viewport")
	assert.Empty(t, h.Visits)
}

func TestRunSuite_FetchWithoutBrowser(t *testing.T) {
	t.Setenv("PAGESPEC_TEST_TOKEN", "tok-228")
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("Authentication-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(farmsJSON))
	}))
	defer server.Close()

	suite, err := parser.Parse(`@token = {{$PAGESPEC_TEST_TOKEN}}
### Farms endpoint
fetch GET {{api}}/farms?org_id=228
header Authentication-Token "{{token}}"
expect status == 200
expect header Content-Type contains "json"
expect body farms[*].uuid exists
expect body farms[1].name == "B"
`, "api.pagespec")
	require.NoError(t, err)

	r := NewRunner(nil, nil)
	r.Resolver().SetVariable("api", server.URL)
	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed, "%v", result.Results[0].Failure)
	assert.Equal(t, "tok-228", gotToken)
	require.NotNil(t, result.Results[0].Response)
	assert.Equal(t, 200, result.Results[0].Response.StatusCode)
}

func TestRunSuite_FetchUserAgent(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	src := "### ping\nfetch GET " + server.URL + "/health\nexpect status == 200\n"
	runSuite(t, nil, nil, src)
	runSuite(t, nil, &Config{ValidateSSL: true, UserAgent: "raptormaps-monitor/1.0"}, src)

	assert.Equal(t, []string{"pagespec", "raptormaps-monitor/1.0"}, agents)
}

func TestRunSuite_BrowserStepWithoutHarness(t *testing.T) {
	result := runSuite(t, nil, nil, "### c\nvisit https://example.com/jobs/\n")
	require.Equal(t, 1, result.Failed)
	assert.Equal(t, FailureLoad, result.Results[0].Failure.Kind)
	assert.ErrorIs(t, result.Results[0].Failure, ErrNoHarness)
}

func TestRunSuite_HooksAndTimings(t *testing.T) {
	var names []string
	result := runSuite(t, newSite(), nil, `### a
visit https://example.com/jobs/
expect title == "Jobs"

### b
# @skip later
visit https://example.com/docs
`, WithCaseHook(func(cr *CaseResult) { names = append(names, cr.Name) }))

	assert.Equal(t, []string{"a", "b"}, names)
	require.NotNil(t, result.Timings)
	visit, ok := result.Timings.Kind("visit")
	require.True(t, ok)
	assert.Equal(t, int64(1), visit.Count)
	expect, ok := result.Timings.Kind("expect")
	require.True(t, ok)
	assert.Equal(t, int64(1), expect.Count)
}

func TestRunSuite_Cancelled(t *testing.T) {
	suite, err := parser.Parse("### a\nvisit https://example.com/jobs/\n### b\nvisit https://example.com/docs\n", "c.pagespec")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := NewRunner(newSite(), nil).RunSuite(ctx, suite)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "cancelled", result.Results[0].SkipReason)
}

func TestRunner_RunFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PAGESPEC_RUNFILE_SITE=https://example.com\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PAGESPEC_RUNFILE_SITE") })

	path := filepath.Join(dir, "site.pagespec")
	require.NoError(t, os.WriteFile(path, []byte(`@suite From file
@site = {{$PAGESPEC_RUNFILE_SITE}}

### Jobs
visit {{site}}/jobs/
expect {{selector}} text == "{{label}}"
`), 0o600))

	r := NewRunner(newSite(), &Config{
		Environment:  "test",
		Environments: map[string]map[string]any{"test": {"selector": "#menu-item-6777", "label": "TECHNOLOGY"}},
	})
	result, err := r.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed, "%v", result.Results[0].Failure)
	assert.Equal(t, path, result.File)

	_, err = r.RunFile(context.Background(), filepath.Join(dir, "missing.pagespec"))
	assert.ErrorContains(t, err, "parsing file")
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name, pattern string
		want          bool
	}{
		{"Jobs page", "", true},
		{"Jobs page", "*", true},
		{"Jobs page", "Jobs page", true},
		{"Jobs page", "Jobs*", true},
		{"Jobs page", "*page", true},
		{"Jobs page", "*bs p*", true},
		{"Jobs page", "Docs*", false},
		{"Jobs page", "Jobs", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesPattern(tt.name, tt.pattern), "%s ~ %s", tt.name, tt.pattern)
	}
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Kind: FailureNotFound, Step: &parser.Step{Line: 7}, Message: "no element matches #x"}
	assert.Equal(t, "not-found (line 7): no element matches #x", f.Error())
	assert.Equal(t, "load: boom", (&Failure{Kind: FailureLoad, Message: "boom"}).Error())
}
