//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/pagespec/packages/browser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
	"github.com/abdul-hamid-achik/pagespec/packages/core/runner"
)

const techPage = `<!doctype html>
<html><head><title>Technology</title></head>
<body style="margin:0">
<ul><li id="menu-item-6777"><a href="/jobs">Jobs</a></li></ul>
<div style="height:3000px">spacer</div>
<section id="tech-api" style="height:900px">
  <h1>API Integration</h1>
  <p>Our API can integrate with leading analytics tools.</p>
  <div class="et_pb_row_12"><img src="/api.png" width="200" height="100"></div>
  <a href="/docs" target="_blank">KNOWLEDGE HUB</a>
</section>
<div style="height:3000px">footer</div>
<script>window.addEventListener("load", function () { null.addEventListener("x") })</script>
</body></html>`

const docsPage = `<!doctype html>
<html><head><title>Docs</title></head>
<body>
<h1>/api/v2/solar_farms</h1>
<div class="form-group"><div><label>org_id</label></div><input name="org_id"></div>
<button class="copy" onclick="copyFarms()">Copy</button>
<script>
function copyFarms() {
  var org = document.querySelector("input[name=org_id]").value;
  navigator.clipboard.writeText(JSON.stringify({solar_farms: [
    {name: "Other", uuid: "u-1"},
    {name: "Test Postman Routes - QA Team", uuid: "org-" + org}
  ]}));
}
</script>
</body></html>`

func localSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/tech", page(techPage))
	mux.HandleFunc("/docs", page(docsPage))
	mux.HandleFunc("/jobs", page(`<!doctype html><title>Jobs</title><a id="tech" href="/tech">Technology</a>`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newRod(t *testing.T) *browser.Rod {
	t.Helper()
	cfg := browser.DefaultConfig()
	cfg.Timeout = 20 * time.Second
	h := browser.NewRod(cfg)
	t.Cleanup(func() {
		if err := h.Close(); err != nil {
			t.Errorf("browser close error: %v", err)
		}
	})
	return h
}

func run(t *testing.T, h browser.Harness, src string) *runner.RunResult {
	t.Helper()
	suite, err := parser.Parse(src, filepath.Join(t.TempDir(), "local.pagespec"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	result, err := runner.NewRunner(h, &runner.Config{}).RunSuite(ctx, suite)
	require.NoError(t, err)
	return result
}

func TestRod_LocalSite(t *testing.T) {
	srv := localSite(t)
	h := newRod(t)

	result := run(t, h, fmt.Sprintf(`@suite Local site
@viewport 1500x1000
@suppress-page-errors true

### Jobs links to technology
visit %[1]s/jobs
click #tech
expect url == "%[1]s/tech"

### API section is in the viewport once scrolled
scroll #tech-api
expect get("h1").contains("API Integration") in-viewport
expect get("h1").contains("API Integration") in-viewport
expect get(".et_pb_row_12").find("img") attr src == "/api.png"
expect get("a").contains("KNOWLEDGE HUB") in-viewport

### Hub link opens in the same context once neutralized
expect get("a").contains("KNOWLEDGE HUB") attr target == "_blank"
remove-attr get("a").contains("KNOWLEDGE HUB") target
click get("a").contains("KNOWLEDGE HUB")
expect url == "%[1]s/docs"

### Copy button fills the clipboard
type get("label").contains("org_id").closest("div.form-group").find("input") "228"
copy button.copy
expect clipboard solar_farms[name="Test Postman Routes - QA Team"].uuid == "org-228"
`, srv.URL))

	for _, cr := range result.Results {
		assert.Nil(t, cr.Failure, "case %q", cr.Name)
	}
	assert.Equal(t, 4, result.Passed)
	assert.NotEmpty(t, result.Results[1].PageErrors, "the load handler error is recorded")
}

func TestRod_OutsideViewportAndPageErrors(t *testing.T) {
	srv := localSite(t)
	h := newRod(t)

	result := run(t, h, fmt.Sprintf(`### Section below the fold
viewport 1500x1000
visit %[1]s/tech
expect get("a").contains("KNOWLEDGE HUB") in-viewport
`, srv.URL))

	require.Equal(t, 1, result.Failed)
	kind := result.Results[0].Failure.Kind
	assert.Contains(t, []runner.FailureKind{runner.FailureAssertion, runner.FailurePageError}, kind)
}

func TestRod_PerCaseIsolation(t *testing.T) {
	srv := localSite(t)
	h := newRod(t)

	result := run(t, h, fmt.Sprintf(`@isolation per-case

### Lands on jobs
visit %[1]s/jobs

### Starts from a blank page
expect url == "about:blank"
`, srv.URL))

	for _, cr := range result.Results {
		assert.Nil(t, cr.Failure, "case %q", cr.Name)
	}
}
