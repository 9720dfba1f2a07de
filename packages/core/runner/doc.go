// Package runner executes pagespec suites against a browser harness.
//
// Cases run one after another in file order, and steps within a case run
// strictly in sequence. The first failing step ends its case with a
// Failure of one of the kinds load, not-found, assertion, page-error,
// post-condition, action or request. The suite always continues with the
// next case unless Bail is set.
//
// Isolation controls what carries over between cases:
//   - "none" (default): the page, URL and DOM state persist, so a case
//     without a visit step continues on the page the previous case left.
//   - "per-case": a fresh browsing context is opened before every case.
//
// Page errors (uncaught script exceptions) fail the case unless
// SuppressPageErrors is set by the run config or the suite's
// @suppress-page-errors annotation. Suppressed errors are logged at Warn
// and kept on the case result.
//
// The browser session is opened on first use, so a suite that only uses
// fetch steps never launches a browser.
package runner
