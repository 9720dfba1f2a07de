// Package http performs the direct requests behind fetch steps.
//
// It wraps the standard library's http package with configurable
// timeouts, redirect handling and a body size cap, and returns a fully
// read Response that assertions can inspect.
package http
