//go:build e2e

// Package e2e runs suites through the go-rod harness in a real Chrome.
//
// These tests are isolated from the standard test suite via build tags.
// Chrome is downloaded by Rod if it is not installed.
//
//	go test -tags=e2e ./e2e/...
//
// Tests against the live RaptorMaps sites also need PAGESPEC_LIVE=1 and,
// for the API checks, RAPTORMAPS_TOKEN.
package e2e
