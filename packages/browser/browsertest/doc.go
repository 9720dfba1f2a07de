// Package browsertest provides an in-memory browser.Harness for tests.
//
// Pages are small trees of Nodes registered per URL. The harness models
// a viewport and vertical scroll position, follows links on click, and
// exposes a clipboard that click hooks can write to.
package browsertest
