// Package browser defines the Harness the runner drives and its go-rod
// implementation.
//
// Locators are resolved in the page by a single script, so a chain such as
// get("a").contains("KNOWLEDGE HUB") costs one round trip. Rod launches
// Chrome headless unless configured otherwise, grants clipboard access to
// each incognito context, and records uncaught page exceptions so the
// runner can decide whether they fail a case.
package browser
