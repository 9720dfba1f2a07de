// Package cmd implements the pagespec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute page-assertion suites in a browser
//   - validate: Check suite syntax and references without executing
//   - list: Display the cases defined in suites
//   - init: Create a pagespec.yaml and an example suite
//   - history: Show recorded runs from the history store
//   - version: Show pagespec version information
//
// Every run flag can also be set through a PAGESPEC_* environment
// variable. Values from pagespec.yaml apply unless a flag overrides them.
package cmd
