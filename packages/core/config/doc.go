// Package config handles configuration loading and management for pagespec.
//
// It provides functionality for:
//   - Loading configuration from pagespec.yaml, pagespec.yml, .pagespec.yaml
//     or .pagespec.json
//   - Default configuration values
//   - Environment-specific variables and notification settings
//
// Unset boolean fields are nil so command-line flags and suite annotations
// can tell "not configured" apart from "false".
package config
