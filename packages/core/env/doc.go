// Package env handles environments and variable resolution.
//
// It provides functionality for:
//   - Loading .env files with godotenv (.env and .env.<environment>)
//   - Variable interpolation using {{variable}} syntax
//   - Process environment lookups with {{$NAME}}
//   - Built-in function evaluation ({{uuid()}}, {{env("NAME", "default")}})
//   - Environment-specific variables from the project config
package env
