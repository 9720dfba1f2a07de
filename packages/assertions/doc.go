// Package assertions evaluates expect steps against the page and against
// payloads captured during a case.
//
// Supported subjects:
//   - Page state (expect url == "...", expect title contains "...")
//   - Elements (exists, !exists, in-viewport, text, attr, count)
//   - Clipboard and response body JSON paths, including record search
//     (expect clipboard solar_farms[name="x"].uuid == "...")
//   - Response status and headers
//   - JSON Schema validation of payloads (expect body schema farms.json)
//
// Equality is loose: deep equality, then numeric, then string form.
package assertions
