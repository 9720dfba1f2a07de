// Package payload looks values up in JSON documents captured during a case,
// such as clipboard contents or fetch response bodies.
//
// Paths are dot separated keys with optional selectors:
//
//	solar_farms[0].uuid
//	solar_farms[*].uuid
//	solar_farms[name="Test Postman Routes - QA Team"].uuid
//
// A search selector scans every record and picks the first match; the
// number of matching records is reported in Value.Matches.
package payload
