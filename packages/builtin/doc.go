// Package builtin provides the functions available inside {{...}}
// expressions in suite files:
//
//	{{uuid()}}                  random UUID
//	{{now()}}                   RFC 3339 timestamp (UTC)
//	{{timestamp()}}             Unix seconds
//	{{date("2006-01-02")}}      formatted date
//	{{env("TOKEN", "default")}} environment variable with fallback
//	{{base64("a:b")}}, {{urlEncode("a b")}}, {{lower("X")}}, {{upper("x")}}
package builtin
