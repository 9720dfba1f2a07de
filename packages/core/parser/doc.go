// Package parser provides parsing for pagespec suite files.
//
// A suite file is line oriented. File-level annotations and variables come
// first, then cases separated by "###" lines:
//
//	@suite Marketing site
//	@viewport 1500x1000
//	@suppress-page-errors true
//	@token = {{$RAPTORMAPS_TOKEN}}
//
//	### Jobs page links to technology
//	# @tags smoke
//	visit https://raptormaps.com/jobs/
//	click get("a").contains("TECHNOLOGY")
//	expect url == "https://raptormaps.com/technology/"
//
// The parser handles:
//   - Navigation, viewport and interaction steps (visit, viewport, scroll,
//     click, type, remove-attr, set-attr, copy)
//   - Locators written as CSS selectors or get/contains/find/parents/
//     closest/first/last/eq call chains
//   - Direct HTTP checks with fetch and header
//   - Expect assertions over url, title, elements, clipboard, status,
//     headers and body
//   - Case metadata (# @tags, # @skip, # @only, # @viewport, # @description)
package parser
