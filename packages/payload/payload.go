package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidJSON  = errors.New("payload is not valid JSON")
	ErrPathNotFound = errors.New("path not found")
	ErrNoMatch      = errors.New("no record matches")
	ErrInvalidPath  = errors.New("invalid path")
)

// Value is the result of a lookup. Multi is set when the path went through
// a [*] segment, in which case Raw holds one entry per record.
type Value struct {
	Path    string
	Raw     any
	Multi   bool
	Matches int
	results []gjson.Result
}

func (v *Value) String() string {
	if v.Multi {
		parts := make([]string, len(v.results))
		for i, r := range v.results {
			parts[i] = r.Raw
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	if len(v.results) == 1 && v.results[0].Type == gjson.String {
		return v.results[0].Str
	}
	if len(v.results) == 1 {
		return v.results[0].Raw
	}
	return ""
}

// JSON returns the raw JSON text of the value.
func (v *Value) JSON() string {
	if !v.Multi && len(v.results) == 1 {
		return v.results[0].Raw
	}
	return v.String()
}

type selectorKind int

const (
	selNone selectorKind = iota
	selIndex
	selAll
	selSearch
)

type selector struct {
	kind  selectorKind
	index int
	field string
	value string
}

type segment struct {
	raw       string
	name      string
	selectors []selector
}

// Lookup evaluates path against the JSON document. Segments are separated
// by dots and each is a key optionally followed by selectors: [N] picks an
// index, [*] fans out over every record and [field="value"] picks the first
// record whose field equals value.
func Lookup(doc []byte, path string) (*Value, error) {
	if !gjson.ValidBytes(doc) {
		return nil, ErrInvalidJSON
	}

	segments, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	current := []gjson.Result{gjson.ParseBytes(doc)}
	multi := false
	matches := 0

	for _, seg := range segments {
		if seg.name != "" {
			next := make([]gjson.Result, 0, len(current))
			for i, r := range current {
				child, ok := child(r, seg.name)
				if !ok {
					if multi {
						return nil, fmt.Errorf("%w: %s (record %d)", ErrPathNotFound, seg.raw, i)
					}
					return nil, fmt.Errorf("%w: %s", ErrPathNotFound, seg.raw)
				}
				next = append(next, child)
			}
			current = next
		}

		for _, sel := range seg.selectors {
			next := make([]gjson.Result, 0, len(current))
			for _, r := range current {
				if !r.IsArray() {
					return nil, fmt.Errorf("%w: %s is not an array", ErrPathNotFound, seg.raw)
				}
				items := r.Array()

				switch sel.kind {
				case selIndex:
					if sel.index < 0 || sel.index >= len(items) {
						return nil, fmt.Errorf("%w: %s index %d out of range (%d records)", ErrPathNotFound, seg.raw, sel.index, len(items))
					}
					next = append(next, items[sel.index])
				case selAll:
					next = append(next, items...)
					multi = true
				case selSearch:
					found, n := search(items, sel.field, sel.value)
					if n == 0 {
						return nil, fmt.Errorf("%w: %s with %s=%q", ErrNoMatch, seg.name, sel.field, sel.value)
					}
					matches = n
					next = append(next, found)
				}
			}
			current = next
		}
	}

	v := &Value{Path: path, Multi: multi, Matches: matches, results: current}
	if multi {
		values := make([]any, len(current))
		for i, r := range current {
			values[i] = r.Value()
		}
		v.Raw = values
	} else if len(current) == 1 {
		v.Raw = current[0].Value()
	}
	return v, nil
}

// child looks a key up without interpreting gjson path syntax, so keys may
// contain dots or wildcards.
func child(r gjson.Result, key string) (gjson.Result, bool) {
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	var found gjson.Result
	ok := false
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// search returns the first record whose field equals value, and how many
// records matched in total.
func search(items []gjson.Result, field, value string) (gjson.Result, int) {
	var first gjson.Result
	n := 0
	for _, item := range items {
		f, ok := child(item, field)
		if !ok || f.String() != value {
			continue
		}
		if n == 0 {
			first = item
		}
		n++
	}
	return first, n
}

func parsePath(path string) ([]segment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	var segments []segment
	for _, raw := range splitPath(path) {
		seg, err := parseSegment(raw)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// splitPath splits on dots outside brackets and quotes.
func splitPath(path string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(path) {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == '.' && depth == 0:
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}

func parseSegment(raw string) (segment, error) {
	seg := segment{raw: raw}
	open := strings.IndexByte(raw, '[')
	if open < 0 {
		seg.name = raw
	} else {
		seg.name = raw[:open]
	}
	if raw == "" {
		return seg, fmt.Errorf("%w: empty segment", ErrInvalidPath)
	}

	rest := ""
	if open >= 0 {
		rest = raw[open:]
	}
	for rest != "" {
		if rest[0] != '[' {
			return seg, fmt.Errorf("%w: unexpected %q in %s", ErrInvalidPath, rest, raw)
		}
		end := closingBracket(rest)
		if end < 0 {
			return seg, fmt.Errorf("%w: unclosed [ in %s", ErrInvalidPath, raw)
		}
		sel, err := parseSelector(rest[1:end])
		if err != nil {
			return seg, fmt.Errorf("%w: %s: %v", ErrInvalidPath, raw, err)
		}
		seg.selectors = append(seg.selectors, sel)
		rest = rest[end+1:]
	}
	return seg, nil
}

func closingBracket(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

func parseSelector(body string) (selector, error) {
	body = strings.TrimSpace(body)
	if body == "*" {
		return selector{kind: selAll}, nil
	}
	if n, err := strconv.Atoi(body); err == nil {
		return selector{kind: selIndex, index: n}, nil
	}

	field, value, ok := strings.Cut(body, "=")
	if !ok {
		return selector{}, fmt.Errorf("selector %q must be an index, * or field=\"value\"", body)
	}
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if field == "" {
		return selector{}, fmt.Errorf("selector %q has no field", body)
	}
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		if value[0] == '"' {
			unq, err := strconv.Unquote(value)
			if err != nil {
				return selector{}, fmt.Errorf("invalid value %s", value)
			}
			value = unq
		} else {
			value = value[1 : len(value)-1]
		}
	}
	return selector{kind: selSearch, field: field, value: value}, nil
}
