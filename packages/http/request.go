package http

import (
	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

type Header struct {
	Key   string
	Value string
}

// Request keeps headers in declaration order so repeated keys resolve to
// the last declaration, as they do in the suite file.
type Request struct {
	Method  string
	URL     string
	Headers []Header
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method: method,
		URL:    requestURL,
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
	return r
}

// BuildRequestFromStep turns a fetch step into a request, resolving
// variables in the URL and header values.
func BuildRequestFromStep(step *parser.Step, resolver func(string) string) *Request {
	r := NewRequest(step.Method, resolver(step.URL))
	for _, h := range step.Headers {
		r.SetHeader(h.Key, resolver(h.Value))
	}
	return r
}
