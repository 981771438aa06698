package httpclient

import (
	"net/http"
	"strconv"
	"strings"
)

// Method is an HTTP request method.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodConnect Method = http.MethodConnect
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
)

var knownMethods = map[Method]struct{}{
	MethodGet:     {},
	MethodHead:    {},
	MethodPost:    {},
	MethodPut:     {},
	MethodPatch:   {},
	MethodDelete:  {},
	MethodConnect: {},
	MethodOptions: {},
	MethodTrace:   {},
}

// ParseMethod normalizes s to upper case and checks it against the known
// verbs.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", NewMalformedRequestError("unknown method "+strconv.Quote(s), nil)
	}
	return m, nil
}

// Valid reports whether m is one of the known verbs.
func (m Method) Valid() bool {
	_, ok := knownMethods[m]
	return ok
}

// IsSafe reports whether m has no side effects on the server (RFC 9110 9.2.1).
func (m Method) IsSafe() bool {
	switch m {
	case MethodGet, MethodHead, MethodOptions, MethodTrace:
		return true
	}
	return false
}

// IsIdempotent reports whether repeating m has the same effect as sending it
// once (RFC 9110 9.2.2).
func (m Method) IsIdempotent() bool {
	return m.IsSafe() || m == MethodPut || m == MethodDelete
}

// AllowsBody reports whether a request body is meaningful for m.
func (m Method) AllowsBody() bool {
	switch m {
	case MethodGet, MethodHead, MethodTrace, MethodConnect:
		return false
	}
	return true
}

func (m Method) String() string { return string(m) }
