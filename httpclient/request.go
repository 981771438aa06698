package httpclient

import (
	"net/url"
	"strings"
	"time"
)

// Request is a backend-neutral HTTP request. Build it with NewRequest or a
// RequestBuilder so that the method and URL are validated up front.
type Request struct {
	// Method is the HTTP verb.
	Method Method
	// URL is absolute: it always carries a scheme and a host.
	URL *url.URL
	// Header holds the request header fields in order.
	Header Header
	// Body is the request payload. Nil means no body.
	Body []byte
	// Timeout bounds the whole exchange. Zero uses the backend default.
	Timeout time.Duration
}

// NewRequest validates method and rawURL and returns a request with an
// empty header and no body.
func NewRequest(method, rawURL string) (*Request, error) {
	return NewRequestWithBase(nil, method, rawURL)
}

// NewRequestWithBase is NewRequest with relative references resolved
// against base. A nil base requires rawURL to be absolute.
func NewRequestWithBase(base *url.URL, method, rawURL string) (*Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	u, err := resolveURL(base, rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{Method: m, URL: u}, nil
}

func resolveURL(base *url.URL, rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, NewMalformedRequestError("invalid url", err)
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	if err := checkURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkURL(u *url.URL) error {
	if u == nil {
		return NewMalformedRequestError("missing url", nil)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return NewMalformedRequestError("url "+u.String()+" is not absolute", nil)
	default:
		return NewMalformedRequestError("unsupported scheme "+u.Scheme, nil)
	}
	if u.Host == "" {
		return NewMalformedRequestError("url "+u.String()+" has no host", nil)
	}
	return nil
}

// Validate checks that r can be handed to a backend.
func (r *Request) Validate() error {
	if r == nil {
		return NewMalformedRequestError("nil request", nil)
	}
	if !r.Method.Valid() {
		return NewMalformedRequestError("unknown method "+string(r.Method), nil)
	}
	if err := checkURL(r.URL); err != nil {
		return err
	}
	if r.Timeout < 0 {
		return NewMalformedRequestError("negative timeout", nil)
	}
	return r.Header.Validate()
}

// SetBody replaces the body and, when contentType is not empty, the
// Content-Type header.
func (r *Request) SetBody(body []byte, contentType string) {
	r.Body = body
	if contentType != "" {
		r.Header.Set(HeaderContentType, contentType)
	}
}

// Host returns the URL host without port.
func (r *Request) Host() string {
	return r.URL.Hostname()
}

// IsSecure reports whether the request travels over TLS.
func (r *Request) IsSecure() bool {
	return isSecureScheme(r.URL.Scheme)
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	c := *r
	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			ui := *r.URL.User
			u.User = &ui
		}
		c.URL = &u
	}
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

func isSecureScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "https", "wss":
		return true
	}
	return false
}
