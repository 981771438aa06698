package httpclient

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// RequestBuilder assembles a Request step by step. The first error is kept
// and returned by Build; later steps become no-ops.
type RequestBuilder struct {
	method  string
	rawURL  string
	base    *url.URL
	header  Header
	query   url.Values
	body    []byte
	timeout time.Duration
	auth    *AuthConfig
	err     error

	client *Client
	async  *AsyncClient
}

// NewRequestBuilder starts a builder for method and rawURL.
func NewRequestBuilder(method, rawURL string) *RequestBuilder {
	return &RequestBuilder{method: method, rawURL: rawURL}
}

// Method replaces the request method.
func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.method = method
	return b
}

// URL replaces the request URL. Relative references resolve against the
// client's base URL.
func (b *RequestBuilder) URL(rawURL string) *RequestBuilder {
	b.rawURL = rawURL
	return b
}

// Header appends a header value.
func (b *RequestBuilder) Header(name, value string) *RequestBuilder {
	b.header.Add(name, value)
	return b
}

// SetHeader replaces every value of a header.
func (b *RequestBuilder) SetHeader(name, value string) *RequestBuilder {
	b.header.Set(name, value)
	return b
}

// Headers appends every field of h.
func (b *RequestBuilder) Headers(h Header) *RequestBuilder {
	h.Each(b.header.Add)
	return b
}

// Query adds a query parameter.
func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	if b.query == nil {
		b.query = url.Values{}
	}
	b.query.Add(key, value)
	return b
}

// Body sets raw body bytes and, when contentType is not empty, the
// Content-Type header.
func (b *RequestBuilder) Body(data []byte, contentType string) *RequestBuilder {
	b.body = data
	if contentType != "" {
		b.header.Set(HeaderContentType, contentType)
	}
	return b
}

// Encode serializes v with enc and uses it as the body.
func (b *RequestBuilder) Encode(enc BodyEncoder, v any) *RequestBuilder {
	if b.err != nil {
		return b
	}
	data, contentType, err := enc.Encode(v)
	if err != nil {
		var he *Error
		if !errors.As(err, &he) {
			err = NewCodecError("encode request body", err)
		}
		b.err = err
		return b
	}
	return b.Body(data, contentType)
}

// BasicAuth sets HTTP Basic credentials.
func (b *RequestBuilder) BasicAuth(username, password string) *RequestBuilder {
	b.header.Set(HeaderAuthorization, BasicAuthValue(username, password))
	return b
}

// BearerAuth sets a bearer token.
func (b *RequestBuilder) BearerAuth(token string) *RequestBuilder {
	b.header.Set(HeaderAuthorization, "Bearer "+token)
	return b
}

// Auth overrides the client's default authentication for this request.
func (b *RequestBuilder) Auth(a *AuthConfig) *RequestBuilder {
	b.auth = a
	return b
}

// Timeout bounds the exchange.
func (b *RequestBuilder) Timeout(d time.Duration) *RequestBuilder {
	b.timeout = d
	return b
}

// Err returns the first error recorded so far.
func (b *RequestBuilder) Err() error {
	return b.err
}

// Build validates and returns the request.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	req, err := NewRequestWithBase(b.base, b.method, b.rawURL)
	if err != nil {
		return nil, err
	}
	if len(b.query) > 0 {
		q := req.URL.Query()
		for k, vs := range b.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header = b.header.Clone()
	req.Body = b.body
	req.Timeout = b.timeout
	if err := b.auth.apply(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

var errUnbound = NewMalformedRequestError("request builder is not bound to a client", nil)

// Send builds the request and runs it on the blocking client that created
// the builder.
func (b *RequestBuilder) Send() (*Response, error) {
	if b.client == nil {
		return nil, errUnbound
	}
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.client.Send(req)
}

// Start builds the request and starts it on the suspending client that
// created the builder.
func (b *RequestBuilder) Start(ctx context.Context) *Call {
	if b.async == nil {
		return ResolvedCall(nil, errUnbound)
	}
	req, err := b.Build()
	if err != nil {
		return ResolvedCall(nil, err)
	}
	return b.async.Send(ctx, req)
}

// Await is Start followed by Call.Await.
func (b *RequestBuilder) Await(ctx context.Context) (*Response, error) {
	return b.Start(ctx).Await(ctx)
}
