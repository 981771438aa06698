package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"unicode/utf8"
)

// Response is a backend-neutral HTTP response. Body may be streamed; call
// Bytes or Close to release the underlying connection.
type Response struct {
	// StatusCode is the HTTP status, 100 to 599.
	StatusCode int
	// Header holds the response header fields in wire order where the
	// backend preserves it.
	Header Header
	// URL is the final URL of the exchange, after redirects.
	URL *url.URL
	// Body streams the payload in transmission order. Never nil.
	Body io.ReadCloser

	once sync.Once
	data []byte
	err  error
}

// NewResponse builds a fully buffered response.
func NewResponse(status int, header Header, u *url.URL, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Header:     header,
		URL:        u,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

// Bytes reads the whole body once and caches it. The body is closed
// afterwards. Read failures surface as transport errors.
func (r *Response) Bytes() ([]byte, error) {
	r.once.Do(func() {
		if r.Body == nil {
			r.data = []byte{}
			return
		}
		defer r.Body.Close()
		data, err := io.ReadAll(r.Body)
		if err != nil {
			var he *Error
			if !errors.As(err, &he) {
				err = NewTransportError(err)
			}
			r.err = err
			return
		}
		r.data = data
	})
	return r.data, r.err
}

// Text returns the body as UTF-8 text.
func (r *Response) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", NewCodecError("response body is not valid UTF-8", nil)
	}
	return string(data), nil
}

// Close releases the body without reading it.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get(HeaderContentType)
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// ErrorForStatus returns nil for 2xx responses and a status error carrying
// the buffered body otherwise.
func (r *Response) ErrorForStatus() error {
	if r.IsSuccess() {
		return nil
	}
	body, _ := r.Bytes()
	return NewStatusError(r.StatusCode, body)
}

// CheckStatus returns a protocol error when code is outside 100..599.
// Adapters call it before handing a response to the caller.
func CheckStatus(code int) error {
	if code < 100 || code > 599 {
		return NewProtocolError(fmt.Errorf("status code %d out of range", code))
	}
	return nil
}
