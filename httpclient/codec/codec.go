// Package codec maps typed payloads to request bodies and response bodies
// back to typed values. Codecs only touch the body bytes and the
// Content-Type header; every failure is an httpclient codec error.
package codec

import (
	"errors"
	"mime"
	"strings"

	"github.com/kbukum/anyhttp/httpclient"
)

// Media types produced by the built-in codecs.
const (
	MediaJSON   = "application/json"
	MediaForm   = "application/x-www-form-urlencoded"
	MediaText   = "text/plain; charset=utf-8"
	MediaBase64 = "text/plain; charset=us-ascii"
)

// Codec encodes values to bytes and decodes bytes to values.
type Codec interface {
	// ContentType is the media type written by Encode.
	ContentType() string
	// Encode serializes v.
	Encode(v any) ([]byte, string, error)
	// Decode parses data into v, which must be a non-nil pointer.
	// contentType is the received media type and may be empty.
	Decode(data []byte, contentType string, v any) error
}

var _ httpclient.BodyEncoder = Codec(nil)

// Encode serializes v with c into req's body and Content-Type.
func Encode(req *httpclient.Request, c Codec, v any) error {
	data, contentType, err := c.Encode(v)
	if err != nil {
		return wrap("encode", err)
	}
	req.SetBody(data, contentType)
	return nil
}

// Decode reads resp's body and decodes it into v.
func Decode(resp *httpclient.Response, c Codec, v any) error {
	data, err := resp.Bytes()
	if err != nil {
		return err
	}
	return wrap("decode", c.Decode(data, resp.ContentType(), v))
}

// DecodeAs reads resp's body and decodes it into a new T.
func DecodeAs[T any](resp *httpclient.Response, c Codec) (T, error) {
	var out T
	err := Decode(resp, c, &out)
	return out, err
}

// Strict gates decoding on the received media type: a body whose
// Content-Type does not match c's media type fails without being parsed.
// A missing Content-Type also fails.
func Strict(c Codec) Codec {
	return strict{Codec: c}
}

type strict struct {
	Codec
}

func (s strict) Decode(data []byte, contentType string, v any) error {
	if !SameMediaType(s.ContentType(), contentType) {
		return httpclient.NewCodecError("content type "+quoteOrEmpty(contentType)+" does not match "+mediaType(s.ContentType()), nil)
	}
	return s.Codec.Decode(data, contentType, v)
}

// SameMediaType compares the type/subtype of two Content-Type values,
// ignoring parameters and case.
func SameMediaType(a, b string) bool {
	ma, mb := mediaType(a), mediaType(b)
	return ma != "" && ma == mb
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, _, _ = strings.Cut(ct, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "(none)"
	}
	return `"` + s + `"`
}

// wrap turns foreign errors into codec errors; httpclient errors pass
// through.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var he *httpclient.Error
	if errors.As(err, &he) {
		return err
	}
	return httpclient.NewCodecError(op, err)
}
