package httpclient

import (
	"maps"
	"net/http"
	"net/textproto"
	"slices"
	"strconv"

	"golang.org/x/net/http/httpguts"
)

// Common header names.
const (
	HeaderAuthorization  = "Authorization"
	HeaderContentType    = "Content-Type"
	HeaderContentLength  = "Content-Length"
	HeaderCookie         = "Cookie"
	HeaderSetCookie      = "Set-Cookie"
	HeaderUserAgent      = "User-Agent"
	HeaderAccept         = "Accept"
	HeaderAcceptEncoding = "Accept-Encoding"
	HeaderRequestID      = "X-Request-Id"
)

type headerField struct {
	name  string
	value string
}

// Header is an ordered multimap of header fields. Names compare
// case-insensitively and are stored in canonical MIME form. Repeated fields
// keep their individual values and their order, so several Set-Cookie lines
// stay distinct. The zero value is an empty header ready to use.
type Header struct {
	fields []headerField
}

// NewHeader builds a header from alternating name/value pairs. It panics
// when given an odd number of arguments.
func NewHeader(kv ...string) Header {
	if len(kv)%2 != 0 {
		panic("httpclient: NewHeader called with an unpaired name " + kv[len(kv)-1])
	}
	var h Header
	for i := 0; i < len(kv); i += 2 {
		h.Add(kv[i], kv[i+1])
	}
	return h
}

// Add appends a value for name, keeping existing values.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, headerField{name: textproto.CanonicalMIMEHeaderKey(name), value: value})
}

// Set replaces every value of name with value.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// SetDefault adds value only when name is absent.
func (h *Header) SetDefault(name, value string) {
	if !h.Has(name) {
		h.Add(name, value)
	}
}

// Get returns the first value of name, or "".
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	key := textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range h.fields {
		if f.name == key {
			return f.value
		}
	}
	return ""
}

// Values returns every value of name in insertion order.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	key := textproto.CanonicalMIMEHeaderKey(name)
	var out []string
	for _, f := range h.fields {
		if f.name == key {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether name has at least one value.
func (h *Header) Has(name string) bool {
	if h == nil {
		return false
	}
	key := textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range h.fields {
		if f.name == key {
			return true
		}
	}
	return false
}

// Del removes every value of name.
func (h *Header) Del(name string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	kept := h.fields[:0]
	for _, f := range h.fields {
		if f.name != key {
			kept = append(kept, f)
		}
	}
	clear(h.fields[len(kept):])
	h.fields = kept
}

// Len returns the number of fields, counting repeated names separately.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Names returns the distinct field names in first-seen order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(h.fields))
	var names []string
	for _, f := range h.fields {
		if _, ok := seen[f.name]; ok {
			continue
		}
		seen[f.name] = struct{}{}
		names = append(names, f.name)
	}
	return names
}

// Each calls fn for every field in order.
func (h *Header) Each(fn func(name, value string)) {
	if h == nil {
		return
	}
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}

// Clone returns a deep copy of h.
func (h *Header) Clone() Header {
	if h == nil || len(h.fields) == 0 {
		return Header{}
	}
	return Header{fields: append([]headerField(nil), h.fields...)}
}

// Merge adds every field of other whose name is absent from h.
func (h *Header) Merge(other Header) {
	var add []headerField
	for _, f := range other.fields {
		if !h.Has(f.name) {
			add = append(add, f)
		}
	}
	h.fields = append(h.fields, add...)
}

// Validate checks field names and values against the HTTP token and
// field-value grammars.
func (h *Header) Validate() error {
	if h == nil {
		return nil
	}
	for _, f := range h.fields {
		if !httpguts.ValidHeaderFieldName(f.name) {
			return NewMalformedRequestError("invalid header name "+strconv.Quote(f.name), nil)
		}
		if !httpguts.ValidHeaderFieldValue(f.value) {
			return NewMalformedRequestError("invalid value for header "+f.name, nil)
		}
	}
	return nil
}

// ToHTTP converts h into a net/http header.
func (h *Header) ToHTTP() http.Header {
	out := make(http.Header, h.Len())
	h.Each(func(name, value string) {
		out[name] = append(out[name], value)
	})
	return out
}

// HeaderFromHTTP converts a net/http header. net/http does not keep the
// relative order of different names, so names are visited in sorted order;
// values of one name keep their order.
func HeaderFromHTTP(src http.Header) Header {
	var h Header
	for _, name := range slices.Sorted(maps.Keys(src)) {
		for _, v := range src[name] {
			h.Add(name, v)
		}
	}
	return h
}

func sortedNames(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
