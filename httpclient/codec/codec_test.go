package codec

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/anyhttp/httpclient"
)

type item struct {
	ID     int               `json:"id" form:"id"`
	Name   string            `json:"name" form:"name"`
	Tags   []string          `json:"tags,omitempty" form:"tags"`
	Attrs  map[string]string `json:"attrs,omitempty" form:"-"`
	Active bool              `json:"active" form:"active"`
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		in    any
		out   func() any
	}{
		{"json struct", JSON, item{ID: 7, Name: "żółw", Tags: []string{"a", "b"}, Attrs: map[string]string{"k": "v"}, Active: true}, func() any { return &item{} }},
		{"json map", JSON, map[string]any{"n": 1.5, "s": "x", "l": []any{true, nil}}, func() any { return &map[string]any{} }},
		{"form struct", Form, item{ID: 3, Name: "a b&c=d", Tags: []string{"x", "y"}, Active: true}, func() any { return &item{} }},
		{"form values", Form, url.Values{"q": {"1", "2"}, "empty": {""}}, func() any { return &url.Values{} }},
		{"form map", Form, map[string]string{"k": "v w", "ü": "ß"}, func() any { return &map[string]string{} }},
		{"text", Text, "hello, wörld\n", func() any { return new(string) }},
		{"base64 bytes", Base64, []byte{0, 1, 2, 0xfe, 0xff}, func() any { return new([]byte) }},
		{"base64 empty", Base64, []byte{}, func() any { return new([]byte) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ct, err := tt.codec.Encode(tt.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if ct != tt.codec.ContentType() {
				t.Errorf("content type %q, want %q", ct, tt.codec.ContentType())
			}
			out := tt.out()
			if err := tt.codec.Decode(data, ct, out); err != nil {
				t.Fatalf("decode %q: %v", data, err)
			}
			got := derefAny(out)
			if diff := cmp.Diff(tt.in, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func derefAny(v any) any {
	switch p := v.(type) {
	case *item:
		return *p
	case *map[string]any:
		return *p
	case *url.Values:
		return *p
	case *map[string]string:
		return *p
	case *string:
		return *p
	case *[]byte:
		return *p
	}
	return v
}

func TestJSON_DecodeNonJSON(t *testing.T) {
	resp := httpclient.NewResponse(200, httpclient.NewHeader("Content-Type", "text/plain"), nil, []byte("pong"))
	var v map[string]any
	err := Decode(resp, JSON, &v)
	if !httpclient.IsCodec(err) {
		t.Errorf("expected codec error, got %v", err)
	}
}

func TestJSON_EmptyBody(t *testing.T) {
	var v map[string]any
	if err := JSON.Decode([]byte("  "), MediaJSON, &v); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error, got %v", err)
	}
}

func TestJSON_EncodeUnsupported(t *testing.T) {
	if _, _, err := JSON.Encode(make(chan int)); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error, got %v", err)
	}
}

func TestStrict(t *testing.T) {
	strictJSON := Strict(JSON)
	var v map[string]int
	if err := strictJSON.Decode([]byte(`{"a":1}`), "application/json; charset=utf-8", &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v["a"] != 1 {
		t.Errorf("decoded %v", v)
	}
	if err := strictJSON.Decode([]byte(`{"a":1}`), "text/html", &v); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error on media type mismatch, got %v", err)
	}
	if err := strictJSON.Decode([]byte(`{"a":1}`), "", &v); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error on missing media type, got %v", err)
	}
	if data, ct, err := strictJSON.Encode(map[string]int{"a": 1}); err != nil || ct != MediaJSON || string(data) != `{"a":1}` {
		t.Errorf("encode through strict: %q %q %v", data, ct, err)
	}
}

func TestSameMediaType(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"application/json", "Application/JSON; charset=utf-8", true},
		{"text/plain; charset=utf-8", "text/plain", true},
		{"application/json", "application/problem+json", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := SameMediaType(tt.a, tt.b); got != tt.want {
			t.Errorf("SameMediaType(%q, %q) = %v", tt.a, tt.b, got)
		}
	}
}

func TestText_Errors(t *testing.T) {
	if _, _, err := Text.Encode(42); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error for int, got %v", err)
	}
	if _, _, err := Text.Encode([]byte{0xff}); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error for invalid UTF-8, got %v", err)
	}
	var n int
	if err := Text.Decode([]byte("x"), "", &n); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error for *int target, got %v", err)
	}
}

func TestBase64Helpers(t *testing.T) {
	if got := EncodeBase64([]byte("user:pass")); got != "dXNlcjpwYXNz" {
		t.Errorf("got %q", got)
	}
	raw, err := DecodeBase64(" dXNl\ncjpw\r\nYXNz ")
	if err != nil || string(raw) != "user:pass" {
		t.Errorf("got %q, %v", raw, err)
	}
	if _, err := DecodeBase64("not base64!"); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error, got %v", err)
	}
	var s string
	if err := Base64.Decode([]byte("aGk="), "", &s); err != nil || s != "hi" {
		t.Errorf("decode into string: %q %v", s, err)
	}
}

func TestForm_Errors(t *testing.T) {
	var v item
	if err := Form.Decode([]byte("%zz"), MediaForm, &v); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error, got %v", err)
	}
	if err := Form.Decode([]byte("id=notanumber"), MediaForm, &v); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error for bad int, got %v", err)
	}
}

func TestEncodeDecodeHelpers(t *testing.T) {
	req, _ := httpclient.NewRequest("POST", "http://example.test/")
	if err := Encode(req, JSON, item{ID: 1, Name: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Header.Get("Content-Type") != MediaJSON {
		t.Errorf("content type: %q", req.Header.Get("Content-Type"))
	}

	resp := httpclient.NewResponse(200, req.Header.Clone(), nil, req.Body)
	got, err := DecodeAs[item](resp, Strict(JSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(item{ID: 1, Name: "a"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if err := Encode(req, Text, 3.5); !httpclient.IsCodec(err) {
		t.Errorf("expected codec error, got %v", err)
	}
}

func TestBuilderIntegration(t *testing.T) {
	req, err := httpclient.NewRequestBuilder("POST", "http://example.test/form").
		Encode(Form, map[string]string{"a": "1"}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(req.Body) != "a=1" || req.Header.Get("Content-Type") != MediaForm {
		t.Errorf("unexpected body %q / %q", req.Body, req.Header.Get("Content-Type"))
	}
}
