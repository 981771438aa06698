package httpclient

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type failingReader struct{ closed bool }

func (f *failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (f *failingReader) Close() error             { f.closed = true; return nil }

func TestResponse_BytesCachesAndCloses(t *testing.T) {
	closed := false
	resp := &Response{
		StatusCode: 200,
		Body: struct {
			io.Reader
			io.Closer
		}{strings.NewReader("pong"), closerFunc(func() error { closed = true; return nil })},
	}
	for i := 0; i < 2; i++ {
		data, err := resp.Bytes()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "pong" {
			t.Errorf("read %d: got %q", i, data)
		}
	}
	if !closed {
		t.Error("expected body to be closed after Bytes")
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestResponse_ReadFailureIsTransport(t *testing.T) {
	body := &failingReader{}
	resp := &Response{StatusCode: 200, Body: body}
	if _, err := resp.Bytes(); !IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
	if !body.closed {
		t.Error("expected body to be closed")
	}
}

func TestResponse_Text(t *testing.T) {
	resp := NewResponse(200, Header{}, nil, []byte("héllo"))
	if s, err := resp.Text(); err != nil || s != "héllo" {
		t.Errorf("got %q, %v", s, err)
	}
	resp = NewResponse(200, Header{}, nil, []byte{0xff, 0xfe})
	if _, err := resp.Text(); !IsCodec(err) {
		t.Errorf("expected codec error for invalid UTF-8, got %v", err)
	}
}

func TestResponse_ErrorForStatus(t *testing.T) {
	if err := NewResponse(204, Header{}, nil, nil).ErrorForStatus(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := NewResponse(503, Header{}, nil, []byte("down")).ErrorForStatus()
	if !IsStatus(err) || StatusOf(err) != 503 {
		t.Fatalf("expected status error 503, got %v", err)
	}
	var he *Error
	errors.As(err, &he)
	if string(he.Body) != "down" || !he.Retryable {
		t.Errorf("unexpected error detail: %+v", he)
	}
}

func TestResponse_StatusHelpers(t *testing.T) {
	tests := []struct {
		code             int
		success, isError bool
	}{
		{200, true, false},
		{302, false, false},
		{404, false, true},
		{500, false, true},
	}
	for _, tt := range tests {
		r := NewResponse(tt.code, NewHeader("Content-Type", "text/plain"), nil, nil)
		if r.IsSuccess() != tt.success || r.IsError() != tt.isError {
			t.Errorf("%d: success=%v error=%v", tt.code, r.IsSuccess(), r.IsError())
		}
		if r.ContentType() != "text/plain" {
			t.Errorf("content type: %q", r.ContentType())
		}
	}
}

func TestCheckStatus(t *testing.T) {
	for _, code := range []int{100, 200, 599} {
		if err := CheckStatus(code); err != nil {
			t.Errorf("%d: unexpected error %v", code, err)
		}
	}
	for _, code := range []int{0, 99, 600, 1000} {
		if err := CheckStatus(code); !IsProtocol(err) {
			t.Errorf("%d: expected protocol error, got %v", code, err)
		}
	}
}
