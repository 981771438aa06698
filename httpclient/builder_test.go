package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fixedEncoder struct {
	data        []byte
	contentType string
	err         error
}

func (e fixedEncoder) Encode(any) ([]byte, string, error) { return e.data, e.contentType, e.err }

func TestRequestBuilder_Build(t *testing.T) {
	req, err := NewRequestBuilder("post", "http://example.test/search?lang=en").
		Header("Accept", "application/json").
		Header("Accept", "text/plain").
		Query("q", "go").
		Encode(fixedEncoder{data: []byte("q=go"), contentType: "application/x-www-form-urlencoded"}, nil).
		BearerAuth("tok").
		Timeout(2 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != MethodPost {
		t.Errorf("method: %v", req.Method)
	}
	if got := req.URL.Query(); got.Get("q") != "go" || got.Get("lang") != "en" {
		t.Errorf("query: %v", got)
	}
	if got := req.Header.Values("Accept"); !cmp.Equal(got, []string{"application/json", "text/plain"}) {
		t.Errorf("accept: %v", got)
	}
	if req.Header.Get("Content-Type") != "application/x-www-form-urlencoded" || string(req.Body) != "q=go" {
		t.Errorf("body: %q %q", req.Header.Get("Content-Type"), req.Body)
	}
	if req.Header.Get("Authorization") != "Bearer tok" || req.Timeout != 2*time.Second {
		t.Errorf("auth/timeout: %q %v", req.Header.Get("Authorization"), req.Timeout)
	}
}

func TestRequestBuilder_KeepsFirstError(t *testing.T) {
	encErr := errors.New("cannot encode channel")
	b := NewRequestBuilder("POST", "http://example.test/").
		Encode(fixedEncoder{err: encErr}, nil).
		Encode(fixedEncoder{data: []byte("later")}, nil)
	_, err := b.Build()
	if !IsCodec(err) || !errors.Is(err, encErr) {
		t.Errorf("expected codec error wrapping the cause, got %v", err)
	}
	if b.Err() != err {
		t.Error("Err should report the first error")
	}

	codecErr := NewCodecError("typed", nil)
	_, err = NewRequestBuilder("POST", "http://example.test/").Encode(fixedEncoder{err: codecErr}, nil).Build()
	if err != codecErr {
		t.Errorf("typed errors should pass through unchanged, got %v", err)
	}
}

func TestRequestBuilder_Headers(t *testing.T) {
	req, err := NewRequestBuilder("GET", "http://example.test/").
		Headers(NewHeader("X-A", "1", "X-A", "2")).
		SetHeader("X-B", "old").
		SetHeader("X-B", "new").
		Method("HEAD").
		URL("http://example.test/other").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != MethodHead || req.URL.Path != "/other" {
		t.Errorf("method/url not replaced: %v %v", req.Method, req.URL)
	}
	if got := req.Header.Values("X-A"); len(got) != 2 || req.Header.Get("X-B") != "new" {
		t.Errorf("headers: %v / %q", got, req.Header.Get("X-B"))
	}
}

func TestRequestBuilder_Unbound(t *testing.T) {
	b := NewRequestBuilder("GET", "http://example.test/")
	if _, err := b.Send(); !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
	if _, err := b.Await(context.Background()); !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
}

func TestRequestBuilder_AuthOverride(t *testing.T) {
	req, err := NewRequestBuilder("GET", "http://example.test/").Auth(APIKeyAuthQuery("k", "key")).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.Query().Get("key") != "k" {
		t.Errorf("auth not applied: %v", req.URL)
	}
}
