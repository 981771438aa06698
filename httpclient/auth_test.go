package httpclient

import (
	"errors"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func newTestRequest(t *testing.T, method, rawURL string) *Request {
	t.Helper()
	req, err := NewRequest(method, rawURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

func TestBearerAuth(t *testing.T) {
	req := newTestRequest(t, "GET", "http://example.com")
	if err := BearerAuth("my-token").apply(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer my-token" {
		t.Errorf("got %q, want %q", got, "Bearer my-token")
	}
}

func TestBasicAuth(t *testing.T) {
	req := newTestRequest(t, "GET", "http://example.com")
	_ = BasicAuth("user", "pass").apply(req)
	// base64("user:pass")
	if got := req.Header.Get("Authorization"); got != "Basic dXNlcjpwYXNz" {
		t.Errorf("got %q", got)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	req := newTestRequest(t, "GET", "http://example.com/x?a=1")
	_ = APIKeyAuth("secret").apply(req)
	if got := req.Header.Get("X-API-Key"); got != "secret" {
		t.Errorf("got %q", got)
	}

	req = newTestRequest(t, "GET", "http://example.com/x?a=1")
	_ = APIKeyAuthHeader("secret", "X-Custom").apply(req)
	if got := req.Header.Get("X-Custom"); got != "secret" {
		t.Errorf("got %q", got)
	}

	req = newTestRequest(t, "GET", "http://example.com/x?a=1")
	_ = APIKeyAuthQuery("secret", "api_key").apply(req)
	if got := req.URL.Query().Get("api_key"); got != "secret" {
		t.Errorf("got %q", got)
	}
	if got := req.URL.Query().Get("a"); got != "1" {
		t.Errorf("existing query lost, got %q", got)
	}
}

func TestJWTAuth(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	auth := JWTAuth(JWTConfig{
		Secret:   secret,
		Issuer:   "anyhttp",
		Subject:  "svc-a",
		Audience: []string{"api"},
		TTL:      time.Minute,
		Now:      func() time.Time { return now },
	})

	req := newTestRequest(t, "GET", "http://example.com")
	if err := auth.apply(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok {
		t.Fatalf("expected bearer token, got %q", req.Header.Get("Authorization"))
	}

	claims := &gojwt.RegisteredClaims{}
	_, err := gojwt.ParseWithClaims(raw, claims, func(*gojwt.Token) (interface{}, error) {
		return secret, nil
	}, gojwt.WithValidMethods([]string{"HS256"}), gojwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Issuer != "anyhttp" || claims.Subject != "svc-a" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(time.Minute)) {
		t.Errorf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestJWTAuth_MissingSecret(t *testing.T) {
	req := newTestRequest(t, "GET", "http://example.com")
	err := JWTAuth(JWTConfig{}).apply(req)
	if !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
}

func TestCustomAuth(t *testing.T) {
	req := newTestRequest(t, "GET", "http://example.com")
	_ = CustomAuth(func(r *Request) error {
		r.Header.Set("X-Signed", "yes")
		return nil
	}).apply(req)
	if req.Header.Get("X-Signed") != "yes" {
		t.Error("custom auth not applied")
	}

	boom := errors.New("boom")
	if err := CustomAuth(func(*Request) error { return boom }).apply(req); !errors.Is(err, boom) {
		t.Errorf("expected custom error, got %v", err)
	}
}

func TestNilAuth(t *testing.T) {
	req := newTestRequest(t, "GET", "http://example.com")
	var a *AuthConfig
	if err := a.apply(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Header.Has("Authorization") {
		t.Error("nil auth must not set Authorization")
	}
}
