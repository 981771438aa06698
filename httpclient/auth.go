package httpclient

import (
	"encoding/base64"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses Bearer token authentication.
	AuthBearer
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic
	// AuthAPIKey uses API key authentication (header or query parameter).
	AuthAPIKey
	// AuthJWT mints a signed token per request and sends it as a bearer token.
	AuthJWT
	// AuthCustom uses a custom authentication function.
	AuthCustom
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Username is the basic auth username (AuthBasic).
	Username string
	// Password is the basic auth password (AuthBasic).
	Password string
	// Key is the API key value (AuthAPIKey).
	Key string
	// In specifies where to place the API key: "header" (default) or "query" (AuthAPIKey).
	In string
	// Name is the header or query parameter name (AuthAPIKey). Defaults to "X-API-Key".
	Name string
	// JWT holds the signing settings (AuthJWT).
	JWT *JWTConfig
	// Apply is a custom function to modify the request (AuthCustom).
	Apply func(*Request) error
}

// JWTConfig configures tokens minted by AuthJWT. Only HMAC signing is
// supported.
type JWTConfig struct {
	// Secret is the HMAC key.
	Secret []byte
	// Issuer is the "iss" claim (optional).
	Issuer string
	// Subject is the "sub" claim (optional).
	Subject string
	// Audience is the "aud" claim (optional).
	Audience []string
	// TTL is the token lifetime. Defaults to 5m.
	TTL time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth creates a basic auth config.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth creates an API key auth config sent via header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: "X-API-Key"}
}

// APIKeyAuthHeader creates an API key auth config with a custom header name.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header", Name: headerName}
}

// APIKeyAuthQuery creates an API key auth config sent via query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: paramName}
}

// JWTAuth creates an auth config that signs a fresh HS256 token per request.
func JWTAuth(cfg JWTConfig) *AuthConfig {
	return &AuthConfig{Type: AuthJWT, JWT: &cfg}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*Request) error) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// BasicAuthValue returns the Authorization value for HTTP Basic credentials.
func BasicAuthValue(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// apply applies authentication to req, replacing any Authorization header.
func (a *AuthConfig) apply(req *Request) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set(HeaderAuthorization, "Bearer "+a.Token)
	case AuthBasic:
		req.Header.Set(HeaderAuthorization, BasicAuthValue(a.Username, a.Password))
	case AuthAPIKey:
		name := a.Name
		if name == "" {
			name = "X-API-Key"
		}
		if a.In == "query" {
			q := req.URL.Query()
			q.Set(name, a.Key)
			req.URL.RawQuery = q.Encode()
		} else {
			req.Header.Set(name, a.Key)
		}
	case AuthJWT:
		token, err := a.JWT.sign()
		if err != nil {
			return NewMalformedRequestError("jwt auth", err)
		}
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	case AuthCustom:
		if a.Apply != nil {
			return a.Apply(req)
		}
	}
	return nil
}

func (c *JWTConfig) sign() (string, error) {
	if c == nil || len(c.Secret) == 0 {
		return "", fmt.Errorf("missing signing secret")
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	issued := now()
	claims := gojwt.RegisteredClaims{
		Issuer:    c.Issuer,
		Subject:   c.Subject,
		IssuedAt:  gojwt.NewNumericDate(issued),
		NotBefore: gojwt.NewNumericDate(issued),
		ExpiresAt: gojwt.NewNumericDate(issued.Add(ttl)),
	}
	if len(c.Audience) > 0 {
		claims.Audience = gojwt.ClaimStrings(c.Audience)
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
