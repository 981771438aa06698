package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/anyhttp/resilience"
	"github.com/kbukum/anyhttp/validation"
)

const (
	defaultTimeout = 30 * time.Second
)

// Config configures the client-side feature pipeline. Backend and cookie
// settings live in the setup package.
type Config struct {
	// BaseURL resolves relative request URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,http_url"`

	// Timeout is applied to requests that do not carry their own.
	// Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are added to requests that lack them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent is sent when the request has no User-Agent.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// RequestID sets X-Request-Id on every request.
	RequestID bool `yaml:"request_id" mapstructure:"request_id"`

	// Auth configures default authentication.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// RateLimit paces exchanges. Nil disables it.
	RateLimit *resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// CircuitBreaker fails fast after repeated transport or protocol
	// errors. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	h := c.header()
	if err := h.Validate(); err != nil {
		return fmt.Errorf("httpclient: headers: %w", err)
	}
	return nil
}

func (c *Config) header() Header {
	var h Header
	for _, name := range sortedNames(c.Headers) {
		h.Add(name, c.Headers[name])
	}
	if c.UserAgent != "" {
		h.SetDefault(HeaderUserAgent, c.UserAgent)
	}
	return h
}

// Options converts the configuration into client options.
func (c *Config) Options() []Option {
	opts := []Option{
		WithDefaultHeaders(c.header()),
		WithDefaultTimeout(c.Timeout),
	}
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.RequestID {
		opts = append(opts, WithRequestID())
	}
	if c.Auth != nil {
		opts = append(opts, WithAuth(c.Auth))
	}
	if c.RateLimit != nil {
		opts = append(opts, WithRateLimit(resilience.NewRateLimiter(*c.RateLimit)))
	}
	if c.CircuitBreaker != nil {
		opts = append(opts, WithCircuitBreaker(resilience.NewCircuitBreaker(*c.CircuitBreaker)))
	}
	return opts
}
