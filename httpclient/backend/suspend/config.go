package suspend

import (
	"time"

	"github.com/kbukum/anyhttp/resilience"
	"github.com/kbukum/anyhttp/security"
	"github.com/kbukum/anyhttp/validation"
	"github.com/kbukum/anyhttp/version"
)

// Name is the registered backend name.
const Name = "nethttp"

const (
	defaultTimeout             = 30 * time.Second
	defaultMaxInFlight         = 64
	defaultMaxIdleConnsPerHost = 16
	defaultMaxRedirects        = 10
	defaultProduct             = "anyhttp-nethttp"
)

// Config configures the suspending adapter.
type Config struct {
	// Name overrides the provider name reported by the adapter.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds the wait for response headers.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxInFlight caps exchanges holding a connection slot. A slot is held
	// until the response body is closed or fully read.
	MaxInFlight int `yaml:"max_in_flight" mapstructure:"max_in_flight" validate:"gte=0"`

	// SlotWait bounds the wait for a free slot. Zero waits as long as the
	// call's context allows.
	SlotWait time.Duration `yaml:"slot_wait" mapstructure:"slot_wait"`

	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`

	// FollowRedirects defaults to true.
	FollowRedirects *bool `yaml:"follow_redirects" mapstructure:"follow_redirects"`
	MaxRedirects    int   `yaml:"max_redirects" mapstructure:"max_redirects" validate:"gte=0"`

	// UserAgent is sent when the request has none.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	DisableCompression bool `yaml:"disable_compression" mapstructure:"disable_compression"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Retry applies to safe methods that failed before a connection was
	// obtained. MaxAttempts counts the first try.
	Retry resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// DefaultRetry is one retry after 100ms with 10% jitter.
func DefaultRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
		Jitter:         0.1,
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = Name
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxInFlight == 0 {
		c.MaxInFlight = defaultMaxInFlight
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if c.FollowRedirects == nil {
		follow := true
		c.FollowRedirects = &follow
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent(defaultProduct)
	}
	if c.Retry.MaxAttempts == 0 {
		def := DefaultRetry()
		def.RetryIf, def.OnRetry = c.Retry.RetryIf, c.Retry.OnRetry
		if c.Retry.InitialBackoff > 0 {
			def.InitialBackoff = c.Retry.InitialBackoff
		}
		if c.Retry.MaxBackoff > 0 {
			def.MaxBackoff = c.Retry.MaxBackoff
		}
		c.Retry = def
	}
	c.Retry.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}
