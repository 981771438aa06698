package setup

import (
	"fmt"
	"maps"
	"time"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/cookiejar"
	"github.com/kbukum/anyhttp/resilience"
	"github.com/kbukum/anyhttp/security"
	"github.com/kbukum/anyhttp/validation"
)

// Default backend names, used when Config.Backend is empty.
const (
	DefaultSyncBackend  = "fasthttp"
	DefaultAsyncBackend = "nethttp"
)

// Config selects a backend and the features wired around it.
type Config struct {
	httpclient.Config `yaml:",inline" mapstructure:",squash"`

	// Backend names a registered backend. Empty picks DefaultSyncBackend or
	// DefaultAsyncBackend.
	Backend string `yaml:"backend" mapstructure:"backend"`

	Cookies CookieConfig `yaml:"cookies" mapstructure:"cookies"`

	// Retry configures the suspending backend's connect retries. The
	// blocking backend never retries.
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Tracing attaches an OpenTelemetry observer using the global providers.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`

	// Options are passed to the backend factory as is and take precedence
	// over the settings above.
	Options map[string]any `yaml:"options" mapstructure:"options"`
}

// CookieConfig enables and configures the cookie jar.
type CookieConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Policy is "simple" (default) or "public_suffix".
	Policy string `yaml:"policy" mapstructure:"policy"`
	// PersistPath loads the jar on start and saves it on close when set.
	PersistPath string `yaml:"persist_path" mapstructure:"persist_path"`
	// EncryptionKey seals the persisted jar when set.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key"`
	// EncryptionAlgorithm is "chacha20-poly1305" (default) or "aes-256-gcm".
	EncryptionAlgorithm string `yaml:"encryption_algorithm" mapstructure:"encryption_algorithm" validate:"omitempty,oneof=chacha20-poly1305 aes-256-gcm"`
}

// RetryConfig bounds backend-level retries of connection failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Retry); err != nil {
		return fmt.Errorf("setup: retry: %w", err)
	}
	if err := validation.Validate(&c.Cookies); err != nil {
		return fmt.Errorf("setup: cookies: %w", err)
	}
	if _, ok := cookiejar.ParsePolicy(c.Cookies.Policy); !ok {
		return fmt.Errorf("setup: unknown cookie policy %q", c.Cookies.Policy)
	}
	if c.Cookies.EncryptionKey != "" && c.Cookies.PersistPath == "" {
		return fmt.Errorf("setup: cookies.encryption_key needs cookies.persist_path")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("setup: tls: %w", err)
	}
	return nil
}

// backendOptions merges the shared settings into the options of the
// backends that understand them. Explicit Options win.
func (c *Config) backendOptions(name string) map[string]any {
	opts := maps.Clone(c.Options)
	if opts == nil {
		opts = make(map[string]any)
	}
	set := func(key string, v any) {
		if _, ok := opts[key]; !ok {
			opts[key] = v
		}
	}

	switch name {
	case "fasthttp":
		if c.TLS != nil {
			set("tls", c.TLS)
		}
	case "nethttp":
		if c.TLS != nil {
			set("tls", c.TLS)
		}
		if c.Retry.MaxAttempts > 0 {
			set("retry", resilience.RetryConfig{
				MaxAttempts:    c.Retry.MaxAttempts,
				InitialBackoff: c.Retry.InitialBackoff,
				MaxBackoff:     c.Retry.MaxBackoff,
			})
		}
	}
	return opts
}
