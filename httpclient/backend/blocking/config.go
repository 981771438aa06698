package blocking

import (
	"time"

	"github.com/kbukum/anyhttp/security"
	"github.com/kbukum/anyhttp/validation"
	"github.com/kbukum/anyhttp/version"
)

// Name is the registered backend name.
const Name = "fasthttp"

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxConnsPerHost = 512
	defaultProduct         = "anyhttp-fasthttp"
)

// Config configures the blocking adapter.
type Config struct {
	// Name overrides the provider name reported by the adapter.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds an exchange whose Request carries no timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxConnsPerHost caps open connections per host.
	MaxConnsPerHost int `yaml:"max_conns_per_host" mapstructure:"max_conns_per_host" validate:"gte=0"`

	// MaxResponseBodySize rejects larger bodies. Zero means unlimited.
	MaxResponseBodySize int `yaml:"max_response_body_size" mapstructure:"max_response_body_size" validate:"gte=0"`

	// UserAgent is sent when the request has none.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// DisableCompression turns off transparent gzip.
	DisableCompression bool `yaml:"disable_compression" mapstructure:"disable_compression"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = Name
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = defaultMaxConnsPerHost
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent(defaultProduct)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}
