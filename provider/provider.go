package provider

import "context"

// Provider is implemented by every swappable backend.
type Provider interface {
	// Name returns the backend's registered name.
	Name() string
	// IsAvailable reports whether the backend can take requests.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from loosely typed options, usually decoded
// from configuration.
type Factory[T Provider] func(opts map[string]any) (T, error)
