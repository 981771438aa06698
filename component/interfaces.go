package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Component is a part of the application with a start/stop lifecycle.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is a one-line summary of a component for startup output.
type Description struct {
	// Name is the display name. Empty means Component.Name.
	Name string
	// Type categorizes the component, e.g. "http-client".
	Type string
	// Details is a human-readable one-liner, e.g. "nethttp cookies=on".
	Details string
}

// Describable is optionally implemented by components.
type Describable interface {
	Describe() Description
}
