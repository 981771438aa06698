package setup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/anyhttp/component"
	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/provider"
)

// Component wraps a configured client with lifecycle management. The
// backend is opened in Start; Stop saves the jar and closes the backend.
type Component struct {
	name  string
	cfg   Config
	async bool
	opts  []httpclient.Option

	mu          sync.RWMutex
	syncClient  *SyncClient
	asyncClient *AsyncClient
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewSyncComponent creates a component that builds a blocking client.
func NewSyncComponent(name string, cfg Config, opts ...httpclient.Option) *Component {
	return &Component{name: name, cfg: cfg, opts: opts}
}

// NewAsyncComponent creates a component that builds a suspending client.
func NewAsyncComponent(name string, cfg Config, opts ...httpclient.Option) *Component {
	return &Component{name: name, cfg: cfg, async: true, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.name == "" {
		return "http-client"
	}
	return c.name
}

// Start builds the client. Starting twice is a no-op.
func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncClient != nil || c.asyncClient != nil {
		return nil
	}
	var err error
	if c.async {
		c.asyncClient, err = Async(c.cfg, c.opts...)
	} else {
		c.syncClient, err = Sync(c.cfg, c.opts...)
	}
	return err
}

// Stop saves the jar and closes the backend.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	switch {
	case c.syncClient != nil:
		err = c.syncClient.Close()
	case c.asyncClient != nil:
		err = c.asyncClient.Close()
	}
	c.syncClient, c.asyncClient = nil, nil
	return err
}

// Health maps the backend's health report.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	var p provider.Provider
	switch {
	case c.syncClient != nil:
		p = c.syncClient.Backend()
	case c.asyncClient != nil:
		p = c.asyncClient.Backend()
	}
	c.mu.RUnlock()

	if p == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	h := provider.HealthOf(ctx, p)
	status := component.StatusHealthy
	switch h.Status {
	case provider.StatusDegraded:
		status = component.StatusDegraded
	case provider.StatusUnavailable:
		status = component.StatusUnhealthy
	}
	return component.Health{Name: c.Name(), Status: status, Message: h.Message, Details: h.Details}
}

// Describe summarizes the configuration.
func (c *Component) Describe() component.Description {
	mode, name := "sync", c.cfg.Backend
	if c.async {
		mode = "async"
		if name == "" {
			name = DefaultAsyncBackend
		}
	} else if name == "" {
		name = DefaultSyncBackend
	}
	details := fmt.Sprintf("%s %s cookies=%t", name, mode, c.cfg.Cookies.Enabled)
	if c.cfg.BaseURL != "" {
		details += " base=" + c.cfg.BaseURL
	}
	return component.Description{Name: c.Name(), Type: "http-client", Details: details}
}

var errNotStarted = errors.New("setup: component not started")

// Client returns the blocking client. It fails before Start or for an
// async component.
func (c *Component) Client() (*SyncClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.syncClient == nil {
		return nil, errNotStarted
	}
	return c.syncClient, nil
}

// AsyncClient returns the suspending client. It fails before Start or for
// a sync component.
func (c *Component) AsyncClient() (*AsyncClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.asyncClient == nil {
		return nil, errNotStarted
	}
	return c.asyncClient, nil
}
