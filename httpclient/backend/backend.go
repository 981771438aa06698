// Package backend is the registry of HTTP transports. Adapter packages
// register themselves from init, so a program selects a backend by
// importing its package:
//
//	import _ "github.com/kbukum/anyhttp/httpclient/backend/blocking"
//
//	exec, err := backend.OpenSync("fasthttp", map[string]any{"timeout": "5s"})
//
// Opening a backend whose package was not imported fails with
// ErrBackendNotCompiled.
package backend

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/provider"
)

// ErrBackendNotCompiled is returned when the named backend was not
// registered, usually because its package is not imported.
var ErrBackendNotCompiled = errors.New("backend not compiled in")

// SyncBackend is a registered blocking transport.
type SyncBackend interface {
	provider.Provider
	httpclient.Executor
	Close() error
}

// AsyncBackend is a registered suspending transport.
type AsyncBackend interface {
	provider.Provider
	httpclient.AsyncExecutor
	Close() error
}

var (
	syncRegistry  = provider.NewRegistry[SyncBackend]()
	asyncRegistry = provider.NewRegistry[AsyncBackend]()
)

// RegisterSync registers a blocking backend factory.
func RegisterSync(name string, factory provider.Factory[SyncBackend]) {
	syncRegistry.RegisterFactory(name, factory)
}

// RegisterAsync registers a suspending backend factory.
func RegisterAsync(name string, factory provider.Factory[AsyncBackend]) {
	asyncRegistry.RegisterFactory(name, factory)
}

// OpenSync builds the named blocking backend.
func OpenSync(name string, opts map[string]any) (SyncBackend, error) {
	return open(syncRegistry, name, opts)
}

// OpenAsync builds the named suspending backend.
func OpenAsync(name string, opts map[string]any) (AsyncBackend, error) {
	return open(asyncRegistry, name, opts)
}

// MustOpenSync is like OpenSync but panics on error.
func MustOpenSync(name string, opts map[string]any) SyncBackend {
	b, err := OpenSync(name, opts)
	if err != nil {
		panic(err)
	}
	return b
}

// MustOpenAsync is like OpenAsync but panics on error.
func MustOpenAsync(name string, opts map[string]any) AsyncBackend {
	b, err := OpenAsync(name, opts)
	if err != nil {
		panic(err)
	}
	return b
}

// SyncBackends lists the registered blocking backends.
func SyncBackends() []string { return syncRegistry.List() }

// AsyncBackends lists the registered suspending backends.
func AsyncBackends() []string { return asyncRegistry.List() }

func open[T provider.Provider](reg *provider.Registry[T], name string, opts map[string]any) (T, error) {
	if !reg.Has(name) {
		var zero T
		return zero, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotCompiled, name, reg.List())
	}
	b, err := reg.Create(name, opts)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("backend %q: %w", name, err)
	}
	return b, nil
}

// DecodeOptions decodes loosely typed options into out, a pointer to a
// config struct with mapstructure tags. Durations may be given as strings
// such as "250ms".
func DecodeOptions(opts map[string]any, out any) error {
	if len(opts) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("decode backend options: %w", err)
	}
	return nil
}
