// Package provider holds the small plumbing shared by swappable backends:
// the Provider identity interface, a generic factory Registry, optional
// health and lifecycle interfaces.
//
//	reg := provider.NewRegistry[MyBackend]()
//	reg.RegisterFactory("fast", newFast)
//	b, err := reg.Create("fast", map[string]any{"timeout": "5s"})
package provider
