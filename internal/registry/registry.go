// Package registry lets workers discover the coordinator's live address.
// The default backend is a plain file on a shared filesystem; an optional
// Redis-backed backend serves the same role as the "external name service"
// spec.md describes for deployments without a shared filesystem between
// coordinator and workers.
package registry

import "context"

// Registry registers, looks up, and removes a single coordinator address,
// keyed by pipeline name.
type Registry interface {
	// Register advertises addr as the live coordinator for name.
	Register(ctx context.Context, name, addr string) error
	// Lookup returns the address last registered for name. ok is false if
	// nothing is currently registered.
	Lookup(ctx context.Context, name string) (addr string, ok bool, err error)
	// Unregister removes name's registration, if any.
	Unregister(ctx context.Context, name string) error
}
