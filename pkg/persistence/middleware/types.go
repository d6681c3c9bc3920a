// Package middleware wraps a ports.RunStore with behavior applied to every
// archived record, such as encryption at rest or masking of sensitive
// metadata.
package middleware

import "github.com/aretw0/replan/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies mws to store. The first middleware is the outermost, so it
// sees a record first on Save and last on Load.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
