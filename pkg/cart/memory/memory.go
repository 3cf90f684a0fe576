// Package memory implements an in-memory cart persister.
package memory

import (
	"context"
	"sync"

	"cartflow/pkg/cart"
)

// Persister keeps cart state per session in a map.
type Persister struct {
	mu    sync.RWMutex
	carts map[string]cart.State
}

// New creates an empty persister.
func New() *Persister {
	return &Persister{carts: make(map[string]cart.State)}
}

// Load returns the saved state of session, empty if none.
func (p *Persister) Load(ctx context.Context, session string) (cart.State, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.carts[session].Clone(), nil
}

// Save overwrites the state of session.
func (p *Persister) Save(ctx context.Context, session string, s cart.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carts[session] = s.Clone()
	return nil
}
