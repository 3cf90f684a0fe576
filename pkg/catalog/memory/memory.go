// Package memory implements an in-memory product catalog.
package memory

import (
	"context"
	"sync"

	"cartflow/pkg/catalog"
)

// Repository provides an in-memory implementation of catalog.Repository.
type Repository struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

// New creates a catalog seeded with the given products.
func New(products ...catalog.Product) *Repository {
	r := &Repository{products: make(map[string]catalog.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Lookup returns the known products among ids.
func (r *Repository) Lookup(ctx context.Context, ids []string) ([]catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range catalog.Distinct(ids) {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
