// Package cart holds a shopper's cart and prices it against the catalog.
//
// A cart is a sequence of product identifiers; every occurrence of an id is
// one unit of that product.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is the ordered list of product identifiers in a cart.
type State []string

// Clone returns an independent copy of s. The copy of an empty state is
// empty, never nil.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Count returns the number of occurrences of id.
func (s State) Count(id string) int {
	n := 0
	for _, v := range s {
		if v == id {
			n++
		}
	}
	return n
}

// Persister loads and saves cart state keyed by session. Load returns an
// empty state when nothing was saved for the session. Writes overwrite.
type Persister interface {
	Load(ctx context.Context, session string) (State, error)
	Save(ctx context.Context, session string, s State) error
}

// ErrPersist indicates the cart state could not be read or written.
var ErrPersist = errors.New("cart persistence failed")

// Store is the cart of one session. Every mutation is written through to
// the Persister; concurrent writers to the same session are last-write-wins.
type Store struct {
	mu        sync.Mutex
	session   string
	ids       State
	persister Persister
}

// Open restores the cart of session from p.
func Open(ctx context.Context, p Persister, session string) (*Store, error) {
	ids, err := p.Load(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersist, session, err)
	}
	return &Store{session: session, ids: ids.Clone(), persister: p}, nil
}

// Session returns the key the cart is persisted under.
func (s *Store) Session() string {
	return s.session
}

// Add appends one unit of id.
func (s *Store) Add(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return s.save(ctx)
}

// Remove drops the first occurrence of id. Removing an id that is not in
// the cart changes nothing and writes nothing.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return s.save(ctx)
		}
	}
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = State{}
	return s.save(ctx)
}

// Snapshot returns a copy of the current identifiers.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Clone()
}

// save must be called with s.mu held. The in-memory state is kept even when
// the write fails.
func (s *Store) save(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.session, s.ids.Clone()); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersist, s.session, err)
	}
	return nil
}
