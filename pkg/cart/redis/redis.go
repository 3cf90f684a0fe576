// Package redis persists carts in Redis, one key per session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cartflow/pkg/cart"
)

const keyPrefix = "cart:"

// Persister stores each cart as a JSON array under cart:<session>. The TTL
// is refreshed on every write; zero keeps keys forever.
type Persister struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis persister.
func New(client *redis.Client, ttl time.Duration) *Persister {
	return &Persister{client: client, ttl: ttl}
}

// Load reads the cart of session.
func (p *Persister) Load(ctx context.Context, session string) (cart.State, error) {
	raw, err := p.client.Get(ctx, keyPrefix+session).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.State{}, nil
	}
	if err != nil {
		return nil, err
	}
	var s cart.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save overwrites the cart of session.
func (p *Persister) Save(ctx context.Context, session string, s cart.State) error {
	if s == nil {
		s = cart.State{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, keyPrefix+session, raw, p.ttl).Err()
}
