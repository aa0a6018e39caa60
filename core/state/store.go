package state

import (
	"context"
	"errors"
)

// ErrSourceDown marks a store-level outage. Readers abort the cycle on it
// instead of coercing values to zero.
var ErrSourceDown = errors.New("state source unavailable")

// Value is the raw reading of one entity in the external state store.
// Unavailable is set both for the store's explicit sentinels and for
// lookup misses; the reader treats the two identically.
type Value struct {
	State       string
	Attributes  map[string]any
	Unavailable bool
}

// Store abstracts the external key-value state store. Get returns an error
// only for a store-level outage; a missing or unavailable entity is
// reported through Value.Unavailable so a single dead sensor never aborts
// a cycle.
type Store interface {
	Get(ctx context.Context, entityID string) (Value, error)
}
