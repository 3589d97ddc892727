package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KeyValueStore is the persistence capability the client needs: deployment
// addresses and pending redemption anchors. Implementations must be safe
// for concurrent use.
type KeyValueStore interface {
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// BatchSetter is implemented by stores that can write several keys in one
// atomic round trip.
type BatchSetter interface {
	SetBatch(ctx context.Context, entries map[string][]byte) error
}
