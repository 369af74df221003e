// Package store persists whole collections as opaque snapshots keyed by name.
package store

import (
	"context"
	"errors"
)

// DefaultPrefix namespaces collection keys.
const DefaultPrefix = "tcs_"

// ErrKeyRequired is returned when a load or save is attempted without a key.
var ErrKeyRequired = errors.New("store: key required")

// Store loads and saves a serialized collection under a logical key.
// Load reports found=false, with no error, for a key that was never saved.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Prefixed applies prefix to every key before delegating to next.
func Prefixed(next Store, prefix string) Store {
	if prefix == "" {
		return next
	}
	return &prefixed{next: next, prefix: prefix}
}

type prefixed struct {
	next   Store
	prefix string
}

func (p *prefixed) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrKeyRequired
	}
	return p.next.Load(ctx, p.prefix+key)
}

func (p *prefixed) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyRequired
	}
	return p.next.Save(ctx, p.prefix+key, data)
}
