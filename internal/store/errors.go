package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Backend when the key holds no value.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps read and write failures of the underlying backend.
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrCorrupt wraps values that cannot be decrypted or decoded.
	ErrCorrupt = errors.New("store: corrupt data")
)

// Backend is a key/value blob store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Kind maps store errors to a stable logging label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCorrupt):
		return "corrupt"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}
	return "unexpected"
}
