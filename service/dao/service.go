package dao

import (
	"context"
)

// Service is the generic persistence contract for workflow records.
// K is the record key type, T the record type.
type Service[K comparable, T any] interface {
	// Save stores or overwrites a record.
	Save(ctx context.Context, t *T) error

	// Load returns the record under id, or ErrNotFound.
	Load(ctx context.Context, id K) (*T, error)

	// Delete removes the record under id, or returns ErrNotFound.
	Delete(ctx context.Context, id K) error

	// List returns records matching the optional filter parameters.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
