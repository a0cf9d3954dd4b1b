package dao

import "errors"

// Storage errors shared by every workflow store implementation. Callers
// match them with errors.Is before translating into the public taxonomy.
var (
	// ErrNotFound signals that no record exists under the requested key.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID signals an empty or malformed record key.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity signals an attempt to persist a nil record.
	ErrNilEntity = errors.New("dao: nil entity")
)
