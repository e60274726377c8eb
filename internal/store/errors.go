package store

import "errors"

var (
	// ErrStoreUnavailable means the backing database could not be reached
	// or a statement against it failed. Not retried; the caller sees a
	// failed operation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDimensionMismatch means a vector's length does not match the
	// configured embedding dimension. This is a configuration error
	// between the embedder and the stored vector width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRecordNotFound means an update referenced a history row that
	// does not exist.
	ErrRecordNotFound = errors.New("history record not found")
)
