package core

import "errors"

var (
	// ErrEmbeddingFailure means the embedding provider failed; the
	// operation is aborted with no partial write.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrNoActiveSession means Submit was called before any session was
	// created or selected. Sessions are never created implicitly.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionNotFound means the referenced session id is unknown to
	// the manager.
	ErrSessionNotFound = errors.New("session not found")
)
