// Package timeout holds the deadlines applied to provider calls.
package timeout

import "time"

const (
	// ChatTimeout bounds a single chat completion.
	ChatTimeout = 60 * time.Second

	// EmbeddingTimeout bounds a single embedding request.
	EmbeddingTimeout = 30 * time.Second
)
