// Package cache keeps short-lived request state shared between service instances.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyInFlight is returned by Reserve when another request holds the key
var ErrKeyInFlight = errors.New("idempotency key is in flight")

// StoredResponse is the captured outcome of a completed request
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers the response of a request by its idempotency key.
// A key moves from free to reserved (Reserve) to completed (Complete); Release
// frees a reserved key so the client may retry.
type IdempotencyStore interface {
	// Reserve claims key. It returns the stored response if key already
	// completed, or ErrKeyInFlight if another request holds it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (*StoredResponse, error)
	// Complete stores the response for a reserved key
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	// Release drops a reservation without storing a response
	Release(ctx context.Context, key string) error
}

type record struct {
	Done     bool            `json:"done"`
	Response *StoredResponse `json:"response,omitempty"`
}
