// Package dedup decides whether a failure occurrence has already been
// handled. The claim is a single atomic test-and-set so that concurrent
// deliveries of the same key cannot both pass the gate.
package dedup

import (
	"context"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// Store is the persistence interface for deduplication claims.
type Store interface {
	// Claim marks the key as processed and reports whether this call won the
	// claim. A key that was already claimed returns false. Partial keys
	// (missing dag name or run date) are never claimed and always return
	// true: dedup requires both fields to avoid suppressing distinct
	// failures behind a parse miss.
	Claim(ctx context.Context, key incident.Key) (bool, error)
}
