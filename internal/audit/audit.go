// Package audit keeps append-only records of every inbound event and every
// workflow outcome, in two independent newest-first logs.
package audit

import (
	"context"
	"encoding/json"
)

// Log names. Each name is an independent ordered sequence.
const (
	EventLog = "events"
	RunLog   = "runs"
)

// Store is the persistence interface for audit records. Entries are never
// mutated or removed.
type Store interface {
	// Append prepends record to the named log (newest-first ordering).
	Append(ctx context.Context, logName string, record any) error

	// List returns the full ordered sequence for the named log, newest
	// first. A log that does not exist yet is an empty sequence.
	List(ctx context.Context, logName string) ([]json.RawMessage, error)
}
