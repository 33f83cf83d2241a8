// Package incident defines the domain models for the remediation pipeline:
// the raw inbound event, the structured incident extracted from it, and the
// deduplication key that identifies a logical failure occurrence.
package incident

import "time"

// Status classifies what the notification text says happened to the run.
type Status string

const (
	// StatusFailed means the text reported a failed run.
	StatusFailed Status = "failed"

	// StatusSucceeded means the text reported a successful run.
	StatusSucceeded Status = "succeeded"

	// StatusUnknown means no failure/success keyword was found.
	StatusUnknown Status = "unknown"
)

// Event is the raw inbound unit constructed after signature verification.
// Immutable once received; ownership transfers to the queue and then to the
// workflow worker.
type Event struct {
	ID         string    `json:"id"`
	User       string    `json:"user,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	Subtype    string    `json:"subtype,omitempty"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
	RetryCount int       `json:"retry_count,omitempty"`
}

// Incident is the structured form of a failure notification. Missing fields
// and StatusUnknown are valid outcomes of extraction, not errors.
type Incident struct {
	DAGName string `json:"dag_name,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	RunDate string `json:"run_date,omitempty"`
	Status  Status `json:"status"`

	// RawText keeps the original message for audit.
	RawText string `json:"full_text"`
}

// Key is the deduplication key for an incident.
func (in *Incident) Key() Key {
	return Key{DAGName: in.DAGName, RunDate: in.RunDate}
}

// Key identifies a logical occurrence: two incidents with equal keys are the
// same failure regardless of how many times the webhook delivered it.
type Key struct {
	DAGName string
	RunDate string
}

// Complete reports whether both fields are present. Partial keys are never
// deduplicated to avoid false-positive suppression from parse misses.
func (k Key) Complete() bool {
	return k.DAGName != "" && k.RunDate != ""
}

// String renders the key in a stable storable form.
func (k Key) String() string {
	return k.DAGName + "|" + k.RunDate
}
