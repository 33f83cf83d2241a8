package audit

import (
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// EventRecord is the audit entry written for every inbound event, whether it
// was processed, ignored, or deduplicated.
type EventRecord struct {
	ID          string            `json:"id"`
	User        string            `json:"user,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Subtype     string            `json:"subtype,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	TextDetails incident.Incident `json:"text_details"`
	Disposition string            `json:"disposition"`
}
