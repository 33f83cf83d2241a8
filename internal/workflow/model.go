package workflow

import (
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// State tracks where a run is in the fixed remediation pipeline.
type State string

const (
	// StateReceived means the incident was pulled off the queue.
	StateReceived State = "received"

	// StateDetailsFetched means the DAG details step has run.
	StateDetailsFetched State = "details_fetched"

	// StateLogsFetched means the log retrieval step has run.
	StateLogsFetched State = "logs_fetched"

	// StateAnalyzed means the analysis step has run.
	StateAnalyzed State = "analyzed"

	// StateNotified means the notification step has run.
	StateNotified State = "notified"

	// StateDone is the terminal state, reached on every path.
	StateDone State = "done"
)

// StepResult records one pipeline step. A failed step carries the error
// text instead of output; the run keeps going either way.
type StepResult struct {
	Step      string  `json:"step"`
	Succeeded bool    `json:"succeeded"`
	Output    string  `json:"output,omitempty"`
	Error     string  `json:"error,omitempty"`
	Duration  float64 `json:"duration_seconds"`
}

// Run is the outcome of one pipeline execution for an incident.
type Run struct {
	ID          string          `json:"id"`
	DAGName     string          `json:"dag_name"`
	RunID       string          `json:"run_id,omitempty"`
	RunDate     string          `json:"run_date,omitempty"`
	Status      incident.Status `json:"status"`
	State       State           `json:"state"`
	Steps       []StepResult    `json:"steps"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Duration    float64         `json:"duration_seconds"`
}

// Degraded reports whether any step failed.
func (r *Run) Degraded() bool {
	for _, s := range r.Steps {
		if !s.Succeeded {
			return true
		}
	}
	return false
}
