package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/actions"
	"github.com/linnemanlabs/remedy/internal/audit"
	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/oklog/ulid/v2"
)

// DefaultStepTimeout bounds each external call so a hung collaborator
// becomes a recorded step failure, never a stuck worker.
const DefaultStepTimeout = 2 * time.Minute

// EngineHooks are optional callbacks for observing engine activity.
type EngineHooks struct {
	OnStep     func(step string, duration float64, failed bool)
	OnComplete func(run *Run)
}

// Engine drives the fixed four-step pipeline for one incident. All
// capability calls go through the action registry so the meaning of
// each step is replaceable without touching the sequencing.
type Engine struct {
	registry    *actions.Registry
	audit       audit.Store
	stepTimeout time.Duration
	logger      log.Logger
	hooks       EngineHooks
}

// NewEngine creates a pipeline engine over the given registry and audit store.
func NewEngine(registry *actions.Registry, auditStore audit.Store, stepTimeout time.Duration, logger log.Logger) *Engine {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		registry:    registry,
		audit:       auditStore,
		stepTimeout: stepTimeout,
		logger:      logger,
	}
}

// SetHooks installs observation hooks. Call before the first Run.
func (e *Engine) SetHooks(h EngineHooks) { e.hooks = h }

// Run executes the pipeline for an incident. No step failure aborts the
// run: a failed step is recorded and the state machine advances, because
// a partial incident report beats silence. The returned run is always in
// StateDone and has been written to the run audit log.
func (e *Engine) Run(ctx context.Context, inc incident.Incident) *Run {
	start := time.Now()
	run := &Run{
		ID:        ulid.Make().String(),
		DAGName:   inc.DAGName,
		RunID:     inc.RunID,
		RunDate:   inc.RunDate,
		Status:    inc.Status,
		State:     StateReceived,
		CreatedAt: start,
	}

	L := e.logger.With(
		"run_id", run.ID,
		"dag", inc.DAGName,
		"run_date", inc.RunDate,
	)
	L.Info(ctx, "pipeline started")

	details := e.step(ctx, L, run, actions.NameFetchDetails, inc.DAGName)
	run.State = StateDetailsFetched

	logs := e.step(ctx, L, run, actions.NameFetchLogs, dagIDFromDetails(details, inc.DAGName))
	run.State = StateLogsFetched

	analysis := e.step(ctx, L, run, actions.NameAnalyze, analysisInput(logs, run))
	run.State = StateAnalyzed

	e.step(ctx, L, run, actions.NameNotify, notifyMessage(inc, analysis, run))
	run.State = StateNotified

	run.State = StateDone
	run.CompletedAt = time.Now()
	run.Duration = time.Since(start).Seconds()

	if err := e.audit.Append(ctx, audit.RunLog, run); err != nil {
		L.Error(ctx, err, "failed to persist run record")
	}

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(run)
	}

	L.Info(ctx, "pipeline complete",
		"duration", run.Duration,
		"degraded", run.Degraded(),
	)
	return run
}

// step dispatches one action under the per-step timeout and records the
// outcome on the run. It returns the step output, or "" on failure.
func (e *Engine) step(ctx context.Context, L log.Logger, run *Run, name, argument string) string {
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	start := time.Now()
	output, err := e.registry.Dispatch(stepCtx, name, argument)
	elapsed := time.Since(start).Seconds()

	result := StepResult{
		Step:     name,
		Duration: elapsed,
	}
	if err != nil {
		result.Error = err.Error()
		L.Error(ctx, err, "pipeline step failed", "step", name)
	} else {
		result.Succeeded = true
		result.Output = output
	}
	run.Steps = append(run.Steps, result)

	if e.hooks.OnStep != nil {
		e.hooks.OnStep(name, elapsed, err != nil)
	}
	return output
}

// dagIDFromDetails extracts dag_id from the details step output so the
// log fetch can use the canonical id. The incident's display name is the
// fallback when details are unavailable or unparsable.
func dagIDFromDetails(details, fallback string) string {
	var d struct {
		DAGID string `json:"dag_id"`
	}
	if err := json.Unmarshal([]byte(details), &d); err == nil && d.DAGID != "" {
		return d.DAGID
	}
	return fallback
}

// analysisInput picks what the analysis step sees: the fetched logs when
// the step succeeded, otherwise the failure text so the model can still
// say something useful about why logs were unavailable.
func analysisInput(logs string, run *Run) string {
	if logs != "" {
		return logs
	}
	for _, s := range run.Steps {
		if s.Step == actions.NameFetchLogs && !s.Succeeded {
			return fmt.Sprintf("Logs could not be retrieved: %s", s.Error)
		}
	}
	return "No logs were found for this run."
}

// notifyMessage composes the on-call message from whatever the pipeline
// managed to produce.
func notifyMessage(inc incident.Incident, analysis string, run *Run) string {
	if analysis == "" {
		for _, s := range run.Steps {
			if s.Step == actions.NameAnalyze && !s.Succeeded {
				analysis = fmt.Sprintf("Analysis unavailable: %s", s.Error)
			}
		}
	}
	if analysis == "" {
		analysis = "Analysis unavailable."
	}
	header := fmt.Sprintf(":rotating_light: DAG *%s* failed", inc.DAGName)
	if inc.RunDate != "" {
		header += fmt.Sprintf(" (run date %s)", inc.RunDate)
	}
	return fmt.Sprintf("%s\n\n%s", header, analysis)
}
