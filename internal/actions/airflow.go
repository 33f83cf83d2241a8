package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/remedy/internal/airflow"
)

// AirflowAPI is the slice of the Airflow client these actions need.
type AirflowAPI interface {
	ListDAGs(ctx context.Context) ([]airflow.DAGSummary, error)
	DAGDetails(ctx context.Context, displayName string) (*airflow.DAGDetails, bool, error)
	LogsForDAG(ctx context.Context, dagID string) (map[string]string, error)
}

// FetchDetails resolves a DAG by display name and returns its schedule,
// active flag and run history as JSON.
type FetchDetails struct {
	API AirflowAPI
}

func (FetchDetails) Name() string { return NameFetchDetails }

func (FetchDetails) Description() string {
	return "Fetch details for a DAG: id, schedule, active flag and past runs with per-task states. The argument is the DAG display name."
}

func (a FetchDetails) Run(ctx context.Context, argument string) (string, error) {
	name := strings.TrimSpace(argument)
	details, ok, err := a.API.DAGDetails(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fetch dag details: %w", err)
	}
	if !ok {
		// Not found is a value for the pipeline, not a failure.
		return fmt.Sprintf("DAG with name %q not found.", name), nil
	}

	out, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode dag details: %w", err)
	}
	return string(out), nil
}

// FetchLogs pulls raw task logs for a DAG.
type FetchLogs struct {
	API AirflowAPI
}

func (FetchLogs) Name() string { return NameFetchLogs }

func (FetchLogs) Description() string {
	return "Fetch execution logs for a DAG, keyed by task id. The argument is the DAG id."
}

func (a FetchLogs) Run(ctx context.Context, argument string) (string, error) {
	dagID := strings.TrimSpace(argument)
	logs, err := a.API.LogsForDAG(ctx, dagID)
	if err != nil {
		return "", fmt.Errorf("fetch logs: %w", err)
	}
	if len(logs) == 0 {
		return fmt.Sprintf("No logs found for DAG %q.", dagID), nil
	}

	out, err := json.Marshal(logs)
	if err != nil {
		return "", fmt.Errorf("encode logs: %w", err)
	}
	return string(out), nil
}

// ListDAGs lists every registered DAG.
type ListDAGs struct {
	API AirflowAPI
}

func (ListDAGs) Name() string { return NameListDAGs }

func (ListDAGs) Description() string {
	return "List all DAGs with their ids and display names. The argument is ignored."
}

func (a ListDAGs) Run(ctx context.Context, _ string) (string, error) {
	dags, err := a.API.ListDAGs(ctx)
	if err != nil {
		return "", fmt.Errorf("list dags: %w", err)
	}

	out, err := json.Marshal(dags)
	if err != nil {
		return "", fmt.Errorf("encode dags: %w", err)
	}
	return string(out), nil
}
