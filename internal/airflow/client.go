// Package airflow is a thin client for the Airflow stable REST API. It
// covers exactly the read surface the remediation pipeline needs: listing
// DAGs, resolving a DAG by display name with its run history, and pulling
// task logs for the latest runs.
package airflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

const maxResponseBytes = 5 << 20 // 5 MB

// Client calls the Airflow REST API with basic auth.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
}

// New creates a client for the given Airflow base endpoint.
func New(endpoint, username, password string) *Client {
	return &Client{
		endpoint: endpoint,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// DAGSummary is one entry from the DAG listing.
type DAGSummary struct {
	DAGID       string `json:"dag_id"`
	DisplayName string `json:"dag_name"`
}

// TaskState is the per-task outcome within one run.
type TaskState struct {
	TaskID    string `json:"task_id"`
	State     string `json:"state"`
	TryNumber int    `json:"try_number"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// RunDetails is one DAG run with its task states.
type RunDetails struct {
	RunID         string      `json:"run_id"`
	ExecutionDate string      `json:"execution_date"`
	RunDate       string      `json:"run_date"`
	State         string      `json:"state"`
	Tasks         []TaskState `json:"tasks"`
}

// DAGDetails is the structured record returned for a named DAG.
type DAGDetails struct {
	DAGID       string       `json:"dag_id"`
	DisplayName string       `json:"dag_name"`
	Description string       `json:"description,omitempty"`
	Schedule    string       `json:"schedule_interval,omitempty"`
	IsActive    bool         `json:"is_active"`
	Runs        []RunDetails `json:"runs"`
}

func (c *Client) get(ctx context.Context, apiPath string, out any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, apiPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: endpoint is from trusted config; apiPath segments are url-escaped by callers
	if err != nil {
		return fmt.Errorf("airflow request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("airflow returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListDAGs returns the id and display name of every registered DAG.
func (c *Client) ListDAGs(ctx context.Context) ([]DAGSummary, error) {
	var payload struct {
		DAGs []struct {
			DAGID       string `json:"dag_id"`
			DisplayName string `json:"dag_display_name"`
		} `json:"dags"`
	}
	if err := c.get(ctx, "/api/v1/dags", &payload); err != nil {
		return nil, err
	}

	out := make([]DAGSummary, 0, len(payload.DAGs))
	for _, d := range payload.DAGs {
		out = append(out, DAGSummary{DAGID: d.DAGID, DisplayName: d.DisplayName})
	}
	return out, nil
}

// DAGDetails resolves a DAG by display name and loads its run history with
// per-task states. A DAG that does not exist returns ok=false, not an error.
func (c *Client) DAGDetails(ctx context.Context, displayName string) (*DAGDetails, bool, error) {
	var listing struct {
		DAGs []struct {
			DAGID       string `json:"dag_id"`
			DisplayName string `json:"dag_display_name"`
			Description string `json:"description"`
			Schedule    string `json:"schedule_interval"`
			IsActive    bool   `json:"is_active"`
		} `json:"dags"`
	}
	if err := c.get(ctx, "/api/v1/dags", &listing); err != nil {
		return nil, false, err
	}

	details := &DAGDetails{DisplayName: displayName}
	var found bool
	for _, d := range listing.DAGs {
		if d.DisplayName == displayName {
			details.DAGID = d.DAGID
			details.Description = d.Description
			details.Schedule = d.Schedule
			details.IsActive = d.IsActive
			found = true
			break
		}
	}
	if !found {
		return nil, false, nil
	}

	runs, err := c.dagRuns(ctx, details.DAGID)
	if err != nil {
		return nil, false, err
	}
	details.Runs = runs

	return details, true, nil
}

func (c *Client) dagRuns(ctx context.Context, dagID string) ([]RunDetails, error) {
	var payload struct {
		DAGRuns []struct {
			DAGRunID      string `json:"dag_run_id"`
			ExecutionDate string `json:"execution_date"`
			StartDate     string `json:"start_date"`
			State         string `json:"state"`
		} `json:"dag_runs"`
	}
	if err := c.get(ctx, "/api/v1/dags/"+url.PathEscape(dagID)+"/dagRuns", &payload); err != nil {
		return nil, err
	}

	runs := make([]RunDetails, 0, len(payload.DAGRuns))
	for _, r := range payload.DAGRuns {
		tasks, err := c.taskInstances(ctx, dagID, r.DAGRunID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, RunDetails{
			RunID:         r.DAGRunID,
			ExecutionDate: r.ExecutionDate,
			RunDate:       r.StartDate,
			State:         r.State,
			Tasks:         tasks,
		})
	}
	return runs, nil
}

func (c *Client) taskInstances(ctx context.Context, dagID, runID string) ([]TaskState, error) {
	var payload struct {
		TaskInstances []struct {
			TaskID    string `json:"task_id"`
			State     string `json:"state"`
			TryNumber int    `json:"try_number"`
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"task_instances"`
	}
	p := "/api/v1/dags/" + url.PathEscape(dagID) + "/dagRuns/" + url.PathEscape(runID) + "/taskInstances"
	if err := c.get(ctx, p, &payload); err != nil {
		return nil, err
	}

	tasks := make([]TaskState, 0, len(payload.TaskInstances))
	for _, ti := range payload.TaskInstances {
		try := ti.TryNumber
		if try < 1 {
			try = 1
		}
		tasks = append(tasks, TaskState{
			TaskID:    ti.TaskID,
			State:     ti.State,
			TryNumber: try,
			StartDate: ti.StartDate,
			EndDate:   ti.EndDate,
		})
	}
	return tasks, nil
}

// LogsForDAG returns raw log text keyed by task id, across the DAG's runs.
// A task whose logs cannot be fetched maps to an explanatory string; the
// orchestrator never sees per-task log errors as failures.
func (c *Client) LogsForDAG(ctx context.Context, dagID string) (map[string]string, error) {
	runs, err := c.dagRuns(ctx, dagID)
	if err != nil {
		return nil, err
	}

	logs := make(map[string]string)
	for _, run := range runs {
		for _, task := range run.Tasks {
			text, err := c.taskLog(ctx, dagID, run.RunID, task.TaskID, task.TryNumber)
			if err != nil {
				logs[task.TaskID] = fmt.Sprintf("Error fetching logs for task %s: %v", task.TaskID, err)
				continue
			}
			logs[task.TaskID] = text
		}
	}
	return logs, nil
}

func (c *Client) taskLog(ctx context.Context, dagID, runID, taskID string, try int) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, fmt.Sprintf("/api/v1/dags/%s/dagRuns/%s/taskInstances/%s/logs/%d",
		url.PathEscape(dagID), url.PathEscape(runID), url.PathEscape(taskID), try))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: endpoint is from trusted config
	if err != nil {
		return "", fmt.Errorf("fetch log: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("airflow returned %d: %s", resp.StatusCode, string(body))
	}

	// The logs endpoint serves JSON or plain text depending on Accept
	// negotiation and Airflow version.
	if resp.Header.Get("Content-Type") == "application/json" {
		var payload struct {
			Content string `json:"content"`
			Logs    string `json:"logs"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Logs != "" {
				return payload.Logs, nil
			}
			if payload.Content != "" {
				return payload.Content, nil
			}
		}
	}
	return string(body), nil
}
