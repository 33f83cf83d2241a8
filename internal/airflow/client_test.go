package airflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeAirflow serves a minimal slice of the Airflow REST API.
func fakeAirflow(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/dags", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "airflow" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dags": []map[string]any{
				{
					"dag_id":            "etl_v2",
					"dag_display_name":  "my_pipeline",
					"description":       "nightly etl",
					"schedule_interval": "@daily",
					"is_active":         true,
				},
				{
					"dag_id":           "other",
					"dag_display_name": "other_pipeline",
				},
			},
		})
	})

	mux.HandleFunc("/api/v1/dags/etl_v2/dagRuns", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dag_runs": []map[string]any{
				{
					"dag_run_id":     "run-1",
					"execution_date": "2024-01-01T00:00:00Z",
					"start_date":     "2024-01-01T00:00:05Z",
					"state":          "failed",
				},
			},
		})
	})

	mux.HandleFunc("/api/v1/dags/etl_v2/dagRuns/run-1/taskInstances", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"task_instances": []map[string]any{
				{"task_id": "extract", "state": "success", "try_number": 1},
				{"task_id": "load", "state": "failed", "try_number": 2},
			},
		})
	})

	mux.HandleFunc("/api/v1/dags/etl_v2/dagRuns/run-1/taskInstances/extract/logs/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("extract ok"))
	})
	mux.HandleFunc("/api/v1/dags/etl_v2/dagRuns/run-1/taskInstances/load/logs/2", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("log not found"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *Client {
	t.Helper()
	return New(fakeAirflow(t).URL, "airflow", "secret")
}

func TestListDAGs(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	dags, err := c.ListDAGs(context.Background())
	if err != nil {
		t.Fatalf("ListDAGs: %v", err)
	}
	if len(dags) != 2 {
		t.Fatalf("len(dags) = %d, want 2", len(dags))
	}
	if dags[0].DAGID != "etl_v2" || dags[0].DisplayName != "my_pipeline" {
		t.Errorf("dags[0] = %+v, want etl_v2/my_pipeline", dags[0])
	}
}

func TestDAGDetails_Found(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	details, ok, err := c.DAGDetails(context.Background(), "my_pipeline")
	if err != nil {
		t.Fatalf("DAGDetails: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}

	if details.DAGID != "etl_v2" {
		t.Errorf("DAGID = %q, want %q", details.DAGID, "etl_v2")
	}
	if details.Schedule != "@daily" {
		t.Errorf("Schedule = %q, want %q", details.Schedule, "@daily")
	}
	if !details.IsActive {
		t.Error("IsActive = false, want true")
	}
	if len(details.Runs) != 1 {
		t.Fatalf("len(Runs) = %d, want 1", len(details.Runs))
	}

	run := details.Runs[0]
	if run.State != "failed" {
		t.Errorf("run.State = %q, want %q", run.State, "failed")
	}
	if len(run.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(run.Tasks))
	}
	if run.Tasks[1].State != "failed" || run.Tasks[1].TryNumber != 2 {
		t.Errorf("Tasks[1] = %+v, want failed/try 2", run.Tasks[1])
	}
}

func TestDAGDetails_NotFoundIsNotAnError(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	_, ok, err := c.DAGDetails(context.Background(), "no_such_dag")
	if err != nil {
		t.Fatalf("DAGDetails: %v", err)
	}
	if ok {
		t.Error("ok = true for unknown DAG, want false")
	}
}

func TestLogsForDAG(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	logs, err := c.LogsForDAG(context.Background(), "etl_v2")
	if err != nil {
		t.Fatalf("LogsForDAG: %v", err)
	}

	if got := logs["extract"]; got != "extract ok" {
		t.Errorf(`logs["extract"] = %q, want %q`, got, "extract ok")
	}

	// The failed log fetch is represented as an explanatory string,
	// never surfaced as an error.
	if got := logs["load"]; !strings.Contains(got, "Error fetching logs for task load") {
		t.Errorf(`logs["load"] = %q, want explanatory error string`, got)
	}
}

func TestListDAGs_BadCredentials(t *testing.T) {
	t.Parallel()

	c := New(fakeAirflow(t).URL, "airflow", "wrong")
	_, err := c.ListDAGs(context.Background())
	if err == nil {
		t.Fatal("expected error for bad credentials")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want mention of 401", err)
	}
}
