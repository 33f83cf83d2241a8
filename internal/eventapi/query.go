package eventapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linnemanlabs/remedy/internal/audit"
)

func (a *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
		return
	}
	if a.agent == nil {
		http.Error(w, `{"error":"query agent is not configured"}`, http.StatusServiceUnavailable)
		return
	}

	response, err := a.agent.Query(r.Context(), req.Query)
	if err != nil {
		a.logger.Error(r.Context(), err, "query failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	a.listLog(w, r, audit.EventLog)
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	a.listLog(w, r, audit.RunLog)
}

// listLog streams one audit log as a JSON array, newest first.
func (a *API) listLog(w http.ResponseWriter, r *http.Request, logName string) {
	if a.audit == nil {
		http.Error(w, `{"error":"audit store is not configured"}`, http.StatusServiceUnavailable)
		return
	}

	records, err := a.audit.List(r.Context(), logName)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to read audit log", "log", logName)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []json.RawMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}
