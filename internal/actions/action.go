// Package actions maps symbolic action names to capability handlers. The
// workflow orchestrator drives its fixed pipeline through this registry, and
// the query agent dispatches free-form directives through the same table, so
// what "fetch logs" or "analyze" means is replaceable without touching
// either caller.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Well-known action names. The set is open: registering a new Action under a
// new name is all it takes to extend it.
const (
	NameFetchDetails = "fetch_details"
	NameFetchLogs    = "fetch_logs"
	NameListDAGs     = "list_dags"
	NameAnalyze      = "analyze"
	NameNotify       = "notify"
	NameAnswer       = "answer"
)

// Action is a capability invocable by name. The argument contract is
// self-describing per action (a dag name, raw log text, a message); the
// dispatcher performs no interpretation or validation of argument shape.
type Action interface {
	Name() string
	Description() string
	Run(ctx context.Context, argument string) (string, error)
}

// Registry holds the available actions. The table itself is immutable after
// setup; handlers may hold their own external-client state.
type Registry struct {
	actions map[string]Action
}

// NewRegistry creates a registry pre-seeded with the answer action, which
// is the required fallback for unrecognized names.
func NewRegistry() *Registry {
	r := &Registry{actions: make(map[string]Action)}
	r.Register(Answer{})
	return r
}

// Register adds an action, keyed by its Name.
func (r *Registry) Register(a Action) {
	r.actions[a.Name()] = a
}

// Get retrieves an action by name.
func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Dispatch runs the named action with the given argument. An unregistered
// name falls back to the answer action with the original argument: a
// malformed directive degrades to a pass-through response instead of
// failing the workflow.
func (r *Registry) Dispatch(ctx context.Context, name, argument string) (string, error) {
	a, ok := r.Get(name)
	if !ok {
		a, _ = r.Get(NameAnswer)
	}
	out, err := a.Run(ctx, argument)
	if err != nil {
		return "", fmt.Errorf("action %s: %w", a.Name(), err)
	}
	return out, nil
}

// Describe renders a numbered list of registered actions for the agent's
// instruction prompt, in stable name order.
func (r *Registry) Describe() string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, name, r.actions[name].Description())
	}
	return sb.String()
}
