// Package agent is the free-form decision path: a user query goes to the
// LLM, which replies with a JSON directive naming an action and argument,
// and the directive is dispatched through the action registry.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/actions"
	"github.com/linnemanlabs/remedy/internal/llm"
)

// Directive is the JSON contract the model is instructed to emit.
type Directive struct {
	Action   string `json:"action"`
	Argument string `json:"argument"`
}

// Agent turns queries into dispatched actions.
type Agent struct {
	provider llm.Provider
	registry *actions.Registry
	logger   log.Logger
}

// New creates an agent over the given provider and action registry.
func New(provider llm.Provider, registry *actions.Registry, logger log.Logger) *Agent {
	if logger == nil {
		logger = log.Nop()
	}
	return &Agent{
		provider: provider,
		registry: registry,
		logger:   logger,
	}
}

func (a *Agent) instruction() string {
	return fmt.Sprintf(`You are an intelligent agent with access to the following tools:

%s
When a tool is needed, output JSON: {"action": "<tool name>", "argument": "<tool argument>"}
To answer directly, output JSON: {"action": "answer", "argument": "<your answer>"}
Ensure that your output is valid JSON. Do not include explanations or extra text.`,
		a.registry.Describe())
}

// Query sends the query to the model and dispatches the resulting directive.
// Model output that is not a valid directive is returned verbatim: an
// unparsable reply degrades to a plain answer, never an error.
func (a *Agent) Query(ctx context.Context, query string) (string, error) {
	content, err := a.provider.Complete(ctx, a.instruction(), fmt.Sprintf("User Query: %s", query))
	if err != nil {
		return "", fmt.Errorf("agent: %w", err)
	}

	directive, ok := parseDirective(content)
	if !ok {
		a.logger.Info(ctx, "model reply was not a directive, returning verbatim")
		return content, nil
	}

	a.logger.Info(ctx, "dispatching directive", "action", directive.Action)
	return a.registry.Dispatch(ctx, directive.Action, directive.Argument)
}

// parseDirective extracts a Directive from model output, tolerating
// surrounding code fences.
func parseDirective(content string) (Directive, bool) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var d Directive
	if err := json.Unmarshal([]byte(trimmed), &d); err != nil {
		return Directive{}, false
	}
	if d.Action == "" {
		d.Action = actions.NameAnswer
	}
	return d, true
}
