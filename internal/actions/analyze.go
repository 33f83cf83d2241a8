package actions

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/remedy/internal/llm"
)

const analyzeSystemPrompt = `You are an infrastructure incident analyst. Be concise and operational: your output goes to an on-call engineer's channel.`

// Analyze asks the LLM for a root-cause analysis of raw log text.
type Analyze struct {
	Provider llm.Provider
}

func (Analyze) Name() string { return NameAnalyze }

func (Analyze) Description() string {
	return "Analyze execution logs and identify the root cause of failures. The argument is the raw log content."
}

func (a Analyze) Run(ctx context.Context, argument string) (string, error) {
	prompt := fmt.Sprintf(`Analyze the following Airflow DAG logs and identify the root cause of any failures or errors.
Provide a concise summary of the issue and potential solutions.

Logs:
%s`, argument)

	analysis, err := a.Provider.Complete(ctx, analyzeSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("analyze logs: %w", err)
	}
	return analysis, nil
}
