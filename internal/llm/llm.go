// Package llm defines the narrow contract the pipeline has with a language
// model backend.
package llm

import "context"

// Provider is the interface for any LLM backend. Complete sends a single
// prompt with an optional system instruction and returns the generated text.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
