// Package llm defines the optional LLM post-processing adapter used only by
// text_to_sigma (spec.md §6.1, §9: "Must be a strict post-processor ...
// Never let LLM output influence SPL emission for a Sigma input").
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Generate when no adapter is configured, and
// surfaces to callers as txerr.LlmUnavailable.
var ErrUnavailable = errors.New("llm adapter not configured")

// Adapter turns free text plus surrounding context into a draft. The
// orchestrator never lets its output influence the forward Sigma-to-SPL
// path; it is only ever consulted for text_to_sigma.
type Adapter interface {
	Generate(ctx context.Context, prompt, context_ string) (string, error)
}

// NullAdapter always reports unavailability; it is the default when no LLM
// endpoint is configured (config.LLMConfig.Enabled == false).
type NullAdapter struct{}

func (NullAdapter) Generate(ctx context.Context, prompt, context_ string) (string, error) {
	return "", ErrUnavailable
}
