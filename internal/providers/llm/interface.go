// Package llm provides the generation-backend collaborator: keyword
// expansion, hierarchy synthesis, prompt synthesis and the multi-persona
// evaluation sub-call.
package llm

import (
	"context"
)

// Client is the narrow interface the pipeline consumes. Any provider
// implementation should satisfy this.
type Client interface {
	// GenerateKeywords expands a topic into related search terms. An
	// unparseable response degrades to an empty list, not an error.
	GenerateKeywords(ctx context.Context, topic, seed string) ([]string, error)

	// GenerateHierarchy produces a structured subtopic hierarchy from the
	// topic and retrieval context. Returns the raw model output.
	GenerateHierarchy(ctx context.Context, topic, contextData string) (string, error)

	// GeneratePrompts produces a prompt list for a serialized hierarchy.
	GeneratePrompts(ctx context.Context, hierarchy string) (string, error)

	// EvaluateHierarchy runs the multi-perspective evaluation over a
	// hierarchy and returns the raw evaluation output.
	EvaluateHierarchy(ctx context.Context, hierarchy string) (string, error)
}

// generator is the raw text call each provider implements; the shared
// client wrapper layers the pipeline operations on top of it.
type generator interface {
	generateText(ctx context.Context, prompt string) (string, error)
}
