package llm

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// New returns a Client for a request's generation backend selection.
// Supported backends:
//   - gpt-*:    OPENAI_API_KEY, optional OPENAI_API_BASE
//   - gemini-*: GEMINI_API_KEY or GOOGLE_API_KEY
//   - claude-*: ANTHROPIC_API_KEY
//
// An empty backend falls through to env auto-detection; anything
// unconfigured returns a MockClient, matching local-dev behavior.
func New(ctx context.Context, backend string) Client {
	backend = strings.ToLower(strings.TrimSpace(backend))
	switch {
	case strings.HasPrefix(backend, "gpt"):
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			return NewOpenAI(key, backend, os.Getenv("OPENAI_API_BASE"))
		}
	case strings.HasPrefix(backend, "gemini"):
		if key := geminiKey(); key != "" {
			if c, err := NewGemini(ctx, key, backend); err == nil {
				return c
			} else {
				slog.Warn("gemini client unavailable, falling back to mock", "error", err)
			}
		}
	case strings.HasPrefix(backend, "claude"):
		if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
			return NewAnthropic(key, backend)
		}
	case backend == "":
		return NewFromEnv(ctx)
	}
	return &MockClient{}
}

// NewFromEnv auto-detects a provider by API key presence.
func NewFromEnv(ctx context.Context) Client {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return NewOpenAI(key, modelOrDefault("gpt-4o-mini"), os.Getenv("OPENAI_API_BASE"))
	}
	if key := geminiKey(); key != "" {
		if c, err := NewGemini(ctx, key, modelOrDefault("gemini-2.5-flash")); err == nil {
			return c
		}
	}
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		return NewAnthropic(key, modelOrDefault("claude-3-5-sonnet-latest"))
	}
	return &MockClient{}
}

func geminiKey() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
}

func modelOrDefault(def string) string {
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		return v
	}
	return def
}
