package llm

import (
	"context"
	"fmt"
)

// MockClient is used when no real provider is configured. Outputs are
// deterministic so local runs and tests behave predictably.
type MockClient struct{}

func (m *MockClient) GenerateKeywords(ctx context.Context, topic, seed string) ([]string, error) {
	if topic == "" {
		return []string{}, nil
	}
	return []string{topic}, nil
}

func (m *MockClient) GenerateHierarchy(ctx context.Context, topic, contextData string) (string, error) {
	return fmt.Sprintf(`{"hierarchy":{%q:{"overview":{},"tools":{}}},"prompts":[]}`, topic), nil
}

func (m *MockClient) GeneratePrompts(ctx context.Context, hierarchy string) (string, error) {
	return `{"prompts":["Give me an overview of this topic","What are the best tools for this topic?"]}`, nil
}

func (m *MockClient) EvaluateHierarchy(ctx context.Context, hierarchy string) (string, error) {
	return `{"overallScore":8.0,"experts":[{"name":"SEO strategist","score":8,"critique":"solid coverage"}]}`, nil
}
