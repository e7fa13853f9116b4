package llm

import (
	"context"
	"errors"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiModelNames maps requested backend names to current Google AI Studio
// model names; 1.5-era models are retired upstream.
var geminiModelNames = map[string]string{
	"gemini-1.5-flash":     "gemini-2.5-flash",
	"gemini-1.5-pro":       "gemini-2.5-flash",
	"gemini-2.5-flash":     "gemini-2.5-flash",
	"gemini-3-pro-preview": "gemini-3-pro-preview",
	"gemini":               "gemini-2.5-flash",
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

// NewGemini returns a Client backed by the Gemini SDK, or an error when the
// client cannot be constructed.
func NewGemini(ctx context.Context, apiKey, model string) (Client, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	name, ok := geminiModelNames[model]
	if !ok {
		name = geminiModelNames["gemini"]
	}
	m := c.GenerativeModel(name)
	m.GenerationConfig.ResponseMIMEType = "application/json"
	return &client{gen: &geminiGenerator{model: m}}, nil
}

func (g *geminiGenerator) generateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if txt := firstText(resp); txt != "" {
		return txt, nil
	}
	return "", errors.New("no candidates")
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
