package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

const keywordCount = 50

// client adapts a raw text generator into the Client operations: it owns
// the prompts and the response coercion shared by every provider.
type client struct {
	gen generator
}

func (c *client) GenerateKeywords(ctx context.Context, topic, seed string) ([]string, error) {
	prompt := fmt.Sprintf(`You are a keyword research expert. Generate a list of related search keywords based on the user's topic. Return ONLY a JSON array of strings. Limit to %d keywords.

Topic: %s
Reference: %s

Return JSON only.`, keywordCount, topic, seed)

	raw, err := c.gen.generateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseKeywords(raw), nil
}

func (c *client) GenerateHierarchy(ctx context.Context, topic, contextData string) (string, error) {
	prompt := fmt.Sprintf(`You are an expert prompt engineer. Use the provided search data context to create a structured hierarchy of subtopics and generate high-quality, real-world prompts for each. Return a JSON object with 'hierarchy' (nested objects) and 'prompts' (list of objects).

Topic: %s

Context Data:
%s

Return JSON only.`, topic, contextData)

	return c.gen.generateText(ctx, prompt)
}

func (c *client) GeneratePrompts(ctx context.Context, hierarchy string) (string, error) {
	prompt := fmt.Sprintf(`You are an expert prompt engineer. For the topic hierarchy below, generate realistic user prompts covering each subtopic. Return a JSON object with a 'prompts' list of strings.

Hierarchy:
%s

Return JSON only.`, hierarchy)

	return c.gen.generateText(ctx, prompt)
}

func (c *client) EvaluateHierarchy(ctx context.Context, hierarchy string) (string, error) {
	prompt := fmt.Sprintf(`You are a panel of eight domain experts (SEO strategist, data scientist, content marketer, UX researcher, product manager, linguist, industry analyst, end user advocate). Each expert scores the topic hierarchy below from 1-10 and gives a one-sentence critique. Return a JSON object with per-expert entries and an 'overallScore'.

Hierarchy:
%s

Return JSON only.`, hierarchy)

	return c.gen.generateText(ctx, prompt)
}

// parseKeywords accepts either a bare JSON array of strings or an object
// with a "keywords" field. Anything else yields an empty list.
func parseKeywords(raw string) []string {
	text := normalizeJSONText(raw)

	var list []string
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list
	}
	var wrapper struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(text), &wrapper); err == nil && wrapper.Keywords != nil {
		return wrapper.Keywords
	}
	return []string{}
}
