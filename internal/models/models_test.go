package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	now := time.Now()
	req := NewRequest("REQ-20260101-001", RequestConfig{Prompt: "ai tools"}, now)

	require.Equal(t, "REQ-20260101-001", req.RequestID)
	assert.Equal(t, now, req.CreatedAt)
	assert.Equal(t, now, req.UpdatedAt)

	for _, name := range StageNames() {
		task := req.Tasks.Get(name)
		require.NotNil(t, task, name)
		assert.Equal(t, StatusPending, task.Status)
		assert.Equal(t, 0, task.Progress)
		assert.Empty(t, task.Logs)
		assert.Nil(t, task.StartedAt)
		assert.Nil(t, task.CompletedAt)
	}

	assert.Contains(t, req.Tasks.Collection.Data, "generatedKeywords")
	assert.Contains(t, req.Tasks.Collection.Data, "apiResponses")
	assert.Contains(t, req.Tasks.Synthesis.Data, "hierarchy")
	assert.Contains(t, req.Tasks.Refinement.Data, "prompts")
}

func TestRequestTasksGet(t *testing.T) {
	req := NewRequest("REQ-20260101-001", RequestConfig{}, time.Now())

	assert.Same(t, &req.Tasks.Collection, req.Tasks.Get(StageCollection))
	assert.Same(t, &req.Tasks.Synthesis, req.Tasks.Get(StageSynthesis))
	assert.Same(t, &req.Tasks.Refinement, req.Tasks.Get(StageRefinement))
	assert.Nil(t, req.Tasks.Get("dataCollection"))
	assert.Nil(t, req.Tasks.Get(""))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func TestRequestJSONRoundTrip(t *testing.T) {
	req := NewRequest("REQ-20260101-002", RequestConfig{
		Prompt:            "ai tools",
		Country:           "us",
		Language:          "en",
		Mode:              "comprehensive",
		APIs:              []string{"google_search"},
		GenerationBackend: "gemini-2.5-flash",
	}, time.Now().UTC())

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"requestId":"REQ-20260101-002"`)
	assert.Contains(t, string(b), `"generationBackend":"gemini-2.5-flash"`)

	var back Request
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, req.Config, back.Config)
	assert.Equal(t, StatusPending, back.Tasks.Collection.Status)
}
