package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/store"
)

// runRefinement turns the synthesized hierarchy into final research
// prompts.
func (r *Runner) runRefinement(ctx context.Context, req *models.Request) error {
	id := req.RequestID
	stage := string(StageRefinement)

	hierarchy := req.Tasks.Synthesis.Data["hierarchy"]
	if hierarchy == nil {
		return errors.New("no hierarchy data found")
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Progress: store.Ptr(0),
		Log:      "Starting prompt generation...",
	})

	r.taskLog(id, stage, "Generating prompts from hierarchy...")
	r.Store.UpdateTask(id, stage, store.TaskUpdate{Status: models.StatusRunning, Progress: store.Ptr(30)})

	encoded, err := json.MarshalIndent(hierarchy, "", "  ")
	if err != nil {
		return fmt.Errorf("encode hierarchy: %w", err)
	}

	gen := r.LLM(ctx, req.Config.GenerationBackend)
	raw, err := gen.GeneratePrompts(ctx, string(encoded))
	if err != nil {
		return fmt.Errorf("generate prompts: %w", err)
	}

	prompts := parsePrompts(raw)
	if prompts == nil {
		r.taskLog(id, stage, "Failed to parse prompts JSON")
		prompts = []string{}
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Data:     map[string]any{"prompts": prompts},
		Progress: store.Ptr(80),
	})
	r.taskLog(id, stage, fmt.Sprintf("Generated %d prompts", len(prompts)))

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusSuccess,
		Progress: store.Ptr(100),
		Log:      "Prompt generation completed successfully",
	})
	return nil
}

// parsePrompts accepts either a bare string array or an object with a
// "prompts" key. Returns nil when neither shape parses.
func parsePrompts(raw string) []string {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	var wrapped struct {
		Prompts []string `json:"prompts"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Prompts != nil {
		return wrapped.Prompts
	}
	return nil
}
