package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/store"
)

const contextDocuments = 20

// runSynthesis retrieves collected context and generates the topic
// hierarchy, optionally followed by the expert evaluation.
func (r *Runner) runSynthesis(ctx context.Context, req *models.Request) error {
	id := req.RequestID
	cfg := req.Config
	stage := string(StageSynthesis)

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Progress: store.Ptr(0),
		Log:      "Starting hierarchy generation...",
	})

	r.taskLog(id, stage, "Querying vector store for context...")
	r.Store.UpdateTask(id, stage, store.TaskUpdate{Status: models.StatusRunning, Progress: store.Ptr(20)})

	docs, err := r.Index.Query(cfg.Prompt, contextDocuments)
	if err != nil {
		return fmt.Errorf("query vector store: %w", err)
	}
	r.taskLog(id, stage, fmt.Sprintf("Retrieved %d context documents", len(docs)))

	r.taskLog(id, stage, "Generating hierarchy and prompts...")
	r.Store.UpdateTask(id, stage, store.TaskUpdate{Status: models.StatusRunning, Progress: store.Ptr(40)})

	gen := r.LLM(ctx, cfg.GenerationBackend)
	raw, err := gen.GenerateHierarchy(ctx, cfg.Prompt, strings.Join(docs, "\n\n"))
	if err != nil {
		return fmt.Errorf("generate hierarchy: %w", err)
	}

	var hierarchy map[string]any
	if err := json.Unmarshal([]byte(raw), &hierarchy); err != nil {
		r.taskLog(id, stage, "Failed to parse hierarchy JSON, using raw string")
		hierarchy = map[string]any{"raw": raw}
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Data:     map[string]any{"hierarchy": hierarchy},
		Progress: store.Ptr(60),
	})

	if cfg.IncludeEvaluation {
		if _, ok := hierarchy["hierarchy"]; ok {
			r.taskLog(id, stage, "Running 8-expert evaluation...")
			r.Store.UpdateTask(id, stage, store.TaskUpdate{Status: models.StatusRunning, Progress: store.Ptr(70)})

			evalRaw, err := gen.EvaluateHierarchy(ctx, raw)
			if err != nil {
				return fmt.Errorf("evaluate hierarchy: %w", err)
			}
			var evaluation any
			if err := json.Unmarshal([]byte(evalRaw), &evaluation); err != nil {
				evaluation = map[string]any{"raw": evalRaw}
			}
			r.Store.UpdateTask(id, stage, store.TaskUpdate{
				Status:   models.StatusRunning,
				Data:     map[string]any{"evaluation": evaluation},
				Progress: store.Ptr(90),
			})
		}
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusSuccess,
		Progress: store.Ptr(100),
		Log:      "Hierarchy generation completed successfully",
	})
	return nil
}
