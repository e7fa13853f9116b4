// Package pipeline implements the three research stages: collection,
// synthesis and refinement. Stage executions are fire-and-forget units of
// work; failures are recorded in task state, never returned to the
// triggering caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/providers/dataforseo"
	"github.com/example/keyword-orchestrator/internal/providers/llm"
	"github.com/example/keyword-orchestrator/internal/store"
	"github.com/example/keyword-orchestrator/internal/vectorstore"
)

// Stage identifies one pipeline phase. The set is closed; ParseStage is the
// only way boundary input becomes a Stage.
type Stage string

const (
	StageCollection Stage = models.StageCollection
	StageSynthesis  Stage = models.StageSynthesis
	StageRefinement Stage = models.StageRefinement
)

var ErrInvalidStage = errors.New("invalid stage name")

// predecessor is the single source of truth for dependency gating.
var predecessor = map[Stage]Stage{
	StageCollection: "",
	StageSynthesis:  StageCollection,
	StageRefinement: StageSynthesis,
}

func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if _, ok := predecessor[stage]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return stage, nil
}

// ClientFactory returns a generation-backend client for a request's
// configured backend.
type ClientFactory func(ctx context.Context, backend string) llm.Client

// Runner executes pipeline stages against injected collaborators.
type Runner struct {
	Store   *store.Store
	LLM     ClientFactory
	Fetcher dataforseo.Fetcher
	Index   vectorstore.Index
	Log     *slog.Logger
}

func NewRunner(st *store.Store, factory ClientFactory, fetcher dataforseo.Fetcher, index vectorstore.Index, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Store: st, LLM: factory, Fetcher: fetcher, Index: index, Log: logger}
}

// Execute runs one stage to completion or terminal failure. A missing
// request is a logged no-op. The predecessor gate lives here, not at the
// boundary, so directly re-executing an earlier stage is always permitted.
func (r *Runner) Execute(ctx context.Context, requestID string, stage Stage) {
	defer func() {
		if rec := recover(); rec != nil {
			detail := fmt.Sprintf("panic in %s stage: %v", stage, rec)
			r.Log.Error("stage panicked", "requestId", requestID, "stage", stage, "panic", rec)
			r.Store.UpdateTask(requestID, string(stage), store.TaskUpdate{
				Status: models.StatusError,
				Error:  store.Ptr(detail),
				Log:    string(stage) + " failed with error",
			})
		}
	}()

	req, ok := r.Store.Get(requestID)
	if !ok {
		r.Log.Warn("stage trigger for unknown request", "requestId", requestID, "stage", stage)
		return
	}

	if pred := predecessor[stage]; pred != "" {
		predTask := req.Tasks.Get(string(pred))
		if predTask.Status != models.StatusSuccess {
			detail := fmt.Sprintf("%s must be completed before %s", pred, stage)
			r.Store.UpdateTask(requestID, string(stage), store.TaskUpdate{
				Status: models.StatusError,
				Error:  store.Ptr(detail),
			})
			return
		}
	}

	var err error
	switch stage {
	case StageCollection:
		err = r.runCollection(ctx, req)
	case StageSynthesis:
		err = r.runSynthesis(ctx, req)
	case StageRefinement:
		err = r.runRefinement(ctx, req)
	}
	if err != nil {
		r.Log.Error("stage failed", "requestId", requestID, "stage", stage, "error", err)
		r.Store.UpdateTask(requestID, string(stage), store.TaskUpdate{
			Status: models.StatusError,
			Error:  store.Ptr(err.Error()),
			Log:    string(stage) + " failed with error",
		})
	}
}

// taskLog appends a task log line and mirrors it to the process logger.
func (r *Runner) taskLog(requestID, stage, msg string) {
	r.Store.UpdateTask(requestID, stage, store.TaskUpdate{Status: models.StatusRunning, Log: msg})
	r.Log.Info(msg, "requestId", requestID, "stage", stage)
}
