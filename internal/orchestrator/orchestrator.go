// Package orchestrator is the boundary between the HTTP layer and the
// pipeline. It owns request creation, stage triggering and the
// concurrency rules around both.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/pipeline"
	"github.com/example/keyword-orchestrator/internal/store"
)

var (
	ErrNotFound     = errors.New("request not found")
	ErrStageRunning = errors.New("stage is already running")
)

type Orchestrator struct {
	store  *store.Store
	runner *pipeline.Runner
	runs   *runRegistry
	log    *slog.Logger
}

func New(st *store.Store, runner *pipeline.Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:  st,
		runner: runner,
		runs:   newRunRegistry(),
		log:    logger,
	}
}

// CreateAndStart persists a new request and fires the collection stage in
// the background. The caller gets the fresh record and the run ID without
// waiting on any pipeline work.
func (o *Orchestrator) CreateAndStart(cfg models.RequestConfig) (*models.Request, string, error) {
	req, err := o.store.Create(cfg)
	if err != nil {
		return nil, "", err
	}
	runID, _ := o.launch(req.RequestID, pipeline.StageCollection)
	o.log.Info("request created", "requestId", req.RequestID, "runId", runID)
	return req, runID, nil
}

// ExecuteStage triggers one stage for an existing request. The stage is
// reset to pending synchronously so the caller observes a clean slate, then
// runs in the background. Re-triggering a stage that is currently running
// is rejected with ErrStageRunning.
func (o *Orchestrator) ExecuteStage(requestID, stageName string) (string, error) {
	stage, err := pipeline.ParseStage(stageName)
	if err != nil {
		return "", err
	}
	req, ok := o.store.Get(requestID)
	if !ok {
		return "", ErrNotFound
	}
	task := req.Tasks.Get(stageName)
	if task.Status == models.StatusRunning || o.runs.isActive(requestID, stageName) {
		return "", fmt.Errorf("%w: %s", ErrStageRunning, stageName)
	}

	o.store.UpdateTask(requestID, stageName, store.TaskUpdate{
		Status:   models.StatusPending,
		Progress: store.Ptr(0),
		Log:      stageName + " queued for execution",
	})

	runID, ok := o.launch(requestID, stage)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrStageRunning, stageName)
	}
	o.log.Info("stage triggered", "requestId", requestID, "stage", stageName, "runId", runID)
	return runID, nil
}

// launch registers the run and executes the stage in a goroutine detached
// from any caller context, so an HTTP disconnect cannot abort the work.
func (o *Orchestrator) launch(requestID string, stage pipeline.Stage) (string, bool) {
	runID, ok := o.runs.begin(requestID, string(stage))
	if !ok {
		return "", false
	}
	go func() {
		defer o.runs.end(requestID, string(stage))
		o.runner.Execute(context.Background(), requestID, stage)
	}()
	return runID, true
}

// GetRequest returns the current persisted state of a request.
func (o *Orchestrator) GetRequest(requestID string) (*models.Request, error) {
	req, ok := o.store.Get(requestID)
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

// GetTask returns one stage's task record for a request.
func (o *Orchestrator) GetTask(requestID, stageName string) (*models.Task, error) {
	if _, err := pipeline.ParseStage(stageName); err != nil {
		return nil, err
	}
	req, ok := o.store.Get(requestID)
	if !ok {
		return nil, ErrNotFound
	}
	return req.Tasks.Get(stageName), nil
}

// ListRequests returns a page of requests, most recently updated first,
// plus the total count.
func (o *Orchestrator) ListRequests(limit, offset int) ([]*models.Request, int) {
	return o.store.List(limit, offset)
}

// DeleteRequest removes a request record.
func (o *Orchestrator) DeleteRequest(requestID string) error {
	if !o.store.Delete(requestID) {
		return ErrNotFound
	}
	return nil
}
