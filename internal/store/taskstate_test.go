package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/keyword-orchestrator/internal/models"
)

func mustCreate(t *testing.T, s *Store) *models.Request {
	t.Helper()
	req, err := s.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)
	return req
}

func getTask(t *testing.T, s *Store, id, name string) *models.Task {
	t.Helper()
	req, ok := s.Get(id)
	require.True(t, ok)
	task := req.Tasks.Get(name)
	require.NotNil(t, task)
	return task
}

func TestUpdateTaskUnknownTargets(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)

	assert.False(t, s.UpdateTask("REQ-19990101-001", models.StageCollection, TaskUpdate{Status: models.StatusRunning}))
	assert.False(t, s.UpdateTask(req.RequestID, "dataCollection", TaskUpdate{Status: models.StatusRunning}))
}

func TestUpdateTaskDataMerge(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)

	require.True(t, s.UpdateTask(req.RequestID, models.StageCollection, TaskUpdate{
		Status: models.StatusRunning,
		Data:   map[string]any{"a": 1.0},
	}))
	require.True(t, s.UpdateTask(req.RequestID, models.StageCollection, TaskUpdate{
		Status: models.StatusRunning,
		Data:   map[string]any{"b": 2.0},
	}))

	task := getTask(t, s, req.RequestID, models.StageCollection)
	assert.Equal(t, 1.0, task.Data["a"])
	assert.Equal(t, 2.0, task.Data["b"])
	// sibling default keys survive merges
	assert.Contains(t, task.Data, "generatedKeywords")
}

func TestUpdateTaskTimestamps(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)
	id := req.RequestID

	task := getTask(t, s, id, models.StageSynthesis)
	assert.Nil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)

	require.True(t, s.UpdateTask(id, models.StageSynthesis, TaskUpdate{Status: models.StatusRunning}))
	task = getTask(t, s, id, models.StageSynthesis)
	require.NotNil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)
	started := *task.StartedAt

	require.True(t, s.UpdateTask(id, models.StageSynthesis, TaskUpdate{Status: models.StatusSuccess}))
	task = getTask(t, s, id, models.StageSynthesis)
	require.NotNil(t, task.CompletedAt)

	// a second running transition must not overwrite startedAt
	require.True(t, s.UpdateTask(id, models.StageSynthesis, TaskUpdate{Status: models.StatusRunning}))
	task = getTask(t, s, id, models.StageSynthesis)
	assert.Equal(t, started, *task.StartedAt)
}

func TestUpdateTaskErrorLifecycle(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)
	id := req.RequestID

	require.True(t, s.UpdateTask(id, models.StageCollection, TaskUpdate{
		Status: models.StatusError,
		Error:  Ptr("fetch blew up"),
	}))
	task := getTask(t, s, id, models.StageCollection)
	assert.Equal(t, "fetch blew up", task.Error)
	require.NotNil(t, task.CompletedAt)

	// moving away from error clears it
	require.True(t, s.UpdateTask(id, models.StageCollection, TaskUpdate{Status: models.StatusRunning}))
	task = getTask(t, s, id, models.StageCollection)
	assert.Empty(t, task.Error)
}

func TestUpdateTaskResetToPending(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)
	id := req.RequestID

	require.True(t, s.UpdateTask(id, models.StageCollection, TaskUpdate{
		Status:   models.StatusRunning,
		Progress: Ptr(40),
		Log:      "first attempt",
	}))
	require.True(t, s.UpdateTask(id, models.StageCollection, TaskUpdate{
		Status: models.StatusError,
		Error:  Ptr("boom"),
	}))

	require.True(t, s.UpdateTask(id, models.StageCollection, TaskUpdate{
		Status:   models.StatusPending,
		Progress: Ptr(0),
		Log:      "queued for retry",
	}))

	task := getTask(t, s, id, models.StageCollection)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Empty(t, task.Error)
	assert.Nil(t, task.CompletedAt)
	require.NotNil(t, task.StartedAt) // has entered running before
	// historical logs survive the reset
	require.Len(t, task.Logs, 2)
	assert.Contains(t, task.Logs[0], "first attempt")
	assert.Contains(t, task.Logs[1], "queued for retry")
}

func TestUpdateTaskProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)
	id := req.RequestID

	require.True(t, s.UpdateTask(id, models.StageRefinement, TaskUpdate{Status: models.StatusRunning, Progress: Ptr(30)}))
	require.True(t, s.UpdateTask(id, models.StageRefinement, TaskUpdate{Status: models.StatusRunning, Progress: Ptr(10)}))

	task := getTask(t, s, id, models.StageRefinement)
	assert.Equal(t, 30, task.Progress)
}

func TestUpdateTaskLogFormat(t *testing.T) {
	s := newTestStore(t)
	req := mustCreate(t, s)

	require.True(t, s.UpdateTask(req.RequestID, models.StageCollection, TaskUpdate{
		Status: models.StatusRunning,
		Log:    "Starting data collection...",
	}))
	task := getTask(t, s, req.RequestID, models.StageCollection)
	require.Len(t, task.Logs, 1)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2}T.*\] Starting data collection\.\.\.$`, task.Logs[0])
}
