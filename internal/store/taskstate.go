package store

import (
	"fmt"
	"time"

	"github.com/example/keyword-orchestrator/internal/models"
)

// TaskUpdate carries one atomic mutation of a task. Status is always
// applied; nil fields are left untouched.
type TaskUpdate struct {
	Status   models.TaskStatus
	Data     map[string]any
	Error    *string
	Progress *int
	Log      string
}

// Ptr is a convenience for optional TaskUpdate fields.
func Ptr[T any](v T) *T { return &v }

// UpdateTask is the single choke point for task mutation: it fetches the
// full request under the per-request lock, applies the update per the state
// machine rules and persists the whole record. Returns false when the
// request or task does not exist or persistence fails.
//
// Rules applied here:
//   - startedAt is set once, on the first transition into running.
//   - completedAt is set on transitions into success/error and cleared on
//     pending or running, so it is non-null iff the status is terminal.
//   - error is cleared whenever the new status is not error.
//   - data is shallow-merged, never replaced.
//   - progress never decreases within an attempt; a reset to pending may
//     lower it.
func (s *Store) UpdateTask(requestID, taskName string, upd TaskUpdate) bool {
	lock := s.requestLock(requestID)
	lock.Lock()
	defer lock.Unlock()

	req, ok := s.Get(requestID)
	if !ok {
		return false
	}
	task := req.Tasks.Get(taskName)
	if task == nil {
		return false
	}

	now := s.now()
	task.Status = upd.Status

	switch {
	case upd.Status == models.StatusRunning:
		if task.StartedAt == nil {
			t := now
			task.StartedAt = &t
		}
		task.CompletedAt = nil
	case upd.Status.Terminal():
		if task.CompletedAt == nil {
			t := now
			task.CompletedAt = &t
		}
	case upd.Status == models.StatusPending:
		task.CompletedAt = nil
	}

	if upd.Status != models.StatusError {
		task.Error = ""
	}
	if upd.Error != nil {
		task.Error = *upd.Error
	}

	if upd.Data != nil {
		if task.Data == nil {
			task.Data = map[string]any{}
		}
		for k, v := range upd.Data {
			task.Data[k] = v
		}
	}

	if upd.Progress != nil {
		if upd.Status == models.StatusPending || *upd.Progress >= task.Progress {
			task.Progress = *upd.Progress
		}
	}

	if upd.Log != "" {
		task.Logs = append(task.Logs, fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), upd.Log))
	}

	if err := s.Save(req); err != nil {
		s.log.Error("persist task update", "requestId", requestID, "task", taskName, "error", err)
		return false
	}
	return true
}
