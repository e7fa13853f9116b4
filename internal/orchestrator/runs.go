package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// runRegistry tracks in-flight stage executions so a stage cannot be
// triggered twice concurrently for the same request. Persisted task
// status alone is not enough: the goroutine may not have written
// "running" yet when the second trigger arrives.
type runRegistry struct {
	mu     sync.Mutex
	active map[string]string // requestID/stage -> run ID
}

func newRunRegistry() *runRegistry {
	return &runRegistry{active: map[string]string{}}
}

func runKey(requestID, stage string) string {
	return requestID + "/" + stage
}

// begin registers a new run and returns its ID, or false when one is
// already in flight for the same request and stage.
func (r *runRegistry) begin(requestID, stage string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := runKey(requestID, stage)
	if _, exists := r.active[key]; exists {
		return "", false
	}
	runID := uuid.NewString()
	r.active[key] = runID
	return runID, true
}

func (r *runRegistry) end(requestID, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, runKey(requestID, stage))
}

func (r *runRegistry) isActive(requestID, stage string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[runKey(requestID, stage)]
	return ok
}
