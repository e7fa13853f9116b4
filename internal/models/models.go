package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusError   TaskStatus = "error"
)

// Terminal reports whether a status ends an execution attempt.
func (s TaskStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Stage names. These are the only valid task keys for a request.
const (
	StageCollection = "collection"
	StageSynthesis  = "synthesis"
	StageRefinement = "refinement"
)

// StageNames lists the three stages in pipeline order.
func StageNames() []string {
	return []string{StageCollection, StageSynthesis, StageRefinement}
}

// RequestConfig holds the immutable input parameters for a pipeline run.
type RequestConfig struct {
	Prompt            string   `json:"prompt"`
	Keywords          string   `json:"keywords"`
	Country           string   `json:"country"`
	Language          string   `json:"language"`
	Mode              string   `json:"mode"`
	APIs              []string `json:"apis"`
	GenerationBackend string   `json:"generationBackend"`
	IncludeEvaluation bool     `json:"includeEvaluation"`
}

// Task is the persisted status/progress/log/data record for one stage of one
// request. All mutation flows through store.UpdateTask.
type Task struct {
	Status      TaskStatus     `json:"status"`
	StartedAt   *time.Time     `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
	Error       string         `json:"error,omitempty"`
	Progress    int            `json:"progress"`
	Logs        []string       `json:"logs"`
	Data        map[string]any `json:"data"`
}

// RequestTasks is the fixed three-task set of a request. A struct rather
// than a map so the cardinality and naming cannot drift.
type RequestTasks struct {
	Collection Task `json:"collection"`
	Synthesis  Task `json:"synthesis"`
	Refinement Task `json:"refinement"`
}

// Get returns the task for a stage name, or nil for an unknown name.
func (rt *RequestTasks) Get(name string) *Task {
	switch name {
	case StageCollection:
		return &rt.Collection
	case StageSynthesis:
		return &rt.Synthesis
	case StageRefinement:
		return &rt.Refinement
	default:
		return nil
	}
}

// Request is one end-to-end pipeline run.
type Request struct {
	RequestID string        `json:"requestId"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Config    RequestConfig `json:"config"`
	Tasks     RequestTasks  `json:"tasks"`
}

func newTask(data map[string]any) Task {
	return Task{
		Status:   StatusPending,
		Progress: 0,
		Logs:     []string{},
		Data:     data,
	}
}

// NewRequest builds a request with all three tasks pending and their
// stage-specific default data keys in place.
func NewRequest(id string, cfg RequestConfig, now time.Time) *Request {
	return &Request{
		RequestID: id,
		CreatedAt: now,
		UpdatedAt: now,
		Config:    cfg,
		Tasks: RequestTasks{
			Collection: newTask(map[string]any{
				"generatedKeywords": []any{},
				"apiResponses":      []any{},
			}),
			Synthesis: newTask(map[string]any{
				"hierarchy":  nil,
				"evaluation": nil,
			}),
			Refinement: newTask(map[string]any{
				"prompts": []any{},
			}),
		},
	}
}
