package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/orchestrator"
	"github.com/example/keyword-orchestrator/internal/pipeline"
	"github.com/example/keyword-orchestrator/internal/providers/llm"
	"github.com/example/keyword-orchestrator/internal/store"
	"github.com/example/keyword-orchestrator/internal/vectorstore"
)

type nopIndex struct{}

func (nopIndex) Add(docs []vectorstore.Document) error      { return nil }
func (nopIndex) Query(text string, k int) ([]string, error) { return []string{}, nil }

type okFetcher struct{}

func (okFetcher) FetchKeywordData(ctx context.Context, keyword string, locationCode int, languageCode, apiType string) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	factory := func(ctx context.Context, backend string) llm.Client { return &llm.MockClient{} }
	runner := pipeline.NewRunner(st, factory, okFetcher{}, nopIndex{}, logger)
	orch := orchestrator.New(st, runner, logger)

	mux := http.NewServeMux()
	NewServer(orch, logger).RegisterRoutes(mux)
	srv := httptest.NewServer(CORS(mux))
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var parsed map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&parsed))
	return res, parsed
}

func waitForStatus(t *testing.T, st *store.Store, id, stage string, want models.TaskStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		req, ok := st.Get(id)
		return ok && req.Tasks.Get(stage).Status == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	res, body := doJSON(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateRequest(t *testing.T) {
	srv, st := newTestServer(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/requests/create", `{"prompt":"ai tools"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	id := body["requestId"].(string)
	assert.True(t, strings.HasPrefix(id, "REQ-"))
	assert.NotEmpty(t, body["runId"])

	waitForStatus(t, st, id, models.StageCollection, models.StatusSuccess)
}

func TestCreateRequestRequiresPrompt(t *testing.T) {
	srv, _ := newTestServer(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/requests/create", `{"prompt":"  "}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "prompt is required", body["error"])

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/requests/create", `not json`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetRequest(t *testing.T) {
	srv, st := newTestServer(t)

	res, _ := doJSON(t, http.MethodGet, srv.URL+"/api/requests/REQ-20260101-001", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	req, err := st.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)
	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/requests/"+req.RequestID, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, req.RequestID, body["requestId"])
	tasks := body["tasks"].(map[string]any)
	assert.Len(t, tasks, 3)
}

func TestListRequests(t *testing.T) {
	srv, st := newTestServer(t)
	for range 3 {
		_, err := st.Create(models.RequestConfig{Prompt: "topic"})
		require.NoError(t, err)
	}

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/requests?limit=2", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 3.0, body["total"])
	assert.Len(t, body["requests"].([]any), 2)
}

func TestExecuteStageErrors(t *testing.T) {
	srv, st := newTestServer(t)

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/requests/REQ-20260101-001/tasks/collection/execute", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	req, err := st.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.RequestID+"/tasks/bogus/execute", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	st.UpdateTask(req.RequestID, models.StageSynthesis, store.TaskUpdate{Status: models.StatusRunning})
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.RequestID+"/tasks/synthesis/execute", "")
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestExecuteStage(t *testing.T) {
	srv, st := newTestServer(t)

	req, err := st.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.RequestID+"/tasks/collection/execute", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "started", body["status"])
	assert.NotEmpty(t, body["runId"])

	waitForStatus(t, st, req.RequestID, models.StageCollection, models.StatusSuccess)
}

func TestTaskStatus(t *testing.T) {
	srv, st := newTestServer(t)

	req, err := st.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/requests/"+req.RequestID+"/tasks/refinement/status", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "pending", body["status"])

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/requests/"+req.RequestID+"/tasks/bogus/status", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDeleteRequest(t *testing.T) {
	srv, st := newTestServer(t)

	req, err := st.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)

	res, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/requests/"+req.RequestID, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/requests/"+req.RequestID, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAggregateStatus(t *testing.T) {
	srv, st := newTestServer(t)

	req, err := st.Create(models.RequestConfig{Prompt: "topic"})
	require.NoError(t, err)
	for _, stage := range models.StageNames() {
		st.UpdateTask(req.RequestID, stage, store.TaskUpdate{
			Status:   models.StatusSuccess,
			Progress: store.Ptr(100),
		})
	}
	st.UpdateTask(req.RequestID, models.StageRefinement, store.TaskUpdate{
		Status: models.StatusSuccess,
		Data:   map[string]any{"prompts": []string{"p1"}},
	})

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/status/"+req.RequestID, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, 100.0, body["progress"])
	assert.Equal(t, []any{"p1"}, body["result"])
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/requests", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}
