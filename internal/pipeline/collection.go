package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/store"
	"github.com/example/keyword-orchestrator/internal/vectorstore"
)

// apiResponse records the outcome of one (term, apiType) fetch. Every
// attempt is recorded, success or failure.
type apiResponse struct {
	Term      string         `json:"term"`
	APIType   string         `json:"apiType"`
	Response  map[string]any `json:"response"`
	Error     *string        `json:"error"`
	Timestamp time.Time      `json:"timestamp"`
}

// locationCode maps a country selection to the upstream location code.
func locationCode(country string) int {
	if country == "us" {
		return 2840
	}
	return 2410
}

func languageCode(language string) string {
	if language == "en" {
		return "en"
	}
	return "ko"
}

// runCollection expands the topic into terms, fetches data for every
// (term, api) pair and indexes the non-empty responses. Partial data is
// persisted as it is produced so a failed run remains diagnosable.
func (r *Runner) runCollection(ctx context.Context, req *models.Request) error {
	id := req.RequestID
	cfg := req.Config
	stage := string(StageCollection)

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Progress: store.Ptr(0),
		Log:      "Starting data collection...",
	})

	gen := r.LLM(ctx, cfg.GenerationBackend)

	r.taskLog(id, stage, fmt.Sprintf("Generating keywords with %s...", cfg.GenerationBackend))
	r.Store.UpdateTask(id, stage, store.TaskUpdate{Status: models.StatusRunning, Progress: store.Ptr(10)})

	keywords, err := gen.GenerateKeywords(ctx, cfg.Prompt, cfg.Keywords)
	if err != nil {
		return fmt.Errorf("generate keywords: %w", err)
	}
	r.taskLog(id, stage, fmt.Sprintf("Generated %d keywords", len(keywords)))
	if len(keywords) == 0 {
		r.taskLog(id, stage, "WARNING: No keywords generated")
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Data:     map[string]any{"generatedKeywords": keywords},
		Progress: store.Ptr(20),
	})

	r.taskLog(id, stage, "Fetching data from DataForSEO...")
	loc := locationCode(cfg.Country)
	lang := languageCode(cfg.Language)
	apis := cfg.APIs
	if len(apis) == 0 {
		apis = []string{"google_search"}
	}

	responses := make([]apiResponse, 0, len(keywords)*len(apis))
	failures := 0
	total := len(keywords)
	for i, kw := range keywords {
		for _, api := range apis {
			data, err := r.Fetcher.FetchKeywordData(ctx, kw, loc, lang, api)
			entry := apiResponse{Term: kw, APIType: api, Response: data, Timestamp: time.Now()}
			if err != nil {
				failures++
				entry.Response = map[string]any{}
				entry.Error = store.Ptr(err.Error())
				r.taskLog(id, stage, fmt.Sprintf("Error fetching %s (%s): %s", kw, api, err.Error()))
			}
			responses = append(responses, entry)
		}
		progress := 20 + int(float64(i)/float64(total)*50)
		r.Store.UpdateTask(id, stage, store.TaskUpdate{Status: models.StatusRunning, Progress: store.Ptr(progress)})
		if i%5 == 0 {
			r.taskLog(id, stage, fmt.Sprintf("Fetched %d/%d keywords", i, total))
		}
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusRunning,
		Data:     map[string]any{"apiResponses": responses},
		Progress: store.Ptr(70),
	})

	r.taskLog(id, stage, "Building vector database...")
	docs := make([]vectorstore.Document, 0, len(responses))
	for _, resp := range responses {
		if len(resp.Response) == 0 {
			continue
		}
		docs = append(docs, vectorstore.Document{
			Keyword:   resp.Term,
			API:       resp.APIType,
			RequestID: id,
			Content:   vectorstore.BuildContent(resp.Term, resp.Response),
		})
	}
	if len(docs) > 0 {
		if err := r.Index.Add(docs); err != nil {
			return fmt.Errorf("index documents: %w", err)
		}
		r.taskLog(id, stage, fmt.Sprintf("Added %d items to vector store", len(docs)))
	} else {
		r.taskLog(id, stage, "No data to add to vector store")
	}

	// every attempted pair is already recorded; a run where nothing
	// succeeded is still a failed run
	if len(responses) > 0 && failures == len(responses) {
		return fmt.Errorf("all %d fetches failed", failures)
	}

	r.Store.UpdateTask(id, stage, store.TaskUpdate{
		Status:   models.StatusSuccess,
		Progress: store.Ptr(100),
		Log:      "Data collection completed successfully",
	})
	return nil
}
