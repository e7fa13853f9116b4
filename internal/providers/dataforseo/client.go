// Package dataforseo provides the volume-capped keyword/SERP data
// collaborator. Every outbound call passes through the token-bucket
// limiter before dispatch.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/example/keyword-orchestrator/internal/ratelimit"
)

const (
	defaultBaseURL   = "https://api.dataforseo.com/v3"
	DefaultPerMinute = 2000
)

// Fetcher is the narrow interface the pipeline consumes.
type Fetcher interface {
	FetchKeywordData(ctx context.Context, keyword string, locationCode int, languageCode, apiType string) (map[string]any, error)
}

type Client struct {
	Login    string
	Password string
	BaseURL  string

	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

func New(login, password, baseURL string, limiter *ratelimit.Limiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if limiter == nil {
		limiter = ratelimit.New(DefaultPerMinute)
	}
	return &Client{
		Login:      login,
		Password:   password,
		BaseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    limiter,
	}
}

// NewFromEnv reads DATAFORSEO_API_LOGIN / DATAFORSEO_API_PASSWORD.
func NewFromEnv(limiter *ratelimit.Limiter) *Client {
	return New(os.Getenv("DATAFORSEO_API_LOGIN"), os.Getenv("DATAFORSEO_API_PASSWORD"), os.Getenv("DATAFORSEO_API_URL"), limiter)
}

// FetchKeywordData fetches data for a single keyword from the endpoint
// selected by apiType, blocking on the rate limiter first.
func (c *Client) FetchKeywordData(ctx context.Context, keyword string, locationCode int, languageCode, apiType string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint, payload := buildRequest(keyword, locationCode, languageCode, apiType)
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	creds := c.Login + ":" + c.Password
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s (%s): %w", keyword, apiType, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s (%s): status %d", keyword, apiType, res.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch %s (%s): decode: %w", keyword, apiType, err)
	}
	return out, nil
}

func encodeKeyword(keyword string) string {
	return base64.StdEncoding.EncodeToString([]byte(keyword))
}

// buildRequest maps an apiType to its endpoint and payload. Social and
// review types have no dedicated upstream API and are served through
// site:-scoped organic searches.
func buildRequest(keyword string, locationCode int, languageCode, apiType string) (string, []map[string]any) {
	serp := func(kw string) []map[string]any {
		return []map[string]any{{
			"keyword":       encodeKeyword(kw),
			"location_code": locationCode,
			"language_code": languageCode,
			"depth":         10,
		}}
	}
	volume := []map[string]any{{
		"keywords":      []string{keyword},
		"location_code": locationCode,
		"language_code": languageCode,
	}}

	switch apiType {
	case "google_search":
		return "/serp/google/organic/live/advanced", serp(keyword)
	case "bing_search":
		return "/serp/bing/organic/live/advanced", serp(keyword)
	case "naver_search":
		return "/serp/naver/organic/live/advanced", serp(keyword)
	case "amazon_reviews":
		return "/serp/amazon/organic/live/advanced", serp(keyword)
	case "google_ads":
		return "/keywords_data/google_ads/search_volume/live", volume
	case "bing_ads":
		return "/keywords_data/bing/search_volume/live", volume
	case "google_trends":
		return "/keywords_data/google/trends/explore/live", volume
	case "facebook":
		return "/serp/google/organic/live/advanced", serp("site:facebook.com " + keyword)
	case "reddit":
		return "/serp/google/organic/live/advanced", serp("site:reddit.com " + keyword)
	case "google_reviews":
		return "/serp/google/organic/live/advanced", serp(keyword + " reviews")
	default:
		return "/serp/google/organic/live/advanced", serp(keyword)
	}
}
