// Package vectorstore provides the retrieval index collaborator: indexed
// keyword/API documents queried by term overlap.
package vectorstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Document is one indexed item: the content blob plus the metadata used to
// trace it back to its request.
type Document struct {
	Keyword   string `json:"keyword"`
	API       string `json:"api"`
	RequestID string `json:"requestId"`
	Content   string `json:"content"`
}

// Index is the narrow retrieval interface consumed by the pipeline.
type Index interface {
	Add(docs []Document) error
	Query(text string, k int) ([]string, error)
}

// FileStore keeps documents in memory and mirrors them to a single JSON
// file so the index survives restarts.
type FileStore struct {
	path string
	log  *slog.Logger

	mu   sync.RWMutex
	docs []Document
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{path: path, log: logger}
	s.load()
	return s
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("vector store: cannot read index file", "path", s.path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &s.docs); err != nil {
		s.log.Warn("vector store: malformed index file, starting empty", "path", s.path, "error", err)
		s.docs = nil
	}
}

func (s *FileStore) persist() error {
	data, err := json.Marshal(s.docs)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Add indexes documents and persists the index.
func (s *FileStore) Add(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	return s.persist()
}

// Query returns up to k document contents ranked by term overlap with the
// query text; on a tie, more recently indexed documents win.
func (s *FileStore) Query(text string, k int) ([]string, error) {
	queryTokens := tokenize(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(s.docs))
	for i, d := range s.docs {
		ranked = append(ranked, scored{idx: i, score: overlap(queryTokens, tokenize(d.Content))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].idx > ranked[j].idx
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, s.docs[r.idx].Content)
	}
	return out, nil
}

// BuildContent renders a fetched API payload into the indexed text form,
// with HTML stripped from string values.
func BuildContent(keyword string, payload map[string]any) string {
	b, err := json.Marshal(sanitize(payload))
	if err != nil {
		b = []byte(fmt.Sprintf("%v", payload))
	}
	return fmt.Sprintf("Keyword: %s\nData: %s", keyword, string(b))
}

func sanitize(v any) any {
	switch t := v.(type) {
	case string:
		return stripHTML(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = sanitize(val)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i := range t {
			a[i] = sanitize(t[i])
		}
		return a
	default:
		return v
	}
}

func tokenize(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		out[tok] = struct{}{}
	}
	return out
}

func overlap(query, doc map[string]struct{}) int {
	n := 0
	for tok := range query {
		if _, ok := doc[tok]; ok {
			n++
		}
	}
	return n
}
