// Package store persists pipeline requests as one JSON document per request
// and owns all task mutation through UpdateTask.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/keyword-orchestrator/internal/models"
)

const idPrefix = "REQ"

// Store is a directory of request documents. Every record is an
// independently readable JSON file named <requestId>.json.
type Store struct {
	dir string
	log *slog.Logger
	now func() time.Time

	// allocMu serializes ID allocation and initial creation so concurrent
	// callers cannot observe the same max sequence.
	allocMu sync.Mutex

	// mu guards locks; one mutex per request serializes read-modify-write.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{
		dir:   dir,
		log:   logger,
		now:   time.Now,
		locks: map[string]*sync.Mutex{},
	}, nil
}

func (s *Store) path(requestID string) string {
	return filepath.Join(s.dir, requestID+".json")
}

func (s *Store) requestLock(requestID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[requestID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[requestID] = l
	}
	return l
}

// AllocateID returns the next free REQ-<date>-<seq> identifier for today,
// recomputed from the directory listing at allocation time.
func (s *Store) AllocateID() string {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()
	return s.nextID()
}

func (s *Store) nextID() string {
	date := s.now().Format("20060102")
	maxSeq := 0
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("id allocation: cannot list storage dir", "dir", s.dir, "error", err)
	}
	prefix := idPrefix + "-" + date + "-"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		seqStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		seq, err := strconv.Atoi(seqStr)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s-%s-%03d", idPrefix, date, maxSeq+1)
}

// Create allocates an ID, initializes the three tasks to pending and
// persists the new record.
func (s *Store) Create(cfg models.RequestConfig) (*models.Request, error) {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()
	req := models.NewRequest(s.nextID(), cfg, s.now())
	if err := s.write(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns a fresh deserialized copy of a request, or false when it does
// not exist or cannot be parsed.
func (s *Store) Get(requestID string) (*models.Request, bool) {
	data, err := os.ReadFile(s.path(requestID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("read request", "requestId", requestID, "error", err)
		}
		return nil, false
	}
	var req models.Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.Warn("skipping malformed request record", "requestId", requestID, "error", err)
		return nil, false
	}
	return &req, true
}

// Save replaces the whole persisted record and refreshes updatedAt. Callers
// must read-modify-write the entire request.
func (s *Store) Save(req *models.Request) error {
	req.UpdatedAt = s.now()
	return s.write(req)
}

func (s *Store) write(req *models.Request) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal request %s: %w", req.RequestID, err)
	}
	path := s.path(req.RequestID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write request %s: %w", req.RequestID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write request %s: %w", req.RequestID, err)
	}
	return nil
}

// List returns records ordered by most recently modified first, plus the
// total unfiltered count. Malformed records are skipped with a warning.
func (s *Store) List(limit, offset int) ([]*models.Request, int) {
	type fileInfo struct {
		id    string
		mtime time.Time
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("list requests: cannot read storage dir", "dir", s.dir, "error", err)
		return []*models.Request{}, 0
	}
	files := make([]fileInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, idPrefix+"-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{id: strings.TrimSuffix(name, ".json"), mtime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })

	total := len(files)
	if offset > len(files) {
		offset = len(files)
	}
	end := offset + limit
	if limit <= 0 || end > len(files) {
		end = len(files)
	}

	out := make([]*models.Request, 0, end-offset)
	for _, f := range files[offset:end] {
		if req, ok := s.Get(f.id); ok {
			out = append(out, req)
		}
	}
	return out, total
}

// Delete removes a record irrecoverably, reporting whether one existed.
func (s *Store) Delete(requestID string) bool {
	err := os.Remove(s.path(requestID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("delete request", "requestId", requestID, "error", err)
		}
		return false
	}
	s.mu.Lock()
	delete(s.locks, requestID)
	s.mu.Unlock()
	return true
}
