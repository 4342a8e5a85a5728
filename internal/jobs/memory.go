package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/vikramraman/graphpredict/pkg/models"
)

// MemoryStore is the in-process fallback used when Redis is unreachable at
// startup. Records never expire and have no cross-process visibility. The
// mutex plus deep copies keep each Put atomic with respect to concurrent
// Gets of the same key.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job

	counters   map[string]*counterWindow
	countersMu sync.Mutex
}

type counterWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore creates an empty in-process job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]*models.Job),
		counters: make(map[string]*counterWindow),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Put(_ context.Context, job *models.Job) error {
	clone := job.Clone()
	s.mu.Lock()
	s.jobs[job.ID] = clone
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*models.Job, bool, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return job.Clone(), true, nil
}

func (s *MemoryStore) ScanAll(_ context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	return jobs, nil
}

// IncrWithExpiry mirrors the Redis counter used by rate limiting: a fixed
// window that resets once the expiry passes.
func (s *MemoryStore) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, error) {
	now := time.Now()

	s.countersMu.Lock()
	defer s.countersMu.Unlock()

	w, ok := s.counters[key]
	if !ok || now.After(w.resetAt) {
		w = &counterWindow{resetAt: now.Add(expiry)}
		s.counters[key] = w
	}
	w.count++
	return w.count, nil
}

var _ Store = (*MemoryStore)(nil)
