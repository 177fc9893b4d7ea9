package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"monocrack/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type memoryRun struct {
	run model.Run
	seq int
}

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	seq         int
	runs        map[string]memoryRun
	progress    map[string][]model.ProgressPoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.reset()
	s.initialized = true
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.initialized = true
	return nil
}

func (s *MemoryStore) reset() {
	s.seq = 0
	s.runs = make(map[string]memoryRun)
	s.progress = make(map[string][]model.ProgressPoint)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	run.Finals = append([]model.RunFinal(nil), run.Finals...)
	if existing, ok := s.runs[run.ID]; ok {
		s.runs[run.ID] = memoryRun{run: run, seq: existing.seq}
		return nil
	}
	s.seq++
	s.runs[run.ID] = memoryRun{run: run, seq: s.seq}
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.Run{}, false, errNotInitialized
	}
	entry, ok := s.runs[id]
	if !ok {
		return model.Run{}, false, nil
	}
	run := entry.run
	run.Finals = append([]model.RunFinal(nil), run.Finals...)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	entries := make([]memoryRun, 0, len(s.runs))
	for _, entry := range s.runs {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].run.CreatedAtUTC == entries[j].run.CreatedAtUTC {
			// Prefer later saved runs for equal timestamps.
			return entries[i].seq > entries[j].seq
		}
		return entries[i].run.CreatedAtUTC > entries[j].run.CreatedAtUTC
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	runs := make([]model.Run, 0, len(entries))
	for _, entry := range entries {
		runs = append(runs, entry.run)
	}
	return runs, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	delete(s.runs, id)
	delete(s.progress, id)
	return nil
}

func (s *MemoryStore) SaveProgress(_ context.Context, runID string, points []model.ProgressPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.progress[runID] = append([]model.ProgressPoint(nil), points...)
	return nil
}

func (s *MemoryStore) GetProgress(_ context.Context, runID string) ([]model.ProgressPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}
	points, ok := s.progress[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.ProgressPoint(nil), points...), true, nil
}
