package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"flexevo/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// MemoryStore keeps records in process. Records are stored as encoded
// payloads, the same as the sqlite backend, so callers never share slices with
// the store.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string][]byte
	populations map[string][]byte
	byRun       map[string][]string
	generations map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string][]byte)
	s.populations = make(map[string][]byte)
	s.byRun = make(map[string][]string)
	s.generations = make(map[string][]byte)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return errors.Wrapf(err, "encode run %s", run.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = payload
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.RunRecord{}, false, ErrNotInitialized
	}

	payload, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, errors.Wrapf(err, "decode run %s", id)
	}
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	runs := make([]model.RunRecord, 0, len(s.runs))
	for id, payload := range s.runs {
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decode run %s", id)
		}
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	payload, err := EncodePopulation(snapshot)
	if err != nil {
		return errors.Wrapf(err, "encode population %s", snapshot.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if _, exists := s.populations[snapshot.ID]; !exists {
		s.byRun[snapshot.RunID] = append(s.byRun[snapshot.RunID], snapshot.ID)
	}
	s.populations[snapshot.ID] = payload
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, id string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.PopulationSnapshot{}, false, ErrNotInitialized
	}
	return s.population(id)
}

func (s *MemoryStore) LatestPopulation(_ context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.PopulationSnapshot{}, false, ErrNotInitialized
	}

	var (
		latest model.PopulationSnapshot
		found  bool
	)
	for _, id := range s.byRun[runID] {
		snapshot, ok, err := s.population(id)
		if err != nil {
			return model.PopulationSnapshot{}, false, err
		}
		if !ok || snapshot.RunID != runID {
			continue
		}
		if !found || snapshot.Generation > latest.Generation {
			latest, found = snapshot, true
		}
	}
	return latest, found, nil
}

func (s *MemoryStore) population(id string) (model.PopulationSnapshot, bool, error) {
	payload, ok := s.populations[id]
	if !ok {
		return model.PopulationSnapshot{}, false, nil
	}
	snapshot, err := DecodePopulation(payload)
	if err != nil {
		return model.PopulationSnapshot{}, false, errors.Wrapf(err, "decode population %s", id)
	}
	return snapshot, true, nil
}

func (s *MemoryStore) SaveGenerations(_ context.Context, runID string, generations []model.GenerationRecord) error {
	payload, err := EncodeGenerations(generations)
	if err != nil {
		return errors.Wrapf(err, "encode generations of %s", runID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	s.generations[runID] = payload
	return nil
}

func (s *MemoryStore) GetGenerations(_ context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, false, ErrNotInitialized
	}

	payload, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	generations, err := DecodeGenerations(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode generations of %s", runID)
	}
	return generations, true, nil
}

func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}
