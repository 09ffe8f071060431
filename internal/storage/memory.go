package storage

import (
	"context"
	"fmt"
	"sync"

	"symvolve/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunSummary
	runOrder    []string
	populations map[string]model.PopulationRecord
	hofs        map[string]model.HallOfFameRecord
	diagnostics map[string][]model.IterationDiagnostics
	lineage     map[string][]model.LineageEventRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunSummary)
	s.runOrder = nil
	s.populations = make(map[string]model.PopulationRecord)
	s.hofs = make(map[string]model.HallOfFameRecord)
	s.diagnostics = make(map[string][]model.IterationDiagnostics)
	s.lineage = make(map[string][]model.LineageEventRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.runs[summary.RunID]; !seen {
		s.runOrder = append(s.runOrder, summary.RunID)
	}
	s.runs[summary.RunID] = summary
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[runID]
	return summary, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunSummary, 0, len(s.runOrder))
	for _, id := range s.runOrder {
		out = append(out, s.runs[id])
	}
	return out, nil
}

func populationKey(runID string, index int) string {
	return fmt.Sprintf("%s/%d", runID, index)
}

func (s *MemoryStore) SavePopulation(_ context.Context, population model.PopulationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.populations[populationKey(population.RunID, population.Index)] = population
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string, index int) (model.PopulationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	population, ok := s.populations[populationKey(runID, index)]
	return population, ok, nil
}

func (s *MemoryStore) SaveHallOfFame(_ context.Context, hof model.HallOfFameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hofs[hof.RunID] = hof
	return nil
}

func (s *MemoryStore) GetHallOfFame(_ context.Context, runID string) (model.HallOfFameRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hof, ok := s.hofs[runID]
	return hof, ok, nil
}

func (s *MemoryStore) SaveDiagnostics(_ context.Context, runID string, diagnostics []model.IterationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.IterationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetDiagnostics(_ context.Context, runID string) ([]model.IterationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.IterationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.LineageEventRecord, len(lineage))
	copy(copied, lineage)
	s.lineage[runID] = copied
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageEventRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.LineageEventRecord, len(lineage))
	copy(copied, lineage)
	return copied, true, nil
}
