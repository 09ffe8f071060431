package storage

import (
	"context"

	"symvolve/internal/model"
)

// Store persists run artifacts: summaries, population checkpoints, the hall
// of fame, per-iteration diagnostics, and lineage events. Checkpoints make
// a run resumable after a process restart.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, summary model.RunSummary) error
	GetRun(ctx context.Context, runID string) (model.RunSummary, bool, error)
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	SavePopulation(ctx context.Context, population model.PopulationRecord) error
	GetPopulation(ctx context.Context, runID string, index int) (model.PopulationRecord, bool, error)
	SaveHallOfFame(ctx context.Context, hof model.HallOfFameRecord) error
	GetHallOfFame(ctx context.Context, runID string) (model.HallOfFameRecord, bool, error)
	SaveDiagnostics(ctx context.Context, runID string, diagnostics []model.IterationDiagnostics) error
	GetDiagnostics(ctx context.Context, runID string) ([]model.IterationDiagnostics, bool, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageEventRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageEventRecord, bool, error)
}
