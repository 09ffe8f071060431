package storage

import (
	"context"
	"testing"

	"symvolve/internal/model"
)

func initMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func stampedRun(runID string) model.RunSummary {
	run := model.RunSummary{
		RunID:           runID,
		Seed:            7,
		Populations:     2,
		Iterations:      10,
		BestLoss:        0.25,
		BinaryOperators: []string{"+", "*"},
	}
	Stamp(&run.VersionedRecord)
	return run
}

func TestRunRoundTripAndOrder(t *testing.T) {
	ctx := context.Background()
	store := initMemoryStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.SaveRun(ctx, stampedRun(id)); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}

	got, ok, err := store.GetRun(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if got.Seed != 7 || got.BestLoss != 0.25 {
		t.Fatalf("run fields lost: %+v", got)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].RunID != "a" || runs[2].RunID != "c" {
		t.Fatalf("list order wrong: %v", runs)
	}

	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatal("missing run reported present")
	}
}

func TestPopulationKeyedByRunAndIndex(t *testing.T) {
	ctx := context.Background()
	store := initMemoryStore(t)

	for idx := 0; idx < 3; idx++ {
		rec := model.PopulationRecord{RunID: "run-1", Index: idx, Iteration: 5}
		Stamp(&rec.VersionedRecord)
		if err := store.SavePopulation(ctx, rec); err != nil {
			t.Fatalf("save population %d: %v", idx, err)
		}
	}

	got, ok, err := store.GetPopulation(ctx, "run-1", 2)
	if err != nil || !ok {
		t.Fatalf("get population: ok=%v err=%v", ok, err)
	}
	if got.Index != 2 || got.Iteration != 5 {
		t.Fatalf("population fields lost: %+v", got)
	}
	if _, ok, _ := store.GetPopulation(ctx, "run-1", 9); ok {
		t.Fatal("missing population reported present")
	}
	if _, ok, _ := store.GetPopulation(ctx, "run-2", 0); ok {
		t.Fatal("population leaked across runs")
	}
}

func TestDiagnosticsAreCopiedOnSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := initMemoryStore(t)

	diagnostics := []model.IterationDiagnostics{{Iteration: 1, BestLoss: 0.5}}
	if err := store.SaveDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	diagnostics[0].BestLoss = 99

	got, ok, err := store.GetDiagnostics(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%v err=%v", ok, err)
	}
	if got[0].BestLoss != 0.5 {
		t.Fatal("store shares the caller's slice")
	}
	got[0].BestLoss = 77
	again, _, _ := store.GetDiagnostics(ctx, "run-1")
	if again[0].BestLoss != 0.5 {
		t.Fatal("get must return a copy")
	}
}

func TestLineageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := initMemoryStore(t)

	lineage := []model.LineageEventRecord{
		{Ref: 1, Kind: "birth"},
		{Ref: 2, Parent: 1, Kind: "mutation", Note: "grow"},
	}
	if err := store.SaveLineage(ctx, "run-1", lineage); err != nil {
		t.Fatalf("save lineage: %v", err)
	}
	got, ok, err := store.GetLineage(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get lineage: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[1].Parent != 1 || got[1].Note != "grow" {
		t.Fatalf("lineage lost: %v", got)
	}
	if _, ok, _ := store.GetLineage(ctx, "other"); ok {
		t.Fatal("missing lineage reported present")
	}
}

func TestHallOfFameRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := initMemoryStore(t)

	rec := model.HallOfFameRecord{RunID: "run-1", MaxSize: 4, Exists: make([]bool, 4), Entries: make([]model.MemberRecord, 4)}
	Stamp(&rec.VersionedRecord)
	rec.Exists[1] = true
	rec.Entries[1] = model.MemberRecord{Loss: 0.125, Complexity: 2, Ref: 3}

	if err := store.SaveHallOfFame(ctx, rec); err != nil {
		t.Fatalf("save hof: %v", err)
	}
	got, ok, err := store.GetHallOfFame(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get hof: ok=%v err=%v", ok, err)
	}
	if got.MaxSize != 4 || !got.Exists[1] || got.Entries[1].Loss != 0.125 {
		t.Fatalf("hof lost: %+v", got)
	}
}
