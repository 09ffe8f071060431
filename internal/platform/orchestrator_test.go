package platform

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"symvolve/internal/eval"
)

// cosineDataset is y = 2*cos(x1) over two features; x0 is a decoy.
func cosineDataset(t *testing.T) *eval.Dataset {
	t.Helper()
	n := 40
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		angle := -3.0 + 6.0*float64(i)/float64(n-1)
		x[i] = []float64{float64(i) * 0.25, angle}
		y[i] = 2 * math.Cos(angle)
	}
	ds, err := eval.NewDataset(x, y, nil)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return ds
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.UnaryOperators = []string{"cos"}
	opts.Populations = 2
	opts.PopulationSize = 30
	opts.CyclesPerIteration = 200
	opts.Iterations = 5
	opts.OptimizeProbability = 0.2
	opts.BatchTimeout = 0
	opts.Seed = 3
	opts.Logger = quietLogger()
	return opts
}

func TestSearchRecoversCosineTarget(t *testing.T) {
	opts := testOptions()
	opts.Iterations = 80
	opts.CyclesPerIteration = 300
	opts.OptimizeProbability = 0.3
	opts.OptimizerIterations = 40
	opts.LossGoal = 1e-3

	orch, err := NewOrchestrator(opts)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	res, err := orch.Run(context.Background(), cosineDataset(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.BestLoss >= 1e-3 {
		t.Fatalf("best loss %g did not reach the goal after %d iterations", res.BestLoss, res.Iterations)
	}
	if !res.GoalReached {
		t.Fatal("goal flag not set")
	}
	if best, ok := res.HallOfFame.Best(); !ok || best.Loss != res.BestLoss {
		t.Fatalf("hall best does not match result: ok=%v", ok)
	}
}

func TestRunSpendsTheIterationBudget(t *testing.T) {
	opts := testOptions()
	orch, err := NewOrchestrator(opts)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	res, err := orch.Run(context.Background(), cosineDataset(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Iterations != opts.Iterations {
		t.Fatalf("expected %d iterations, got %d", opts.Iterations, res.Iterations)
	}
	if len(res.Diagnostics) != opts.Iterations {
		t.Fatalf("expected %d diagnostics, got %d", opts.Iterations, len(res.Diagnostics))
	}

	perIteration := uint64(opts.Populations * opts.CyclesPerIteration)
	if res.Evaluations != perIteration*uint64(opts.Iterations) {
		t.Fatalf("expected %d evaluations, got %d", perIteration*uint64(opts.Iterations), res.Evaluations)
	}
	for _, diag := range res.Diagnostics {
		if diag.Evaluations != perIteration {
			t.Fatalf("iteration %d evaluations = %d, want %d", diag.Iteration, diag.Evaluations, perIteration)
		}
		if diag.LostBatches != 0 {
			t.Fatalf("iteration %d lost %d batches", diag.Iteration, diag.LostBatches)
		}
		if math.IsInf(diag.BestLoss, 0) || math.IsNaN(diag.BestLoss) {
			t.Fatalf("iteration %d best loss is not finite: %v", diag.Iteration, diag.BestLoss)
		}
	}
	if len(res.Populations) != opts.Populations {
		t.Fatalf("expected %d populations back, got %d", opts.Populations, len(res.Populations))
	}
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	run := func() Result {
		orch, err := NewOrchestrator(testOptions())
		if err != nil {
			t.Fatalf("new orchestrator: %v", err)
		}
		res, err := orch.Run(context.Background(), cosineDataset(t))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	first := run()
	second := run()
	if first.BestLoss != second.BestLoss {
		t.Fatalf("best loss differs: %v vs %v", first.BestLoss, second.BestLoss)
	}
	if first.Evaluations != second.Evaluations {
		t.Fatalf("evaluation counts differ: %d vs %d", first.Evaluations, second.Evaluations)
	}
	for i := range first.Diagnostics {
		a, b := first.Diagnostics[i], second.Diagnostics[i]
		if a.BestLoss != b.BestLoss || a.MeanLoss != b.MeanLoss {
			t.Fatalf("iteration %d diverged: %+v vs %+v", a.Iteration, a, b)
		}
	}
}

func TestLostBatchesKeepTheLastSnapshot(t *testing.T) {
	opts := testOptions()
	opts.Iterations = 3
	opts.BatchTimeout = time.Nanosecond

	orch, err := NewOrchestrator(opts)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	res, err := orch.Run(context.Background(), cosineDataset(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Iterations != opts.Iterations {
		t.Fatalf("run should complete its budget, got %d iterations", res.Iterations)
	}
	if res.Evaluations != 0 {
		t.Fatalf("no batch should commit, got %d evaluations", res.Evaluations)
	}
	for _, diag := range res.Diagnostics {
		if diag.LostBatches != opts.Populations {
			t.Fatalf("iteration %d lost %d batches, want %d", diag.Iteration, diag.LostBatches, opts.Populations)
		}
	}
	if math.IsInf(res.BestLoss, 0) {
		t.Fatal("best loss should come from the seed populations")
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch, err := NewOrchestrator(testOptions())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	res, err := orch.Run(ctx, cosineDataset(t))
	if err == nil {
		t.Fatal("expected context error")
	}
	if res.Iterations != 0 {
		t.Fatalf("no iteration should run, got %d", res.Iterations)
	}
}

func TestMigrationRebirthsAreRecorded(t *testing.T) {
	opts := testOptions()
	opts.Iterations = 2
	opts.MigrationPeriod = 1
	opts.MigrationFraction = 1.0
	opts.EnableRecorder = true

	orch, err := NewOrchestrator(opts)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	res, err := orch.Run(context.Background(), cosineDataset(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	seeds, migrations := 0, 0
	for _, ev := range res.Lineage {
		switch {
		case ev.Kind == "birth" && ev.Note == "seed":
			seeds++
		case ev.Kind == "birth" && ev.Note == "migration":
			migrations++
			if ev.Parent == 0 {
				t.Fatal("migrant birth must name the donor as parent")
			}
		}
	}
	if seeds != opts.Populations*opts.PopulationSize {
		t.Fatalf("expected %d seed births, got %d", opts.Populations*opts.PopulationSize, seeds)
	}
	if migrations == 0 {
		t.Fatal("expected migrant births with fraction 1.0")
	}
}
