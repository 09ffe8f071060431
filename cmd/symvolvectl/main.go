package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"symvolve/internal/storage"
	symapi "symvolve/pkg/symvolve"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "frontier":
		return runFrontier(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: symvolvectl <init|run|runs|frontier|diagnostics|lineage> [flags]", msg)
}

func addStoreFlags(fs *flag.FlagSet) (storeKind, dbPath *string) {
	storeKind = fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath = fs.String("db-path", "symvolve.db", "sqlite database path")
	return storeKind, dbPath
}

func newClient(storeKind, dbPath string, verbose bool) (*symapi.Client, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return symapi.New(symapi.Options{
		StoreKind: storeKind,
		DBPath:    dbPath,
		Logger:    logger,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	configPath := fs.String("config", "", "run config JSON path (optional)")
	dataPath := fs.String("data", "", "training data CSV path, last column is the target")
	iterations := fs.Int("iterations", 0, "iteration budget override")
	seed := fs.Int64("seed", 0, "seed override")
	lossGoal := fs.Float64("loss-goal", 0, "stop early when best loss reaches this value")
	timeLimit := fs.Duration("time-limit", 0, "wall-clock limit, 0 disables")
	lineage := fs.Bool("lineage", false, "record the lineage log")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return usageError("run requires -data")
	}

	req := symapi.RunRequest{}
	if *configPath != "" {
		loaded, err := loadRunRequest(*configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", *configPath, err)
		}
		req = loaded
	}
	x, y, err := loadDatasetCSV(*dataPath)
	if err != nil {
		return fmt.Errorf("load data %s: %w", *dataPath, err)
	}
	req.X = x
	req.Y = y
	if *iterations > 0 {
		req.Iterations = *iterations
	}
	if *seed != 0 {
		req.Seed = *seed
	}
	if *lossGoal > 0 {
		req.LossGoal = *lossGoal
	}
	if *timeLimit > 0 {
		req.TimeLimit = *timeLimit
	}
	if *lineage {
		req.RecordLineage = true
	}

	client, err := newClient(*storeKind, *dbPath, *verbose)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: iterations=%d evaluations=%d best_loss=%g goal_reached=%v\n",
		summary.RunID, summary.Iterations, summary.Evaluations, summary.BestLoss, summary.GoalReached)
	printFrontier(summary.Frontier)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	limit := fs.Int("limit", 20, "maximum number of runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, symapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  created=%s seed=%d iterations=%d best_loss=%g goal=%v\n",
			r.RunID, r.CreatedAtUTC, r.Seed, r.Iterations, r.BestLoss, r.GoalReached)
	}
	return nil
}

func runFrontier(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("frontier", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Frontier(ctx, symapi.FrontierRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	printFrontier(items)
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, symapi.DiagnosticsRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	for _, d := range diagnostics {
		fmt.Printf("iter=%-4d best_loss=%-12g mean_loss=%-12g evaluations=%-8d frontier=%-3d lost=%d\n",
			d.Iteration, d.BestLoss, d.MeanLoss, d.Evaluations, d.FrontierSize, d.LostBatches)
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 50, "maximum number of events to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	records, err := client.Lineage(ctx, symapi.LineageRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	for _, r := range records {
		at := time.Unix(0, r.AtUnixNano).UTC().Format(time.RFC3339)
		if r.Parent != 0 {
			fmt.Printf("%s ref=%d parent=%d kind=%s note=%s\n", at, r.Ref, r.Parent, r.Kind, r.Note)
			continue
		}
		fmt.Printf("%s ref=%d kind=%s note=%s\n", at, r.Ref, r.Kind, r.Note)
	}
	return nil
}

func printFrontier(items []symapi.FrontierItem) {
	if len(items) == 0 {
		fmt.Println("frontier is empty")
		return
	}
	for _, item := range items {
		fmt.Printf("complexity=%-3d loss=%-12g score=%-12g %s\n",
			item.Complexity, item.Loss, item.Score, item.Expression)
	}
}
