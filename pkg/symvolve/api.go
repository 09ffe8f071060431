// Package symvolve is the public entry point for symbolic-regression
// runs: configure a search, execute it, and query the persisted results.
package symvolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"symvolve/internal/eval"
	"symvolve/internal/expr"
	"symvolve/internal/hof"
	"symvolve/internal/model"
	"symvolve/internal/platform"
	"symvolve/internal/storage"
)

const defaultDBPath = "symvolve.db"

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
	Metrics   prometheus.Registerer
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics prometheus.Registerer
}

// Constraint caps how many times the inner operator may appear strictly
// below an occurrence of the outer operator.
type Constraint struct {
	Outer    string
	Inner    string
	MaxCount int
}

type RunRequest struct {
	X       [][]float64
	Y       []float64
	Weights []float64

	BinaryOperators   []string
	UnaryOperators    []string
	MaxSize           int
	MaxDepth          int
	Constraints       []Constraint
	ComplexityWeights map[string]int

	LossFunction string
	Parsimony    float64

	Populations        int
	PopulationSize     int
	TournamentSize     int
	ProbPickFirst      float64
	SelectionDecay     float64
	CrossoverProb      float64
	DisableAnnealing   bool
	TempMax            float64
	TempMin            float64
	CyclesPerIteration int

	DisableOptimizer    bool
	OptimizeProbability float64
	OptimizerIterations int

	MigrationPeriod      int
	MigrationFraction    float64
	HofMigrationFraction float64

	HallOfFameSize int
	Iterations     int
	TimeLimit      time.Duration
	LossGoal       float64
	Workers        int
	BatchTimeout   time.Duration
	Seed           int64
	RecordLineage  bool
}

type FrontierItem struct {
	Complexity int
	Loss       float64
	Score      float64
	Expression string
}

type RunSummary struct {
	RunID       string
	Iterations  int
	Evaluations uint64
	BestLoss    float64
	GoalReached bool
	Frontier    []FrontierItem
}

type RunsRequest struct {
	Limit int
}

type FrontierRequest struct {
	RunID  string
	Latest bool
}

type LineageRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, logger: logger, metrics: opts.Metrics}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run executes one search and persists its artifacts under a fresh run ID.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if len(req.X) == 0 {
		return RunSummary{}, errors.New("dataset is required")
	}
	ds, err := eval.NewDataset(req.X, req.Y, req.Weights)
	if err != nil {
		return RunSummary{}, err
	}

	opts := runOptions(req)
	opts.Logger = c.logger
	opts.Metrics = c.metrics

	orch, err := platform.NewOrchestrator(opts)
	if err != nil {
		return RunSummary{}, err
	}

	registry, err := expr.NewRegistry(opts.BinaryOperators, opts.UnaryOperators)
	if err != nil {
		return RunSummary{}, err
	}
	scorer, err := expr.NewComplexityScorer(registry, opts.ComplexityWeights)
	if err != nil {
		return RunSummary{}, err
	}

	result, err := orch.Run(ctx, ds)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	if err := c.persist(ctx, runID, opts, result, scorer); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:       runID,
		Iterations:  result.Iterations,
		Evaluations: result.Evaluations,
		BestLoss:    result.BestLoss,
		GoalReached: result.GoalReached,
		Frontier:    frontierItems(registry, result.HallOfFame),
	}
	return summary, nil
}

func (c *Client) persist(ctx context.Context, runID string, opts platform.Options, result platform.Result, scorer *expr.ComplexityScorer) error {
	if err := c.store.Init(ctx); err != nil {
		return err
	}

	run := model.RunSummary{
		RunID:           runID,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339Nano),
		Seed:            opts.Seed,
		Populations:     opts.Populations,
		Iterations:      result.Iterations,
		Evaluations:     result.Evaluations,
		BestLoss:        result.BestLoss,
		GoalReached:     result.GoalReached,
		BinaryOperators: append([]string(nil), opts.BinaryOperators...),
		UnaryOperators:  append([]string(nil), opts.UnaryOperators...),
		LossFunction:    opts.LossFunction,
	}
	storage.Stamp(&run.VersionedRecord)
	if err := c.store.SaveRun(ctx, run); err != nil {
		return err
	}

	for i, pop := range result.Populations {
		rec := model.PopulationRecord{
			RunID:     runID,
			Index:     i,
			Iteration: result.Iterations,
			Members:   make([]model.MemberRecord, 0, pop.Size()),
		}
		storage.Stamp(&rec.VersionedRecord)
		for _, m := range pop.Members {
			rec.Members = append(rec.Members, m.ToRecord(scorer.Complexity(m.Tree)))
		}
		if err := c.store.SavePopulation(ctx, rec); err != nil {
			return err
		}
	}

	hofRec := result.HallOfFame.ToRecord(runID)
	storage.Stamp(&hofRec.VersionedRecord)
	if err := c.store.SaveHallOfFame(ctx, hofRec); err != nil {
		return err
	}
	if err := c.store.SaveDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return err
	}
	if len(result.Lineage) > 0 {
		if err := c.store.SaveLineage(ctx, runID, result.Lineage); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunSummary, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[len(runs)-req.Limit:]
	}
	return runs, nil
}

// Frontier returns the dominance-filtered hall of fame of a stored run,
// with expressions formatted against the run's own operator sets.
func (c *Client) Frontier(ctx context.Context, req FrontierRequest) ([]FrontierItem, error) {
	runID, run, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	rec, ok, err := c.store.GetHallOfFame(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run %s has no hall of fame", runID)
	}
	registry, err := expr.NewRegistry(run.BinaryOperators, run.UnaryOperators)
	if err != nil {
		return nil, err
	}
	hall, err := hof.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	return frontierItems(registry, hall), nil
}

func (c *Client) Lineage(ctx context.Context, req LineageRequest) ([]model.LineageEventRecord, error) {
	runID, _, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	records, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run %s has no lineage log", runID)
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[len(records)-req.Limit:]
	}
	return records, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.IterationDiagnostics, error) {
	runID, _, err := c.resolveRun(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run %s has no diagnostics", runID)
	}
	return diagnostics, nil
}

func (c *Client) resolveRun(ctx context.Context, runID string, latest bool) (string, model.RunSummary, error) {
	if latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return "", model.RunSummary{}, err
		}
		if len(runs) == 0 {
			return "", model.RunSummary{}, errors.New("no runs recorded")
		}
		run := runs[len(runs)-1]
		return run.RunID, run, nil
	}
	if runID == "" {
		return "", model.RunSummary{}, errors.New("run id is required")
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return "", model.RunSummary{}, err
	}
	if !ok {
		return "", model.RunSummary{}, fmt.Errorf("unknown run: %s", runID)
	}
	return runID, run, nil
}

func runOptions(req RunRequest) platform.Options {
	opts := platform.DefaultOptions()
	if len(req.BinaryOperators) > 0 || len(req.UnaryOperators) > 0 {
		opts.BinaryOperators = req.BinaryOperators
		opts.UnaryOperators = req.UnaryOperators
	}
	if req.MaxSize > 0 {
		opts.MaxSize = req.MaxSize
	}
	if req.MaxDepth > 0 {
		opts.MaxDepth = req.MaxDepth
	}
	for _, cons := range req.Constraints {
		opts.Constraints = append(opts.Constraints, expr.ConstraintSpec{
			Outer:    cons.Outer,
			Inner:    cons.Inner,
			MaxCount: cons.MaxCount,
		})
	}
	if len(req.ComplexityWeights) > 0 {
		opts.ComplexityWeights = expr.ComplexityWeights(req.ComplexityWeights)
	}
	if req.LossFunction != "" {
		opts.LossFunction = req.LossFunction
	}
	if req.Parsimony > 0 {
		opts.Parsimony = req.Parsimony
	}
	if req.Populations > 0 {
		opts.Populations = req.Populations
	}
	if req.PopulationSize > 0 {
		opts.PopulationSize = req.PopulationSize
	}
	if req.TournamentSize > 0 {
		opts.TournamentSize = req.TournamentSize
	}
	if req.ProbPickFirst > 0 {
		opts.ProbPickFirst = req.ProbPickFirst
	}
	if req.SelectionDecay > 0 {
		opts.SelectionDecay = req.SelectionDecay
	}
	if req.CrossoverProb > 0 {
		opts.CrossoverProb = req.CrossoverProb
	}
	opts.Annealing = !req.DisableAnnealing
	if req.TempMax > 0 {
		opts.TempMax = req.TempMax
	}
	if req.TempMin > 0 {
		opts.TempMin = req.TempMin
	}
	if req.CyclesPerIteration > 0 {
		opts.CyclesPerIteration = req.CyclesPerIteration
	}
	if req.DisableOptimizer {
		opts.OptimizeProbability = 0
	} else if req.OptimizeProbability > 0 {
		opts.OptimizeProbability = req.OptimizeProbability
	}
	if req.OptimizerIterations > 0 {
		opts.OptimizerIterations = req.OptimizerIterations
	}
	if req.MigrationPeriod > 0 {
		opts.MigrationPeriod = req.MigrationPeriod
	}
	if req.MigrationFraction > 0 {
		opts.MigrationFraction = req.MigrationFraction
	}
	if req.HofMigrationFraction > 0 {
		opts.HofMigrationFraction = req.HofMigrationFraction
	}
	if req.HallOfFameSize > 0 {
		opts.HallOfFameSize = req.HallOfFameSize
	}
	if req.Iterations > 0 {
		opts.Iterations = req.Iterations
	}
	if req.TimeLimit > 0 {
		opts.TimeLimit = req.TimeLimit
	}
	if req.LossGoal > 0 {
		opts.LossGoal = req.LossGoal
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if req.BatchTimeout > 0 {
		opts.BatchTimeout = req.BatchTimeout
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	opts.EnableRecorder = req.RecordLineage
	return opts
}

func frontierItems(registry *expr.Registry, hall *hof.HallOfFame) []FrontierItem {
	entries := hall.Frontier()
	items := make([]FrontierItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, FrontierItem{
			Complexity: entry.Complexity,
			Loss:       entry.Member.Loss,
			Score:      entry.Member.Score,
			Expression: expr.Format(registry, entry.Member.Tree),
		})
	}
	return items
}
