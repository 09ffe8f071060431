// Package platform runs the multi-population search: it owns the
// populations, dispatches cycle batches to workers, merges hall-of-fame
// candidates at a single serialized point, and migrates members between
// populations on a fixed period. A batch is a pure function of a
// population snapshot, the dataset, and a seed, so a crashed or timed-out
// batch costs only its own work.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"symvolve/internal/eval"
	"symvolve/internal/evo"
	"symvolve/internal/expr"
	"symvolve/internal/hof"
	"symvolve/internal/model"
	"symvolve/internal/record"
	"symvolve/internal/tuning"
)

// Orchestrator coordinates one search run. Build it with NewOrchestrator
// and drive it with Run; it is not safe for concurrent Run calls.
type Orchestrator struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics

	registry   *expr.Registry
	scorer     *expr.ComplexityScorer
	checker    *expr.ConstraintChecker
	tournament *evo.Tournament
	evaluator  *eval.TreeEvaluator
	optimizer  *tuning.ConstantOptimizer

	recorder    record.Recorder
	memRecorder *record.Memory

	mutator  *evo.Mutator
	cycleCfg evo.CycleConfig

	pops   []*evo.Population
	hall   *hof.HallOfFame
	runRNG *rand.Rand
}

// Result is the outcome of one run, including the state needed for
// persistence and reporting.
type Result struct {
	Iterations  int
	Evaluations uint64
	BestLoss    float64
	GoalReached bool
	Diagnostics []model.IterationDiagnostics

	HallOfFame  *hof.HallOfFame
	Populations []*evo.Population
	Lineage     []model.LineageEventRecord
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > opts.Populations {
		opts.Workers = opts.Populations
	}

	registry, err := expr.NewRegistry(opts.BinaryOperators, opts.UnaryOperators)
	if err != nil {
		return nil, err
	}
	scorer, err := expr.NewComplexityScorer(registry, opts.ComplexityWeights)
	if err != nil {
		return nil, err
	}
	checker, err := expr.NewConstraintChecker(registry, opts.Constraints)
	if err != nil {
		return nil, err
	}
	tournament, err := evo.NewTournament(opts.TournamentSize, opts.ProbPickFirst, opts.SelectionDecay)
	if err != nil {
		return nil, err
	}
	lossFn, err := eval.LossByName(opts.LossFunction)
	if err != nil {
		return nil, err
	}
	evaluator := eval.NewTreeEvaluator(registry, lossFn)

	var optimizer *tuning.ConstantOptimizer
	if opts.OptimizeProbability > 0 {
		optimizer, err = tuning.NewConstantOptimizer(evaluator, opts.OptimizerIterations)
		if err != nil {
			return nil, err
		}
	}

	o := &Orchestrator{
		opts:       opts,
		logger:     opts.Logger,
		metrics:    newMetrics(opts.Metrics),
		registry:   registry,
		scorer:     scorer,
		checker:    checker,
		tournament: tournament,
		evaluator:  evaluator,
		optimizer:  optimizer,
		recorder:   record.Nop{},
	}
	if opts.EnableRecorder {
		o.memRecorder = record.NewMemory()
		o.recorder = o.memRecorder
	}
	return o, nil
}

// Run executes the search against ds until the iteration budget, the
// optional time limit, the optional loss goal, or ctx stops it. Budget
// checks happen only between batches; a batch in flight always finishes
// or is abandoned whole.
func (o *Orchestrator) Run(ctx context.Context, ds *eval.Dataset) (Result, error) {
	if err := o.setup(ds); err != nil {
		return Result{}, err
	}

	start := time.Now()
	o.logger.Info("search starting",
		"populations", o.opts.Populations,
		"population_size", o.opts.PopulationSize,
		"workers", o.opts.Workers,
		"samples", ds.NumSamples(),
		"features", ds.NumFeatures(),
		"baseline_variance", ds.BaselineVariance(),
	)

	res := Result{BestLoss: o.bestLoss()}
	for iter := 1; iter <= o.opts.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			o.finish(&res, iter-1)
			return res, err
		}
		if o.opts.TimeLimit > 0 && time.Since(start) >= o.opts.TimeLimit {
			o.logger.Info("time limit reached", "iteration", iter-1, "elapsed", time.Since(start))
			break
		}

		diag := o.runIteration(ctx, ds, iter)
		res.Evaluations += diag.Evaluations
		res.Diagnostics = append(res.Diagnostics, diag)

		if o.migrationDue(iter) {
			moved := o.migrate()
			o.metrics.migrations.Add(float64(moved))
			if moved > 0 {
				o.logger.Debug("migration", "iteration", iter, "moved", moved)
			}
		}

		res.Iterations = iter
		if o.opts.LossGoal > 0 && diag.BestLoss <= o.opts.LossGoal {
			res.GoalReached = true
			o.logger.Info("loss goal reached", "iteration", iter, "best_loss", diag.BestLoss)
			break
		}
	}

	o.finish(&res, res.Iterations)
	o.logger.Info("search finished",
		"iterations", res.Iterations,
		"evaluations", res.Evaluations,
		"best_loss", res.BestLoss,
		"goal_reached", res.GoalReached,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// setup builds the dataset-dependent components and the initial
// populations. Every population gets its own deterministic seed, so a run
// is reproducible for a fixed option set.
func (o *Orchestrator) setup(ds *eval.Dataset) error {
	if ds == nil || ds.NumSamples() == 0 {
		return fmt.Errorf("dataset is required")
	}

	generator := evo.NewTreeGenerator(o.registry, ds.NumFeatures(), o.opts.MaxSize, o.opts.MaxDepth)
	mutator, err := evo.NewMutator(o.registry, generator, o.checker, o.opts.Mutations, o.opts.MaxSize, o.opts.MaxDepth)
	if err != nil {
		return err
	}
	o.mutator = mutator

	o.cycleCfg = evo.CycleConfig{
		Tournament:    o.tournament,
		Mutator:       mutator,
		Scorer:        o.scorer,
		Evaluator:     o.evaluator,
		CrossoverProb: o.opts.CrossoverProb,
		Parsimony:     o.opts.Parsimony,
		Annealing:     o.opts.Annealing,
		TempMax:       o.opts.TempMax,
		TempMin:       o.opts.TempMin,
		NCycles:       o.opts.CyclesPerIteration,
	}
	if _, err := evo.NewCycle(o.cycleCfg); err != nil {
		return err
	}

	o.hall, err = hof.New(o.opts.HallOfFameSize)
	if err != nil {
		return err
	}
	o.runRNG = rand.New(rand.NewSource(o.opts.Seed))

	o.pops = make([]*evo.Population, o.opts.Populations)
	for i := range o.pops {
		rng := rand.New(rand.NewSource(o.opts.Seed + int64(i) + 1))
		pop, err := evo.NewRandomPopulation(rng, o.opts.PopulationSize, generator, o.evaluator, ds, o.scorer, o.opts.Parsimony)
		if err != nil {
			return fmt.Errorf("population %d: %w", i, err)
		}
		for _, m := range pop.Members {
			o.recorder.Append(m.Ref, record.Event{Kind: record.EventBirth, Note: "seed"})
		}
		o.pops[i] = pop
	}
	o.mergeHallOfFame()
	return nil
}

type batchJob struct {
	idx  int
	pop  *evo.Population
	seed int64
}

type batchOutcome struct {
	idx    int
	pop    *evo.Population
	stats  evo.CycleStats
	tuned  int
	events *record.Memory
	err    error
}

// runIteration dispatches one batch per population to the worker pool and
// commits whatever comes back intact. A failed batch leaves its population
// at the last committed snapshot; the next iteration redispatches it.
func (o *Orchestrator) runIteration(ctx context.Context, ds *eval.Dataset, iteration int) model.IterationDiagnostics {
	jobs := make(chan batchJob)
	results := make(chan batchOutcome, len(o.pops))

	var wg sync.WaitGroup
	wg.Add(o.opts.Workers)
	for w := 0; w < o.opts.Workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- o.runBatchGuarded(ctx, j, ds)
			}
		}()
	}

	for i := range o.pops {
		jobs <- batchJob{
			idx:  i,
			pop:  o.pops[i].Clone(),
			seed: o.batchSeed(i, iteration),
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	var evaluations uint64
	lost := 0
	for res := range results {
		if res.err != nil {
			o.logger.Warn("batch lost",
				"iteration", iteration,
				"population", res.idx,
				"error", res.err,
			)
			o.metrics.lostBatches.Inc()
			lost++
			continue
		}
		o.pops[res.idx] = res.pop
		evaluations += res.stats.Evaluations
		o.metrics.evaluations.Add(float64(res.stats.Evaluations))
		o.metrics.accepted.Add(float64(res.stats.Accepted))
		o.metrics.rejected.Add(float64(res.stats.Rejected))
		o.metrics.nonFinite.Add(float64(res.stats.NonFinite))
		o.metrics.tunedConstants.Add(float64(res.tuned))
		if o.memRecorder != nil {
			o.memRecorder.Merge(res.events)
		}
	}

	o.mergeHallOfFame()

	diag := model.IterationDiagnostics{
		Iteration:    iteration,
		BestLoss:     o.bestLoss(),
		MeanLoss:     o.meanLoss(),
		Evaluations:  evaluations,
		FrontierSize: len(o.hall.Frontier()),
		LostBatches:  lost,
	}
	o.logger.Info("iteration complete",
		"iteration", iteration,
		"best_loss", diag.BestLoss,
		"mean_loss", diag.MeanLoss,
		"evaluations", diag.Evaluations,
		"frontier_size", diag.FrontierSize,
		"lost_batches", diag.LostBatches,
	)
	return diag
}

// runBatchGuarded runs one batch under the batch timeout, converting a
// worker panic into a lost batch. An abandoned batch keeps only its own
// snapshot and rng, so it cannot corrupt committed state.
func (o *Orchestrator) runBatchGuarded(ctx context.Context, job batchJob, ds *eval.Dataset) batchOutcome {
	done := make(chan batchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- batchOutcome{idx: job.idx, err: fmt.Errorf("batch panic: %v", r)}
			}
		}()
		done <- o.runBatch(job, ds)
	}()

	var timeout <-chan time.Time
	if o.opts.BatchTimeout > 0 {
		timer := time.NewTimer(o.opts.BatchTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-done:
		return res
	case <-timeout:
		return batchOutcome{idx: job.idx, err: fmt.Errorf("batch timeout after %s", o.opts.BatchTimeout)}
	case <-ctx.Done():
		return batchOutcome{idx: job.idx, err: ctx.Err()}
	}
}

func (o *Orchestrator) runBatch(job batchJob, ds *eval.Dataset) batchOutcome {
	rng := rand.New(rand.NewSource(job.seed))

	var buf *record.Memory
	rec := record.Recorder(record.Nop{})
	if o.memRecorder != nil {
		buf = record.NewMemory()
		rec = buf
	}

	cfg := o.cycleCfg
	cfg.Recorder = rec
	cyc, err := evo.NewCycle(cfg)
	if err != nil {
		return batchOutcome{idx: job.idx, err: err}
	}

	stats := cyc.Run(rng, job.pop, ds)
	tuned := o.housekeep(rng, job.pop, ds, rec)
	return batchOutcome{idx: job.idx, pop: job.pop, stats: stats, tuned: tuned, events: buf}
}

// housekeep runs the per-member maintenance pass after the cycles:
// algebraic simplification, operator combining, and probabilistic constant
// optimization. Any member whose tree or loss changed is reborn under a
// fresh ref with the old ref as parent.
func (o *Orchestrator) housekeep(rng *rand.Rand, pop *evo.Population, ds *eval.Dataset, rec record.Recorder) int {
	tuned := 0
	for i, m := range pop.Members {
		tree := expr.CombineOperators(o.registry, expr.Simplify(o.registry, m.Tree))
		changed := !tree.Equal(m.Tree)
		loss := m.Loss
		if changed {
			newLoss, ok := o.evaluator.Loss(tree, ds)
			if !ok {
				tree = m.Tree
				changed = false
			} else {
				loss = newLoss
			}
		}

		note := "simplify"
		if o.optimizer != nil && rng.Float64() < o.opts.OptimizeProbability {
			res := o.optimizer.Optimize(tree, ds, loss)
			if res.Improved {
				loss = res.Loss
				changed = true
				tuned++
				note = "constants"
			}
		}
		if !changed {
			continue
		}

		complexity := o.scorer.Complexity(tree)
		child := evo.NewPopMember(tree, loss, evo.Score(loss, complexity, o.opts.Parsimony), m.Ref)
		rec.Append(m.Ref, record.Event{Kind: record.EventTuning, Note: note})
		rec.Append(m.Ref, record.Event{Kind: record.EventDeath})
		rec.Append(child.Ref, record.Event{Kind: record.EventBirth, Parent: m.Ref, Note: note})
		pop.Members[i] = child
	}
	return tuned
}

// mergeHallOfFame offers every live member to the archive. This is the
// only write path into the hall, and it runs serialized between
// iterations.
func (o *Orchestrator) mergeHallOfFame() {
	for _, pop := range o.pops {
		for _, m := range pop.Members {
			o.hall.Update(m, o.scorer.Complexity(m.Tree))
		}
	}
}

func (o *Orchestrator) migrationDue(iteration int) bool {
	return o.opts.MigrationPeriod > 0 && iteration%o.opts.MigrationPeriod == 0
}

// migrate copies members between populations and reinjects hall-of-fame
// frontier members. Each migrant is a fresh member whose parent is the
// donor's ref; the displaced slot gets a death event.
func (o *Orchestrator) migrate() int {
	frontier := o.hall.Frontier()
	moved := 0
	for i, pop := range o.pops {
		for j := range pop.Members {
			if len(o.pops) > 1 && o.runRNG.Float64() < o.opts.MigrationFraction {
				src := o.runRNG.Intn(len(o.pops) - 1)
				if src >= i {
					src++
				}
				donors := o.pops[src].Members
				donor := donors[o.runRNG.Intn(len(donors))]
				o.replaceWithMigrant(pop, j, donor, "migration")
				moved++
				continue
			}
			if len(frontier) > 0 && o.runRNG.Float64() < o.opts.HofMigrationFraction {
				donor := frontier[o.runRNG.Intn(len(frontier))].Member
				o.replaceWithMigrant(pop, j, donor, "hof")
				moved++
			}
		}
	}
	return moved
}

func (o *Orchestrator) replaceWithMigrant(pop *evo.Population, slot int, donor *evo.PopMember, note string) {
	child := evo.NewPopMember(donor.Tree.Clone(), donor.Loss, donor.Score, donor.Ref)
	o.recorder.Append(pop.Members[slot].Ref, record.Event{Kind: record.EventDeath})
	o.recorder.Append(child.Ref, record.Event{Kind: record.EventBirth, Parent: donor.Ref, Note: note})
	pop.Members[slot] = child
}

// batchSeed derives a deterministic per-batch seed from the run seed, the
// population index, and the iteration number.
func (o *Orchestrator) batchSeed(popIndex, iteration int) int64 {
	return o.opts.Seed + int64(popIndex+1)*1_000_003 + int64(iteration)*7_919
}

func (o *Orchestrator) bestLoss() float64 {
	if best, ok := o.hall.Best(); ok {
		return best.Loss
	}
	best := o.pops[0].Best().Loss
	for _, pop := range o.pops[1:] {
		if l := pop.Best().Loss; l < best {
			best = l
		}
	}
	return best
}

func (o *Orchestrator) meanLoss() float64 {
	total := 0.0
	count := 0
	for _, pop := range o.pops {
		for _, m := range pop.Members {
			total += m.Loss
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func (o *Orchestrator) finish(res *Result, iterations int) {
	res.Iterations = iterations
	res.BestLoss = o.bestLoss()
	res.HallOfFame = o.hall
	res.Populations = o.pops
	if o.memRecorder != nil {
		res.Lineage = o.memRecorder.Records()
	}
}
