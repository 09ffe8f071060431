package platform

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"symvolve/internal/evo"
	"symvolve/internal/expr"
)

// Options is the full configuration surface of a search run. Validation
// happens in NewOrchestrator, before any population is created; a bad
// option is fatal up front, never mid-run.
type Options struct {
	// Operator sets by arity, resolved into the closed registry.
	BinaryOperators []string
	UnaryOperators  []string

	MaxSize           int
	MaxDepth          int
	Constraints       []expr.ConstraintSpec
	ComplexityWeights expr.ComplexityWeights

	LossFunction string
	Parsimony    float64

	Populations        int
	PopulationSize     int
	TournamentSize     int
	ProbPickFirst      float64
	SelectionDecay     float64
	CrossoverProb      float64
	Mutations          evo.MutationWeights
	Annealing          bool
	TempMax            float64
	TempMin            float64
	CyclesPerIteration int

	OptimizeProbability float64
	OptimizerIterations int

	// MigrationPeriod is in iterations; 0 disables migration.
	MigrationPeriod      int
	MigrationFraction    float64
	HofMigrationFraction float64

	HallOfFameSize int

	// Run budget. Iterations is required; TimeLimit and LossGoal are
	// optional extra stop conditions, checked only between batches.
	Iterations int
	TimeLimit  time.Duration
	LossGoal   float64

	Workers      int
	BatchTimeout time.Duration
	Seed         int64

	EnableRecorder bool

	Logger  *slog.Logger
	Metrics prometheus.Registerer
}

// DefaultOptions returns a configuration that searches with plain
// arithmetic and small populations. Callers override what they need.
func DefaultOptions() Options {
	return Options{
		BinaryOperators:      []string{"+", "-", "*", "/"},
		MaxSize:              30,
		MaxDepth:             10,
		LossFunction:         "mse",
		Populations:          4,
		PopulationSize:       40,
		TournamentSize:       10,
		ProbPickFirst:        0.9,
		SelectionDecay:       1.0,
		CrossoverProb:        0.1,
		Mutations:            evo.DefaultMutationWeights(),
		Annealing:            true,
		TempMax:              1.0,
		TempMin:              0.0,
		CyclesPerIteration:   300,
		OptimizeProbability:  0.1,
		OptimizerIterations:  30,
		MigrationPeriod:      5,
		MigrationFraction:    0.05,
		HofMigrationFraction: 0.05,
		HallOfFameSize:       30,
		Iterations:           40,
		Workers:              0,
		BatchTimeout:         time.Minute,
		Seed:                 1,
	}
}

func (o *Options) validate() error {
	if len(o.BinaryOperators) == 0 && len(o.UnaryOperators) == 0 {
		return fmt.Errorf("at least one operator is required")
	}
	if o.MaxSize <= 0 {
		return fmt.Errorf("maxsize must be > 0")
	}
	if o.MaxDepth <= 0 {
		return fmt.Errorf("maxdepth must be > 0")
	}
	if o.Populations <= 0 {
		return fmt.Errorf("population count must be > 0")
	}
	if o.PopulationSize <= 0 {
		return fmt.Errorf("population size must be > 0")
	}
	if o.Iterations <= 0 {
		return fmt.Errorf("iteration budget must be > 0")
	}
	if o.CyclesPerIteration <= 0 {
		return fmt.Errorf("cycles per iteration must be > 0")
	}
	if o.HallOfFameSize <= 0 {
		return fmt.Errorf("hall of fame size must be > 0")
	}
	if o.OptimizeProbability < 0 || o.OptimizeProbability > 1 {
		return fmt.Errorf("optimize probability must be in [0, 1]")
	}
	if o.OptimizeProbability > 0 && o.OptimizerIterations <= 0 {
		return fmt.Errorf("optimizer iterations must be > 0 when optimization is enabled")
	}
	if o.MigrationPeriod < 0 {
		return fmt.Errorf("migration period must be >= 0")
	}
	if o.MigrationFraction < 0 || o.MigrationFraction > 1 {
		return fmt.Errorf("migration fraction must be in [0, 1]")
	}
	if o.HofMigrationFraction < 0 || o.HofMigrationFraction > 1 {
		return fmt.Errorf("hof migration fraction must be in [0, 1]")
	}
	if o.Workers < 0 {
		return fmt.Errorf("worker count must be >= 0")
	}
	return nil
}
