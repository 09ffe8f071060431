package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	symapi "symvolve/pkg/symvolve"
)

type constraintConfig struct {
	Outer    string `json:"outer"`
	Inner    string `json:"inner"`
	MaxCount int    `json:"max_count"`
}

type runConfig struct {
	BinaryOperators   []string           `json:"binary_operators"`
	UnaryOperators    []string           `json:"unary_operators"`
	MaxSize           int                `json:"max_size"`
	MaxDepth          int                `json:"max_depth"`
	Constraints       []constraintConfig `json:"constraints"`
	ComplexityWeights map[string]int     `json:"complexity_weights"`

	LossFunction string  `json:"loss_function"`
	Parsimony    float64 `json:"parsimony"`

	Populations        int     `json:"populations"`
	PopulationSize     int     `json:"population_size"`
	TournamentSize     int     `json:"tournament_size"`
	ProbPickFirst      float64 `json:"prob_pick_first"`
	SelectionDecay     float64 `json:"selection_decay"`
	CrossoverProb      float64 `json:"crossover_prob"`
	DisableAnnealing   bool    `json:"disable_annealing"`
	TempMax            float64 `json:"temp_max"`
	TempMin            float64 `json:"temp_min"`
	CyclesPerIteration int     `json:"cycles_per_iteration"`

	DisableOptimizer    bool    `json:"disable_optimizer"`
	OptimizeProbability float64 `json:"optimize_probability"`
	OptimizerIterations int     `json:"optimizer_iterations"`

	MigrationPeriod      int     `json:"migration_period"`
	MigrationFraction    float64 `json:"migration_fraction"`
	HofMigrationFraction float64 `json:"hof_migration_fraction"`

	HallOfFameSize int     `json:"hall_of_fame_size"`
	Iterations     int     `json:"iterations"`
	TimeLimitMS    int     `json:"time_limit_ms"`
	LossGoal       float64 `json:"loss_goal"`
	Workers        int     `json:"workers"`
	BatchTimeoutMS int     `json:"batch_timeout_ms"`
	Seed           int64   `json:"seed"`
	RecordLineage  bool    `json:"record_lineage"`
}

func loadRunRequest(path string) (symapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return symapi.RunRequest{}, err
	}
	var cfg runConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return symapi.RunRequest{}, err
	}

	req := symapi.RunRequest{
		BinaryOperators:      cfg.BinaryOperators,
		UnaryOperators:       cfg.UnaryOperators,
		MaxSize:              cfg.MaxSize,
		MaxDepth:             cfg.MaxDepth,
		ComplexityWeights:    cfg.ComplexityWeights,
		LossFunction:         cfg.LossFunction,
		Parsimony:            cfg.Parsimony,
		Populations:          cfg.Populations,
		PopulationSize:       cfg.PopulationSize,
		TournamentSize:       cfg.TournamentSize,
		ProbPickFirst:        cfg.ProbPickFirst,
		SelectionDecay:       cfg.SelectionDecay,
		CrossoverProb:        cfg.CrossoverProb,
		DisableAnnealing:     cfg.DisableAnnealing,
		TempMax:              cfg.TempMax,
		TempMin:              cfg.TempMin,
		CyclesPerIteration:   cfg.CyclesPerIteration,
		DisableOptimizer:     cfg.DisableOptimizer,
		OptimizeProbability:  cfg.OptimizeProbability,
		OptimizerIterations:  cfg.OptimizerIterations,
		MigrationPeriod:      cfg.MigrationPeriod,
		MigrationFraction:    cfg.MigrationFraction,
		HofMigrationFraction: cfg.HofMigrationFraction,
		HallOfFameSize:       cfg.HallOfFameSize,
		Iterations:           cfg.Iterations,
		TimeLimit:            time.Duration(cfg.TimeLimitMS) * time.Millisecond,
		LossGoal:             cfg.LossGoal,
		Workers:              cfg.Workers,
		BatchTimeout:         time.Duration(cfg.BatchTimeoutMS) * time.Millisecond,
		Seed:                 cfg.Seed,
		RecordLineage:        cfg.RecordLineage,
	}
	for _, cons := range cfg.Constraints {
		req.Constraints = append(req.Constraints, symapi.Constraint{
			Outer:    cons.Outer,
			Inner:    cons.Inner,
			MaxCount: cons.MaxCount,
		})
	}
	return req, nil
}

// loadDatasetCSV reads a headerless CSV where every column but the last is
// a feature and the last column is the target.
func loadDatasetCSV(path string) ([][]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("empty dataset")
	}

	x := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, nil, fmt.Errorf("row %d: need at least one feature and a target", i+1)
		}
		features := make([]float64, len(row)-1)
		for j, cell := range row[:len(row)-1] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			features[j] = v
		}
		target, err := strconv.ParseFloat(row[len(row)-1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d target: %w", i+1, err)
		}
		x = append(x, features)
		y = append(y, target)
	}
	return x, y, nil
}
