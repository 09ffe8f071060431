package evo

import (
	"fmt"
	"math"
	"math/rand"

	"symvolve/internal/eval"
	"symvolve/internal/expr"
	"symvolve/internal/record"
)

// CycleConfig drives a batch of regularized-evolution cycles over one
// population.
type CycleConfig struct {
	Tournament    *Tournament
	Mutator       *Mutator
	Scorer        *expr.ComplexityScorer
	Evaluator     eval.Evaluator
	Recorder      record.Recorder
	CrossoverProb float64
	Parsimony     float64
	Annealing     bool
	TempMax       float64
	TempMin       float64
	NCycles       int
}

// CycleStats is the throughput accounting for one batch.
type CycleStats struct {
	Evaluations uint64
	Accepted    uint64
	Rejected    uint64
	NonFinite   uint64
}

// Cycle runs regularized-evolution generational steps: select a parent by
// tournament, derive a candidate, and on acceptance overwrite a
// tournament-selected victim slot. Replacement is local, not a global
// ranking.
type Cycle struct {
	cfg   CycleConfig
	temps []float64
}

func NewCycle(cfg CycleConfig) (*Cycle, error) {
	if cfg.Tournament == nil {
		return nil, fmt.Errorf("tournament is required")
	}
	if cfg.Mutator == nil {
		return nil, fmt.Errorf("mutator is required")
	}
	if cfg.Scorer == nil {
		return nil, fmt.Errorf("complexity scorer is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.CrossoverProb < 0 || cfg.CrossoverProb > 1 {
		return nil, fmt.Errorf("crossover probability must be in [0, 1]")
	}
	if cfg.NCycles <= 0 {
		return nil, fmt.Errorf("cycle count must be > 0")
	}
	if cfg.TempMin < 0 || cfg.TempMax < cfg.TempMin {
		return nil, fmt.Errorf("temperature bounds must satisfy 0 <= Tmin <= Tmax")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = record.Nop{}
	}
	return &Cycle{cfg: cfg, temps: temperatureSchedule(cfg)}, nil
}

// temperatureSchedule precomputes one temperature per cycle, linearly
// interpolated from TempMax down to TempMin. With annealing disabled every
// cycle runs at TempMin.
func temperatureSchedule(cfg CycleConfig) []float64 {
	temps := make([]float64, cfg.NCycles)
	for i := range temps {
		if !cfg.Annealing || cfg.NCycles == 1 {
			temps[i] = cfg.TempMin
			continue
		}
		frac := float64(i) / float64(cfg.NCycles-1)
		temps[i] = cfg.TempMax + (cfg.TempMin-cfg.TempMax)*frac
	}
	return temps
}

// Run executes the configured number of cycles against the population in
// place. The population size is invariant across the call; rejected
// candidates leave it untouched.
func (c *Cycle) Run(rng *rand.Rand, pop *Population, ds *eval.Dataset) CycleStats {
	var stats CycleStats
	for i := 0; i < c.cfg.NCycles; i++ {
		c.step(rng, pop, ds, c.temps[i], &stats)
	}
	return stats
}

func (c *Cycle) step(rng *rand.Rand, pop *Population, ds *eval.Dataset, temperature float64, stats *CycleStats) {
	// Every cycle counts one evaluation, accepted or not.
	stats.Evaluations++

	parentIdx := c.cfg.Tournament.BestOfSample(rng, pop)
	parent := pop.Members[parentIdx]

	var candidate *expr.Node
	var kind record.EventKind
	var note string
	if rng.Float64() < c.cfg.CrossoverProb {
		otherIdx := c.cfg.Tournament.BestOfSample(rng, pop)
		other := pop.Members[otherIdx]
		childA, childB := Crossover(rng, c.cfg.Mutator, parent.Tree, other.Tree)
		candidate = childA
		if rng.Intn(2) == 0 {
			candidate = childB
		}
		kind = record.EventCrossover
		note = "crossover"
	} else {
		var mutation MutationKind
		candidate, mutation = c.cfg.Mutator.Apply(rng, parent.Tree)
		kind = record.EventMutation
		note = string(mutation)
	}

	loss, ok := c.cfg.Evaluator.Loss(candidate, ds)
	if !ok {
		// Numeric invalidity is an unconditional rejection, no retry.
		stats.NonFinite++
		stats.Rejected++
		return
	}

	if !accept(rng, loss, parent.Loss, temperature) {
		stats.Rejected++
		return
	}
	stats.Accepted++

	complexity := c.cfg.Scorer.Complexity(candidate)
	child := NewPopMember(candidate, loss, Score(loss, complexity, c.cfg.Parsimony), parent.Ref)
	c.cfg.Recorder.Append(child.Ref, record.Event{Kind: kind, Parent: parent.Ref, Note: note})

	victimIdx := c.cfg.Tournament.WorstOfSample(rng, pop)
	victim := pop.Members[victimIdx]
	c.cfg.Recorder.Append(victim.Ref, record.Event{Kind: record.EventDeath})
	pop.Members[victimIdx] = child
}

// accept implements annealed acceptance: strict improvement always passes;
// a worse candidate passes with probability exp(-Δloss/T) when T > 0, and
// never at T = 0.
func accept(rng *rand.Rand, childLoss, parentLoss, temperature float64) bool {
	if childLoss < parentLoss {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-(childLoss-parentLoss)/temperature)
}
