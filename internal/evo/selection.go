package evo

import (
	"fmt"
	"math/rand"
	"sort"
)

// Tournament samples members with replacement and picks by rank with a
// geometrically decaying fallback: rank 0 wins with ProbPickFirst, rank 1
// with the residual probability times ProbPickFirst·Decay, and so on. The
// last sampled rank absorbs whatever probability is left. The inverted form
// picks from the worst end for eviction.
type Tournament struct {
	Size          int
	ProbPickFirst float64
	Decay         float64
}

func NewTournament(size int, probPickFirst, decay float64) (*Tournament, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tournament size must be > 0")
	}
	if probPickFirst <= 0 || probPickFirst > 1 {
		return nil, fmt.Errorf("probPickFirst must be in (0, 1]")
	}
	if decay <= 0 || decay > 1 {
		return nil, fmt.Errorf("selection decay must be in (0, 1]")
	}
	return &Tournament{Size: size, ProbPickFirst: probPickFirst, Decay: decay}, nil
}

// BestOfSample returns the index into pop.Members of the selected parent.
func (t *Tournament) BestOfSample(rng *rand.Rand, pop *Population) int {
	return t.pick(rng, pop, false)
}

// WorstOfSample returns the index of the eviction victim.
func (t *Tournament) WorstOfSample(rng *rand.Rand, pop *Population) int {
	return t.pick(rng, pop, true)
}

func (t *Tournament) pick(rng *rand.Rand, pop *Population, worst bool) int {
	sample := make([]int, t.Size)
	for i := range sample {
		sample[i] = rng.Intn(pop.Size())
	}
	sort.Slice(sample, func(i, j int) bool {
		a := pop.Members[sample[i]].Score
		b := pop.Members[sample[j]].Score
		if worst {
			return a > b
		}
		return a < b
	})

	p := t.ProbPickFirst
	for i := 0; i < len(sample)-1; i++ {
		if rng.Float64() < p {
			return sample[i]
		}
		p *= t.Decay
	}
	return sample[len(sample)-1]
}
