package evo

import (
	"fmt"
	"math/rand"

	"symvolve/internal/eval"
	"symvolve/internal/expr"
)

// Population is a fixed-capacity collection of members. Size is exactly n
// from construction on: slots are overwritten in place, never removed.
type Population struct {
	Members []*PopMember
}

// NewRandomPopulation seeds n members with small random trees, evaluated
// and scored. Trees failing evaluation are reseeded; after a bounded number
// of attempts the seed degrades to a bare constant, which always evaluates.
func NewRandomPopulation(
	rng *rand.Rand,
	n int,
	gen *TreeGenerator,
	evaluator eval.Evaluator,
	ds *eval.Dataset,
	scorer *expr.ComplexityScorer,
	parsimony float64,
) (*Population, error) {
	if n <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	members := make([]*PopMember, n)
	for i := 0; i < n; i++ {
		var tree *expr.Node
		loss := 0.0
		ok := false
		for attempt := 0; attempt < 20 && !ok; attempt++ {
			tree = gen.Random(rng)
			loss, ok = evaluator.Loss(tree, ds)
		}
		if !ok {
			tree = expr.Constant(rng.NormFloat64())
			loss, ok = evaluator.Loss(tree, ds)
			if !ok {
				return nil, fmt.Errorf("cannot evaluate constant seed; dataset or loss is broken")
			}
		}
		score := Score(loss, scorer.Complexity(tree), parsimony)
		members[i] = NewPopMember(tree, loss, score, 0)
	}
	return &Population{Members: members}, nil
}

func (p *Population) Size() int {
	return len(p.Members)
}

// Clone returns a deep snapshot. Batches operate on snapshots so no tree is
// ever shared between workers.
func (p *Population) Clone() *Population {
	members := make([]*PopMember, len(p.Members))
	for i, m := range p.Members {
		members[i] = m.Copy()
	}
	return &Population{Members: members}
}

// Best returns the member with the lowest score.
func (p *Population) Best() *PopMember {
	best := p.Members[0]
	for _, m := range p.Members[1:] {
		if m.Score < best.Score {
			best = m
		}
	}
	return best
}
