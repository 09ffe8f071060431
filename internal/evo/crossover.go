package evo

import (
	"math/rand"

	"symvolve/internal/expr"
)

// Crossover swaps uniformly chosen subtrees between two parents and returns
// two children. Each child is validated independently: a child failing size,
// depth, or constraint checks is discarded and replaced by a copy of its
// own parent, never silently truncated. Structurally identical parents carry
// no material to exchange, so they produce plain clones.
func Crossover(rng *rand.Rand, m *Mutator, parentA, parentB *expr.Node) (*expr.Node, *expr.Node) {
	if parentA.Equal(parentB) {
		return parentA.Clone(), parentB.Clone()
	}

	childA := parentA.Clone()
	childB := parentB.Clone()

	nodesA := childA.Nodes()
	nodesB := childB.Nodes()
	siteA := nodesA[rng.Intn(len(nodesA))]
	siteB := nodesB[rng.Intn(len(nodesB))]

	swapped := *siteA
	*siteA = *siteB
	*siteB = swapped

	if !m.Valid(childA) {
		childA = parentA.Clone()
	}
	if !m.Valid(childB) {
		childB = parentB.Clone()
	}
	return childA, childB
}
