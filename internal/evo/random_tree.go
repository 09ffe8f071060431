package evo

import (
	"math/rand"

	"symvolve/internal/expr"
)

// TreeGenerator grows random trees within the configured size bounds.
type TreeGenerator struct {
	Registry    *expr.Registry
	NumFeatures int
	MaxSize     int
	MaxDepth    int
	// ConstantProb is the chance a leaf is a constant rather than a
	// variable.
	ConstantProb float64
}

func NewTreeGenerator(reg *expr.Registry, numFeatures, maxSize, maxDepth int) *TreeGenerator {
	return &TreeGenerator{
		Registry:     reg,
		NumFeatures:  numFeatures,
		MaxSize:      maxSize,
		MaxDepth:     maxDepth,
		ConstantProb: 0.5,
	}
}

// Random grows a tree of random size up to a small fraction of MaxSize.
// Seeds stay small; the search grows structure on demand.
func (g *TreeGenerator) Random(rng *rand.Rand) *expr.Node {
	budget := g.MaxSize / 4
	if budget < 3 {
		budget = 3
	}
	size := 1 + rng.Intn(budget)
	return g.Grow(rng, size, g.MaxDepth)
}

// Grow builds a tree of roughly targetSize nodes, bounded by maxDepth.
func (g *TreeGenerator) Grow(rng *rand.Rand, targetSize, maxDepth int) *expr.Node {
	if targetSize <= 1 || maxDepth <= 1 {
		return g.Leaf(rng)
	}
	haveUnary := len(g.Registry.Unary) > 0
	haveBinary := len(g.Registry.Binary) > 0
	switch {
	case haveBinary && (!haveUnary || targetSize >= 3 && rng.Intn(2) == 0):
		op := rng.Intn(len(g.Registry.Binary))
		leftSize := 1 + rng.Intn(targetSize-1)
		rightSize := targetSize - 1 - leftSize
		return expr.Binary(op,
			g.Grow(rng, leftSize, maxDepth-1),
			g.Grow(rng, rightSize, maxDepth-1))
	case haveUnary:
		op := rng.Intn(len(g.Registry.Unary))
		return expr.Unary(op, g.Grow(rng, targetSize-1, maxDepth-1))
	default:
		return g.Leaf(rng)
	}
}

// Leaf returns a random constant or variable.
func (g *TreeGenerator) Leaf(rng *rand.Rand) *expr.Node {
	if g.NumFeatures == 0 || rng.Float64() < g.ConstantProb {
		return expr.Constant(rng.NormFloat64())
	}
	return expr.Variable(rng.Intn(g.NumFeatures))
}
