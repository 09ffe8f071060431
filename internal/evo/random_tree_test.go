package evo

import (
	"math/rand"
	"testing"

	"symvolve/internal/expr"
)

func TestRandomTreesStayWithinBounds(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"+", "*"}, []string{"cos"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	const maxSize, maxDepth = 24, 6
	gen := NewTreeGenerator(reg, 3, maxSize, maxDepth)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		tree := gen.Random(rng)
		if tree.Count() > maxSize {
			t.Fatalf("tree size %d exceeds %d", tree.Count(), maxSize)
		}
		if tree.Depth() > maxDepth {
			t.Fatalf("tree depth %d exceeds %d", tree.Depth(), maxDepth)
		}
		if err := reg.Validate(tree); err != nil {
			t.Fatalf("generated tree invalid: %v", err)
		}
	}
}

func TestGrowRespectsDepthLimit(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"+"}, []string{"cos"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	gen := NewTreeGenerator(reg, 2, 100, 100)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 200; i++ {
		tree := gen.Grow(rng, 50, 3)
		if tree.Depth() > 3 {
			t.Fatalf("grow exceeded depth limit: %d", tree.Depth())
		}
	}
}

func TestLeafWithoutFeaturesIsConstant(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"+"}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	gen := NewTreeGenerator(reg, 0, 10, 5)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 50; i++ {
		leaf := gen.Leaf(rng)
		if leaf.Kind != expr.KindConstant {
			t.Fatalf("expected constant leaf, got %s", leaf.Kind)
		}
	}
}
