package evo

import (
	"math/rand"
	"testing"

	"symvolve/internal/expr"
)

func TestCrossoverOfIdenticalParentsIsStructurePreserving(t *testing.T) {
	m, reg := testMutator(t, 30, 10, nil)
	rng := rand.New(rand.NewSource(1))

	parent := seedTree(reg)
	for i := 0; i < 100; i++ {
		childA, childB := Crossover(rng, m, parent, parent.Clone())
		if !childA.Equal(parent) || !childB.Equal(parent) {
			t.Fatal("identical parents should produce structurally equal children")
		}
	}
}

func TestCrossoverDoesNotModifyParents(t *testing.T) {
	m, reg := testMutator(t, 30, 10, nil)
	rng := rand.New(rand.NewSource(2))
	mul, _ := reg.LookupBinary("*")
	sin, _ := reg.LookupUnary("sin")

	parentA := seedTree(reg)
	parentB := expr.Binary(mul, expr.Unary(sin, expr.Variable(1)), expr.Constant(-3))
	wantA := parentA.Clone()
	wantB := parentB.Clone()

	for i := 0; i < 200; i++ {
		Crossover(rng, m, parentA, parentB)
	}
	if !parentA.Equal(wantA) || !parentB.Equal(wantB) {
		t.Fatal("crossover modified a parent")
	}
}

func TestCrossoverChildrenAreAlwaysValid(t *testing.T) {
	const maxSize, maxDepth = 7, 3
	m, reg := testMutator(t, maxSize, maxDepth, nil)
	rng := rand.New(rand.NewSource(3))
	mul, _ := reg.LookupBinary("*")

	parentA := seedTree(reg)
	parentB := expr.Binary(mul, expr.Variable(1), expr.Binary(mul, expr.Variable(0), expr.Constant(2)))

	for i := 0; i < 500; i++ {
		childA, childB := Crossover(rng, m, parentA, parentB)
		if !m.Valid(childA) || !m.Valid(childB) {
			t.Fatalf("crossover produced an invalid child at iteration %d", i)
		}
	}
}
