package evo

import (
	"testing"

	"symvolve/internal/expr"
)

func TestNextRefIsMonotonic(t *testing.T) {
	a := NextRef()
	b := NextRef()
	if b <= a {
		t.Fatalf("refs must increase: %d then %d", a, b)
	}
}

func TestNewPopMemberAssignsFreshRefs(t *testing.T) {
	m1 := NewPopMember(expr.Constant(1), 0.1, 0.2, 0)
	m2 := NewPopMember(expr.Constant(1), 0.1, 0.2, m1.Ref)
	if m1.Ref == m2.Ref {
		t.Fatal("two members share a ref")
	}
	if m2.Parent != m1.Ref {
		t.Fatalf("parent ref: got %d, want %d", m2.Parent, m1.Ref)
	}
}

func TestCopyKeepsRefAndDetachesTree(t *testing.T) {
	m := NewPopMember(expr.Constant(3), 0.5, 0.6, 0)
	c := m.Copy()
	if c.Ref != m.Ref {
		t.Fatal("copy must keep the ref")
	}
	c.Tree.Value = 99
	if m.Tree.Value != 3 {
		t.Fatal("copy shares the tree")
	}
}

func TestScoreIsLossPlusWeightedComplexity(t *testing.T) {
	if got := Score(0.5, 10, 0.01); got != 0.6 {
		t.Fatalf("score: got %g, want 0.6", got)
	}
	if got := Score(0.5, 10, 0); got != 0.5 {
		t.Fatalf("score without parsimony: got %g, want 0.5", got)
	}
}

func TestMemberRecordRoundTrip(t *testing.T) {
	m := NewPopMember(expr.Binary(0, expr.Variable(0), expr.Constant(2)), 0.25, 0.3, 7)
	rec := m.ToRecord(3)
	if rec.Complexity != 3 {
		t.Fatalf("record complexity: got %d, want 3", rec.Complexity)
	}
	back, err := MemberFromRecord(rec)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if back.Ref != m.Ref || back.Parent != m.Parent || back.Loss != m.Loss || back.Score != m.Score {
		t.Fatal("round trip changed member fields")
	}
	if !back.Tree.Equal(m.Tree) {
		t.Fatal("round trip changed the tree")
	}
}
