package evo

import (
	"sync/atomic"

	"symvolve/internal/expr"
	"symvolve/internal/model"
)

// refCounter hands out lineage refs. Refs are opaque, process-unique
// integers used only for lineage tracking, never for correctness.
var refCounter atomic.Uint64

// NextRef returns a fresh lineage ref.
func NextRef() uint64 {
	return refCounter.Add(1)
}

// PopMember is one scored individual. The tree is exclusively owned by the
// member; Copy deep-copies it. A member gets a new Ref whenever its content
// changes, even if the tree is value-identical, so lineage stays a forest
// rooted at the initial seeds.
type PopMember struct {
	Tree   *expr.Node
	Loss   float64
	Score  float64
	Ref    uint64
	Parent uint64
}

func NewPopMember(tree *expr.Node, loss, score float64, parent uint64) *PopMember {
	return &PopMember{
		Tree:   tree,
		Loss:   loss,
		Score:  score,
		Ref:    NextRef(),
		Parent: parent,
	}
}

// Copy returns an independent deep copy, keeping the same ref.
func (m *PopMember) Copy() *PopMember {
	return &PopMember{
		Tree:   m.Tree.Clone(),
		Loss:   m.Loss,
		Score:  m.Score,
		Ref:    m.Ref,
		Parent: m.Parent,
	}
}

func (m *PopMember) ToRecord(complexity int) model.MemberRecord {
	return model.MemberRecord{
		Tree:       m.Tree.ToRecord(),
		Loss:       m.Loss,
		Score:      m.Score,
		Complexity: complexity,
		Ref:        m.Ref,
		Parent:     m.Parent,
	}
}

func MemberFromRecord(rec model.MemberRecord) (*PopMember, error) {
	tree, err := expr.FromRecord(rec.Tree)
	if err != nil {
		return nil, err
	}
	return &PopMember{
		Tree:   tree,
		Loss:   rec.Loss,
		Score:  rec.Score,
		Ref:    rec.Ref,
		Parent: rec.Parent,
	}, nil
}

// Score combines loss with parsimony pressure on complexity.
func Score(loss float64, complexity int, parsimony float64) float64 {
	return loss + parsimony*float64(complexity)
}
