package expr

import "fmt"

// ConstraintSpec names a nested-occurrence limit before registry resolution:
// the Inner operator may occur at most MaxCount times inside any subtree
// rooted at an Outer operator node. Exactly MaxCount occurrences pass;
// MaxCount+1 fail.
type ConstraintSpec struct {
	Outer    string `json:"outer"`
	Inner    string `json:"inner"`
	MaxCount int    `json:"max_count"`
}

type opRef struct {
	unary bool
	op    int
}

type nestedConstraint struct {
	outer    opRef
	inner    opRef
	maxCount int
}

// ConstraintChecker is a pure predicate over trees: the AND of independent
// per-operator nested-occurrence constraints.
type ConstraintChecker struct {
	constraints []nestedConstraint
}

// NewConstraintChecker resolves constraint specs against the registry. A
// constraint naming an operator the registry does not define is a
// configuration error, surfaced before any search state exists.
func NewConstraintChecker(reg *Registry, specs []ConstraintSpec) (*ConstraintChecker, error) {
	checker := &ConstraintChecker{}
	for i, spec := range specs {
		if spec.MaxCount < 0 {
			return nil, fmt.Errorf("constraint %d: max count must be >= 0", i)
		}
		outer, err := resolveOpRef(reg, spec.Outer)
		if err != nil {
			return nil, fmt.Errorf("constraint %d outer: %w", i, err)
		}
		inner, err := resolveOpRef(reg, spec.Inner)
		if err != nil {
			return nil, fmt.Errorf("constraint %d inner: %w", i, err)
		}
		checker.constraints = append(checker.constraints, nestedConstraint{
			outer:    outer,
			inner:    inner,
			maxCount: spec.MaxCount,
		})
	}
	return checker, nil
}

func resolveOpRef(reg *Registry, name string) (opRef, error) {
	if idx, ok := reg.LookupBinary(name); ok {
		return opRef{unary: false, op: idx}, nil
	}
	if idx, ok := reg.LookupUnary(name); ok {
		return opRef{unary: true, op: idx}, nil
	}
	return opRef{}, fmt.Errorf("constraint on undefined operator: %q", name)
}

// Check reports whether the tree satisfies every constraint. It is
// deterministic, has no side effects, and never modifies the tree.
func (c *ConstraintChecker) Check(tree *Node) bool {
	if c == nil || len(c.constraints) == 0 {
		return true
	}
	for _, constraint := range c.constraints {
		for _, node := range tree.Nodes() {
			if !matchesOp(node, constraint.outer) {
				continue
			}
			count := countOpBelow(node, constraint.inner)
			if count > constraint.maxCount {
				return false
			}
		}
	}
	return true
}

func matchesOp(node *Node, ref opRef) bool {
	if ref.unary {
		return node.Kind == KindUnary && node.Op == ref.op
	}
	return node.Kind == KindBinary && node.Op == ref.op
}

// countOpBelow counts occurrences of the referenced operator strictly below
// the given node.
func countOpBelow(root *Node, ref opRef) int {
	count := 0
	for _, node := range root.Nodes() {
		if node == root {
			continue
		}
		if matchesOp(node, ref) {
			count++
		}
	}
	return count
}
