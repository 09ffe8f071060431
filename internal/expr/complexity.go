package expr

import "fmt"

// ComplexityScorer computes the weighted node-count cost of a tree. Weights
// default to 1 per node; per-operator weights are resolved against the
// registry at construction. Complexity is always recomputed from the tree,
// never cached.
type ComplexityScorer struct {
	ConstantWeight int
	VariableWeight int
	UnaryWeights   []int
	BinaryWeights  []int
}

// ComplexityWeights overrides individual weights by operator name. Zero
// values mean "use the default of 1"; "constant" and "variable" key the
// leaf weights.
type ComplexityWeights map[string]int

func NewComplexityScorer(reg *Registry, weights ComplexityWeights) (*ComplexityScorer, error) {
	s := &ComplexityScorer{
		ConstantWeight: 1,
		VariableWeight: 1,
		UnaryWeights:   make([]int, len(reg.Unary)),
		BinaryWeights:  make([]int, len(reg.Binary)),
	}
	for i := range s.UnaryWeights {
		s.UnaryWeights[i] = 1
	}
	for i := range s.BinaryWeights {
		s.BinaryWeights[i] = 1
	}
	for name, weight := range weights {
		if weight <= 0 {
			return nil, fmt.Errorf("complexity weight for %q must be > 0", name)
		}
		switch name {
		case "constant":
			s.ConstantWeight = weight
		case "variable":
			s.VariableWeight = weight
		default:
			matched := false
			if idx, ok := reg.LookupUnary(name); ok {
				s.UnaryWeights[idx] = weight
				matched = true
			}
			if idx, ok := reg.LookupBinary(name); ok {
				s.BinaryWeights[idx] = weight
				matched = true
			}
			if !matched {
				return nil, fmt.Errorf("complexity weight for undefined operator: %q", name)
			}
		}
	}
	return s, nil
}

// Complexity sums the configured per-kind weights over all nodes.
func (s *ComplexityScorer) Complexity(tree *Node) int {
	total := 0
	for _, node := range tree.Nodes() {
		switch node.Kind {
		case KindConstant:
			total += s.ConstantWeight
		case KindVariable:
			total += s.VariableWeight
		case KindUnary:
			total += s.UnaryWeights[node.Op]
		case KindBinary:
			total += s.BinaryWeights[node.Op]
		}
	}
	return total
}
