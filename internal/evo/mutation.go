package evo

import (
	"fmt"
	"math/rand"

	"symvolve/internal/expr"
)

// MutationKind names the transformation applied, for lineage records and
// counters.
type MutationKind string

const (
	MutatePerturbConstant MutationKind = "perturb_constant"
	MutateSwapOperator    MutationKind = "swap_operator"
	MutateGrow            MutationKind = "grow"
	MutateShrink          MutationKind = "shrink"
	MutateRandomize       MutationKind = "randomize"
	MutateIdentity        MutationKind = "identity"
)

// MutationWeights are the relative probabilities of each mutation. Identity
// models rejection inertia: picking it is a deliberate no-op, not a failure.
type MutationWeights struct {
	PerturbConstant float64 `json:"perturb_constant"`
	SwapOperator    float64 `json:"swap_operator"`
	Grow            float64 `json:"grow"`
	Shrink          float64 `json:"shrink"`
	Randomize       float64 `json:"randomize"`
	Identity        float64 `json:"identity"`
}

func DefaultMutationWeights() MutationWeights {
	return MutationWeights{
		PerturbConstant: 2.0,
		SwapOperator:    1.0,
		Grow:            2.0,
		Shrink:          1.0,
		Randomize:       0.5,
		Identity:        0.2,
	}
}

func (w MutationWeights) total() float64 {
	return w.PerturbConstant + w.SwapOperator + w.Grow + w.Shrink + w.Randomize + w.Identity
}

// Mutator applies one weighted-random mutation per call. Every candidate is
// validated against maxsize, maxdepth, and the constraint checker; invalid
// candidates are discarded and resampled up to MaxRetries times before the
// call degrades to identity, so a cycle always makes forward progress.
type Mutator struct {
	Registry   *expr.Registry
	Generator  *TreeGenerator
	Checker    *expr.ConstraintChecker
	Weights    MutationWeights
	MaxSize    int
	MaxDepth   int
	MaxRetries int
	// PerturbFactor scales constant perturbation spread.
	PerturbFactor float64
}

func NewMutator(
	reg *expr.Registry,
	gen *TreeGenerator,
	checker *expr.ConstraintChecker,
	weights MutationWeights,
	maxSize, maxDepth int,
) (*Mutator, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("maxsize must be > 0")
	}
	if maxDepth <= 0 {
		return nil, fmt.Errorf("maxdepth must be > 0")
	}
	if weights.total() <= 0 {
		return nil, fmt.Errorf("mutation weights must include at least one positive weight")
	}
	if weights.PerturbConstant < 0 || weights.SwapOperator < 0 || weights.Grow < 0 ||
		weights.Shrink < 0 || weights.Randomize < 0 || weights.Identity < 0 {
		return nil, fmt.Errorf("mutation weights must be >= 0")
	}
	return &Mutator{
		Registry:      reg,
		Generator:     gen,
		Checker:       checker,
		Weights:       weights,
		MaxSize:       maxSize,
		MaxDepth:      maxDepth,
		MaxRetries:    10,
		PerturbFactor: 1.5,
	}, nil
}

// Valid reports whether a tree satisfies the structural bounds and
// constraints enforced after every accepted change.
func (m *Mutator) Valid(tree *expr.Node) bool {
	if tree == nil {
		return false
	}
	if tree.Count() > m.MaxSize {
		return false
	}
	if tree.Depth() > m.MaxDepth {
		return false
	}
	return m.Checker.Check(tree)
}

// Apply mutates a copy of the tree and returns it with the kind applied.
// The input tree is never modified.
func (m *Mutator) Apply(rng *rand.Rand, tree *expr.Node) (*expr.Node, MutationKind) {
	for attempt := 0; attempt <= m.MaxRetries; attempt++ {
		kind := m.chooseKind(rng)
		if kind == MutateIdentity {
			return tree.Clone(), MutateIdentity
		}
		candidate := m.mutate(rng, tree.Clone(), kind)
		if candidate != nil && m.Valid(candidate) {
			return candidate, kind
		}
	}
	return tree.Clone(), MutateIdentity
}

func (m *Mutator) chooseKind(rng *rand.Rand) MutationKind {
	w := m.Weights
	pick := rng.Float64() * w.total()
	pick -= w.PerturbConstant
	if pick < 0 {
		return MutatePerturbConstant
	}
	pick -= w.SwapOperator
	if pick < 0 {
		return MutateSwapOperator
	}
	pick -= w.Grow
	if pick < 0 {
		return MutateGrow
	}
	pick -= w.Shrink
	if pick < 0 {
		return MutateShrink
	}
	pick -= w.Randomize
	if pick < 0 {
		return MutateRandomize
	}
	return MutateIdentity
}

// mutate transforms the tree in place and returns it, or nil when the
// chosen mutation has no applicable site.
func (m *Mutator) mutate(rng *rand.Rand, tree *expr.Node, kind MutationKind) *expr.Node {
	switch kind {
	case MutatePerturbConstant:
		return m.perturbConstant(rng, tree)
	case MutateSwapOperator:
		return m.swapOperator(rng, tree)
	case MutateGrow:
		return m.grow(rng, tree)
	case MutateShrink:
		return m.shrink(rng, tree)
	case MutateRandomize:
		return m.randomize(rng, tree)
	default:
		return tree
	}
}

func (m *Mutator) perturbConstant(rng *rand.Rand, tree *expr.Node) *expr.Node {
	constants := tree.ConstantLeaves()
	if len(constants) == 0 {
		return nil
	}
	leaf := constants[rng.Intn(len(constants))]
	// Multiplicative perturbation with an occasional sign flip.
	factor := 1 + (rng.Float64()*2-1)*(m.PerturbFactor-1)
	leaf.Value *= factor
	if rng.Float64() < 0.1 {
		leaf.Value = -leaf.Value
	}
	return tree
}

func (m *Mutator) swapOperator(rng *rand.Rand, tree *expr.Node) *expr.Node {
	nodes := tree.Nodes()
	operators := nodes[:0:0]
	for _, node := range nodes {
		switch node.Kind {
		case expr.KindUnary:
			if len(m.Registry.Unary) > 1 {
				operators = append(operators, node)
			}
		case expr.KindBinary:
			if len(m.Registry.Binary) > 1 {
				operators = append(operators, node)
			}
		}
	}
	if len(operators) == 0 {
		return nil
	}
	node := operators[rng.Intn(len(operators))]
	if node.Kind == expr.KindUnary {
		node.Op = (node.Op + 1 + rng.Intn(len(m.Registry.Unary)-1)) % len(m.Registry.Unary)
	} else {
		node.Op = (node.Op + 1 + rng.Intn(len(m.Registry.Binary)-1)) % len(m.Registry.Binary)
	}
	return tree
}

// grow replaces a random leaf with a random operator node over fresh
// leaves, inserting one node of structure.
func (m *Mutator) grow(rng *rand.Rand, tree *expr.Node) *expr.Node {
	leaves := make([]*expr.Node, 0, 8)
	for _, node := range tree.Nodes() {
		if node.Kind == expr.KindConstant || node.Kind == expr.KindVariable {
			leaves = append(leaves, node)
		}
	}
	if len(leaves) == 0 {
		return nil
	}
	leaf := leaves[rng.Intn(len(leaves))]
	old := *leaf
	haveBinary := len(m.Registry.Binary) > 0
	haveUnary := len(m.Registry.Unary) > 0
	if haveBinary && (!haveUnary || rng.Intn(2) == 0) {
		op := rng.Intn(len(m.Registry.Binary))
		child := &expr.Node{}
		*child = old
		*leaf = *expr.Binary(op, child, m.Generator.Leaf(rng))
		if rng.Intn(2) == 0 {
			leaf.Left, leaf.Right = leaf.Right, leaf.Left
		}
	} else if haveUnary {
		op := rng.Intn(len(m.Registry.Unary))
		child := &expr.Node{}
		*child = old
		*leaf = *expr.Unary(op, child)
	} else {
		return nil
	}
	return tree
}

// shrink replaces a random operator node with one of its children. The
// result is never empty: a single-leaf tree has no operator to prune and
// the mutation reports no site.
func (m *Mutator) shrink(rng *rand.Rand, tree *expr.Node) *expr.Node {
	operators := make([]*expr.Node, 0, 8)
	for _, node := range tree.Nodes() {
		if node.Kind == expr.KindUnary || node.Kind == expr.KindBinary {
			operators = append(operators, node)
		}
	}
	if len(operators) == 0 {
		return nil
	}
	node := operators[rng.Intn(len(operators))]
	keep := node.Left
	if node.Kind == expr.KindBinary && rng.Intn(2) == 0 {
		keep = node.Right
	}
	*node = *keep
	return tree
}

// randomize replaces a random subtree with a freshly grown one of
// comparable size.
func (m *Mutator) randomize(rng *rand.Rand, tree *expr.Node) *expr.Node {
	nodes := tree.Nodes()
	node := nodes[rng.Intn(len(nodes))]
	size := node.Count()
	if size < 2 {
		size = 2
	}
	replacement := m.Generator.Grow(rng, size, m.MaxDepth)
	*node = *replacement
	return tree
}
