package eval

import (
	"math"

	"symvolve/internal/expr"
)

// Evaluator turns a tree and a dataset into predictions and a loss. It
// reports numeric invalidity through the ok flag instead of failing: a
// false ok means the predictions contain non-finite values and the
// candidate must be rejected.
type Evaluator interface {
	Evaluate(tree *expr.Node, ds *Dataset) (predictions []float64, ok bool)
	Loss(tree *expr.Node, ds *Dataset) (loss float64, ok bool)
}

// TreeEvaluator evaluates expression trees against the operator registry,
// one vector per node over all samples. Evaluation is iterative post-order,
// so tree depth never becomes goroutine stack depth.
type TreeEvaluator struct {
	Registry *expr.Registry
	LossFn   LossFunc
}

func NewTreeEvaluator(reg *expr.Registry, loss LossFunc) *TreeEvaluator {
	if loss == nil {
		loss = MSE
	}
	return &TreeEvaluator{Registry: reg, LossFn: loss}
}

func (e *TreeEvaluator) Evaluate(tree *expr.Node, ds *Dataset) ([]float64, bool) {
	if tree == nil {
		return nil, false
	}
	out, ok := e.evalVector(tree, ds)
	if !ok {
		return nil, false
	}
	return out, true
}

func (e *TreeEvaluator) Loss(tree *expr.Node, ds *Dataset) (float64, bool) {
	predictions, ok := e.Evaluate(tree, ds)
	if !ok {
		return math.Inf(1), false
	}
	loss := e.LossFn(predictions, ds.Y, ds.Weights)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return math.Inf(1), false
	}
	return loss, true
}

// evalVector computes the value of every node over all samples using an
// explicit post-order stack. Each intermediate vector is scanned for
// non-finite values so invalid candidates fail fast.
func (e *TreeEvaluator) evalVector(root *expr.Node, ds *Dataset) ([]float64, bool) {
	n := ds.NumSamples()

	type frame struct {
		node    *expr.Node
		visited bool
	}
	stack := []frame{{node: root}}
	results := make(map[*expr.Node][]float64, 16)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		node := top.node
		if !top.visited {
			top.visited = true
			if node.Right != nil {
				stack = append(stack, frame{node: node.Right})
			}
			if node.Left != nil {
				stack = append(stack, frame{node: node.Left})
			}
			continue
		}
		stack = stack[:len(stack)-1]

		out := make([]float64, n)
		switch node.Kind {
		case expr.KindConstant:
			for i := range out {
				out[i] = node.Value
			}
		case expr.KindVariable:
			if node.Index < 0 || node.Index >= ds.NumFeatures() {
				return nil, false
			}
			for i := range out {
				out[i] = ds.X[i][node.Index]
			}
		case expr.KindUnary:
			fn := e.Registry.Unary[node.Op].Fn
			child := results[node.Left]
			for i := range out {
				out[i] = fn(child[i])
			}
			delete(results, node.Left)
		case expr.KindBinary:
			fn := e.Registry.Binary[node.Op].Fn
			left := results[node.Left]
			right := results[node.Right]
			for i := range out {
				out[i] = fn(left[i], right[i])
			}
			delete(results, node.Left)
			delete(results, node.Right)
		}
		for i := range out {
			if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
				return nil, false
			}
		}
		results[node] = out
	}
	return results[root], true
}
