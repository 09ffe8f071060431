package expr

import "math"

// Simplify folds operator nodes whose children are all constants into a
// single constant leaf, bottom-up. Folds producing non-finite values are
// left in place so the evaluator keeps flagging them. Returns a new tree;
// the input is not modified.
func Simplify(reg *Registry, tree *Node) *Node {
	if tree == nil {
		return nil
	}
	out := &Node{Kind: tree.Kind, Value: tree.Value, Index: tree.Index, Op: tree.Op}
	out.Left = Simplify(reg, tree.Left)
	out.Right = Simplify(reg, tree.Right)

	switch out.Kind {
	case KindUnary:
		if out.Left.Kind == KindConstant {
			v := reg.Unary[out.Op].Fn(out.Left.Value)
			if isFinite(v) {
				return Constant(v)
			}
		}
	case KindBinary:
		if out.Left.Kind == KindConstant && out.Right.Kind == KindConstant {
			v := reg.Binary[out.Op].Fn(out.Left.Value, out.Right.Value)
			if isFinite(v) {
				return Constant(v)
			}
		}
	}
	return out
}

// CombineOperators folds adjacent compatible arithmetic nodes so constants
// accumulate into a single leaf: (x+a)+b becomes x+(a+b), a*(b*x) becomes
// (a*b)*x, and subtraction chains such as (x-a)-b collapse their constant
// parts. Only + - * participate; everything else is copied unchanged.
func CombineOperators(reg *Registry, tree *Node) *Node {
	if tree == nil {
		return nil
	}
	out := &Node{Kind: tree.Kind, Value: tree.Value, Index: tree.Index, Op: tree.Op}
	out.Left = CombineOperators(reg, tree.Left)
	out.Right = CombineOperators(reg, tree.Right)

	if out.Kind != KindBinary {
		return out
	}
	switch out.Op {
	case reg.AddOp:
		if reg.AddOp >= 0 {
			out = combineCommutative(out, out.Op, func(a, b float64) float64 { return a + b })
		}
	case reg.MulOp:
		if reg.MulOp >= 0 {
			out = combineCommutative(out, out.Op, func(a, b float64) float64 { return a * b })
		}
	case reg.SubOp:
		if reg.SubOp >= 0 {
			out = combineSubtraction(reg, out)
		}
	}
	return out
}

// combineCommutative merges the constant operand of a child node with a
// constant operand of the parent for a commutative operator.
func combineCommutative(node *Node, op int, fold func(float64, float64) float64) *Node {
	parentConst, parentOther := constantOperand(node)
	if parentConst == nil {
		return node
	}
	if parentOther.Kind != KindBinary || parentOther.Op != op {
		return node
	}
	childConst, childOther := constantOperand(parentOther)
	if childConst == nil {
		return node
	}
	merged := fold(parentConst.Value, childConst.Value)
	if !isFinite(merged) {
		return node
	}
	return Binary(op, Constant(merged), childOther)
}

func constantOperand(node *Node) (constant, other *Node) {
	if node.Left.Kind == KindConstant {
		return node.Left, node.Right
	}
	if node.Right.Kind == KindConstant {
		return node.Right, node.Left
	}
	return nil, nil
}

// combineSubtraction collapses constant parts of nested subtraction:
// (x-a)-b => x-(a+b), (a-x)-b => (a-b)-x, a-(x-b) => (a+b)-x,
// a-(b-x) => (a-b)+x when + is available.
func combineSubtraction(reg *Registry, node *Node) *Node {
	sub := reg.SubOp
	if node.Left.Kind == KindBinary && node.Left.Op == sub && node.Right.Kind == KindConstant {
		b := node.Right.Value
		inner := node.Left
		if inner.Right.Kind == KindConstant {
			// (x - a) - b => x - (a+b)
			merged := inner.Right.Value + b
			if isFinite(merged) {
				return Binary(sub, inner.Left, Constant(merged))
			}
		}
		if inner.Left.Kind == KindConstant {
			// (a - x) - b => (a-b) - x
			merged := inner.Left.Value - b
			if isFinite(merged) {
				return Binary(sub, Constant(merged), inner.Right)
			}
		}
	}
	if node.Right.Kind == KindBinary && node.Right.Op == sub && node.Left.Kind == KindConstant {
		a := node.Left.Value
		inner := node.Right
		if inner.Right.Kind == KindConstant {
			// a - (x - b) => (a+b) - x
			merged := a + inner.Right.Value
			if isFinite(merged) {
				return Binary(sub, Constant(merged), inner.Left)
			}
		}
		if inner.Left.Kind == KindConstant && reg.AddOp >= 0 {
			// a - (b - x) => (a-b) + x
			merged := a - inner.Left.Value
			if isFinite(merged) {
				return Binary(reg.AddOp, Constant(merged), inner.Right)
			}
		}
	}
	return node
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
