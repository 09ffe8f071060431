package expr

import (
	"fmt"

	"symvolve/internal/model"
)

type Kind uint8

const (
	KindConstant Kind = iota
	KindVariable
	KindUnary
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindVariable:
		return "variable"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is one node of an expression tree. A tree is exclusively owned by its
// holder: duplication always goes through Clone, nodes are never shared
// between trees and trees never contain cycles. Operator nodes carry a
// registry index, not a name.
type Node struct {
	Kind  Kind
	Value float64 // KindConstant
	Index int     // KindVariable: feature index
	Op    int     // KindUnary/KindBinary: registry index

	Left  *Node // unary child or binary left
	Right *Node // binary right
}

func Constant(value float64) *Node {
	return &Node{Kind: KindConstant, Value: value}
}

func Variable(index int) *Node {
	return &Node{Kind: KindVariable, Index: index}
}

func Unary(op int, child *Node) *Node {
	return &Node{Kind: KindUnary, Op: op, Left: child}
}

func Binary(op int, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
}

// Clone deep-copies the tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Value: n.Value, Index: n.Index, Op: n.Op}
	out.Left = n.Left.Clone()
	out.Right = n.Right.Clone()
	return out
}

// Count returns the number of nodes. Traversal is iterative so arbitrarily
// deep trees cannot blow the goroutine stack.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	count := 0
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		if cur.Left != nil {
			stack = append(stack, cur.Left)
		}
		if cur.Right != nil {
			stack = append(stack, cur.Right)
		}
	}
	return count
}

// Depth returns the depth of the tree; a single leaf has depth 1.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	type frame struct {
		node  *Node
		depth int
	}
	maxDepth := 0
	stack := []frame{{n, 1}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.depth > maxDepth {
			maxDepth = cur.depth
		}
		if cur.node.Left != nil {
			stack = append(stack, frame{cur.node.Left, cur.depth + 1})
		}
		if cur.node.Right != nil {
			stack = append(stack, frame{cur.node.Right, cur.depth + 1})
		}
	}
	return maxDepth
}

// Nodes collects every node in preorder.
func (n *Node) Nodes() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, 16)
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		if cur.Right != nil {
			stack = append(stack, cur.Right)
		}
		if cur.Left != nil {
			stack = append(stack, cur.Left)
		}
	}
	return out
}

// ConstantLeaves collects pointers to every constant node in preorder. The
// constant optimizer mutates values through these pointers with the tree
// structure fixed.
func (n *Node) ConstantLeaves() []*Node {
	leaves := make([]*Node, 0, 4)
	for _, node := range n.Nodes() {
		if node.Kind == KindConstant {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// Equal reports structural equality, comparing constant values exactly.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind {
		return false
	}
	switch n.Kind {
	case KindConstant:
		return n.Value == other.Value
	case KindVariable:
		return n.Index == other.Index
	case KindUnary:
		return n.Op == other.Op && n.Left.Equal(other.Left)
	case KindBinary:
		return n.Op == other.Op && n.Left.Equal(other.Left) && n.Right.Equal(other.Right)
	}
	return false
}

// ToRecord serializes the tree for storage.
func (n *Node) ToRecord() model.NodeRecord {
	if n == nil {
		return model.NodeRecord{}
	}
	rec := model.NodeRecord{
		Kind:     n.Kind.String(),
		Value:    n.Value,
		Variable: n.Index,
		Op:       n.Op,
	}
	if n.Left != nil {
		rec.Children = append(rec.Children, n.Left.ToRecord())
	}
	if n.Right != nil {
		rec.Children = append(rec.Children, n.Right.ToRecord())
	}
	return rec
}

// FromRecord rebuilds a tree from its serialized form.
func FromRecord(rec model.NodeRecord) (*Node, error) {
	switch rec.Kind {
	case KindConstant.String():
		if len(rec.Children) != 0 {
			return nil, fmt.Errorf("constant node with %d children", len(rec.Children))
		}
		return Constant(rec.Value), nil
	case KindVariable.String():
		if len(rec.Children) != 0 {
			return nil, fmt.Errorf("variable node with %d children", len(rec.Children))
		}
		return Variable(rec.Variable), nil
	case KindUnary.String():
		if len(rec.Children) != 1 {
			return nil, fmt.Errorf("unary node with %d children", len(rec.Children))
		}
		child, err := FromRecord(rec.Children[0])
		if err != nil {
			return nil, err
		}
		return Unary(rec.Op, child), nil
	case KindBinary.String():
		if len(rec.Children) != 2 {
			return nil, fmt.Errorf("binary node with %d children", len(rec.Children))
		}
		left, err := FromRecord(rec.Children[0])
		if err != nil {
			return nil, err
		}
		right, err := FromRecord(rec.Children[1])
		if err != nil {
			return nil, err
		}
		return Binary(rec.Op, left, right), nil
	default:
		return nil, fmt.Errorf("unknown node kind: %q", rec.Kind)
	}
}
