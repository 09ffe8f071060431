package expr

import (
	"fmt"
	"math"
)

// UnaryOp is a named single-argument operator.
type UnaryOp struct {
	Name string
	Fn   func(float64) float64
}

// BinaryOp is a named two-argument operator.
type BinaryOp struct {
	Name string
	Fn   func(float64, float64) float64
}

// Registry is the closed operator table for one run. It is resolved once at
// setup; tree nodes index into it and never carry names. The registry is
// immutable after construction and safe for concurrent readers.
type Registry struct {
	Unary  []UnaryOp
	Binary []BinaryOp

	unaryByName  map[string]int
	binaryByName map[string]int

	// Indices of the arithmetic operators when present, -1 otherwise.
	// CombineOperators and the infix formatter consult these.
	AddOp int
	SubOp int
	MulOp int
	DivOp int
}

var builtinBinary = map[string]func(float64, float64) float64{
	"+":   func(a, b float64) float64 { return a + b },
	"-":   func(a, b float64) float64 { return a - b },
	"*":   func(a, b float64) float64 { return a * b },
	"/":   func(a, b float64) float64 { return a / b },
	"pow": math.Pow,
	"mod": math.Mod,
	"min": math.Min,
	"max": math.Max,
}

var builtinUnary = map[string]func(float64) float64{
	"cos":  math.Cos,
	"sin":  math.Sin,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"tanh": math.Tanh,
	"neg":  func(a float64) float64 { return -a },
	"inv":  func(a float64) float64 { return 1 / a },
	"sq":   func(a float64) float64 { return a * a },
	"cube": func(a float64) float64 { return a * a * a },
}

// NewRegistry resolves operator names into a closed table. Unknown or
// duplicated names are configuration errors and fail before any search
// state is created.
func NewRegistry(binary, unary []string) (*Registry, error) {
	if len(binary) == 0 && len(unary) == 0 {
		return nil, fmt.Errorf("at least one operator is required")
	}
	reg := &Registry{
		unaryByName:  make(map[string]int, len(unary)),
		binaryByName: make(map[string]int, len(binary)),
		AddOp:        -1,
		SubOp:        -1,
		MulOp:        -1,
		DivOp:        -1,
	}
	for _, name := range binary {
		fn, ok := builtinBinary[name]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator: %q", name)
		}
		if _, exists := reg.binaryByName[name]; exists {
			return nil, fmt.Errorf("duplicate binary operator: %q", name)
		}
		reg.binaryByName[name] = len(reg.Binary)
		reg.Binary = append(reg.Binary, BinaryOp{Name: name, Fn: fn})
	}
	for _, name := range unary {
		fn, ok := builtinUnary[name]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator: %q", name)
		}
		if _, exists := reg.unaryByName[name]; exists {
			return nil, fmt.Errorf("duplicate unary operator: %q", name)
		}
		reg.unaryByName[name] = len(reg.Unary)
		reg.Unary = append(reg.Unary, UnaryOp{Name: name, Fn: fn})
	}
	if idx, ok := reg.binaryByName["+"]; ok {
		reg.AddOp = idx
	}
	if idx, ok := reg.binaryByName["-"]; ok {
		reg.SubOp = idx
	}
	if idx, ok := reg.binaryByName["*"]; ok {
		reg.MulOp = idx
	}
	if idx, ok := reg.binaryByName["/"]; ok {
		reg.DivOp = idx
	}
	return reg, nil
}

func (r *Registry) LookupUnary(name string) (int, bool) {
	idx, ok := r.unaryByName[name]
	return idx, ok
}

func (r *Registry) LookupBinary(name string) (int, bool) {
	idx, ok := r.binaryByName[name]
	return idx, ok
}

func (r *Registry) UnaryName(op int) string {
	if op < 0 || op >= len(r.Unary) {
		return fmt.Sprintf("unary(%d)", op)
	}
	return r.Unary[op].Name
}

func (r *Registry) BinaryName(op int) string {
	if op < 0 || op >= len(r.Binary) {
		return fmt.Sprintf("binary(%d)", op)
	}
	return r.Binary[op].Name
}

// Validate checks that every operator index in the tree resolves and that
// arity matches node kind.
func (r *Registry) Validate(tree *Node) error {
	for _, node := range tree.Nodes() {
		switch node.Kind {
		case KindConstant:
			if node.Left != nil || node.Right != nil {
				return fmt.Errorf("constant node has children")
			}
		case KindVariable:
			if node.Left != nil || node.Right != nil {
				return fmt.Errorf("variable node has children")
			}
			if node.Index < 0 {
				return fmt.Errorf("negative variable index: %d", node.Index)
			}
		case KindUnary:
			if node.Op < 0 || node.Op >= len(r.Unary) {
				return fmt.Errorf("unary operator index out of range: %d", node.Op)
			}
			if node.Left == nil || node.Right != nil {
				return fmt.Errorf("unary node arity mismatch")
			}
		case KindBinary:
			if node.Op < 0 || node.Op >= len(r.Binary) {
				return fmt.Errorf("binary operator index out of range: %d", node.Op)
			}
			if node.Left == nil || node.Right == nil {
				return fmt.Errorf("binary node arity mismatch")
			}
		default:
			return fmt.Errorf("unknown node kind: %d", node.Kind)
		}
	}
	return nil
}
