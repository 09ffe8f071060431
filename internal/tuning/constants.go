// Package tuning refines the constants embedded in an expression tree with
// the structure held fixed.
package tuning

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"symvolve/internal/eval"
	"symvolve/internal/expr"
)

// ConstantOptimizer runs a bounded gradient-free local search over the
// constant leaves of a tree. It never makes a tree worse: when the
// optimizer fails or fails to improve, the original constants are
// restored. There is no global-optimum guarantee.
type ConstantOptimizer struct {
	Evaluator eval.Evaluator
	// MaxIterations bounds the Nelder-Mead major iterations.
	MaxIterations int
}

func NewConstantOptimizer(evaluator eval.Evaluator, maxIterations int) (*ConstantOptimizer, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be > 0")
	}
	return &ConstantOptimizer{Evaluator: evaluator, MaxIterations: maxIterations}, nil
}

// Result reports the outcome of one optimization call.
type Result struct {
	Loss        float64
	Improved    bool
	Evaluations int
}

// Optimize refines the tree's constants in place and returns the resulting
// loss plus the number of loss evaluations spent. A tree without constants
// is returned unchanged at its input loss.
func (o *ConstantOptimizer) Optimize(tree *expr.Node, ds *eval.Dataset, inputLoss float64) Result {
	leaves := tree.ConstantLeaves()
	if len(leaves) == 0 {
		return Result{Loss: inputLoss}
	}

	original := make([]float64, len(leaves))
	for i, leaf := range leaves {
		original[i] = leaf.Value
	}

	evaluations := 0
	objective := func(constants []float64) float64 {
		evaluations++
		for i, leaf := range leaves {
			leaf.Value = constants[i]
		}
		loss, ok := o.Evaluator.Loss(tree, ds)
		if !ok {
			return math.Inf(1)
		}
		return loss
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: o.MaxIterations,
		FuncEvaluations: o.MaxIterations * 4 * (len(leaves) + 1),
	}
	initial := append([]float64(nil), original...)
	result, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})

	restore := func() Result {
		for i, leaf := range leaves {
			leaf.Value = original[i]
		}
		return Result{Loss: inputLoss, Evaluations: evaluations}
	}

	if err != nil && result == nil {
		return restore()
	}
	if result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) || result.F >= inputLoss {
		return restore()
	}
	for i, leaf := range leaves {
		leaf.Value = result.X[i]
	}
	return Result{Loss: result.F, Improved: true, Evaluations: evaluations}
}
