package tuning

import (
	"math"
	"testing"

	"symvolve/internal/eval"
	"symvolve/internal/expr"
)

func cosineDataset(t *testing.T) *eval.Dataset {
	t.Helper()
	x := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range x {
		v := float64(i)/6 - 3
		x[i] = []float64{v}
		y[i] = 2 * math.Cos(v)
	}
	ds, err := eval.NewDataset(x, y, nil)
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	return ds
}

func TestOptimizeRecoversScaleConstant(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"*"}, []string{"cos"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	mul, _ := reg.LookupBinary("*")
	cos, _ := reg.LookupUnary("cos")
	ev := eval.NewTreeEvaluator(reg, nil)
	ds := cosineDataset(t)

	// c * cos(x0) with c far from the true 2.
	tree := expr.Binary(mul, expr.Constant(0.3), expr.Unary(cos, expr.Variable(0)))
	inputLoss, ok := ev.Loss(tree, ds)
	if !ok {
		t.Fatal("initial tree should evaluate")
	}

	opt, err := NewConstantOptimizer(ev, 100)
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}
	res := opt.Optimize(tree, ds, inputLoss)
	if !res.Improved {
		t.Fatal("optimization should improve a mis-scaled constant")
	}
	if res.Loss >= inputLoss {
		t.Fatalf("loss did not improve: %g -> %g", inputLoss, res.Loss)
	}
	if res.Loss > 1e-6 {
		t.Fatalf("expected near-exact fit, got loss %g", res.Loss)
	}
	c := tree.Left.Value
	if math.Abs(c-2) > 1e-3 {
		t.Fatalf("recovered constant %g, want about 2", c)
	}
	if res.Evaluations == 0 {
		t.Fatal("evaluations must be counted")
	}
}

func TestOptimizeNeverMakesTreeWorse(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"*"}, []string{"cos"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	mul, _ := reg.LookupBinary("*")
	cos, _ := reg.LookupUnary("cos")
	ev := eval.NewTreeEvaluator(reg, nil)
	ds := cosineDataset(t)

	// Already at the optimum: constants must come back unchanged.
	tree := expr.Binary(mul, expr.Constant(2), expr.Unary(cos, expr.Variable(0)))
	inputLoss, ok := ev.Loss(tree, ds)
	if !ok {
		t.Fatal("tree should evaluate")
	}

	opt, err := NewConstantOptimizer(ev, 50)
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}
	res := opt.Optimize(tree, ds, inputLoss)
	if res.Improved {
		if res.Loss >= inputLoss {
			t.Fatalf("claimed improvement without a better loss: %g -> %g", inputLoss, res.Loss)
		}
	} else {
		if res.Loss != inputLoss {
			t.Fatalf("non-improving call must return the input loss, got %g", res.Loss)
		}
		if tree.Left.Value != 2 {
			t.Fatalf("non-improving call must restore constants, got %g", tree.Left.Value)
		}
	}
}

func TestOptimizeWithoutConstantsIsNoop(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"*"}, []string{"cos"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	ev := eval.NewTreeEvaluator(reg, nil)
	ds := cosineDataset(t)
	cos, _ := reg.LookupUnary("cos")

	tree := expr.Unary(cos, expr.Variable(0))
	opt, err := NewConstantOptimizer(ev, 50)
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}
	res := opt.Optimize(tree, ds, 0.75)
	if res.Improved || res.Loss != 0.75 || res.Evaluations != 0 {
		t.Fatalf("constant-free tree must be untouched, got %+v", res)
	}
}

func TestNewConstantOptimizerValidates(t *testing.T) {
	reg, _ := expr.NewRegistry([]string{"*"}, nil)
	ev := eval.NewTreeEvaluator(reg, nil)
	if _, err := NewConstantOptimizer(nil, 10); err == nil {
		t.Fatal("expected error for nil evaluator")
	}
	if _, err := NewConstantOptimizer(ev, 0); err == nil {
		t.Fatal("expected error for zero iterations")
	}
}
