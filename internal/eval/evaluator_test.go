package eval

import (
	"math"
	"testing"

	"symvolve/internal/expr"
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	x := [][]float64{{1, 0}, {2, math.Pi}, {3, math.Pi / 2}, {-1, -math.Pi}}
	y := []float64{1, -2, 0, -1}
	ds, err := NewDataset(x, y, nil)
	if err != nil {
		t.Fatalf("new dataset: %v", err)
	}
	return ds
}

func TestEvaluateKnownTrees(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"+", "*"}, []string{"cos"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	mul, _ := reg.LookupBinary("*")
	cos, _ := reg.LookupUnary("cos")
	ev := NewTreeEvaluator(reg, nil)
	ds := testDataset(t)

	// 2 * cos(x1) over the four samples.
	tree := expr.Binary(mul, expr.Constant(2), expr.Unary(cos, expr.Variable(1)))
	predictions, ok := ev.Evaluate(tree, ds)
	if !ok {
		t.Fatal("evaluation flagged invalid")
	}
	want := []float64{2, -2, 0, -2}
	for i := range want {
		if math.Abs(predictions[i]-want[i]) > 1e-12 {
			t.Fatalf("prediction %d: got %g, want %g", i, predictions[i], want[i])
		}
	}
}

func TestLossMatchesManualMSE(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"+"}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	ev := NewTreeEvaluator(reg, MSE)
	ds := testDataset(t)

	// Constant 0 prediction: MSE = mean(y^2).
	loss, ok := ev.Loss(expr.Constant(0), ds)
	if !ok {
		t.Fatal("loss flagged invalid")
	}
	want := (1.0 + 4.0 + 0.0 + 1.0) / 4.0
	if math.Abs(loss-want) > 1e-12 {
		t.Fatalf("loss: got %g, want %g", loss, want)
	}
}

func TestNonFinitePredictionsAreFlagged(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"/"}, []string{"log", "sqrt"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	div, _ := reg.LookupBinary("/")
	logOp, _ := reg.LookupUnary("log")
	sqrt, _ := reg.LookupUnary("sqrt")
	ev := NewTreeEvaluator(reg, nil)
	ds := testDataset(t)

	cases := []struct {
		name string
		tree *expr.Node
	}{
		{"divide by zero", expr.Binary(div, expr.Constant(1), expr.Constant(0))},
		{"log of negative", expr.Unary(logOp, expr.Variable(0))},
		{"sqrt of negative", expr.Unary(sqrt, expr.Variable(0))},
	}
	for _, tc := range cases {
		if _, ok := ev.Evaluate(tc.tree, ds); ok {
			t.Fatalf("%s: expected invalid", tc.name)
		}
		loss, ok := ev.Loss(tc.tree, ds)
		if ok {
			t.Fatalf("%s: expected invalid loss", tc.name)
		}
		if !math.IsInf(loss, 1) {
			t.Fatalf("%s: invalid loss should be +Inf, got %g", tc.name, loss)
		}
	}
}

func TestVariableIndexOutOfRangeIsInvalid(t *testing.T) {
	reg, err := expr.NewRegistry([]string{"+"}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	ev := NewTreeEvaluator(reg, nil)
	ds := testDataset(t)
	if _, ok := ev.Evaluate(expr.Variable(9), ds); ok {
		t.Fatal("out-of-range variable should be invalid")
	}
}

func TestWeightedLossesFavorWeightedSamples(t *testing.T) {
	y := []float64{0, 10}
	weights := []float64{3, 1}
	predictions := []float64{0, 0}

	if got, want := MSE(predictions, y, weights), 25.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("weighted MSE: got %g, want %g", got, want)
	}
	if got, want := MAE(predictions, y, weights), 2.5; math.Abs(got-want) > 1e-12 {
		t.Fatalf("weighted MAE: got %g, want %g", got, want)
	}
}

func TestNewDatasetValidatesShape(t *testing.T) {
	if _, err := NewDataset(nil, nil, nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if _, err := NewDataset([][]float64{{1}, {2}}, []float64{1}, nil); err == nil {
		t.Fatal("expected error for sample count mismatch")
	}
	if _, err := NewDataset([][]float64{{1}, {2, 3}}, []float64{1, 2}, nil); err == nil {
		t.Fatal("expected error for ragged rows")
	}
	if _, err := NewDataset([][]float64{{1}}, []float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for weight count mismatch")
	}
}

func TestLossByName(t *testing.T) {
	if _, err := LossByName("mse"); err != nil {
		t.Fatalf("mse: %v", err)
	}
	if _, err := LossByName(""); err != nil {
		t.Fatalf("default: %v", err)
	}
	if _, err := LossByName("huber"); err == nil {
		t.Fatal("expected error for unknown loss")
	}
}
