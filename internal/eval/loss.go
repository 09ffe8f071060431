package eval

import (
	"fmt"
	"math"
)

// LossFunc reduces predictions against targets to a scalar. Weights may be
// nil. Implementations must be deterministic for fixed inputs.
type LossFunc func(predictions, targets, weights []float64) float64

// MSE is the (weighted) mean squared error.
func MSE(predictions, targets, weights []float64) float64 {
	total, wsum := 0.0, 0.0
	for i := range predictions {
		diff := predictions[i] - targets[i]
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		total += w * diff * diff
		wsum += w
	}
	if wsum == 0 {
		return math.Inf(1)
	}
	return total / wsum
}

// MAE is the (weighted) mean absolute error.
func MAE(predictions, targets, weights []float64) float64 {
	total, wsum := 0.0, 0.0
	for i := range predictions {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		total += w * math.Abs(predictions[i]-targets[i])
		wsum += w
	}
	if wsum == 0 {
		return math.Inf(1)
	}
	return total / wsum
}

// LossByName resolves a configured loss name.
func LossByName(name string) (LossFunc, error) {
	switch name {
	case "", "mse":
		return MSE, nil
	case "mae":
		return MAE, nil
	default:
		return nil, fmt.Errorf("unknown loss function: %q", name)
	}
}
