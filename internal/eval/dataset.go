package eval

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Dataset holds the training samples. It is read-only after construction
// and freely shared across populations and workers.
type Dataset struct {
	X        [][]float64 // X[i] is the feature vector of sample i
	Y        []float64
	Weights  []float64 // optional, same length as Y when present
	features int
}

func NewDataset(x [][]float64, y, weights []float64) (*Dataset, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("sample count mismatch: x=%d y=%d", len(x), len(y))
	}
	features := len(x[0])
	if features == 0 {
		return nil, fmt.Errorf("dataset has no features")
	}
	for i, row := range x {
		if len(row) != features {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), features)
		}
	}
	if weights != nil && len(weights) != len(y) {
		return nil, fmt.Errorf("weight count mismatch: weights=%d y=%d", len(weights), len(y))
	}
	return &Dataset{X: x, Y: y, Weights: weights, features: features}, nil
}

func (d *Dataset) NumSamples() int {
	return len(d.Y)
}

func (d *Dataset) NumFeatures() int {
	return d.features
}

// BaselineVariance is the variance of the targets, the loss of the best
// constant predictor. Used to normalize reported losses.
func (d *Dataset) BaselineVariance() float64 {
	return stat.Variance(d.Y, d.Weights)
}
