// Package outbreak trains and serves the per-condition outbreak risk
// models: a binary classifier for outbreak/no-outbreak and a regressor for
// expected case counts. Both operate on the scaled feature vectors built
// by the features package, in the exact column order stored with the
// trained model.
package outbreak

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Dacosmicgiant/alatem-sos/features"
)

var (
	// ErrModelNotTrained means inference was requested before a model
	// pair was trained or loaded.
	ErrModelNotTrained = errors.New("outbreak model not trained")

	// ErrDegenerateTrainingData means the training set was empty or a
	// category column held a single distinct value.
	ErrDegenerateTrainingData = errors.New("degenerate training data")
)

// Scaler standardizes feature columns with statistics taken from the
// training partition. The same parameters are reused verbatim at
// inference time.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func fitScaler(x [][]float64, dims int) Scaler {
	s := Scaler{
		Mean: make([]float64, dims),
		Std:  make([]float64, dims),
	}
	col := make([]float64, len(x))
	for j := 0; j < dims; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s
}

// Transform returns a standardized copy of vec.
func (s Scaler) Transform(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for j, v := range vec {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

func (s Scaler) transformAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, vec := range x {
		out[i] = s.Transform(vec)
	}
	return out
}

// LogisticModel is the outbreak classifier. Probability output feeds the
// LOW/MEDIUM/HIGH risk buckets.
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

const (
	logisticIters = 500
	logisticRate  = 0.1
)

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// trainLogistic fits the classifier by full-batch gradient descent with a
// fixed iteration count, so training is deterministic for a given input.
func trainLogistic(x [][]float64, y []float64) LogisticModel {
	n := len(x)
	dims := len(x[0])
	w := make([]float64, dims)
	b := 0.0

	grad := make([]float64, dims)
	for iter := 0; iter < logisticIters; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0
		for i := 0; i < n; i++ {
			p := sigmoid(floats.Dot(w, x[i]) + b)
			diff := p - y[i]
			for j := 0; j < dims; j++ {
				grad[j] += diff * x[i][j]
			}
			gradB += diff
		}
		scale := logisticRate / float64(n)
		for j := 0; j < dims; j++ {
			w[j] -= scale * grad[j]
		}
		b -= scale * gradB
	}

	return LogisticModel{Weights: w, Bias: b}
}

// Probability returns P(outbreak) for a scaled feature vector.
func (m LogisticModel) Probability(vec []float64) float64 {
	return sigmoid(floats.Dot(m.Weights, vec) + m.Bias)
}

// LinearModel is the case-count regressor. Its raw output may be negative
// and is clamped by the predictor.
type LinearModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Predict returns the estimated case count for a scaled feature vector.
func (m LinearModel) Predict(vec []float64) float64 {
	return floats.Dot(m.Weights, vec) + m.Bias
}

// ModelPair is the complete trained artifact: both estimators plus the
// category codecs, scaler parameters and feature column order from the
// same training run. The five parts are only ever saved and loaded as one
// unit; mixing parts from different runs makes inference meaningless.
type ModelPair struct {
	Classifier  LogisticModel        `json:"classifier"`
	Regressor   LinearModel          `json:"regressor"`
	Areas       *features.LabelCodec `json:"areas"`
	Conditions  *features.LabelCodec `json:"conditions"`
	Scaler      Scaler               `json:"scaler"`
	FeatureCols []string             `json:"feature_cols"`
}
