package outbreak

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/Dacosmicgiant/alatem-sos/features"
	"github.com/Dacosmicgiant/alatem-sos/models"
)

// TrainConfig carries the externally configured training inputs: the
// per-condition outbreak thresholds used for labeling, the shuffle seed
// and the held-out fraction.
type TrainConfig struct {
	Thresholds   map[string]int
	Seed         int64
	TestFraction float64
}

// Train fits a new model pair on the full report history. It fails on an
// empty input set or a single-valued category column rather than
// defaulting silently.
func Train(reports []models.HealthReport, cfg TrainConfig) (*ModelPair, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: empty report set", ErrDegenerateTrainingData)
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = 0.2
	}

	builder := features.NewBuilder()
	rows, err := builder.Build(reports)
	if err != nil {
		return nil, fmt.Errorf("feature build failed: %w", err)
	}
	if builder.Areas.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 distinct areas, got %d",
			ErrDegenerateTrainingData, builder.Areas.Len())
	}
	if builder.Conditions.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 distinct conditions, got %d",
			ErrDegenerateTrainingData, builder.Conditions.Len())
	}

	x := make([][]float64, len(rows))
	yOutbreak := make([]float64, len(rows))
	yCases := make([]float64, len(rows))
	for i := range rows {
		vec, err := features.Assemble(rows[i].Values(), features.FeatureCols)
		if err != nil {
			return nil, err
		}
		x[i] = vec

		threshold, ok := cfg.Thresholds[rows[i].Condition]
		if !ok {
			return nil, fmt.Errorf("no outbreak threshold configured for condition %q", rows[i].Condition)
		}
		if rows[i].Cases >= threshold {
			yOutbreak[i] = 1
		}
		yCases[i] = float64(rows[i].Cases)
	}

	trainIdx, testIdx := splitIndices(len(rows), cfg.TestFraction, cfg.Seed)
	if len(trainIdx) == 0 {
		return nil, fmt.Errorf("%w: no training rows after split", ErrDegenerateTrainingData)
	}

	scaler := fitScaler(gather(x, trainIdx), len(features.FeatureCols))
	xTrain := scaler.transformAll(gather(x, trainIdx))
	xTest := scaler.transformAll(gather(x, testIdx))

	classifier := trainLogistic(xTrain, gatherVals(yOutbreak, trainIdx))
	regressor, err := trainLinear(xTrain, gatherVals(yCases, trainIdx))
	if err != nil {
		return nil, fmt.Errorf("regressor fit failed: %w", err)
	}

	if len(testIdx) > 0 {
		acc := accuracy(classifier, xTest, gatherVals(yOutbreak, testIdx))
		mae := meanAbsError(regressor, xTest, gatherVals(yCases, testIdx))
		log.Printf("model trained: rows=%d train=%d test=%d outbreak_accuracy=%.3f cases_mae=%.2f",
			len(rows), len(trainIdx), len(testIdx), acc, mae)
	} else {
		log.Printf("model trained: rows=%d train=%d (no held-out rows)", len(rows), len(trainIdx))
	}
	logTopWeights(classifier, features.FeatureCols)

	return &ModelPair{
		Classifier:  classifier,
		Regressor:   regressor,
		Areas:       builder.Areas,
		Conditions:  builder.Conditions,
		Scaler:      scaler,
		FeatureCols: append([]string(nil), features.FeatureCols...),
	}, nil
}

// splitIndices shuffles row indices with the given seed and carves off the
// trailing testFraction as the held-out partition.
func splitIndices(n int, testFraction float64, seed int64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(float64(n) * testFraction)
	if nTest >= n {
		nTest = n - 1
	}
	return idx[:n-nTest], idx[n-nTest:]
}

func gather(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, k := range idx {
		out[i] = x[k]
	}
	return out
}

func gatherVals(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = y[k]
	}
	return out
}

// trainLinear solves the least-squares problem for the case regressor,
// with an intercept column prepended to the design matrix.
func trainLinear(x [][]float64, y []float64) (LinearModel, error) {
	n := len(x)
	dims := len(x[0])

	a := mat.NewDense(n, dims+1, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < dims; j++ {
			a.Set(i, j+1, x[i][j])
		}
	}
	b := mat.NewVecDense(n, y)

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		// An ill-conditioned system still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return LinearModel{}, err
		}
	}

	weights := make([]float64, dims)
	for j := 0; j < dims; j++ {
		weights[j] = coef.AtVec(j + 1)
	}
	return LinearModel{Weights: weights, Bias: coef.AtVec(0)}, nil
}

func accuracy(m LogisticModel, x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i := range x {
		pred := 0.0
		if m.Probability(x[i]) > 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func meanAbsError(m LinearModel, x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i := range x {
		sum += math.Abs(m.Predict(x[i]) - y[i])
	}
	return sum / float64(len(x))
}

func logTopWeights(m LogisticModel, cols []string) {
	type weighted struct {
		col string
		w   float64
	}
	ranked := make([]weighted, len(cols))
	for i, col := range cols {
		ranked[i] = weighted{col: col, w: math.Abs(m.Weights[i])}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].w > ranked[j].w })

	top := 5
	if len(ranked) < top {
		top = len(ranked)
	}
	for i := 0; i < top; i++ {
		log.Printf("classifier weight %d: %s=%.4f", i+1, ranked[i].col, ranked[i].w)
	}
}
