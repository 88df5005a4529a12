package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1/(1+math.Exp(-2)), Sigmoid(2), 1e-15)
	assert.InDelta(t, 1/(1+math.Exp(3)), Sigmoid(-3), 1e-15)
}

func TestSigmoid_Extremes(t *testing.T) {
	for _, x := range []float64{-1e308, -1000, -745, 745, 1000, 1e308} {
		p := Sigmoid(x)
		assert.False(t, math.IsNaN(p), "x=%v", x)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
	assert.Equal(t, 1.0, Sigmoid(1000))
	assert.Equal(t, 0.0, Sigmoid(-1000))
}

func TestLogOnePlusExp(t *testing.T) {
	assert.InDelta(t, math.Log(2), logOnePlusExp(0), 1e-15)
	assert.InDelta(t, 1000.0, logOnePlusExp(1000), 1e-9)
	assert.InDelta(t, 0.0, logOnePlusExp(-1000), 1e-15)
}

func separableBatch() ([]Features, []int) {
	x := make([]Features, 0, 200)
	y := make([]int, 0, 200)
	for i := 0; i < 100; i++ {
		v := float64(i%10) / 10
		x = append(x, Features{0, 0, 1 + v, 0, 0})
		y = append(y, 1)
		x = append(x, Features{0, 0, -1 - v, 0, 0})
		y = append(y, 0)
	}
	// a few noisy rows keep the optimum finite without relying on the penalty
	x = append(x, Features{0, 0, 1.5, 0, 0}, Features{0, 0, -1.5, 0, 0})
	y = append(y, 0, 1)
	return x, y
}

func TestFitLogistic_LearnsDirection(t *testing.T) {
	x, y := separableBatch()
	w, err := FitLogistic(x, y, LogisticOptions{})
	require.NoError(t, err)

	assert.Greater(t, w.Coef[AvgPayDelay], 1.0)
	assert.InDelta(t, 0.0, w.Coef[LimitBalance], 1e-12)
	assert.Greater(t, w.PredictPD(Features{0, 0, 2, 0, 0}), 0.9)
	assert.Less(t, w.PredictPD(Features{0, 0, -2, 0, 0}), 0.1)
}

func TestFitLogistic_Deterministic(t *testing.T) {
	x, y := separableBatch()
	w1, err := FitLogistic(x, y, LogisticOptions{})
	require.NoError(t, err)
	w2, err := FitLogistic(x, y, LogisticOptions{})
	require.NoError(t, err)
	assert.Equal(t, w1, w2)
}

func TestFitLogistic_StrongerPenaltyShrinks(t *testing.T) {
	x, y := separableBatch()
	loose, err := FitLogistic(x, y, LogisticOptions{C: 10})
	require.NoError(t, err)
	tight, err := FitLogistic(x, y, LogisticOptions{C: 0.001})
	require.NoError(t, err)
	assert.Less(t, math.Abs(tight.Coef[AvgPayDelay]), math.Abs(loose.Coef[AvgPayDelay]))
}

func TestFitLogistic_Errors(t *testing.T) {
	_, err := FitLogistic(nil, nil, LogisticOptions{})
	assert.Error(t, err)

	_, err = FitLogistic([]Features{{}}, []int{1, 0}, LogisticOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = FitLogistic([]Features{{}, {}}, []int{1, 2}, LogisticOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWeights_PredictPD_LargeMagnitude(t *testing.T) {
	w := Weights{Coef: [NumFeatures]float64{1e300, 1e300, 0, 0, 0}}
	pd := w.PredictPD(Features{1e10, 1e10, 0, 0, 0})
	assert.False(t, math.IsNaN(pd))
	assert.Equal(t, 1.0, pd)
}
