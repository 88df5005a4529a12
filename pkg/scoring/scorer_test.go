package scoring

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceInput() Input {
	return Input{
		LimitBalance:      ptr(200000),
		Age:               ptr(35),
		AvgPayDelay:       ptr(0),
		CreditUtilization: ptr(0.3),
		PaymentRatio:      ptr(0.5),
	}
}

func TestScorer_Score(t *testing.T) {
	s, err := NewScorer(testArtifact())
	require.NoError(t, err)

	res, err := s.Score(referenceInput())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.PD, 0.0)
	assert.LessOrEqual(t, res.PD, 1.0)
	assert.GreaterOrEqual(t, res.CreditScore, MinCreditScore)
	assert.LessOrEqual(t, res.CreditScore, MaxCreditScore)
	assert.Equal(t, RiskTierFromScore(res.CreditScore), res.RiskTier)

	// hand computed against the test artifact
	z := (200000-167484)/129747.0*-0.1 +
		(35-35.5)/9.2*0.05 +
		(0+0.1)/0.8*0.6 +
		(0.3-0.42)/0.41*0.1 +
		(0.5-0.3)/1.5*-0.05 - 1.4
	assert.InDelta(t, 1/(1+math.Exp(-z)), res.PD, 1e-12)
	assert.Equal(t, 740, res.CreditScore)
	assert.Equal(t, RiskTierMedium, res.RiskTier)
}

func TestScorer_FittedEndToEnd(t *testing.T) {
	s, err := NewScorer(fittedArtifact(t))
	require.NoError(t, err)

	res, err := s.Score(referenceInput())
	require.NoError(t, err)
	assert.True(t, res.PD > 0 && res.PD < 1)
	assert.Equal(t, RiskTierFromScore(res.CreditScore), res.RiskTier)
}

func TestScorer_InvalidInput(t *testing.T) {
	s, err := NewScorer(testArtifact())
	require.NoError(t, err)

	missing := referenceInput()
	missing.PaymentRatio = nil
	_, err = s.Score(missing)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "payment_ratio")

	nan := referenceInput()
	nan.Age = ptr(math.NaN())
	_, err = s.Score(nan)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Score(Input{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScorer_ClipsLimitBalance(t *testing.T) {
	s, err := NewScorer(testArtifact())
	require.NoError(t, err)

	capped := referenceInput()
	capped.LimitBalance = ptr(MonetaryCap)
	huge := referenceInput()
	huge.LimitBalance = ptr(50 * MonetaryCap)

	r1, err := s.Score(capped)
	require.NoError(t, err)
	r2, err := s.Score(huge)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestNewScorer_RejectsInvalidArtifact(t *testing.T) {
	_, err := NewScorer(nil)
	assert.ErrorIs(t, err, ErrInvalidArtifact)

	a := testArtifact()
	a.Format = "pickle"
	_, err = NewScorer(a)
	assert.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestScorer_IsolatedFromCaller(t *testing.T) {
	a := testArtifact()
	s, err := NewScorer(a)
	require.NoError(t, err)

	before, err := s.Score(referenceInput())
	require.NoError(t, err)

	a.Weights.Intercept = 100
	after, err := s.Score(referenceInput())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestScorer_Concurrent(t *testing.T) {
	s, err := NewScorer(testArtifact())
	require.NoError(t, err)

	want, err := s.Score(referenceInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := referenceInput()
			if i%2 == 1 {
				in.AvgPayDelay = ptr(3)
			}
			results[i], _ = s.Score(in)
		}(i)
	}
	wg.Wait()

	for i := 0; i < len(results); i += 2 {
		assert.Equal(t, want, results[i])
	}
}
