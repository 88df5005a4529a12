package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitStats(t *testing.T) {
	batch := []Features{
		{1, 10, 0, 0.1, 7},
		{2, 20, 0, 0.2, 7},
		{3, 30, 0, 0.3, 7},
	}
	s, err := FitStats(batch)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, s[LimitBalance].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s[LimitBalance].Std, 1e-12)
	assert.InDelta(t, 20.0, s[Age].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(200.0/3.0), s[Age].Std, 1e-12)
	assert.Equal(t, 0.0, s[AvgPayDelay].Std)
	assert.Equal(t, 0.0, s[PaymentRatio].Std)
}

func TestFitStats_Empty(t *testing.T) {
	_, err := FitStats(nil)
	assert.Error(t, err)
}

func TestStats_Apply(t *testing.T) {
	batch := []Features{
		{1, 10, 0, 0.1, 7},
		{3, 30, 0, 0.3, 7},
	}
	s, err := FitStats(batch)
	require.NoError(t, err)

	z := s.Apply(Features{3, 10, 5, 0.2, 7})
	assert.InDelta(t, 1.0, z[LimitBalance], 1e-12)
	assert.InDelta(t, -1.0, z[Age], 1e-12)
	assert.InDelta(t, 0.0, z[CreditUtilization], 1e-12)
}

func TestStats_Apply_ConstantFeatureIsZero(t *testing.T) {
	s := Stats{{Mean: 4, Std: 0}, {Mean: 0, Std: 1}}
	z := s.Apply(Features{1e9, 2, 3, 4, 5})
	assert.Equal(t, 0.0, z[LimitBalance])
	assert.False(t, math.IsNaN(z[AvgPayDelay]))
	assert.Equal(t, 0.0, z[AvgPayDelay])
	assert.Equal(t, 2.0, z[Age])
}

func TestStats_ApplyAll(t *testing.T) {
	s := Stats{{Mean: 1, Std: 2}, {Mean: 0, Std: 1}, {Mean: 0, Std: 1}, {Mean: 0, Std: 1}, {Mean: 0, Std: 1}}
	in := []Features{{3, 1, 1, 1, 1}, {-1, 2, 2, 2, 2}}
	out := s.ApplyAll(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0][LimitBalance])
	assert.Equal(t, -1.0, out[1][LimitBalance])
	assert.Equal(t, 3.0, in[0][LimitBalance])
}
