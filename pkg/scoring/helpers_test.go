package scoring

import (
	"math/rand/v2"
	"testing"
)

// syntheticRecords builds a labeled population whose default odds grow with
// payment delay and shrink with the payment ratio.
func syntheticRecords(t *testing.T, n int) []RawRecord {
	t.Helper()
	r := rand.New(rand.NewPCG(7, 11))
	out := make([]RawRecord, n)
	for i := range out {
		rec := RawRecord{
			LimitBalance: float64(10000 * (1 + r.IntN(50))),
			Age:          float64(21 + r.IntN(45)),
		}
		base := r.IntN(4) - 1
		util := r.Float64()
		share := r.Float64() * 0.6
		for m := 0; m < MonthsOfHistory; m++ {
			rec.PayStatus[m] = float64(base + r.IntN(2))
			rec.BillAmounts[m] = rec.LimitBalance * util
			rec.PaidAmounts[m] = rec.BillAmounts[m] * share
		}
		f, _ := Derive(rec)
		logit := -1.6 + 1.3*f[AvgPayDelay] - 1.5*f[PaymentRatio] + 0.4*f[CreditUtilization]
		if r.Float64() < Sigmoid(logit) {
			rec.Default = 1
		}
		out[i] = rec
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}

// testArtifact is a hand-built artifact with plausible statistics.
func testArtifact() *Artifact {
	s := Stats{
		{Mean: 167484, Std: 129747},
		{Mean: 35.5, Std: 9.2},
		{Mean: -0.1, Std: 0.8},
		{Mean: 0.42, Std: 0.41},
		{Mean: 0.3, Std: 1.5},
	}
	w := Weights{
		Coef:      [NumFeatures]float64{-0.1, 0.05, 0.6, 0.1, -0.05},
		Intercept: -1.4,
	}
	return NewArtifact(s, w, LogisticOptions{}.withDefaults())
}
