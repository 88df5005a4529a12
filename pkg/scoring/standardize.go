package scoring

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// Moments holds the fitted location and scale of one feature.
type Moments struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// Stats holds one Moments per feature, in FeatureNames order.
type Stats [NumFeatures]Moments

// FitStats computes the per-feature mean and population standard deviation.
func FitStats(batch []Features) (Stats, error) {
	var s Stats
	if len(batch) == 0 {
		return s, errors.New("cannot fit standardization on an empty batch")
	}

	col := make([]float64, len(batch))
	for j := 0; j < NumFeatures; j++ {
		for i, f := range batch {
			col[i] = f[j]
		}
		s[j].Mean, s[j].Std = stat.PopMeanStdDev(col, nil)
	}
	return s, nil
}

// Apply standardizes f. A feature with zero spread maps to 0.
func (s *Stats) Apply(f Features) Features {
	var z Features
	for j := 0; j < NumFeatures; j++ {
		if s[j].Std == 0 {
			continue
		}
		z[j] = (f[j] - s[j].Mean) / s[j].Std
	}
	return z
}

// ApplyAll standardizes every vector of the batch into a new slice.
func (s *Stats) ApplyAll(batch []Features) []Features {
	out := make([]Features, len(batch))
	for i, f := range batch {
		out[i] = s.Apply(f)
	}
	return out
}
