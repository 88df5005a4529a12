package scoring

import (
	"fmt"
	"log/slog"
)

const (
	// DefaultTestSize is the fraction of records held out for evaluation.
	DefaultTestSize = 0.2
	// DefaultSeed drives the stratified split.
	DefaultSeed uint64 = 42
	// DefaultThreshold is the PD at which a borrower is predicted to default.
	// It sits below 0.5 to favor recall on the default class.
	DefaultThreshold = 0.3
)

// FitOptions configures a fitting run. Zero values select the defaults.
type FitOptions struct {
	TestSize  float64         `json:"test_size" yaml:"testSize"`
	Seed      uint64          `json:"seed" yaml:"seed"`
	Threshold float64         `json:"threshold" yaml:"threshold"`
	Logistic  LogisticOptions `json:"logistic" yaml:"logistic"`
}

func (o FitOptions) withDefaults() FitOptions {
	if o.TestSize == 0 {
		o.TestSize = DefaultTestSize
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	o.Logistic = o.Logistic.withDefaults()
	return o
}

// Report is the evaluation of a fitted model on the held-out partition.
type Report struct {
	Records        int                  `json:"records" yaml:"records"`
	TrainSize      int                  `json:"train_size" yaml:"trainSize"`
	TestSize       int                  `json:"test_size" yaml:"testSize"`
	DefaultRate    float64              `json:"default_rate" yaml:"defaultRate"`
	ZeroLimit      int                  `json:"zero_limit" yaml:"zeroLimit"`
	ZeroBilled     int                  `json:"zero_billed" yaml:"zeroBilled"`
	NonFinite      int                  `json:"non_finite" yaml:"nonFinite"`
	Seed           uint64               `json:"seed" yaml:"seed"`
	Threshold      float64              `json:"threshold" yaml:"threshold"`
	ROCAUC         float64              `json:"roc_auc" yaml:"rocAuc"`
	Confusion      ConfusionMatrix      `json:"confusion_matrix" yaml:"confusionMatrix"`
	Classification ClassificationReport `json:"classification" yaml:"classification"`
}

// Fit derives features, splits, standardizes, fits the classifier and
// evaluates it. The same records and options always yield the same artifact
// and report. Persisting the artifact is left to the caller.
func Fit(records []RawRecord, opts FitOptions) (*Artifact, *Report, error) {
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: no records to fit", ErrInvalidInput)
	}
	opts = opts.withDefaults()

	rep := &Report{
		Records:   len(records),
		Seed:      opts.Seed,
		Threshold: opts.Threshold,
	}

	x := make([]Features, len(records))
	y := make([]int, len(records))
	defaults := 0
	for i := range records {
		r := &records[i]
		if err := r.Validate(); err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		if r.Default != 0 && r.Default != 1 {
			return nil, nil, fmt.Errorf("%w: record %d label %d is not binary", ErrInvalidInput, i, r.Default)
		}

		var flags Flags
		x[i], flags = Derive(*r)
		y[i] = r.Default
		defaults += r.Default

		if flags.Has(FlagZeroLimit) {
			rep.ZeroLimit++
		}
		if flags.Has(FlagZeroBilled) {
			rep.ZeroBilled++
		}
		if flags.Has(FlagNonFinite) {
			rep.NonFinite++
		}
	}
	rep.DefaultRate = float64(defaults) / float64(len(records))

	trainIdx, testIdx, err := stratifiedSplit(y, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, nil, err
	}
	rep.TrainSize = len(trainIdx)
	rep.TestSize = len(testIdx)

	trainX, trainY := gather(x, y, trainIdx)
	testX, testY := gather(x, y, testIdx)

	stats, err := FitStats(trainX)
	if err != nil {
		return nil, nil, fmt.Errorf("error fitting standardization: %w", err)
	}

	weights, err := FitLogistic(stats.ApplyAll(trainX), trainY, opts.Logistic)
	if err != nil {
		return nil, nil, fmt.Errorf("error fitting classifier: %w", err)
	}

	pd := make([]float64, len(testX))
	for i, z := range stats.ApplyAll(testX) {
		pd[i] = weights.PredictPD(z)
	}

	rep.ROCAUC = rocAUC(pd, testY)
	rep.Confusion = confusion(pd, testY, opts.Threshold)
	rep.Classification = classification(rep.Confusion)

	slog.Debug("model fitted",
		"records", rep.Records,
		"train", rep.TrainSize,
		"test", rep.TestSize,
		"auc", rep.ROCAUC)

	return NewArtifact(stats, weights, opts.Logistic), rep, nil
}

func gather(x []Features, y []int, idx []int) ([]Features, []int) {
	gx := make([]Features, len(idx))
	gy := make([]int, len(idx))
	for i, k := range idx {
		gx[i] = x[k]
		gy[i] = y[k]
	}
	return gx, gy
}
