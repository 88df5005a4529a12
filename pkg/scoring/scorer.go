package scoring

import (
	"fmt"
)

// Input carries the five engineered features supplied by a scoring request.
// Nil fields are missing.
type Input struct {
	LimitBalance      *float64 `json:"LIMIT_BAL" yaml:"limitBal"`
	Age               *float64 `json:"AGE" yaml:"age"`
	AvgPayDelay       *float64 `json:"avg_pay_delay" yaml:"avgPayDelay"`
	CreditUtilization *float64 `json:"credit_utilization" yaml:"creditUtilization"`
	PaymentRatio      *float64 `json:"payment_ratio" yaml:"paymentRatio"`
}

// Features validates the input and returns it as a clipped feature vector.
func (in *Input) Features() (Features, error) {
	var f Features
	if in == nil {
		return f, fmt.Errorf("%w: nil input", ErrInvalidInput)
	}
	fields := [NumFeatures]*float64{
		in.LimitBalance,
		in.Age,
		in.AvgPayDelay,
		in.CreditUtilization,
		in.PaymentRatio,
	}
	for i, v := range fields {
		if v == nil {
			return f, fmt.Errorf("%w: %s is required", ErrInvalidInput, FeatureNames[i])
		}
		if !isFinite(*v) {
			return f, fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, FeatureNames[i])
		}
		f[i] = *v
	}
	return f.Clip(), nil
}

// Result is the outcome of scoring one borrower.
type Result struct {
	PD          float64  `json:"pd" yaml:"pd"`
	CreditScore int      `json:"credit_score" yaml:"creditScore"`
	RiskTier    RiskTier `json:"risk_tier" yaml:"riskTier"`
}

// Scorer applies a fitted artifact. It only reads the artifact, so a single
// Scorer can be shared by concurrent requests.
type Scorer struct {
	artifact *Artifact
}

// NewScorer validates a and wraps it for serving.
func NewScorer(a *Artifact) (*Scorer, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	cp := *a
	return &Scorer{artifact: &cp}, nil
}

// Artifact returns a copy of the artifact being served.
func (s *Scorer) Artifact() Artifact {
	return *s.artifact
}

// Score turns the engineered features of one borrower into PD, score and tier.
func (s *Scorer) Score(in Input) (*Result, error) {
	f, err := in.Features()
	if err != nil {
		return nil, err
	}
	return s.ScoreFeatures(f), nil
}

// ScoreFeatures scores an already validated feature vector.
func (s *Scorer) ScoreFeatures(f Features) *Result {
	pd := s.artifact.Weights.PredictPD(s.artifact.Stats.Apply(f))
	score, tier := MapPD(pd)
	return &Result{
		PD:          pd,
		CreditScore: score,
		RiskTier:    tier,
	}
}
