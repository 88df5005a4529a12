package scoring

import (
	"fmt"
	"math"
)

const (
	// MaxCreditScore is the score of a borrower with zero probability of default.
	MaxCreditScore = 850
	// MinCreditScore is the score of a borrower certain to default.
	MinCreditScore = 300

	scoreRange = MaxCreditScore - MinCreditScore

	mediumRiskFloor = 650
	lowRiskFloor    = 750
)

// RiskTier is an immutable value object for the categorical risk bucket.
type RiskTier struct {
	value string
}

var (
	RiskTierLow    = RiskTier{value: "Low"}
	RiskTierMedium = RiskTier{value: "Medium"}
	RiskTierHigh   = RiskTier{value: "High"}
)

// RiskTierFromString reconstructs a RiskTier from its string representation.
func RiskTierFromString(s string) (RiskTier, error) {
	switch s {
	case "Low":
		return RiskTierLow, nil
	case "Medium":
		return RiskTierMedium, nil
	case "High":
		return RiskTierHigh, nil
	default:
		return RiskTier{}, fmt.Errorf("invalid risk tier: %s", s)
	}
}

// RiskTierFromScore buckets a credit score. Thresholds are checked from the
// riskiest tier up so 650 lands in Medium and 750 in Low.
func RiskTierFromScore(score int) RiskTier {
	switch {
	case score < mediumRiskFloor:
		return RiskTierHigh
	case score < lowRiskFloor:
		return RiskTierMedium
	default:
		return RiskTierLow
	}
}

// String returns the string representation.
func (r RiskTier) String() string {
	return r.value
}

func (r RiskTier) MarshalText() ([]byte, error) {
	return []byte(r.value), nil
}

func (r *RiskTier) UnmarshalText(b []byte) error {
	t, err := RiskTierFromString(string(b))
	if err != nil {
		return err
	}
	*r = t
	return nil
}

// CreditScore rescales a probability of default onto the 300-850 range.
// The result is not clamped; pd outside [0,1] breaks the classifier contract.
func CreditScore(pd float64) int {
	return int(math.Round(MaxCreditScore - pd*scoreRange))
}

// MapPD converts a probability of default into a credit score and risk tier.
func MapPD(pd float64) (int, RiskTier) {
	score := CreditScore(pd)
	return score, RiskTierFromScore(score)
}
