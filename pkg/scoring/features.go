package scoring

import (
	"fmt"
	"math"
)

const (
	// MonthsOfHistory is the number of monthly status/bill/payment columns per record.
	MonthsOfHistory = 6

	// MonetaryCap bounds the monetary aggregates to damp extreme outliers.
	MonetaryCap = 1e6

	// paidInFullCode is the repayment status meaning no delay; it counts as 0.
	paidInFullCode = -1

	// NumFeatures is the length of the engineered feature vector.
	NumFeatures = 5
)

// Feature positions within Features.
const (
	LimitBalance = iota
	Age
	AvgPayDelay
	CreditUtilization
	PaymentRatio
)

// FeatureNames lists the engineered features in vector order.
var FeatureNames = [NumFeatures]string{
	"limit_balance",
	"age",
	"avg_pay_delay",
	"credit_utilization",
	"payment_ratio",
}

// Flags marks records whose features needed a fallback during derivation.
type Flags uint8

const (
	FlagZeroLimit Flags = 1 << iota
	FlagZeroBilled
	FlagNonFinite
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// RawRecord is one credit account as found in the source dataset.
type RawRecord struct {
	LimitBalance float64
	Age          float64
	PayStatus    [MonthsOfHistory]float64
	BillAmounts  [MonthsOfHistory]float64
	PaidAmounts  [MonthsOfHistory]float64

	// Default is the next-month default label, only meaningful when fitting.
	Default int
}

// Validate makes sure every numeric attribute is finite.
func (r *RawRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidInput)
	}
	if !isFinite(r.LimitBalance) {
		return fmt.Errorf("%w: limit balance is not a finite number", ErrInvalidInput)
	}
	if !isFinite(r.Age) {
		return fmt.Errorf("%w: age is not a finite number", ErrInvalidInput)
	}
	for i := 0; i < MonthsOfHistory; i++ {
		if !isFinite(r.PayStatus[i]) || !isFinite(r.BillAmounts[i]) || !isFinite(r.PaidAmounts[i]) {
			return fmt.Errorf("%w: month %d history is not finite", ErrInvalidInput, i+1)
		}
	}
	return nil
}

// Features is the engineered feature vector, ordered as FeatureNames.
type Features [NumFeatures]float64

// Clip applies the monetary cap to the limit balance. Derive already clips;
// this is for feature vectors supplied directly at serving time.
func (f Features) Clip() Features {
	f[LimitBalance] = math.Min(f[LimitBalance], MonetaryCap)
	return f
}

// Derive computes the engineered features of a raw record. Divisions by zero
// and non-finite ratios yield 0 and are reported in the returned flags.
func Derive(r RawRecord) (Features, Flags) {
	var flags Flags

	var delay, billed, paid float64
	for i := 0; i < MonthsOfHistory; i++ {
		s := r.PayStatus[i]
		if s == paidInFullCode {
			s = 0
		}
		delay += s
		billed += r.BillAmounts[i]
		paid += r.PaidAmounts[i]
	}
	delay /= MonthsOfHistory
	billed = math.Min(billed/MonthsOfHistory, MonetaryCap)
	paid = math.Min(paid/MonthsOfHistory, MonetaryCap)
	limit := math.Min(r.LimitBalance, MonetaryCap)

	utilization, f := ratio(billed, limit, FlagZeroLimit)
	flags |= f

	payment, f := ratio(paid, billed, FlagZeroBilled)
	flags |= f

	var out Features
	out[LimitBalance] = limit
	out[Age] = r.Age
	out[AvgPayDelay] = delay
	out[CreditUtilization] = utilization
	out[PaymentRatio] = payment

	return out, flags
}

func ratio(num, den float64, zeroFlag Flags) (float64, Flags) {
	if den == 0 {
		return 0, zeroFlag
	}
	v := num / den
	if !isFinite(v) {
		return 0, FlagNonFinite
	}
	return v, 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
