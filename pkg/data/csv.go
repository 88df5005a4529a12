package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	colID        = "ID"
	colLimitBal  = "LIMIT_BAL"
	colSex       = "SEX"
	colEducation = "EDUCATION"
	colMarriage  = "MARRIAGE"
	colAge       = "AGE"
	colDefault   = "default.payment.next.month"
)

var (
	// label column is published under both names
	defaultAliases = []string{colDefault, "default payment next month"}

	payColumns  = []string{"PAY_0", "PAY_2", "PAY_3", "PAY_4", "PAY_5", "PAY_6"}
	billColumns = []string{"BILL_AMT1", "BILL_AMT2", "BILL_AMT3", "BILL_AMT4", "BILL_AMT5", "BILL_AMT6"}
	paidColumns = []string{"PAY_AMT1", "PAY_AMT2", "PAY_AMT3", "PAY_AMT4", "PAY_AMT5", "PAY_AMT6"}
)

type csvRow struct {
	line   int
	values []string
	index  map[string]int
}

func (r *csvRow) has(col string) bool {
	_, ok := r.index[col]
	return ok
}

func (r *csvRow) number(col string) (float64, error) {
	i := r.index[col]
	if i >= len(r.values) {
		return 0, fmt.Errorf("%w: row %d column %s: missing value", scoring.ErrInvalidInput, r.line, col)
	}
	s := strings.TrimSpace(r.values[i])
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: row %d column %s: %q is not a number", scoring.ErrInvalidInput, r.line, col, s)
	}
	return v, nil
}

func (r *csvRow) whole(col string) (int, error) {
	v, err := r.number(col)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: row %d column %s: %v is not a whole number", scoring.ErrInvalidInput, r.line, col, v)
	}
	return int(v), nil
}

func (r *csvRow) optionalWhole(col string) (int, error) {
	if !r.has(col) {
		return 0, nil
	}
	return r.whole(col)
}

// ReadBorrowersCSV parses a dataset in the UCI credit card default layout.
// The header row is required; SEX, EDUCATION, MARRIAGE and ID are optional
// (a missing ID falls back to the 1-based data row number).
func ReadBorrowersCSV(r io.Reader) ([]*Borrower, error) {
	if r == nil {
		return nil, errors.New("reader required")
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty dataset", scoring.ErrInvalidInput)
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.Trim(strings.TrimSpace(h), "\ufeff")] = i
	}

	for _, a := range defaultAliases {
		if i, ok := index[a]; ok {
			index[colDefault] = i
			break
		}
	}

	required := []string{colLimitBal, colAge, colDefault}
	required = append(required, payColumns...)
	required = append(required, billColumns...)
	required = append(required, paidColumns...)
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column %s", scoring.ErrInvalidInput, col)
		}
	}

	list := make([]*Borrower, 0)
	for n := 1; ; n++ {
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", scoring.ErrInvalidInput, n, err)
		}

		row := &csvRow{line: n, values: values, index: index}
		b, err := parseBorrower(row)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}

	return list, nil
}

func parseBorrower(r *csvRow) (*Borrower, error) {
	b := &Borrower{ID: int64(r.line)}
	var err error

	if r.has(colID) {
		id, err := r.whole(colID)
		if err != nil {
			return nil, err
		}
		b.ID = int64(id)
	}
	if b.Sex, err = r.optionalWhole(colSex); err != nil {
		return nil, err
	}
	if b.Education, err = r.optionalWhole(colEducation); err != nil {
		return nil, err
	}
	if b.Marriage, err = r.optionalWhole(colMarriage); err != nil {
		return nil, err
	}
	if b.LimitBal, err = r.number(colLimitBal); err != nil {
		return nil, err
	}
	if b.Age, err = r.number(colAge); err != nil {
		return nil, err
	}
	if b.Default, err = r.whole(colDefault); err != nil {
		return nil, err
	}
	if b.Default != 0 && b.Default != 1 {
		return nil, fmt.Errorf("%w: row %d column %s: label must be 0 or 1, got %d",
			scoring.ErrInvalidInput, r.line, colDefault, b.Default)
	}

	pay := []*float64{&b.Pay0, &b.Pay2, &b.Pay3, &b.Pay4, &b.Pay5, &b.Pay6}
	bill := []*float64{&b.BillAmt1, &b.BillAmt2, &b.BillAmt3, &b.BillAmt4, &b.BillAmt5, &b.BillAmt6}
	paid := []*float64{&b.PayAmt1, &b.PayAmt2, &b.PayAmt3, &b.PayAmt4, &b.PayAmt5, &b.PayAmt6}
	for i := 0; i < scoring.MonthsOfHistory; i++ {
		if *pay[i], err = r.number(payColumns[i]); err != nil {
			return nil, err
		}
		if *bill[i], err = r.number(billColumns[i]); err != nil {
			return nil, err
		}
		if *paid[i], err = r.number(paidColumns[i]); err != nil {
			return nil, err
		}
	}

	return b, nil
}
