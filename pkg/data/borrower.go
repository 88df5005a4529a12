package data

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	// PageLimitDefault is the page size used when none is requested.
	PageLimitDefault = 100
	// PageLimitMax bounds the page size of a borrower listing.
	PageLimitMax = 1000

	borrowerColumns = `id, limit_bal, sex, education, marriage, age,
		pay_0, pay_2, pay_3, pay_4, pay_5, pay_6,
		bill_amt1, bill_amt2, bill_amt3, bill_amt4, bill_amt5, bill_amt6,
		pay_amt1, pay_amt2, pay_amt3, pay_amt4, pay_amt5, pay_amt6,
		default_next_month`

	upsertBorrowerSQL = `INSERT INTO borrower (` + borrowerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			limit_bal = excluded.limit_bal,
			sex = excluded.sex,
			education = excluded.education,
			marriage = excluded.marriage,
			age = excluded.age,
			pay_0 = excluded.pay_0,
			pay_2 = excluded.pay_2,
			pay_3 = excluded.pay_3,
			pay_4 = excluded.pay_4,
			pay_5 = excluded.pay_5,
			pay_6 = excluded.pay_6,
			bill_amt1 = excluded.bill_amt1,
			bill_amt2 = excluded.bill_amt2,
			bill_amt3 = excluded.bill_amt3,
			bill_amt4 = excluded.bill_amt4,
			bill_amt5 = excluded.bill_amt5,
			bill_amt6 = excluded.bill_amt6,
			pay_amt1 = excluded.pay_amt1,
			pay_amt2 = excluded.pay_amt2,
			pay_amt3 = excluded.pay_amt3,
			pay_amt4 = excluded.pay_amt4,
			pay_amt5 = excluded.pay_amt5,
			pay_amt6 = excluded.pay_amt6,
			default_next_month = excluded.default_next_month
	`

	selectBorrowerPageSQL = `SELECT ` + borrowerColumns + `
		FROM borrower
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	selectBorrowerSQL = `SELECT ` + borrowerColumns + `
		FROM borrower
		WHERE id = ?
	`

	selectAllBorrowersSQL = `SELECT ` + borrowerColumns + `
		FROM borrower
		ORDER BY id
	`

	deleteBorrowersSQL = `DELETE FROM borrower`
)

// Borrower is one account row of the credit card default dataset. JSON names
// follow the dataset column headers.
type Borrower struct {
	ID        int64   `json:"ID" yaml:"id"`
	LimitBal  float64 `json:"LIMIT_BAL" yaml:"limitBal"`
	Sex       int     `json:"SEX" yaml:"sex"`
	Education int     `json:"EDUCATION" yaml:"education"`
	Marriage  int     `json:"MARRIAGE" yaml:"marriage"`
	Age       float64 `json:"AGE" yaml:"age"`
	Pay0      float64 `json:"PAY_0" yaml:"pay0"`
	Pay2      float64 `json:"PAY_2" yaml:"pay2"`
	Pay3      float64 `json:"PAY_3" yaml:"pay3"`
	Pay4      float64 `json:"PAY_4" yaml:"pay4"`
	Pay5      float64 `json:"PAY_5" yaml:"pay5"`
	Pay6      float64 `json:"PAY_6" yaml:"pay6"`
	BillAmt1  float64 `json:"BILL_AMT1" yaml:"billAmt1"`
	BillAmt2  float64 `json:"BILL_AMT2" yaml:"billAmt2"`
	BillAmt3  float64 `json:"BILL_AMT3" yaml:"billAmt3"`
	BillAmt4  float64 `json:"BILL_AMT4" yaml:"billAmt4"`
	BillAmt5  float64 `json:"BILL_AMT5" yaml:"billAmt5"`
	BillAmt6  float64 `json:"BILL_AMT6" yaml:"billAmt6"`
	PayAmt1   float64 `json:"PAY_AMT1" yaml:"payAmt1"`
	PayAmt2   float64 `json:"PAY_AMT2" yaml:"payAmt2"`
	PayAmt3   float64 `json:"PAY_AMT3" yaml:"payAmt3"`
	PayAmt4   float64 `json:"PAY_AMT4" yaml:"payAmt4"`
	PayAmt5   float64 `json:"PAY_AMT5" yaml:"payAmt5"`
	PayAmt6   float64 `json:"PAY_AMT6" yaml:"payAmt6"`
	Default   int     `json:"default.payment.next.month" yaml:"defaultNextMonth"`
}

// Record converts the row into the scoring pipeline input.
func (b *Borrower) Record() scoring.RawRecord {
	return scoring.RawRecord{
		LimitBalance: b.LimitBal,
		Age:          b.Age,
		PayStatus:    [scoring.MonthsOfHistory]float64{b.Pay0, b.Pay2, b.Pay3, b.Pay4, b.Pay5, b.Pay6},
		BillAmounts:  [scoring.MonthsOfHistory]float64{b.BillAmt1, b.BillAmt2, b.BillAmt3, b.BillAmt4, b.BillAmt5, b.BillAmt6},
		PaidAmounts:  [scoring.MonthsOfHistory]float64{b.PayAmt1, b.PayAmt2, b.PayAmt3, b.PayAmt4, b.PayAmt5, b.PayAmt6},
		Default:      b.Default,
	}
}

// Records converts a list of rows into scoring pipeline inputs.
func Records(list []*Borrower) []scoring.RawRecord {
	out := make([]scoring.RawRecord, len(list))
	for i, b := range list {
		out[i] = b.Record()
	}
	return out
}

func (b *Borrower) args() []any {
	return []any{
		b.ID, b.LimitBal, b.Sex, b.Education, b.Marriage, b.Age,
		b.Pay0, b.Pay2, b.Pay3, b.Pay4, b.Pay5, b.Pay6,
		b.BillAmt1, b.BillAmt2, b.BillAmt3, b.BillAmt4, b.BillAmt5, b.BillAmt6,
		b.PayAmt1, b.PayAmt2, b.PayAmt3, b.PayAmt4, b.PayAmt5, b.PayAmt6,
		b.Default,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBorrower(row rowScanner) (*Borrower, error) {
	b := &Borrower{}
	err := row.Scan(
		&b.ID, &b.LimitBal, &b.Sex, &b.Education, &b.Marriage, &b.Age,
		&b.Pay0, &b.Pay2, &b.Pay3, &b.Pay4, &b.Pay5, &b.Pay6,
		&b.BillAmt1, &b.BillAmt2, &b.BillAmt3, &b.BillAmt4, &b.BillAmt5, &b.BillAmt6,
		&b.PayAmt1, &b.PayAmt2, &b.PayAmt3, &b.PayAmt4, &b.PayAmt5, &b.PayAmt6,
		&b.Default,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SaveBorrowers upserts the rows in a single transaction and returns the count.
func SaveBorrowers(db *sql.DB, list []*Borrower) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if len(list) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("error starting borrower tx: %w", err)
	}

	stmt, err := tx.Prepare(upsertBorrowerSQL)
	if err != nil {
		rollbackTransaction(tx)
		return 0, fmt.Errorf("error preparing borrower upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range list {
		if _, err := stmt.Exec(b.args()...); err != nil {
			rollbackTransaction(tx)
			return 0, fmt.Errorf("error saving borrower %d: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing borrower tx: %w", err)
	}

	slog.Debug("borrowers saved", "count", len(list))
	return len(list), nil
}

// DeleteBorrowers removes every borrower row.
func DeleteBorrowers(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	res, err := db.Exec(deleteBorrowersSQL)
	if err != nil {
		return 0, fmt.Errorf("error deleting borrowers: %w", err)
	}
	return res.RowsAffected()
}

// GetBorrowers returns one page of borrowers ordered by ID.
func GetBorrowers(db *sql.DB, skip, limit int) ([]*Borrower, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if skip < 0 {
		return nil, fmt.Errorf("skip must be >= 0, got %d", skip)
	}
	if limit < 1 || limit > PageLimitMax {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", PageLimitMax, limit)
	}

	rows, err := db.Query(selectBorrowerPageSQL, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query borrowers: %w", err)
	}
	defer rows.Close()

	return scanBorrowers(rows, limit)
}

// GetBorrower returns the borrower with the given ID or ErrNotFound.
func GetBorrower(db *sql.DB, id int64) (*Borrower, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	b, err := scanBorrower(db.QueryRow(selectBorrowerSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("borrower %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get borrower %d: %w", id, err)
	}
	return b, nil
}

// GetAllBorrowers returns the whole directory ordered by ID.
func GetAllBorrowers(db *sql.DB) ([]*Borrower, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectAllBorrowersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query borrowers: %w", err)
	}
	defer rows.Close()

	return scanBorrowers(rows, 0)
}

func scanBorrowers(rows *sql.Rows, size int) ([]*Borrower, error) {
	list := make([]*Borrower, 0, size)
	for rows.Next() {
		b, err := scanBorrower(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan borrower row: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate borrower rows: %w", err)
	}
	return list, nil
}
