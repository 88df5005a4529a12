package data

import (
	"database/sql"
	"fmt"
)

var stateQueries = map[string]string{
	"borrower":     "SELECT COUNT(*) FROM borrower",
	"defaulted":    "SELECT COUNT(*) FROM borrower WHERE default_next_month = 1",
	"training_run": "SELECT COUNT(*) FROM training_run",
}

// GetDataState returns the row counts of the database.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64, len(stateQueries))
	for k, q := range stateQueries {
		var count int64
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}

// CountBorrowers returns the number of borrowers in the directory.
func CountBorrowers(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	var count int64
	if err := db.QueryRow(stateQueries["borrower"]).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting borrowers: %w", err)
	}
	return count, nil
}
