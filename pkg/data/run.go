package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	// fixed width keeps the text column sortable
	runTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

	insertTrainingRunSQL = `INSERT INTO training_run (
			id, created_at, artifact_path, records, train_size, test_size,
			seed, threshold, roc_auc, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectTrainingRunsSQL = `SELECT
			id, created_at, artifact_path, records, train_size, test_size,
			seed, threshold, roc_auc, report
		FROM training_run
		ORDER BY created_at DESC, id
		LIMIT ?
	`
)

// TrainingRun records one fitting of the model.
type TrainingRun struct {
	ID           string          `json:"id" yaml:"id"`
	CreatedAt    time.Time       `json:"created_at" yaml:"createdAt"`
	ArtifactPath string          `json:"artifact_path" yaml:"artifactPath"`
	Records      int             `json:"records" yaml:"records"`
	TrainSize    int             `json:"train_size" yaml:"trainSize"`
	TestSize     int             `json:"test_size" yaml:"testSize"`
	Seed         uint64          `json:"seed" yaml:"seed"`
	Threshold    float64         `json:"threshold" yaml:"threshold"`
	ROCAUC       float64         `json:"roc_auc" yaml:"rocAuc"`
	Report       *scoring.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

// NewTrainingRun builds a run entry for the report of a fit written to path.
func NewTrainingRun(path string, r *scoring.Report) *TrainingRun {
	return &TrainingRun{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		ArtifactPath: path,
		Records:      r.Records,
		TrainSize:    r.TrainSize,
		TestSize:     r.TestSize,
		Seed:         r.Seed,
		Threshold:    r.Threshold,
		ROCAUC:       r.ROCAUC,
		Report:       r,
	}
}

// SaveTrainingRun persists run.
func SaveTrainingRun(db *sql.DB, run *TrainingRun) error {
	if db == nil {
		return errDBNotInitialized
	}
	if run == nil || run.Report == nil {
		return errors.New("training run with report required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	b, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("error marshaling training report: %w", err)
	}

	_, err = db.Exec(insertTrainingRunSQL,
		run.ID,
		run.CreatedAt.UTC().Format(runTimeFormat),
		run.ArtifactPath,
		run.Records,
		run.TrainSize,
		run.TestSize,
		int64(run.Seed),
		run.Threshold,
		run.ROCAUC,
		string(b),
	)
	if err != nil {
		return fmt.Errorf("error inserting training run %s: %w", run.ID, err)
	}
	return nil
}

// GetTrainingRuns returns up to limit runs, newest first.
func GetTrainingRuns(db *sql.DB, limit int) ([]*TrainingRun, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := db.Query(selectTrainingRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	list := make([]*TrainingRun, 0)
	for rows.Next() {
		var (
			run     TrainingRun
			created string
			seed    int64
			report  string
		)
		if err := rows.Scan(&run.ID, &created, &run.ArtifactPath, &run.Records,
			&run.TrainSize, &run.TestSize, &seed, &run.Threshold, &run.ROCAUC, &report); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}

		if run.CreatedAt, err = time.Parse(runTimeFormat, created); err != nil {
			return nil, fmt.Errorf("invalid training run time %q: %w", created, err)
		}
		run.Seed = uint64(seed)

		run.Report = &scoring.Report{}
		if err := json.Unmarshal([]byte(report), run.Report); err != nil {
			return nil, fmt.Errorf("invalid training run report %s: %w", run.ID, err)
		}

		list = append(list, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate training runs: %w", err)
	}

	return list, nil
}

// GetLatestTrainingRun returns the newest run or nil when none was recorded.
func GetLatestTrainingRun(db *sql.DB) (*TrainingRun, error) {
	list, err := GetTrainingRuns(db, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
