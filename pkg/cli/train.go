package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/scoring"
	"github.com/urfave/cli/v2"
)

var (
	artifactFlag = &cli.StringFlag{
		Name:    "artifact",
		Aliases: []string{"a"},
		Usage:   "Path of the scoring artifact, .json or .yaml (optional, defaults to config artifactPath)",
	}

	seedFlag = &cli.Uint64Flag{
		Name:  "seed",
		Usage: "Seed of the stratified train/test split (optional, defaults to config seed)",
	}

	testSizeFlag = &cli.Float64Flag{
		Name:  "test-size",
		Usage: "Fraction of borrowers held out for evaluation (optional, defaults to config testSize)",
	}

	thresholdFlag = &cli.Float64Flag{
		Name:  "threshold",
		Usage: "PD at which a borrower is predicted to default (optional, defaults to config threshold)",
	}

	trainCmd = &cli.Command{
		Name:    "train",
		Aliases: []string{"t"},
		Usage:   "Fit the scoring model on the imported borrowers and save the artifact",
		UsageText: `riskscore train                                   # fit on imported borrowers
   riskscore train --file data/UCI_Credit_Card.csv   # fit on a CSV file
   riskscore train --artifact model.yaml --seed 7    # custom artifact path and seed`,
		Action: cmdTrain,
		Flags: []cli.Flag{
			fileFlag,
			artifactFlag,
			seedFlag,
			testSizeFlag,
			thresholdFlag,
		},
	}
)

type TrainResult struct {
	Run      *data.TrainingRun `json:"run" yaml:"run"`
	Duration string            `json:"duration" yaml:"duration"`
}

func cmdTrain(c *cli.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	opts, err := fitOptions(c, cfg)
	if err != nil {
		return err
	}

	records, err := trainingRecords(c, cfg)
	if err != nil {
		return err
	}

	slog.Info("fitting model", "records", len(records), "seed", opts.Seed, "test_size", opts.TestSize)
	artifact, report, err := scoring.Fit(records, opts)
	if err != nil {
		return fmt.Errorf("error fitting model: %w", err)
	}

	if report.ZeroLimit > 0 || report.ZeroBilled > 0 || report.NonFinite > 0 {
		slog.Warn("records derived with fallback features",
			"zero_limit", report.ZeroLimit,
			"zero_billed", report.ZeroBilled,
			"non_finite", report.NonFinite)
	}

	path := cfg.ArtifactPath
	if p := c.String(artifactFlag.Name); p != "" {
		path = p
	}
	if err := scoring.SaveArtifact(path, artifact); err != nil {
		return fmt.Errorf("error saving artifact: %w", err)
	}
	slog.Info("model trained", "artifact", path, "roc_auc", report.ROCAUC)

	run := data.NewTrainingRun(path, report)
	if err := data.SaveTrainingRun(cfg.DB, run); err != nil {
		return fmt.Errorf("error saving training run: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "ROC-AUC: %.4f\nConfusion Matrix (threshold %.2f):\n[[%d %d]\n [%d %d]]\nClassification Report:\n%s",
		report.ROCAUC, report.Threshold,
		report.Confusion.TN, report.Confusion.FP, report.Confusion.FN, report.Confusion.TP,
		report.Classification.String())

	return printResult(c, &TrainResult{
		Run:      run,
		Duration: time.Since(start).String(),
	})
}

// fitOptions merges the flags over the config. Out of range values are
// rejected here since zero values select the defaults in scoring.Fit.
func fitOptions(c *cli.Context, cfg *appConfig) (scoring.FitOptions, error) {
	opts := scoring.FitOptions{
		TestSize:  cfg.TestSize,
		Seed:      cfg.Seed,
		Threshold: cfg.Threshold,
	}
	if c.IsSet(seedFlag.Name) {
		opts.Seed = c.Uint64(seedFlag.Name)
	}
	if c.IsSet(testSizeFlag.Name) {
		opts.TestSize = c.Float64(testSizeFlag.Name)
	}
	if c.IsSet(thresholdFlag.Name) {
		opts.Threshold = c.Float64(thresholdFlag.Name)
	}

	if opts.Seed == 0 {
		return opts, errors.New("seed must be greater than 0")
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return opts, fmt.Errorf("test size must be in (0, 1), got %v", opts.TestSize)
	}
	if opts.Threshold <= 0 || opts.Threshold >= 1 {
		return opts, fmt.Errorf("threshold must be in (0, 1), got %v", opts.Threshold)
	}
	return opts, nil
}

func trainingRecords(c *cli.Context, cfg *appConfig) ([]scoring.RawRecord, error) {
	if file := c.String(fileFlag.Name); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("error opening dataset %s: %w", file, err)
		}
		defer f.Close()

		list, err := data.ReadBorrowersCSV(f)
		if err != nil {
			return nil, fmt.Errorf("error reading dataset %s: %w", file, err)
		}
		return data.Records(list), nil
	}

	n, err := data.CountBorrowers(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("error counting borrowers: %w", err)
	}
	if n == 0 {
		return nil, errors.New("no borrowers to train on, run import first or use --file")
	}
	slog.Info("loading borrowers", "count", n)

	list, err := data.GetAllBorrowers(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("error loading borrowers: %w", err)
	}
	return data.Records(list), nil
}
