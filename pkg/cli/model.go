package cli

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/net"
	"github.com/mchmarny/riskscore/pkg/scoring"
	"github.com/urfave/cli/v2"
)

const runListLimitDefault = 10

var (
	runLimitFlag = &cli.IntFlag{
		Name:  "runs",
		Usage: "Number of training runs to list",
		Value: runListLimitDefault,
	}

	modelServerFlag = &cli.StringFlag{
		Name:  "server",
		Usage: "Show the model served by a running riskscore server at this URL instead of the local artifact",
	}

	modelCmd = &cli.Command{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Show the scoring artifact and the training run history",
		UsageText: `riskscore model                                  # local artifact and last 10 runs
   riskscore model --runs 3                         # local artifact and last 3 runs
   riskscore model --server http://127.0.0.1:8080   # model loaded by a running server`,
		Action: cmdModel,
		Flags: []cli.Flag{
			artifactFlag,
			runLimitFlag,
			modelServerFlag,
		},
	}
)

type ModelFeature struct {
	Name        string  `json:"name" yaml:"name"`
	Mean        float64 `json:"mean" yaml:"mean"`
	Std         float64 `json:"std" yaml:"std"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
}

type ModelSummary struct {
	ArtifactPath string                  `json:"artifact_path" yaml:"artifactPath"`
	Format       string                  `json:"format" yaml:"format"`
	Version      int                     `json:"version" yaml:"version"`
	Features     []ModelFeature          `json:"features" yaml:"features"`
	Intercept    float64                 `json:"intercept" yaml:"intercept"`
	Options      scoring.LogisticOptions `json:"options" yaml:"options"`
	Runs         []*data.TrainingRun     `json:"runs,omitempty" yaml:"runs,omitempty"`
}

func newModelSummary(path string, a *scoring.Artifact) *ModelSummary {
	s := &ModelSummary{
		ArtifactPath: path,
		Format:       a.Format,
		Version:      a.Version,
		Features:     make([]ModelFeature, 0, scoring.NumFeatures),
		Intercept:    a.Weights.Intercept,
		Options:      a.Options,
	}
	for i, name := range a.Features {
		s.Features = append(s.Features, ModelFeature{
			Name:        name,
			Mean:        a.Stats[i].Mean,
			Std:         a.Stats[i].Std,
			Coefficient: a.Weights.Coef[i],
		})
	}
	return s
}

func getModelSummary(db *sql.DB, path string, a *scoring.Artifact, runs int) (*ModelSummary, error) {
	s := newModelSummary(path, a)
	list, err := data.GetTrainingRuns(db, runs)
	if err != nil {
		return nil, fmt.Errorf("error getting training runs: %w", err)
	}
	if len(list) > 0 {
		s.Runs = list
	}
	return s, nil
}

func cmdModel(c *cli.Context) error {
	cfg := getConfig(c)

	if server := c.String(modelServerFlag.Name); server != "" {
		var s ModelSummary
		url := strings.TrimSuffix(server, "/") + modelRoute
		if err := net.GetJSON(c.Context, url, &s); err != nil {
			return fmt.Errorf("error getting model from %s: %w", server, err)
		}
		return printResult(c, &s)
	}

	path := cfg.ArtifactPath
	if p := c.String(artifactFlag.Name); p != "" {
		path = p
	}

	a, err := scoring.LoadArtifact(path)
	if err != nil {
		return fmt.Errorf("error loading artifact %s: %w", path, err)
	}

	s, err := getModelSummary(cfg.DB, path, a, c.Int(runLimitFlag.Name))
	if err != nil {
		return err
	}

	return printResult(c, s)
}
