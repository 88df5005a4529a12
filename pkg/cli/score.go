package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/mchmarny/riskscore/pkg/net"
	"github.com/mchmarny/riskscore/pkg/scoring"
	"github.com/urfave/cli/v2"
)

var (
	limitBalFlag = &cli.Float64Flag{
		Name:     "limit-bal",
		Usage:    "Credit limit of the borrower",
		Required: true,
	}

	ageFlag = &cli.Float64Flag{
		Name:     "age",
		Usage:    "Age of the borrower in years",
		Required: true,
	}

	avgPayDelayFlag = &cli.Float64Flag{
		Name:     "avg-pay-delay",
		Usage:    "Average monthly repayment delay",
		Required: true,
	}

	creditUtilizationFlag = &cli.Float64Flag{
		Name:     "credit-utilization",
		Usage:    "Average bill divided by the credit limit",
		Required: true,
	}

	paymentRatioFlag = &cli.Float64Flag{
		Name:     "payment-ratio",
		Usage:    "Average payment divided by the average bill",
		Required: true,
	}

	serverURLFlag = &cli.StringFlag{
		Name:  "server",
		Usage: "Score through a running riskscore server at this URL instead of the local artifact",
	}

	scoreCmd = &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Score one borrower",
		UsageText: `riskscore score --limit-bal 200000 --age 35 --avg-pay-delay 0 --credit-utilization 0.3 --payment-ratio 0.5
   riskscore score --server http://127.0.0.1:8080 --limit-bal 200000 --age 35 --avg-pay-delay 0 --credit-utilization 0.3 --payment-ratio 0.5`,
		Action: cmdScore,
		Flags: []cli.Flag{
			limitBalFlag,
			ageFlag,
			avgPayDelayFlag,
			creditUtilizationFlag,
			paymentRatioFlag,
			artifactFlag,
			serverURLFlag,
		},
	}
)

// ScoreResponse is the wire shape of a scoring result.
type ScoreResponse struct {
	PD          float64 `json:"PD" yaml:"pd"`
	CreditScore int     `json:"Credit_Score" yaml:"creditScore"`
	RiskLevel   string  `json:"Risk_Level" yaml:"riskLevel"`
}

func newScoreResponse(r *scoring.Result) *ScoreResponse {
	return &ScoreResponse{
		PD:          math.Round(r.PD*100) / 100,
		CreditScore: r.CreditScore,
		RiskLevel:   r.RiskTier.String(),
	}
}

func cmdScore(c *cli.Context) error {
	cfg := getConfig(c)

	in := scoring.Input{
		LimitBalance:      ptr(c.Float64(limitBalFlag.Name)),
		Age:               ptr(c.Float64(ageFlag.Name)),
		AvgPayDelay:       ptr(c.Float64(avgPayDelayFlag.Name)),
		CreditUtilization: ptr(c.Float64(creditUtilizationFlag.Name)),
		PaymentRatio:      ptr(c.Float64(paymentRatioFlag.Name)),
	}

	if server := c.String(serverURLFlag.Name); server != "" {
		var res ScoreResponse
		url := strings.TrimSuffix(server, "/") + scoreRoute
		if err := net.PostJSON(c.Context, url, in, &res); err != nil {
			return fmt.Errorf("error scoring on %s: %w", server, err)
		}
		return printResult(c, &res)
	}

	path := cfg.ArtifactPath
	if p := c.String(artifactFlag.Name); p != "" {
		path = p
	}

	scorer, err := loadScorer(path)
	if err != nil {
		return err
	}

	r, err := scorer.Score(in)
	if err != nil {
		return fmt.Errorf("error scoring borrower: %w", err)
	}

	return printResult(c, newScoreResponse(r))
}

func loadScorer(path string) (*scoring.Scorer, error) {
	a, err := scoring.LoadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("error loading artifact %s, run train first: %w", path, err)
	}
	s, err := scoring.NewScorer(a)
	if err != nil {
		return nil, fmt.Errorf("error creating scorer: %w", err)
	}
	return s, nil
}

func ptr[T any](v T) *T {
	return &v
}
