package cli

import (
	"fmt"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/urfave/cli/v2"
)

var (
	borrowerIDFlag = &cli.Int64Flag{
		Name:  "id",
		Usage: "ID of a single borrower",
	}

	skipFlag = &cli.IntFlag{
		Name:  "skip",
		Usage: "Number of borrowers to skip",
	}

	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: fmt.Sprintf("Maximum number of borrowers to list (1-%d)", data.PageLimitMax),
		Value: data.PageLimitDefault,
	}

	borrowersCmd = &cli.Command{
		Name:    "borrowers",
		Aliases: []string{"b"},
		Usage:   "List imported borrowers or show one by ID",
		UsageText: `riskscore borrowers --skip 100 --limit 10   # one page
   riskscore borrowers --id 42                 # single borrower`,
		Action: cmdBorrowers,
		Flags: []cli.Flag{
			borrowerIDFlag,
			skipFlag,
			limitFlag,
		},
	}
)

func cmdBorrowers(c *cli.Context) error {
	cfg := getConfig(c)

	if c.IsSet(borrowerIDFlag.Name) {
		id := c.Int64(borrowerIDFlag.Name)
		b, err := data.GetBorrower(cfg.DB, id)
		if err != nil {
			return fmt.Errorf("error getting borrower %d: %w", id, err)
		}
		return printResult(c, b)
	}

	list, err := data.GetBorrowers(cfg.DB, c.Int(skipFlag.Name), c.Int(limitFlag.Name))
	if err != nil {
		return fmt.Errorf("error listing borrowers: %w", err)
	}
	return printResult(c, list)
}
