package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/net"
	"github.com/urfave/cli/v2"
)

var (
	fileFlag = &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Path to the borrower dataset CSV file",
	}

	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "URL of the borrower dataset CSV file",
	}

	saveFlag = &cli.StringFlag{
		Name:  "save",
		Usage: "Keep a local copy of the dataset downloaded with --url at this path",
	}

	freshFlag = &cli.BoolFlag{
		Name:  "fresh",
		Usage: "Delete previously imported borrowers before importing",
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import the borrower dataset (UCI credit card default layout)",
		UsageText: `riskscore import --file data/UCI_Credit_Card.csv           # import from file
   riskscore import --url https://example.com/credit.csv        # import from URL
   riskscore import --url https://example.com/credit.csv --save credit.csv   # import and keep a copy
   riskscore import --file data/UCI_Credit_Card.csv --fresh   # replace all borrowers`,
		Action: cmdImport,
		Flags: []cli.Flag{
			fileFlag,
			urlFlag,
			saveFlag,
			freshFlag,
		},
	}
)

type ImportResult struct {
	Source   string           `json:"source" yaml:"source"`
	Saved    string           `json:"saved,omitempty" yaml:"saved,omitempty"`
	Deleted  int64            `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Imported int              `json:"imported" yaml:"imported"`
	State    map[string]int64 `json:"state" yaml:"state"`
	Duration string           `json:"duration" yaml:"duration"`
}

func cmdImport(c *cli.Context) error {
	start := time.Now()
	file := c.String(fileFlag.Name)
	url := c.String(urlFlag.Name)

	if (file == "") == (url == "") {
		if file != "" {
			return errors.New("only one of --file or --url can be specified")
		}
		return cli.ShowSubcommandHelp(c)
	}

	save := c.String(saveFlag.Name)
	if save != "" && url == "" {
		return errors.New("--save requires --url")
	}

	cfg := getConfig(c)
	res := &ImportResult{Source: file}

	var r io.ReadCloser
	var err error
	switch {
	case file != "":
		r, err = os.Open(file)
		if err != nil {
			return fmt.Errorf("error opening dataset %s: %w", file, err)
		}
	case save != "":
		res.Source = url
		slog.Info("downloading dataset", "url", url, "path", save)
		if err := net.Download(c.Context, url, save); err != nil {
			return fmt.Errorf("error downloading dataset %s: %w", url, err)
		}
		res.Saved = save
		r, err = os.Open(save)
		if err != nil {
			return fmt.Errorf("error opening dataset %s: %w", save, err)
		}
	default:
		res.Source = url
		slog.Info("downloading dataset", "url", url)
		r, err = net.Open(c.Context, url)
		if err != nil {
			return fmt.Errorf("error downloading dataset %s: %w", url, err)
		}
	}
	defer r.Close()

	list, err := data.ReadBorrowersCSV(r)
	if err != nil {
		return fmt.Errorf("error reading dataset %s: %w", res.Source, err)
	}

	if c.Bool(freshFlag.Name) {
		if res.Deleted, err = data.DeleteBorrowers(cfg.DB); err != nil {
			return fmt.Errorf("error deleting borrowers: %w", err)
		}
		slog.Info("deleted borrowers", "count", res.Deleted)
	}

	if res.Imported, err = data.SaveBorrowers(cfg.DB, list); err != nil {
		return fmt.Errorf("error saving borrowers: %w", err)
	}
	slog.Info("imported borrowers", "count", res.Imported, "source", res.Source)

	if res.State, err = data.GetDataState(cfg.DB); err != nil {
		return fmt.Errorf("error getting data state: %w", err)
	}

	res.Duration = time.Since(start).String()

	return printResult(c, res)
}
