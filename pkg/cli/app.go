package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mchmarny/riskscore/pkg/config"
	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/logging"
	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "riskscore"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFilePathFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite database file (optional, defaults to config dbPath)",
	}

	configDirFlag = &urfave.StringFlag{
		Name:  "config",
		Usage: "Directory holding config.yaml (optional, defaults to $HOME/.riskscore)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	ConfigDir string
	Debug     bool
	Format    string
	DB        *sql.DB
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 appName,
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Credit risk scoring: probability of default, credit score and risk tier",
		Metadata:             map[string]any{},
		Flags: []urfave.Flag{
			debugFlag,
			dbFilePathFlag,
			configDirFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			importCmd,
			trainCmd,
			scoreCmd,
			modelCmd,
			borrowersCmd,
			serverCmd,
			resetCmd,
		},
		Before: setup,
		After: func(c *urfave.Context) error {
			if cfg, ok := c.App.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func setup(c *urfave.Context) error {
	dir := c.String(configDirFlag.Name)
	if dir == "" {
		home, _, err := config.GetOrCreateHomeDir(appName)
		if err != nil {
			return fmt.Errorf("creating home dir: %w", err)
		}
		dir = home
	}

	conf, err := config.ReadOrCreate(dir)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	debug := c.Bool(debugFlag.Name)
	if debug {
		conf.LogLevel = "debug"
	}
	slog.SetDefault(slog.New(logging.NewCLIHandler(c.App.ErrWriter, logging.ParseLogLevel(conf.LogLevel))))

	if p := c.String(dbFilePathFlag.Name); p != "" {
		conf.DBPath = p
	}

	format := formatJSON
	switch f := c.String(formatFlag.Name); f {
	case formatJSON:
	case formatYAML, "yml":
		format = formatYAML
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}

	if err := data.Init(conf.DBPath); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(conf.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	slog.Debug("config loaded", "dir", dir, "db", conf.DBPath, "artifact", conf.ArtifactPath)

	c.App.Metadata[appConfigKey] = &appConfig{
		Config:    conf,
		ConfigDir: dir,
		Debug:     debug,
		Format:    format,
		DB:        db,
	}
	return nil
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

// printResult encodes v to the app writer in the selected output format.
func printResult(c *urfave.Context, v any) error {
	if err := encode(c.App.Writer, getConfig(c).Format, v); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}
