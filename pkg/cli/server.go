package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/riskscore/pkg/logging"
	"github.com/mchmarny/riskscore/pkg/scoring"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverHostDefault         = "127.0.0.1"
)

var (
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen (optional, defaults to config port)",
	}

	hostFlag = &cli.StringFlag{
		Name:  "host",
		Usage: "Address on which the server will listen",
		Value: serverHostDefault,
	}

	serverCmd = &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start the scoring HTTP server",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
			hostFlag,
			artifactFlag,
		},
	}
)

func cmdStartServer(c *cli.Context) error {
	cfg := getConfig(c)

	logger, err := logging.NewLogger(c.App.ErrWriter, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}
	slog.SetDefault(logger)

	path := cfg.ArtifactPath
	if p := c.String(artifactFlag.Name); p != "" {
		path = p
	}

	scorer, err := loadScorer(path)
	if err != nil {
		return err
	}

	metrics, err := newServerMetrics()
	if err != nil {
		return err
	}

	port := cfg.Port
	if c.IsSet(portFlag.Name) {
		port = c.Int(portFlag.Name)
	}
	address := fmt.Sprintf("%s:%d", c.String(hostFlag.Name), port)

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg.DB, scorer, path, metrics),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("server started", "address", "http://"+address, "artifact", path)
	if err := runServer(ctx, s, metrics); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// runServer serves until ctx is done or the listener fails, then shuts the
// server down.
func runServer(ctx context.Context, s *http.Server, m *serverMetrics) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
		defer cancel()

		if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error shutting down server: %w", err)
		}
		if err := m.shutdown(sctx); err != nil {
			slog.Error("error shutting down metrics", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// makeRouter wires the API routes. /metrics is only served when m is set.
func makeRouter(db *sql.DB, s *scoring.Scorer, artifactPath string, m *serverMetrics) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", m.instrument("/", rootHandler()))
	mux.HandleFunc("POST "+scoreRoute, m.instrument(scoreRoute, scoreHandler(s, m)))

	// Borrower directory
	mux.HandleFunc("GET /api/borrowers", m.instrument("/api/borrowers", borrowersHandler(db)))
	mux.HandleFunc("GET /api/borrowers/{id}", m.instrument("/api/borrowers/{id}", borrowerHandler(db)))

	mux.HandleFunc("GET "+modelRoute, m.instrument(modelRoute, modelHandler(db, s, artifactPath)))
	if m != nil {
		mux.Handle("GET /metrics", m.handler)
	}

	return mux
}
