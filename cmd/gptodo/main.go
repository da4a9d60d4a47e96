package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	ui "gptodo/internal/cli"
	"gptodo/internal/client"
	"gptodo/internal/config"
	"gptodo/internal/logging"
	"gptodo/internal/store"
)

type options struct {
	ServerURL    string
	StateDBPath  string
	LogLevel     string
	ErrorDisplay time.Duration
	NoColor      bool
}

func main() {
	env, err := config.LoadClientEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	opts := &options{}

	app := &cli.Command{
		Name:      "gptodo",
		Usage:     "Manage a task list by describing changes in plain language",
		UsageText: "gptodo [options]",
		Description: `Starts an interactive session. Each line you type is sent to the
gptodo server, which asks a language model to rewrite your task list.

Type /help inside the session for the list of commands.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "server",
				Usage:       "base URL of the gptodo server",
				Sources:     cli.EnvVars("GPTODO_SERVER_URL", "SERVER_URL"),
				Value:       env.ServerURL,
				Destination: &opts.ServerURL,
			},
			&cli.StringFlag{
				Name:        "state-db",
				Usage:       "path to the local state database",
				Sources:     cli.EnvVars("GPTODO_STATE_DB_PATH", "STATE_DB_PATH"),
				Value:       env.StateDBPath,
				Destination: &opts.StateDBPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("GPTODO_LOG_LEVEL", "LOG_LEVEL"),
				Value:       env.LogLevel,
				Destination: &opts.LogLevel,
			},
			&cli.DurationFlag{
				Name:        "error-display",
				Usage:       "how long the error marker stays up after a failed prompt",
				Sources:     cli.EnvVars("GPTODO_ERROR_DISPLAY", "ERROR_DISPLAY"),
				Value:       env.ErrorDisplay,
				Destination: &opts.ErrorDisplay,
			},
			&cli.BoolFlag{
				Name:        "no-color",
				Usage:       "disable colored output",
				Destination: &opts.NoColor,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, opts, env.IsLocal())
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, pretty bool) error {
	logger, err := logging.New(opts.LogLevel, pretty)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.StateDBPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	s, err := store.NewSQLiteStore(opts.StateDBPath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer s.Close()

	mgr := client.NewManager(
		client.New(opts.ServerURL, &http.Client{}),
		client.WithStateStore(s),
		client.WithErrorDisplay(opts.ErrorDisplay),
		client.WithLogger(logger.With().Str("component", "client").Logger()),
	)
	defer mgr.Close()

	if err := mgr.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("starting with an empty task list")
	}

	console := ui.NewConsole(mgr, os.Stdin, os.Stdout, !opts.NoColor && !color.NoColor)

	errCh := make(chan error, 1)
	go func() { errCh <- console.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Debug().Msg("interrupted")
		return nil
	}
}
