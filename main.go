package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"gptodo/internal/completion"
	"gptodo/internal/config"
	"gptodo/internal/handlers"
	"gptodo/internal/logging"
	"gptodo/internal/mutation"
	"gptodo/internal/store"
)

func main() {
	// Configuration
	env, err := config.LoadServerEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load env")
	}

	logger, err := logging.New(env.LogLevel, env.IsLocal())
	if err != nil {
		log.Fatal().Err(err).Str("level", env.LogLevel).Msg("invalid log level")
	}
	log.Logger = logger

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(env.DBPath), 0755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	// Initialize store
	s, err := store.NewSQLiteStore(env.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", env.DBPath).Msg("failed to initialize store")
	}
	defer s.Close()

	// Completion backend
	backend, err := completion.New(ctx, completion.Config{
		Backend: env.Backend,
		APIKey:  env.APIKey,
		Model:   env.Model,
		BaseURL: env.OpenAIBaseURL,
		Timeout: env.Timeout,
	}, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create completion backend")
	}

	svc := mutation.NewService(backend, logger, mutation.WithRecorder(s))

	// Initialize handlers
	h := handlers.New(svc, s, env.MaxBodyBytes, logger)

	srv := &http.Server{
		Addr:              net.JoinHostPort(env.HTTPHost, env.HTTPPort),
		Handler:           h.Routes(env.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", env.Backend).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
