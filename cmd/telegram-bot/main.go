package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/logging"
	"balanced-meal-planner/internal/telegram"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := cfg.RequireTelegram(); err != nil {
		logging.Fatal().Err(err).Msg("telegram is not configured")
	}

	ctx := context.Background()

	services, err := app.Build(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer services.Close()

	sessions := telegram.NewSessionRepository(services.DB.SQL)
	if n, err := sessions.CleanupExpired(ctx, time.Now()); err != nil {
		logging.Warn().Err(err).Msg("failed to clean up expired sessions")
	} else if n > 0 {
		logging.Info().Int64("sessions", n).Msg("expired sessions removed")
	}

	bot, err := telegram.NewBot(cfg, services.App, services.Clipper, sessions)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize telegram bot")
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Msg("telegram bot server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}

	logging.Info().Msg("server exiting")
}
