package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	router "github.com/dkeye/Ephemeral/internal/adapters/http"
	wsignal "github.com/dkeye/Ephemeral/internal/adapters/signal"
	"github.com/dkeye/Ephemeral/internal/app"
	"github.com/dkeye/Ephemeral/internal/config"
	msgstore "github.com/dkeye/Ephemeral/internal/store"
)

func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the config says otherwise.
	setupLogging(config.LogConfig{Level: "info", Format: "console"})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	openCtx, openCancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	store, err := msgstore.Open(openCtx, cfg.StoreOptions())
	openCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open message store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("message store close")
		}
	}()

	clock := clockwork.NewRealClock()
	reg := app.NewRegistry(store, clock, cfg.Policy(), cfg.RoomOptions())
	ctrl := wsignal.NewSignalWSController(reg, clock, cfg.SignalOptions())

	r := router.SetupRouter(ctx, cfg, reg, store, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := reg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("lifecycle sweeper stopped")
		}
	})
	wg.Go(func() {
		log.Info().Str("addr", addr).Msg("Ephemeral server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	})

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	reg.Shutdown(shutdownCtx)
	wg.Wait()
	// let the expiry notices reach the sockets before the process exits
	time.Sleep(cfg.Room.CloseDelay)
	log.Info().Msg("Server exited gracefully")
}
