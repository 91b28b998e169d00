package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/proximity/internal/adapters/http"
	"github.com/dkeye/proximity/internal/adapters/backend"
	"github.com/dkeye/proximity/internal/app"
	"github.com/dkeye/proximity/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	factory := backend.NewFactory(backend.Options{
		Port:         cfg.Backend.CustomServerPort,
		DialTimeout:  cfg.Backend.DialTimeout,
		MoveInterval: cfg.Backend.MoveInterval,
		PingInterval: cfg.Backend.PingInterval,
	})
	reg := app.NewRegistry(factory, app.Options{
		Policy:         app.SimplePolicy{},
		JoinCooldown:   cfg.Room.JoinCooldown,
		GameEndTimeout: cfg.Room.GameEndTimeout,
	})

	// Viewer connections outlive the signal context so rooms can be drained first.
	serveCtx, stopServing := context.WithCancel(context.Background())
	defer stopServing()

	r := router.SetupRouter(serveCtx, cfg, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("proximity server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := reg.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("rooms did not close in time")
	}
	stopServing()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
