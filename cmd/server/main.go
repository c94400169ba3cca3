package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/obiente/tranquitor/internal/config"
	serverhttp "github.com/obiente/tranquitor/internal/http"
	"github.com/obiente/tranquitor/internal/pipeline"
	"github.com/obiente/tranquitor/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		lvl = l
	}
	log.Logger = log.Level(lvl)

	orch, release, err := pipeline.New(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("backend setup failed")
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wss := ws.NewServer(ctx, orch, pipeline.OptionsFrom(cfg))
	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     serverhttp.NewRouter(wss, cfg.Backend),
		ReadTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Msg("tranquitor server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
