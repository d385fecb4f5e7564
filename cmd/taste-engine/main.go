// Command taste-engine serves the song sampling, preference and
// recommendation API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justestif/go-spotify-taste-engine/internal/app"
	"github.com/justestif/go-spotify-taste-engine/internal/auth"
	"github.com/justestif/go-spotify-taste-engine/internal/config"
	"github.com/justestif/go-spotify-taste-engine/internal/events"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/mlservice"
	"github.com/justestif/go-spotify-taste-engine/internal/preferences"
	"github.com/justestif/go-spotify-taste-engine/internal/questionnaire"
	"github.com/justestif/go-spotify-taste-engine/internal/recommend"
	"github.com/justestif/go-spotify-taste-engine/internal/sampler"
	"github.com/justestif/go-spotify-taste-engine/internal/taste"
	"github.com/justestif/go-spotify-taste-engine/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	app.InitLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logging.Warn().Err(err).Msg("closing store")
		}
	}()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience)
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}

	bus, err := events.NewBus(events.DefaultConfig(), events.NewLogger(logging.Logger()))
	if err != nil {
		return fmt.Errorf("creating event bus: %w", err)
	}

	recommendOpts := []recommend.Option{recommend.WithMinLiked(cfg.Recommend.MinLiked)}
	if cfg.ML.URL != "" {
		ml := mlservice.New(cfg.ML.URL, mlservice.WithTimeout(cfg.ML.Timeout))
		mlservice.NewDispatcher(store, ml).Register(bus)
		recommendOpts = append(recommendOpts, recommend.WithRecommender(ml))
		logging.Info().Str("url", cfg.ML.URL).Msg("ml service enabled")
	} else {
		logging.Info().Msg("ml service disabled, recommendations will have no tracks")
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:      cfg.Server.Addr,
		RateLimit: cfg.Server.RateLimit,
		Verifier:  verifier,
		Services: web.Services{
			Sampler:         sampler.New(store),
			Preferences:     preferences.New(store),
			Questionnaires:  questionnaire.New(store, questionnaire.WithPublisher(bus)),
			Recommendations: recommend.New(store, recommendOpts...),
			Taste:           taste.New(store, taste.DefaultConfig()),
		},
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	busErr := make(chan error, 1)
	go func() {
		busErr <- bus.Run(ctx)
	}()
	select {
	case <-bus.Running():
	case err := <-busErr:
		return fmt.Errorf("starting event bus: %w", err)
	}

	serveErr := server.Run(ctx)
	stop()

	if err := bus.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing event bus")
	}
	if err := <-busErr; err != nil {
		logging.Warn().Err(err).Msg("event bus stopped with error")
	}
	return serveErr
}
