// Command import-songs fills the song catalog from the Spotify search API,
// genre by genre, up to a per-genre quota.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/justestif/go-spotify-taste-engine/internal/app"
	"github.com/justestif/go-spotify-taste-engine/internal/config"
	"github.com/justestif/go-spotify-taste-engine/internal/importer"
	"github.com/justestif/go-spotify-taste-engine/internal/logging"
	"github.com/justestif/go-spotify-taste-engine/internal/spotify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	genresFlag := flag.String("genres", "", "comma-separated genres to import (default: IMPORT_GENRES or all supported genres)")
	quota := flag.Int("quota", 0, "songs to keep per genre (default: IMPORT_QUOTA)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *genresFlag != "" {
		cfg.Importer.Genres = splitGenres(*genresFlag)
	}
	if *quota > 0 {
		cfg.Importer.Quota = *quota
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.ValidateImporter(); err != nil {
		return err
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

	catalog, err := spotify.NewWithCredentials(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
		spotify.WithMarket(cfg.Spotify.Market))
	if err != nil {
		return fmt.Errorf("creating spotify client: %w", err)
	}

	svc := importer.New(store, catalog, app.ImporterOptions(cfg.Importer)...)
	genres := app.Genres(cfg.Importer)

	logging.Info().Int("genres", len(genres)).Int("quota", cfg.Importer.Quota).Msg("starting import")
	results, err := svc.ImportAll(ctx, genres, cfg.Importer.Quota)

	var imported int
	for _, r := range results {
		imported += r.Imported
	}
	total, countErr := store.Songs().Count(ctx)
	if countErr != nil {
		logging.Warn().Err(countErr).Msg("counting songs")
	}
	logging.Info().
		Int("genres_processed", len(results)).
		Int("imported", imported).
		Int64("catalog_size", total).
		Msg("import finished")

	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}
	return nil
}

func splitGenres(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
