package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vagenralexx/smart-player/internal/catalog"
	"github.com/vagenralexx/smart-player/internal/config"
	"github.com/vagenralexx/smart-player/internal/engine"
	"github.com/vagenralexx/smart-player/internal/enrich"
	"github.com/vagenralexx/smart-player/internal/player"
	"github.com/vagenralexx/smart-player/internal/sink"
	"github.com/vagenralexx/smart-player/internal/store"
)

const version = "1.1.0"

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load .env file if it exists (overrides for library path etc.)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.WithError(err).Warn("Could not load .env file")
		}
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	if path := os.Getenv("SMARTPLAYER_LIBRARY"); path != "" {
		cfg.Music.LibraryPath = path
	}
	configureLogger(logger, cfg)

	// Check if music directory exists
	if _, err := os.Stat(cfg.Music.LibraryPath); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Music.LibraryPath).Fatal("Music directory does not exist. Please create it and add your music files.")
	}

	// Open the playlist and history store
	st, err := store.Open(cfg.Database.Path, cfg.Database.MaxConnections, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error opening store")
	}
	defer st.Close()

	// Build the catalog over the library directory
	extractor := catalog.NewExtractor(cfg.Music.SupportedFormats, logger)
	scanner := catalog.NewScanner(cfg.Music.LibraryPath, extractor, logger)
	cat := catalog.New(scanner, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Music.ScanOnStartup {
		if err := cat.Refresh(ctx); err != nil {
			logger.WithError(err).Fatal("Error scanning music library")
		}
		if cat.Len() == 0 {
			logger.WithField("supported_formats", cfg.Music.SupportedFormats).Warn("No supported audio files found in music directory")
		}
	}

	// Watch the library for changes
	var watcher *catalog.Watcher
	if cfg.Music.WatchForChanges {
		watcher = catalog.NewWatcher(cfg.Music.LibraryPath, extractor, logger)
		if err := watcher.Start(); err != nil {
			logger.WithError(err).Warn("Library watcher unavailable")
			watcher = nil
		} else {
			go func() {
				for range watcher.Refreshes() {
					if err := cat.Refresh(ctx); err != nil {
						logger.WithError(err).Error("Library rescan failed")
					}
				}
			}()
		}
	}

	// Wire the playback session
	eng := engine.NewClockEngine()
	defer eng.Close()

	coordinator := player.NewCoordinator(cat, st, logger)
	coordinator.SetPollInterval(time.Duration(cfg.Playback.PollIntervalMs) * time.Millisecond)
	coordinator.SetRestoreRecents(cfg.Playback.RestoreRecents)
	coordinator.AttachEngine(eng)
	defer coordinator.Close()

	// Now-playing surfaces
	widget := sink.NewWidget(logger)
	notification := sink.NewNotification(logger)
	coordinator.RegisterSink(widget)
	coordinator.RegisterSink(notification)
	coordinator.BindCommands(widget.Commands())

	// Online metadata lookups follow the current track off the hot path
	if cfg.Enrichment.ArtworkEnabled || cfg.Enrichment.ArtistInfoEnabled {
		go followEnrichment(ctx, cfg, coordinator, logger)
	}

	// Background update check
	if cfg.Updates.Enabled {
		go func() {
			checker := enrich.NewUpdateChecker(cfg.Updates.Owner, cfg.Updates.Repo, version, logger)
			if info := checker.Check(ctx); info != nil {
				logger.WithFields(logrus.Fields{
					"latest_version": info.LatestVersion,
					"download_url":   info.DownloadURL,
				}).Info("Update available")
			}
		}()
	}

	logger.WithFields(logrus.Fields{
		"version": version,
		"tracks":  cat.Len(),
	}).Info("Smart player ready")

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Received shutdown signal")
	if watcher != nil {
		watcher.Stop()
	}
	cancel()
}

// configureLogger applies the configured level, format, and output file.
func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stderr")
		} else {
			logger.SetOutput(file)
		}
	}
}

// followEnrichment fetches artwork and artist details whenever the current
// track changes. Lookups never feed back into playback.
func followEnrichment(ctx context.Context, cfg *config.Config, coordinator *player.Coordinator, logger *logrus.Logger) {
	artwork := enrich.NewArtworkFetcher(logger)
	artistInfo := enrich.NewArtistInfoFetcher(logger)

	states := coordinator.SubscribeState()
	defer coordinator.UnsubscribeState(states)

	var lastTrackID int64
	for {
		select {
		case snap, ok := <-states:
			if !ok {
				return
			}
			track := snap.CurrentTrack
			if track == nil || track.ID == lastTrackID {
				continue
			}
			lastTrackID = track.ID

			if cfg.Enrichment.ArtworkEnabled {
				if url := artwork.FetchArtworkURL(ctx, track.Artist, track.Album); url != "" {
					logger.WithFields(logrus.Fields{
						"track_id":    track.ID,
						"artwork_url": url,
					}).Debug("Resolved artwork")
				}
			}
			if cfg.Enrichment.ArtistInfoEnabled {
				if info := artistInfo.FetchArtistInfo(ctx, track.Artist); info != nil {
					logger.WithFields(logrus.Fields{
						"artist": info.Name,
						"genres": info.Genres,
					}).Debug("Resolved artist info")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
