package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Music      MusicConfig      `toml:"music"`
	Playback   PlaybackConfig   `toml:"playback"`
	Logging    LoggingConfig    `toml:"logging"`
	Enrichment EnrichmentConfig `toml:"enrichment"`
	Updates    UpdatesConfig    `toml:"updates"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// MusicConfig contains music library configuration
type MusicConfig struct {
	LibraryPath      string   `toml:"library_path"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// PlaybackConfig contains playback behavior configuration
type PlaybackConfig struct {
	PollIntervalMs int  `toml:"poll_interval_ms"`
	RestoreRecents bool `toml:"restore_recents"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// EnrichmentConfig controls the online metadata lookups
type EnrichmentConfig struct {
	ArtworkEnabled    bool `toml:"artwork_enabled"`
	ArtistInfoEnabled bool `toml:"artist_info_enabled"`
}

// UpdatesConfig contains update checker configuration
type UpdatesConfig struct {
	Enabled bool   `toml:"enabled"`
	Owner   string `toml:"owner"`
	Repo    string `toml:"repo"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:           "./smartplayer.db",
			MaxConnections: 5,
		},
		Music: MusicConfig{
			LibraryPath:      "./music",
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			WatchForChanges:  true,
			ScanOnStartup:    true,
		},
		Playback: PlaybackConfig{
			PollIntervalMs: 500,
			RestoreRecents: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Enrichment: EnrichmentConfig{
			ArtworkEnabled:    true,
			ArtistInfoEnabled: true,
		},
		Updates: UpdatesConfig{
			Enabled: true,
			Owner:   "vagenralexx",
			Repo:    "smart-player",
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Smart Player Configuration
# This file contains all configuration options for the music player.
# Edit the values below to customize playback, library, and lookup settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate database config
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	// Validate music config
	if c.Music.LibraryPath == "" {
		return fmt.Errorf("music library path cannot be empty")
	}
	if len(c.Music.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	// Validate playback config
	if c.Playback.PollIntervalMs < 100 {
		return fmt.Errorf("playback poll interval must be at least 100ms")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	// Validate updates config
	if c.Updates.Enabled && (c.Updates.Owner == "" || c.Updates.Repo == "") {
		return fmt.Errorf("update checks require both owner and repo")
	}

	return nil
}

// IsFormatSupported checks if an audio format is supported
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Music.SupportedFormats {
		if supported == format {
			return true
		}
	}
	return false
}
