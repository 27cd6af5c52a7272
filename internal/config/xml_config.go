// Package config provides XML-based configuration for the bin map server.
package config

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"BinMap"`

	Server   ServerConfig   `xml:"Server"`
	Map      MapConfig      `xml:"Map"`
	Feeds    FeedsConfig    `xml:"Feeds"`
	Archive  ArchiveConfig  `xml:"Archive"`
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int    `xml:"Port"`
	BindAddress       string `xml:"BindAddress"`
	EnableCORS        bool   `xml:"EnableCORS"`
	AllowOrigins      string `xml:"AllowOrigins"`
	ReadTimeout       int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout      int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout       int    `xml:"IdleTimeoutSeconds"`
	EnableCompression bool   `xml:"EnableCompression"`
	CompressionLevel  int    `xml:"CompressionLevel"`
}

// MapConfig contains the map widget construction parameters
type MapConfig struct {
	Container   string  `xml:"Container"`
	AccessToken string  `xml:"AccessToken"`
	Style       string  `xml:"Style"`
	CenterLng   float64 `xml:"CenterLongitude"`
	CenterLat   float64 `xml:"CenterLatitude"`
	Zoom        float64 `xml:"Zoom"`
	Geocoder    bool    `xml:"EnableGeocoder"`
}

// FeedsConfig contains the bin and truck data sources
type FeedsConfig struct {
	BinEndpoint          string `xml:"BinEndpoint"`
	BinIntervalMs        int    `xml:"BinIntervalMs"`
	TruckEndpoint        string `xml:"TruckEndpoint"` // empty: use TruckDataFile
	TruckDataFile        string `xml:"TruckDataFile"` // empty: built-in mock dataset
	TruckIntervalMs      int    `xml:"TruckIntervalMs"`
	FetchTimeoutSeconds  int    `xml:"FetchTimeoutSeconds"` // 0 = no timeout
	PruneStaleBinMarkers bool   `xml:"PruneStaleBinMarkers"`
}

// ArchiveConfig contains the DuckDB history settings
type ArchiveConfig struct {
	Enabled     bool   `xml:"Enabled"`
	Path        string `xml:"Path"`
	Threads     int    `xml:"DuckDBThreads"`
	MemoryLimit string `xml:"DuckDBMemoryLimit"`
}

// AdvancedConfig contains logging options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFormat            string `xml:"LogFormat"` // "text" or "json"
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	WebSocketBuffer      int    `xml:"WebSocketEventBuffer"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              8089,
			BindAddress:       "0.0.0.0",
			EnableCORS:        true,
			AllowOrigins:      "*",
			ReadTimeout:       30,
			WriteTimeout:      30,
			IdleTimeout:       120,
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Map: MapConfig{
			Container: "map",
			Style:     "mapbox://styles/mapbox/streets-v11",
			CenterLng: 100.61125277141514,
			CenterLat: 13.685317408394551,
			Zoom:      14,
			Geocoder:  true,
		},
		Feeds: FeedsConfig{
			BinEndpoint:     "https://bodmin-exrtqap6lq-uc.a.run.app/api/home",
			BinIntervalMs:   60000,
			TruckIntervalMs: 30000,
		},
		Archive: ArchiveConfig{
			Enabled:     false,
			Path:        "./data/archive.duckdb",
			Threads:     2,
			MemoryLimit: "256MB",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "text",
			EnableRequestLogging: true,
			WebSocketBuffer:      64,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Bin Map Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot run with
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Feeds.BinEndpoint == "" {
		return fmt.Errorf("bin endpoint is required")
	}
	if c.Feeds.BinIntervalMs <= 0 || c.Feeds.TruckIntervalMs <= 0 {
		return fmt.Errorf("poll intervals must be > 0")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 24 {
		return fmt.Errorf("invalid zoom: %v", c.Map.Zoom)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if token := os.Getenv("MAPBOX_TOKEN"); token != "" {
		c.Map.AccessToken = token
	}
	if endpoint := os.Getenv("BIN_ENDPOINT"); endpoint != "" {
		c.Feeds.BinEndpoint = endpoint
	}
	if file := os.Getenv("TRUCK_DATA_FILE"); file != "" {
		c.Feeds.TruckDataFile = file
	}
	if path := os.Getenv("ARCHIVE_PATH"); path != "" {
		c.Archive.Path = path
		c.Archive.Enabled = true
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Feeds.TruckDataFile != "" && !filepath.IsAbs(c.Feeds.TruckDataFile) {
		c.Feeds.TruckDataFile = filepath.Join(configDir, c.Feeds.TruckDataFile)
	}
	if c.Archive.Path != "" && !filepath.IsAbs(c.Archive.Path) {
		c.Archive.Path = filepath.Join(configDir, c.Archive.Path)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// BinInterval returns the bin poll period
func (c *AppConfig) BinInterval() time.Duration {
	return time.Duration(c.Feeds.BinIntervalMs) * time.Millisecond
}

// TruckInterval returns the truck poll period
func (c *AppConfig) TruckInterval() time.Duration {
	return time.Duration(c.Feeds.TruckIntervalMs) * time.Millisecond
}

// FetchTimeout returns the per-request timeout, 0 meaning none
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Feeds.FetchTimeoutSeconds) * time.Second
}

// EnsureDirectories creates the archive directory when archiving is enabled
func (c *AppConfig) EnsureDirectories() error {
	if !c.Archive.Enabled || c.Archive.Path == "" {
		return nil
	}
	dir := filepath.Dir(c.Archive.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// SlogLevel maps the configured log level onto slog
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Advanced.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
