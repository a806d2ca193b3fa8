// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/logger"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/pkg/wkb"
)

// EnvPrefix is the prefix of environment variables read by viper
const EnvPrefix = "GPKG_TOOL"

// FileName is the base name of the configuration file searched in $HOME and .
const FileName = ".gpkg-tool"

// Config represents the complete application configuration
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Tiles   TilesConfig   `mapstructure:"tiles"`
	Output  OutputConfig  `mapstructure:"output"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	WKB     WKBConfig     `mapstructure:"wkb"`
}

// StoreConfig describes the GeoPackage file being read
type StoreConfig struct {
	Path        string        `mapstructure:"path"`
	ReadOnly    bool          `mapstructure:"read_only"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// TilesConfig selects where vector tiles come from and how they are projected
type TilesConfig struct {
	Source           string `mapstructure:"source"`
	BasePath         string `mapstructure:"base_path"`
	Extension        string `mapstructure:"extension"`
	Compressed       bool   `mapstructure:"compressed"`
	CRS              string `mapstructure:"crs"`
	CoordinateSystem string `mapstructure:"coordinate_system"`
	IncludeMetadata  bool   `mapstructure:"include_metadata"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format      string `mapstructure:"format"`
	Pretty      bool   `mapstructure:"pretty"`
	Compression string `mapstructure:"compression"`
	Path        string `mapstructure:"path"`
}

// BatchConfig contains batch processing configuration
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FailFast    bool          `mapstructure:"fail_fast"`
}

// CacheConfig sizes the decoded geometry cache; a negative size disables it
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	Verbose bool   `mapstructure:"verbose"`
}

// MetricsConfig enables the prometheus registry; Path receives a text dump on exit
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Runtime bool   `mapstructure:"runtime"`
	Path    string `mapstructure:"path"`
}

// WKBConfig controls geometry encoding and decoding limits
type WKBConfig struct {
	ByteOrder string `mapstructure:"byte_order"`
	MaxDepth  int    `mapstructure:"max_depth"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Set default values
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults configures default values for all configuration options
func setDefaults() {
	// Store defaults
	viper.SetDefault("store.read_only", true)
	viper.SetDefault("store.busy_timeout", 5*time.Second)

	// Tile source defaults
	viper.SetDefault("tiles.source", string(internal.SourceTypeGeoPackage))
	viper.SetDefault("tiles.extension", ".mvt")
	viper.SetDefault("tiles.compressed", false)
	viper.SetDefault("tiles.crs", "EPSG:3857")
	viper.SetDefault("tiles.coordinate_system", "geodetic")
	viper.SetDefault("tiles.include_metadata", true)

	// Output defaults
	viper.SetDefault("output.format", "geojson")
	viper.SetDefault("output.pretty", false)
	viper.SetDefault("output.compression", "none")

	// Batch defaults
	viper.SetDefault("batch.concurrency", 8)
	viper.SetDefault("batch.chunk_size", 500)
	viper.SetDefault("batch.timeout", 30*time.Minute)
	viper.SetDefault("batch.fail_fast", false)

	// Cache defaults
	viper.SetDefault("cache.size", 4096)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.console", true)
	viper.SetDefault("logging.verbose", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.runtime", false)

	// WKB defaults
	viper.SetDefault("wkb.byte_order", "big")
	viper.SetDefault("wkb.max_depth", wkb.DefaultMaxDepth)
}

// StoreOptions converts the store section into options for store.Open
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		ReadOnly:    c.Store.ReadOnly,
		BusyTimeout: c.Store.BusyTimeout,
	}
}

// LoggerConfig converts the logging section for logger.Build
func (c *Config) LoggerConfig(component string) logger.Config {
	return logger.Config{
		Level:     c.Logging.Level,
		Console:   c.Logging.Console,
		Verbose:   c.Logging.Verbose,
		Component: component,
	}
}

// ByteOrder returns the configured WKB byte order
func (c *Config) ByteOrder() wkb.ByteOrder {
	if strings.EqualFold(c.WKB.ByteOrder, "little") {
		return wkb.LittleEndian
	}
	return wkb.BigEndian
}

// Factory builds a WKB factory honoring the configured depth limit
func (c *Config) Factory() *wkb.Factory {
	f := wkb.DefaultFactory()
	if c.WKB.MaxDepth > 0 {
		f.SetMaxDepth(c.WKB.MaxDepth)
	}
	return f
}

// GetTilePath builds a local file path for a tile under the configured base path
func (c *Config) GetTilePath(z, x, y int) string {
	if c.Tiles.BasePath == "" {
		return ""
	}
	extension := c.Tiles.Extension
	if c.Tiles.Compressed {
		extension += ".gz"
	}
	return filepath.Join(c.Tiles.BasePath, fmt.Sprint(z), fmt.Sprint(x), fmt.Sprintf("%d%s", y, extension))
}

// DetermineSourceType returns where tiles are read from
func (c *Config) DetermineSourceType() internal.SourceType {
	if strings.EqualFold(c.Tiles.Source, string(internal.SourceTypeLocal)) {
		return internal.SourceTypeLocal
	}
	return internal.SourceTypeGeoPackage
}
