// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/pkg/crs"
	"github.com/valpere/geopackage/pkg/mvt"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	if err := validateStore(&config.Store); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}

	if err := validateTiles(&config.Tiles); err != nil {
		return fmt.Errorf("tiles configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	if err := validateBatch(&config.Batch); err != nil {
		return fmt.Errorf("batch configuration invalid: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	if err := validateWKB(&config.WKB); err != nil {
		return fmt.Errorf("wkb configuration invalid: %w", err)
	}

	return nil
}

// validateStore validates the GeoPackage store parameters
func validateStore(config *StoreConfig) error {
	if config.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must be non-negative")
	}
	return nil
}

// validateTiles validates tile source parameters
func validateTiles(config *TilesConfig) error {
	validSources := []string{string(internal.SourceTypeGeoPackage), string(internal.SourceTypeLocal)}
	if !contains(validSources, config.Source) {
		return fmt.Errorf("invalid source: %s, must be one of %v", config.Source, validSources)
	}

	if _, err := crs.Parse(config.CRS); err != nil {
		return fmt.Errorf("invalid crs: %w", err)
	}

	validSystems := []string{mvt.CoordSystemTile, mvt.CoordSystemNative, mvt.CoordSystemGeodetic}
	if !contains(validSystems, config.CoordinateSystem) {
		return fmt.Errorf("invalid coordinate_system: %s, must be one of %v", config.CoordinateSystem, validSystems)
	}

	if config.Extension != "" && !strings.HasPrefix(config.Extension, ".") {
		return fmt.Errorf("extension %q must start with a dot", config.Extension)
	}

	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	validFormats := []string{"geojson", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}

	validCompression := []string{"none", "gzip"}
	if !contains(validCompression, config.Compression) {
		return fmt.Errorf("invalid compression: %s, must be one of %v", config.Compression, validCompression)
	}

	return nil
}

// validateBatch validates batch processing configuration parameters
func validateBatch(config *BatchConfig) error {
	if config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if config.Concurrency > 1000 {
		return fmt.Errorf("concurrency must not exceed 1000")
	}

	if config.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "warning", "error", "disabled", "off"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	return nil
}

// validateWKB validates geometry codec parameters
func validateWKB(config *WKBConfig) error {
	validOrders := []string{"big", "little"}
	if !contains(validOrders, config.ByteOrder) {
		return fmt.Errorf("invalid byte_order: %s, must be one of %v", config.ByteOrder, validOrders)
	}

	if config.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	return nil
}

// ValidateStorePath checks that the configured GeoPackage exists and is a regular file
func ValidateStorePath(fs afero.Fs, config *Config) error {
	if config.Store.Path == "" {
		return internal.NewError(internal.ErrorCodeConfig, "store.path is required", nil)
	}
	return validateRegularFile(fs, config.Store.Path)
}

// ValidateLocalTileDirectory checks that the local tile base path is a directory
func ValidateLocalTileDirectory(fs afero.Fs, config *Config) error {
	if config.Tiles.BasePath == "" {
		return internal.NewError(internal.ErrorCodeConfig, "tiles.base_path is required for local source", nil)
	}

	isDir, err := afero.IsDir(fs, config.Tiles.BasePath)
	if err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem,
			fmt.Sprintf("cannot access tile directory: %s", config.Tiles.BasePath), err)
	}
	if !isDir {
		return internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("tile base path is not a directory: %s", config.Tiles.BasePath), nil)
	}
	return nil
}

func validateRegularFile(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("cannot access file: %s", path), err)
	}
	if !info.Mode().IsRegular() {
		return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("path is not a regular file: %s", path), nil)
	}
	return nil
}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
