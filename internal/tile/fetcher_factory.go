// internal/tile/fetcher_factory.go - Fetcher factory implementation
package tile

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/config"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/pkg/crs"
)

// FetcherFactory creates appropriate fetchers based on configuration
type FetcherFactory struct {
	config   *config.Config
	store    *store.Store
	fs       afero.Fs
	registry *crs.Registry
}

// NewFetcherFactory creates a new fetcher factory. st may be nil when only local sources are used.
func NewFetcherFactory(cfg *config.Config, st *store.Store, fs afero.Fs, registry *crs.Registry) *FetcherFactory {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if registry == nil {
		registry = crs.DefaultRegistry()
	}
	return &FetcherFactory{
		config:   cfg,
		store:    st,
		fs:       fs,
		registry: registry,
	}
}

// CreateFetcher creates the appropriate fetcher based on configuration
func (f *FetcherFactory) CreateFetcher() (Fetcher, error) {
	return f.CreateFetcherForType(f.config.DetermineSourceType())
}

// CreateFetcherForType creates a fetcher for a specific source type
func (f *FetcherFactory) CreateFetcherForType(sourceType internal.SourceType) (Fetcher, error) {
	if err := f.ValidateConfiguration(sourceType); err != nil {
		return nil, err
	}

	switch sourceType {
	case internal.SourceTypeGeoPackage:
		return NewGeoPackageFetcher(f.store, f.registry), nil
	case internal.SourceTypeLocal:
		return NewLocalFetcher(f.fs, f.config, f.registry)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}

// ValidateConfiguration validates that the configuration supports the requested source type
func (f *FetcherFactory) ValidateConfiguration(sourceType internal.SourceType) error {
	switch sourceType {
	case internal.SourceTypeGeoPackage:
		if f.store == nil {
			return internal.NewError(internal.ErrorCodeConfig, "an open GeoPackage is required for geopackage source", nil)
		}
	case internal.SourceTypeLocal:
		if err := config.ValidateLocalTileDirectory(f.fs, f.config); err != nil {
			return fmt.Errorf("local tile directory validation failed: %w", err)
		}
	default:
		return fmt.Errorf("unsupported source type: %s", sourceType)
	}

	return nil
}

// GetSupportedSourceTypes returns the source types that can be created with current configuration
func (f *FetcherFactory) GetSupportedSourceTypes() []internal.SourceType {
	var supported []internal.SourceType

	if f.store != nil {
		supported = append(supported, internal.SourceTypeGeoPackage)
	}

	if f.config.Tiles.BasePath != "" {
		supported = append(supported, internal.SourceTypeLocal)
	}

	return supported
}
