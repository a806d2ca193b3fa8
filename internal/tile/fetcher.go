// internal/tile/fetcher.go - Tile fetching from GeoPackage tile pyramids
package tile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/pkg/crs"
	"github.com/valpere/geopackage/pkg/mvt"
	"github.com/valpere/geopackage/pkg/tilematrix"
)

// GeoPackageFetcher implements the Fetcher interface over a tile pyramid user data table
type GeoPackageFetcher struct {
	store    *store.Store
	registry *crs.Registry

	mu       sync.Mutex
	pyramids map[string]*pyramid
}

// pyramid is the matrix set of one tile table resolved against the CRS registry
type pyramid struct {
	profile crs.Profile
	bounds  crs.BoundingBox
	levels  map[int]tilematrix.Dimensions
}

// NewGeoPackageFetcher creates a fetcher reading tiles from st; a nil registry means crs.DefaultRegistry()
func NewGeoPackageFetcher(st *store.Store, registry *crs.Registry) *GeoPackageFetcher {
	if registry == nil {
		registry = crs.DefaultRegistry()
	}
	return &GeoPackageFetcher{
		store:    st,
		registry: registry,
		pyramids: make(map[string]*pyramid),
	}
}

// Fetch reads a single tile and places it inside its tile matrix
func (f *GeoPackageFetcher) Fetch(ctx context.Context, request *TileRequest) (*TileResponse, error) {
	start := time.Now()

	fail := func(err error) (*TileResponse, error) {
		return &TileResponse{
			Request:   request,
			FetchTime: time.Since(start),
			Error:     err,
		}, err
	}

	pyr, err := f.pyramid(ctx, request.Table)
	if err != nil {
		return fail(err)
	}

	dims, ok := pyr.levels[request.ID.Zoom]
	if !ok {
		return fail(internal.NewError(internal.ErrorCodeNotFound,
			fmt.Sprintf("zoom level %d not defined for %q", request.ID.Zoom, request.Table), nil))
	}

	placement, err := mvt.Place(pyr.profile, pyr.bounds, dims, request.ID)
	if err != nil {
		return fail(internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("cannot place tile %s", request), err))
	}

	t, err := f.store.Tile(ctx, request.Table, request.ID.Zoom, request.ID.Column, request.ID.Row)
	if err != nil {
		return fail(storeError(fmt.Sprintf("tile %s", request), err))
	}

	return &TileResponse{
		Request:    request,
		Data:       t.Data,
		Placement:  placement,
		Size:       len(t.Data),
		Compressed: isGzipped(t.Data),
		FetchTime:  time.Since(start),
	}, nil
}

// List returns the stored tile addresses ordered by zoom, row and column
func (f *GeoPackageFetcher) List(ctx context.Context, table string, zoom int) ([]mvt.TileID, error) {
	var ids []mvt.TileID
	err := f.store.Tiles(ctx, table, zoom, func(t store.Tile) error {
		ids = append(ids, mvt.TileID{Zoom: t.ZoomLevel, Column: t.TileColumn, Row: t.TileRow})
		return nil
	})
	if err != nil {
		return nil, storeError(fmt.Sprintf("list tiles of %q", table), err)
	}
	return ids, nil
}

// Profile returns the CRS profile of a tile table
func (f *GeoPackageFetcher) Profile(ctx context.Context, table string) (crs.Profile, error) {
	pyr, err := f.pyramid(ctx, table)
	if err != nil {
		return nil, err
	}
	return pyr.profile, nil
}

// pyramid loads and caches the matrix set, SRS and zoom levels of table
func (f *GeoPackageFetcher) pyramid(ctx context.Context, table string) (*pyramid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pyr, ok := f.pyramids[table]; ok {
		return pyr, nil
	}

	tms, err := f.store.TileMatrixSet(ctx, table)
	if err != nil {
		return nil, storeError(fmt.Sprintf("tile matrix set of %q", table), err)
	}

	srs, err := f.store.SpatialReferenceSystem(ctx, tms.SRSID)
	if err != nil {
		return nil, storeError(fmt.Sprintf("srs %d of %q", tms.SRSID, table), err)
	}

	profile, err := f.registry.Lookup(srs.Organization, srs.OrganizationCoordsysID)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("unsupported crs %s:%d for %q", srs.Organization, srs.OrganizationCoordsysID, table), err)
	}

	bounds, err := crs.NewBoundingBox(tms.MinX, tms.MinY, tms.MaxX, tms.MaxY)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeMalformed, fmt.Sprintf("tile matrix set of %q", table), err)
	}

	matrices, err := f.store.TileMatrices(ctx, table)
	if err != nil {
		return nil, storeError(fmt.Sprintf("tile matrices of %q", table), err)
	}

	pyr := &pyramid{profile: profile, bounds: bounds, levels: make(map[int]tilematrix.Dimensions, len(matrices))}
	for _, tm := range matrices {
		dims, err := tilematrix.NewDimensions(tm.MatrixWidth, tm.MatrixHeight)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeMalformed,
				fmt.Sprintf("zoom level %d of %q", tm.ZoomLevel, table), err)
		}
		pyr.levels[tm.ZoomLevel] = dims
	}

	f.pyramids[table] = pyr
	return pyr, nil
}

// storeError classifies a store failure as not-found or a generic store error
func storeError(message string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return internal.NewError(internal.ErrorCodeNotFound, message, err)
	}
	return internal.NewError(internal.ErrorCodeStore, message, err)
}

func isGzipped(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}
