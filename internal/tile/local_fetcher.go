// internal/tile/local_fetcher.go - Local file fetching implementation
package tile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/config"
	"github.com/valpere/geopackage/pkg/crs"
	"github.com/valpere/geopackage/pkg/mvt"
	"github.com/valpere/geopackage/pkg/tilematrix"
)

// LocalFetcher implements the Fetcher interface for a {z}/{x}/{y}.mvt directory tree.
// Rows count from the top and every zoom level covers the whole profile extent.
type LocalFetcher struct {
	fs      afero.Fs
	config  *config.TilesConfig
	profile crs.Profile
}

// NewLocalFetcher creates a new local file fetcher
func NewLocalFetcher(fs afero.Fs, cfg *config.Config, registry *crs.Registry) (*LocalFetcher, error) {
	if registry == nil {
		registry = crs.DefaultRegistry()
	}

	id, err := crs.Parse(cfg.Tiles.CRS)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "invalid tiles.crs", err)
	}
	profile, err := registry.Resolve(id)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, fmt.Sprintf("unsupported tiles.crs %s", id), err)
	}

	return &LocalFetcher{
		fs:      fs,
		config:  &cfg.Tiles,
		profile: profile,
	}, nil
}

// Fetch retrieves a tile from the local file system
func (f *LocalFetcher) Fetch(_ context.Context, request *TileRequest) (*TileResponse, error) {
	start := time.Now()

	fail := func(err error) (*TileResponse, error) {
		return &TileResponse{
			Request:   request,
			FetchTime: time.Since(start),
			Error:     err,
		}, err
	}

	placement, err := mvt.Place(f.profile, f.profile.Bounds(), Dimensions(f.profile, request.ID.Zoom), request.ID)
	if err != nil {
		return fail(internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("cannot place tile %s", request), err))
	}

	filePath := f.buildFilePath(request.ID)

	fileInfo, err := f.fs.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fail(internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("tile file not found: %s", filePath), err))
		}
		return fail(internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("cannot access tile file: %s", filePath), err))
	}

	if !fileInfo.Mode().IsRegular() {
		return fail(internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("path is not a regular file: %s", filePath), nil))
	}

	data, err := afero.ReadFile(f.fs, filePath)
	if err != nil {
		return fail(internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to read tile file: %s", filePath), err))
	}

	return &TileResponse{
		Request:    request,
		Data:       data,
		Placement:  placement,
		Size:       len(data),
		Compressed: isGzipped(data),
		FetchTime:  time.Since(start),
	}, nil
}

// List scans the directory tree for tiles; the table name is ignored
func (f *LocalFetcher) List(_ context.Context, _ string, zoom int) ([]mvt.TileID, error) {
	var ids []mvt.TileID

	err := afero.Walk(f.fs, f.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if info.IsDir() {
			return nil
		}

		id, err := f.parseCoordinatesFromPath(path)
		if err != nil {
			// Skip files that don't match the expected pattern
			return nil
		}
		if zoom < 0 || id.Zoom == zoom {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to scan tile directory", err)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Zoom != b.Zoom {
			return a.Zoom < b.Zoom
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
	return ids, nil
}

// Profile returns the CRS profile tiles are placed in
func (f *LocalFetcher) Profile() crs.Profile {
	return f.profile
}

// buildFilePath constructs {base_path}/{z}/{x}/{y}{extension}[.gz]
func (f *LocalFetcher) buildFilePath(id mvt.TileID) string {
	extension := f.config.Extension
	if f.config.Compressed {
		extension += ".gz"
	}
	return filepath.Join(
		f.config.BasePath,
		strconv.Itoa(id.Zoom),
		strconv.Itoa(id.Column),
		strconv.Itoa(id.Row)+extension,
	)
}

// parseCoordinatesFromPath extracts the tile address from a file path
func (f *LocalFetcher) parseCoordinatesFromPath(filePath string) (mvt.TileID, error) {
	relPath, err := filepath.Rel(f.config.BasePath, filePath)
	if err != nil {
		return mvt.TileID{}, err
	}

	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) != 3 {
		return mvt.TileID{}, fmt.Errorf("invalid path structure: %s", relPath)
	}

	filename := parts[2]
	if f.config.Compressed {
		filename = strings.TrimSuffix(filename, ".gz")
	}
	if !strings.HasSuffix(filename, f.config.Extension) {
		return mvt.TileID{}, fmt.Errorf("unexpected extension: %s", relPath)
	}
	filename = strings.TrimSuffix(filename, f.config.Extension)

	values := make([]int, 3)
	for i, s := range []string{parts[0], parts[1], filename} {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return mvt.TileID{}, fmt.Errorf("invalid coordinate %q in %s", s, relPath)
		}
		values[i] = v
	}

	return mvt.TileID{Zoom: values[0], Column: values[1], Row: values[2]}, nil
}

// Dimensions returns the matrix size of a whole-world pyramid at zoom. Geodetic
// pyramids are two tiles wide at zoom 0.
func Dimensions(p crs.Profile, zoom int) tilematrix.Dimensions {
	if zoom < 0 || zoom > 30 {
		return tilematrix.Dimensions{}
	}
	height := 1 << uint(zoom)
	width := height
	if p.CRS().Equal(crs.EPSG4326) {
		width *= 2
	}
	return tilematrix.Dimensions{Width: width, Height: height}
}
