package tile

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/config"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/internal/store/storetest"
	"github.com/valpere/geopackage/pkg/crs"
	gpkgmvt "github.com/valpere/geopackage/pkg/mvt"
)

const mercatorMax = 20037508.342789244

// poiTile encodes one point at the upper-left pixel of the tile
func poiTile(t *testing.T) []byte {
	t.Helper()

	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties["name"] = "corner"
	fc := geojson.NewFeatureCollection()
	fc.Append(f)

	data, err := mvt.Marshal(mvt.NewLayers(map[string]*geojson.FeatureCollection{"poi": fc}))
	require.NoError(t, err)
	return data
}

func openTileStore(t *testing.T) *store.Store {
	t.Helper()

	gp := storetest.New(t)
	gp.AddTileTable("basemap", 3857, -mercatorMax, -mercatorMax, mercatorMax, mercatorMax)
	gp.AddTileMatrix("basemap", 0, 1, 1, 256, 156543.03392804097, 156543.03392804097)
	gp.AddTileMatrix("basemap", 1, 2, 2, 256, 78271.51696402048, 78271.51696402048)
	gp.AddTile("basemap", 1, 1, 0, poiTile(t))
	gp.AddTile("basemap", 1, 0, 1, poiTile(t))
	gp.AddTile("basemap", 0, 0, 0, poiTile(t))
	gp.Close()

	st, err := store.Open(context.Background(), gp.Path, store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestGeoPackageFetcherFetch(t *testing.T) {
	fetcher := NewGeoPackageFetcher(openTileStore(t), nil)

	response, err := fetcher.Fetch(context.Background(), NewTileRequest("basemap", 1, 1, 0))
	require.NoError(t, err)
	require.NoError(t, response.Error)

	assert.Equal(t, poiTile(t), response.Data)
	assert.Equal(t, len(response.Data), response.Size)
	assert.False(t, response.Compressed)

	b := response.Placement.Bounds
	assert.InDelta(t, 0, b.MinX, 1e-6)
	assert.InDelta(t, 0, b.MinY, 1e-6)
	assert.InDelta(t, mercatorMax, b.MaxX, 1e-6)
	assert.InDelta(t, mercatorMax, b.MaxY, 1e-6)
	assert.True(t, response.Placement.Profile.CRS().Equal(crs.EPSG3857))

	profile, err := fetcher.Profile(context.Background(), "basemap")
	require.NoError(t, err)
	assert.True(t, profile.CRS().Equal(crs.EPSG3857))
}

func TestGeoPackageFetcherErrors(t *testing.T) {
	fetcher := NewGeoPackageFetcher(openTileStore(t), nil)

	tests := []struct {
		name     string
		request  *TileRequest
		wantCode string
	}{
		{"missing tile", NewTileRequest("basemap", 1, 0, 0), internal.ErrorCodeNotFound},
		{"undefined zoom", NewTileRequest("basemap", 5, 0, 0), internal.ErrorCodeNotFound},
		{"outside matrix", NewTileRequest("basemap", 1, 2, 0), internal.ErrorCodeValidation},
		{"unknown table", NewTileRequest("nope", 0, 0, 0), internal.ErrorCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := fetcher.Fetch(context.Background(), tt.request)
			require.Error(t, err)
			require.NotNil(t, response)
			assert.Equal(t, err, response.Error)
			assert.Equal(t, tt.wantCode, internal.CodeOf(err))
		})
	}
}

func TestGeoPackageFetcherList(t *testing.T) {
	fetcher := NewGeoPackageFetcher(openTileStore(t), nil)

	ids, err := fetcher.List(context.Background(), "basemap", 1)
	require.NoError(t, err)
	assert.Equal(t, []gpkgmvt.TileID{{Zoom: 1, Column: 1, Row: 0}, {Zoom: 1, Column: 0, Row: 1}}, ids)

	all, err := fetcher.List(context.Background(), "basemap", -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 0, all[0].Zoom)

	_, err = fetcher.List(context.Background(), "nope", -1)
	assert.Equal(t, internal.ErrorCodeNotFound, internal.CodeOf(err))
}

func TestMVTProcessorProcess(t *testing.T) {
	fetcher := NewGeoPackageFetcher(openTileStore(t), nil)
	response, err := fetcher.Fetch(context.Background(), NewTileRequest("basemap", 1, 1, 0))
	require.NoError(t, err)

	processor, err := NewMVTProcessor(nil)
	require.NoError(t, err)

	processed, err := processor.Process(response)
	require.NoError(t, err)
	require.NotNil(t, processed.Data)
	require.Len(t, processed.Data.Features, 1)

	f := processed.Data.Features[0]
	pt, ok := f.Geometry.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 0, pt.Lon(), 1e-9)
	assert.InDelta(t, 85.0511287798066, pt.Lat(), 1e-9)
	assert.Equal(t, "corner", f.Properties["name"])
	assert.Equal(t, "poi", f.Properties[gpkgmvt.LayerProperty])

	assert.Equal(t, []string{"poi"}, processed.Metadata.Layers)
	assert.Equal(t, 1, processed.Metadata.FeatureCount)
	assert.Equal(t, response.Size, processed.Metadata.Size)
}

func TestMVTProcessorProcessBatch(t *testing.T) {
	fetcher := NewGeoPackageFetcher(openTileStore(t), nil)
	ctx := context.Background()

	var responses []*TileResponse
	for _, request := range []*TileRequest{
		NewTileRequest("basemap", 1, 1, 0),
		NewTileRequest("basemap", 1, 0, 0),
		NewTileRequest("basemap", 1, 0, 1),
	} {
		response, _ := fetcher.Fetch(ctx, request)
		responses = append(responses, response)
	}
	responses = append(responses, &TileResponse{Request: NewTileRequest("basemap", 0, 0, 0)})

	processor, err := NewMVTProcessor(&gpkgmvt.ConversionOptions{CoordinateSystem: gpkgmvt.CoordSystemTile})
	require.NoError(t, err)

	results, err := processor.WithConcurrency(2).ProcessBatch(responses)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.NoError(t, results[2].Error)
	assert.Error(t, results[3].Error, "empty tile data")

	for i, r := range results {
		assert.Equal(t, responses[i].Request.ID, r.ID)
	}
	assert.Equal(t, orb.Point{0, 0}, results[2].Data.Features[0].Geometry)
}

func TestNewMVTProcessorRejectsOptions(t *testing.T) {
	_, err := NewMVTProcessor(&gpkgmvt.ConversionOptions{CoordinateSystem: "pixels"})
	assert.Error(t, err)
}

func localConfig() *config.Config {
	return &config.Config{Tiles: config.TilesConfig{
		Source:    "local",
		BasePath:  "/tiles",
		Extension: ".mvt",
		CRS:       "EPSG:3857",
	}}
}

func TestLocalFetcher(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tiles/1/1/0.mvt", poiTile(t), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/tiles/0/0/0.mvt", poiTile(t), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/tiles/1/1/README.txt", []byte("x"), 0o644))
	require.NoError(t, fs.MkdirAll("/tiles/2/0/1.mvt", 0o755))

	fetcher, err := NewLocalFetcher(fs, localConfig(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	response, err := fetcher.Fetch(ctx, NewTileRequest("", 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, poiTile(t), response.Data)
	assert.InDelta(t, mercatorMax, response.Placement.Bounds.MaxY, 1e-6)
	assert.InDelta(t, 0, response.Placement.Bounds.MinX, 1e-6)

	_, err = fetcher.Fetch(ctx, NewTileRequest("", 1, 0, 0))
	assert.Equal(t, internal.ErrorCodeNotFound, internal.CodeOf(err))

	_, err = fetcher.Fetch(ctx, NewTileRequest("", 2, 0, 1))
	assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))

	_, err = fetcher.Fetch(ctx, NewTileRequest("", 1, 4, 0))
	assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))

	ids, err := fetcher.List(ctx, "", -1)
	require.NoError(t, err)
	assert.Equal(t, []gpkgmvt.TileID{{Zoom: 0}, {Zoom: 1, Column: 1}}, ids)

	ids, err = fetcher.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []gpkgmvt.TileID{{Zoom: 1, Column: 1}}, ids)
}

func TestLocalFetcherCompressed(t *testing.T) {
	fs := afero.NewMemMapFs()
	gz, err := mvt.MarshalGzipped(mvt.NewLayers(map[string]*geojson.FeatureCollection{"poi": geojson.NewFeatureCollection()}))
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/tiles/0/0/0.mvt.gz", gz, 0o644))

	cfg := localConfig()
	cfg.Tiles.Compressed = true
	fetcher, err := NewLocalFetcher(fs, cfg, nil)
	require.NoError(t, err)

	response, err := fetcher.Fetch(context.Background(), NewTileRequest("", 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, response.Compressed)

	ids, err := fetcher.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []gpkgmvt.TileID{{}}, ids)
}

func TestNewLocalFetcherUnknownCRS(t *testing.T) {
	cfg := localConfig()
	cfg.Tiles.CRS = "EPSG:2154"
	_, err := NewLocalFetcher(afero.NewMemMapFs(), cfg, nil)
	assert.Equal(t, internal.ErrorCodeConfig, internal.CodeOf(err))
}

func TestDimensions(t *testing.T) {
	assert.Equal(t, 2, Dimensions(crs.NewGlobalGeodetic(), 0).Width)
	assert.Equal(t, 1, Dimensions(crs.NewGlobalGeodetic(), 0).Height)
	assert.Equal(t, 8, Dimensions(crs.NewSphericalMercator(), 3).Width)
	assert.Zero(t, Dimensions(crs.NewSphericalMercator(), -1).Width)
}

func TestFetcherFactory(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := localConfig()

	factory := NewFetcherFactory(cfg, nil, fs, nil)
	_, err := factory.CreateFetcher()
	assert.Error(t, err, "base path does not exist yet")

	_, err = factory.CreateFetcherForType(internal.SourceTypeGeoPackage)
	assert.Equal(t, internal.ErrorCodeConfig, internal.CodeOf(err))

	require.NoError(t, fs.MkdirAll("/tiles", 0o755))
	fetcher, err := factory.CreateFetcher()
	require.NoError(t, err)
	assert.IsType(t, &LocalFetcher{}, fetcher)
	assert.Equal(t, []internal.SourceType{internal.SourceTypeLocal}, factory.GetSupportedSourceTypes())

	cfg.Tiles.Source = "geopackage"
	factory = NewFetcherFactory(cfg, openTileStore(t), fs, nil)
	fetcher, err = factory.CreateFetcher()
	require.NoError(t, err)
	assert.IsType(t, &GeoPackageFetcher{}, fetcher)
	assert.Len(t, factory.GetSupportedSourceTypes(), 2)

	_, err = factory.CreateFetcherForType("ftp")
	assert.Error(t, err)
}
