package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/output"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/internal/store/storetest"
	"github.com/valpere/geopackage/pkg/crs"
	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/gpb"
	gpkgmvt "github.com/valpere/geopackage/pkg/mvt"
)

const mercatorMax = 20037508.342789244

// execute runs the root command with args and returns what it wrote to stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func pointBlob(t *testing.T, x, y float64) []byte {
	t.Helper()
	data, err := gpb.Encode(geometry.NewPoint(geometry.NewCoordinate(x, y)), 4326, gpb.EncodeOptions{})
	require.NoError(t, err)
	return data
}

// featureFixture builds a GeoPackage with a roads feature table, an empty parks table
// and a basemap tile table
func featureFixture(t *testing.T) string {
	t.Helper()

	gp := storetest.New(t)
	gp.AddFeatureTable("roads", "POINT", 4326)
	gp.AddFeature("roads", pointBlob(t, 1, 2))
	gp.AddFeature("roads", pointBlob(t, 3, 4))
	gp.AddFeatureTable("parks", "POLYGON", 4326)

	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties["name"] = "corner"
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	tileData, err := mvt.Marshal(mvt.NewLayers(map[string]*geojson.FeatureCollection{"poi": fc}))
	require.NoError(t, err)

	gp.AddTileTable("basemap", 3857, -mercatorMax, -mercatorMax, mercatorMax, mercatorMax)
	gp.AddTileMatrix("basemap", 0, 1, 1, 256, 156543.03392804097, 156543.03392804097)
	gp.AddTileMatrix("basemap", 1, 2, 2, 256, 78271.51696402048, 78271.51696402048)
	gp.AddTile("basemap", 0, 0, 0, tileData)
	gp.AddTile("basemap", 1, 1, 0, tileData)
	gp.Close()

	return gp.Path
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"plain", "0a0B", []byte{0x0a, 0x0b}, false},
		{"prefixed", "0x0a0b", []byte{0x0a, 0x0b}, false},
		{"sql blob", "X'0A0B'", []byte{0x0a, 0x0b}, false},
		{"whitespace", " 0a\n0b \n", []byte{0x0a, 0x0b}, false},
		{"empty", "  ", nil, true},
		{"empty blob", "X''", nil, true},
		{"odd length", "0a0", nil, true},
		{"not hex", "zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHex(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoundingBox(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    crs.BoundingBox
		wantErr bool
	}{
		{"valid", "-180,-90,180,90", crs.BoundingBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}, false},
		{"spaces", " 0, 1 ,2, 3", crs.BoundingBox{MinX: 0, MinY: 1, MaxX: 2, MaxY: 3}, false},
		{"too few", "1,2,3", crs.BoundingBox{}, true},
		{"not a number", "a,1,2,3", crs.BoundingBox{}, true},
		{"inverted", "10,0,0,10", crs.BoundingBox{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBoundingBox(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTileAddress(t *testing.T) {
	column, row, err := parseTileAddress([]string{"3", "7"})
	require.NoError(t, err)
	assert.Equal(t, 3, column)
	assert.Equal(t, 7, row)

	_, _, err = parseTileAddress([]string{"x", "7"})
	assert.Error(t, err)
	_, _, err = parseTileAddress([]string{"3", "y"})
	assert.Error(t, err)
}

func TestParseTilesList(t *testing.T) {
	ids, err := parseTilesList("14/8362/5956, 0/0/0")
	require.NoError(t, err)
	assert.Equal(t, []gpkgmvt.TileID{{Zoom: 14, Column: 8362, Row: 5956}, {Zoom: 0, Column: 0, Row: 0}}, ids)

	for _, bad := range []string{"1/2", "1/2/3/4", "a/0/0", "1/-1/0"} {
		_, err := parseTilesList(bad)
		assert.Error(t, err, bad)
		assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err), bad)
	}
}

func TestResolveProfile(t *testing.T) {
	p, err := resolveProfile("EPSG:3857")
	require.NoError(t, err)
	assert.True(t, p.CRS().Equal(crs.EPSG3857))

	_, err = resolveProfile("nonsense")
	assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))

	_, err = resolveProfile("EPSG:2154")
	assert.Equal(t, internal.ErrorCodeNotFound, internal.CodeOf(err))
}

func TestConvertCoordinate(t *testing.T) {
	from, err := resolveProfile("EPSG:4326")
	require.NoError(t, err)
	to, err := resolveProfile("EPSG:3857")
	require.NoError(t, err)

	c, err := convertCoordinate(from, to, crs.NewCoordinate(180, 0, from.CRS()))
	require.NoError(t, err)
	assert.InDelta(t, mercatorMax, c.X, 1e-6)
	assert.InDelta(t, 0, c.Y, 1e-6)

	back, err := convertCoordinate(to, from, c)
	require.NoError(t, err)
	assert.InDelta(t, 180, back.X, 1e-9)
	assert.InDelta(t, 0, back.Y, 1e-9)
}

func TestNewFeatureLayout(t *testing.T) {
	mem := afero.NewMemMapFs()
	cfg := &output.WriterConfig{Format: output.FormatGeoJSON}

	layout, err := newFeatureLayout(mem, "", 3, cfg)
	require.NoError(t, err)
	assert.True(t, layout.stdout)

	layout, err = newFeatureLayout(mem, "out/roads.geojson", 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, "out/roads.geojson", layout.path("roads"))

	layout, err = newFeatureLayout(mem, "out/", 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "roads.geojson"), layout.path("roads"))

	layout, err = newFeatureLayout(mem, "many", 2, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("many", "parks.geojson"), layout.path("parks"))
	isDir, err := afero.IsDir(mem, "many")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestFeatureTables(t *testing.T) {
	st, err := store.Open(context.Background(), featureFixture(t), store.DefaultOptions())
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	all, err := featureTables(ctx, st, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"parks", "roads"}, all)

	named, err := featureTables(ctx, st, []string{"roads", "roads"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"roads"}, named)

	_, err = featureTables(ctx, st, []string{"missing"}, false)
	assert.Equal(t, internal.ErrorCodeNotFound, internal.CodeOf(err))

	_, err = featureTables(ctx, st, []string{"basemap"}, false)
	assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))
}

func TestApplicationIDString(t *testing.T) {
	assert.Equal(t, "GPKG", applicationIDString(store.ApplicationIDGPKG))
	assert.Equal(t, "0x00000000", applicationIDString(0))
}

func TestWKBCommands(t *testing.T) {
	out, err := execute(t, "wkb", "decode", "--pretty=false", "000000000140000000000000004010000000000000")
	require.NoError(t, err)

	var report struct {
		Type     string          `json:"type"`
		Layout   string          `json:"layout"`
		Envelope []float64       `json:"envelope"`
		Geometry json.RawMessage `json:"geometry"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "Point", report.Type)
	assert.Equal(t, "XY", report.Layout)
	assert.JSONEq(t, `{"type":"Point","coordinates":[2,4]}`, string(report.Geometry))

	out, err = execute(t, "wkb", "encode", "--byte-order", "big", `{"type":"Point","coordinates":[2,4]}`)
	require.NoError(t, err)
	assert.Equal(t, "000000000140000000000000004010000000000000\n", out)

	_, err = execute(t, "wkb", "decode", "0000000001400000")
	require.Error(t, err)
	assert.Equal(t, internal.ErrorCodeMalformed, internal.CodeOf(err))
}

func TestGPBCommands(t *testing.T) {
	out, err := execute(t, "gpb", "encode", "--byte-order", "big", "--srs-id", "4326", `{"type":"Point","coordinates":[1,2]}`)
	require.NoError(t, err)
	encoded := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(encoded, "4750"), encoded)

	out, err = execute(t, "gpb", "decode", "--pretty=false", encoded)
	require.NoError(t, err)

	var report struct {
		Header struct {
			SRSID    int32     `json:"srs_id"`
			Envelope []float64 `json:"envelope"`
		} `json:"header"`
		Geometry struct {
			Type string `json:"type"`
		} `json:"geometry"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int32(4326), report.Header.SRSID)
	assert.Equal(t, []float64{1, 1, 2, 2}, report.Header.Envelope)
	assert.Equal(t, "Point", report.Geometry.Type)

	_, err = execute(t, "gpb", "decode", "0102")
	assert.Equal(t, internal.ErrorCodeMalformed, internal.CodeOf(err))
}

func TestTileBoundsCommand(t *testing.T) {
	out, err := execute(t, "tile", "bounds", "--pretty=false", "--crs", "EPSG:3857", "--zoom", "1", "--origin", "upper-left", "1", "0")
	require.NoError(t, err)

	var report tileBoundsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "EPSG:3857", report.CRS)
	assert.InDelta(t, 0, report.Bounds[0], 0.01)
	assert.InDelta(t, 0, report.Bounds[1], 0.01)
	assert.InDelta(t, mercatorMax, report.Bounds[2], 0.01)
	assert.InDelta(t, mercatorMax, report.Bounds[3], 0.01)
	assert.InDelta(t, 180, report.Geodetic[2], 1e-6)
}

func TestTileTransformCommand(t *testing.T) {
	out, err := execute(t, "tile", "transform", "--pretty=false", "--crs", "EPSG:3857", "--zoom", "3",
		"--origin", "upper-left", "--to-origin", "lower-left", "2", "1")
	require.NoError(t, err)

	var address tileAddress
	require.NoError(t, json.Unmarshal([]byte(out), &address))
	assert.Equal(t, 2, address.Column)
	assert.Equal(t, 6, address.Row)
}

func TestCRSConvertCommand(t *testing.T) {
	out, err := execute(t, "crs", "convert", "--from", "EPSG:4326", "--to", "EPSG:3857", "180", "0")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	assert.True(t, strings.HasPrefix(fields[0], "20037508.34"), fields[0])
}

func TestFeaturesExportCommand(t *testing.T) {
	path := featureFixture(t)
	dest := filepath.Join(t.TempDir(), "roads.geojson")

	_, err := execute(t, "features", "export", "--gpkg", path, "--format", "geojson", "--compression", "none",
		"--output", dest, "roads")
	require.NoError(t, err)

	data, err := afero.ReadFile(afero.NewOsFs(), dest)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
	assert.Equal(t, orb.Point{3, 4}, fc.Features[1].Geometry)

	_, err = execute(t, "features", "export", "--gpkg", path, "--output", dest, "missing")
	assert.Equal(t, internal.ErrorCodeNotFound, internal.CodeOf(err))
}

func TestTilesExportCommand(t *testing.T) {
	path := featureFixture(t)
	dest := filepath.Join(t.TempDir(), "basemap.geojson")

	_, err := execute(t, "tiles", "export", "--gpkg", path, "--table", "basemap", "--format", "geojson",
		"--compression", "none", "--output", dest)
	require.NoError(t, err)

	data, err := afero.ReadFile(afero.NewOsFs(), dest)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestInfoCommand(t *testing.T) {
	path := featureFixture(t)

	out, err := execute(t, "info", "--gpkg", path, "--pretty=false")
	require.NoError(t, err)

	var report infoReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "GPKG", report.ApplicationID)
	assert.Len(t, report.SRS, 4)
	require.Len(t, report.Tables, 3)

	byName := make(map[string]tableReport)
	for _, table := range report.Tables {
		byName[table.TableName] = table
	}
	require.NotNil(t, byName["roads"].FeatureCount)
	assert.Equal(t, int64(2), *byName["roads"].FeatureCount)
	assert.Equal(t, "geom", byName["roads"].GeometryColumn.ColumnName)
	assert.Len(t, byName["basemap"].TileMatrices, 2)
}
