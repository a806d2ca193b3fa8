// internal/store/storetest/storetest.go - Builds small GeoPackage fixtures for tests
package storetest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA application_id = 1196444487;
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL PRIMARY KEY,
	organization TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	description TEXT
);
CREATE TABLE gpkg_contents (
	table_name TEXT NOT NULL PRIMARY KEY,
	data_type TEXT NOT NULL,
	identifier TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
	srs_id INTEGER
);
CREATE TABLE gpkg_geometry_columns (
	table_name TEXT NOT NULL,
	column_name TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id INTEGER NOT NULL,
	z TINYINT NOT NULL,
	m TINYINT NOT NULL,
	PRIMARY KEY (table_name, column_name)
);
CREATE TABLE gpkg_tile_matrix_set (
	table_name TEXT NOT NULL PRIMARY KEY,
	srs_id INTEGER NOT NULL,
	min_x DOUBLE NOT NULL, min_y DOUBLE NOT NULL, max_x DOUBLE NOT NULL, max_y DOUBLE NOT NULL
);
CREATE TABLE gpkg_tile_matrix (
	table_name TEXT NOT NULL,
	zoom_level INTEGER NOT NULL,
	matrix_width INTEGER NOT NULL,
	matrix_height INTEGER NOT NULL,
	tile_width INTEGER NOT NULL,
	tile_height INTEGER NOT NULL,
	pixel_x_size DOUBLE NOT NULL,
	pixel_y_size DOUBLE NOT NULL,
	PRIMARY KEY (table_name, zoom_level)
);
INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', NULL),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', NULL),
	('WGS 84 geodetic', 4326, 'EPSG', 4326, 'GEOGCS["WGS 84"]', 'longitude/latitude coordinates in decimal degrees'),
	('WGS 84 / Pseudo-Mercator', 3857, 'EPSG', 3857, 'PROJCS["WGS 84 / Pseudo-Mercator"]', NULL);
`

// GeoPackage is an open fixture database
type GeoPackage struct {
	Path string
	DB   *sql.DB
	t    testing.TB
}

// New creates an empty GeoPackage with the core tables in a temp directory
func New(t testing.TB) *GeoPackage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.gpkg")
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)

	return &GeoPackage{Path: path, DB: db, t: t}
}

// Exec runs a statement and fails the test on error
func (g *GeoPackage) Exec(query string, args ...any) {
	g.t.Helper()
	_, err := g.DB.Exec(query, args...)
	require.NoError(g.t, err)
}

// AddFeatureTable creates and registers a feature table with an fid key and geom column
func (g *GeoPackage) AddFeatureTable(table, geometryType string, srsID int32) {
	g.t.Helper()
	g.Exec(`CREATE TABLE "` + table + `" (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, name TEXT)`)
	g.Exec(`INSERT INTO gpkg_contents (table_name, data_type, identifier, srs_id) VALUES (?, 'features', ?, ?)`, table, table, srsID)
	g.Exec(`INSERT INTO gpkg_geometry_columns VALUES (?, 'geom', ?, ?, 0, 0)`, table, geometryType, srsID)
}

// AddFeature inserts one geometry BLOB and returns its fid
func (g *GeoPackage) AddFeature(table string, blob []byte) int64 {
	g.t.Helper()
	res, err := g.DB.Exec(`INSERT INTO "`+table+`" (geom) VALUES (?)`, blob)
	require.NoError(g.t, err)
	id, err := res.LastInsertId()
	require.NoError(g.t, err)
	return id
}

// AddTileTable creates and registers a tile pyramid table
func (g *GeoPackage) AddTileTable(table string, srsID int32, minX, minY, maxX, maxY float64) {
	g.t.Helper()
	g.Exec(`CREATE TABLE "` + table + `" (id INTEGER PRIMARY KEY AUTOINCREMENT, zoom_level INTEGER NOT NULL,
		tile_column INTEGER NOT NULL, tile_row INTEGER NOT NULL, tile_data BLOB NOT NULL,
		UNIQUE (zoom_level, tile_column, tile_row))`)
	g.Exec(`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'tiles', ?, ?, ?, ?, ?, ?)`, table, table, minX, minY, maxX, maxY, srsID)
	g.Exec(`INSERT INTO gpkg_tile_matrix_set VALUES (?, ?, ?, ?, ?, ?)`, table, srsID, minX, minY, maxX, maxY)
}

// AddTileMatrix registers a zoom level of a tile table
func (g *GeoPackage) AddTileMatrix(table string, zoom, width, height, tileSize int, pixelX, pixelY float64) {
	g.t.Helper()
	g.Exec(`INSERT INTO gpkg_tile_matrix VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table, zoom, width, height, tileSize, tileSize, pixelX, pixelY)
}

// AddTile inserts one tile
func (g *GeoPackage) AddTile(table string, zoom, column, row int, data []byte) {
	g.t.Helper()
	g.Exec(`INSERT INTO "`+table+`" (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`, zoom, column, row, data)
}

// Close closes the fixture handle so the file can be reopened read-only
func (g *GeoPackage) Close() {
	g.t.Helper()
	require.NoError(g.t, g.DB.Close())
}
