// internal/store/readers.go - Queries over the GeoPackage core and user tables
package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

// SpatialReferenceSystems lists gpkg_spatial_ref_sys ordered by srs_id
func (s *Store) SpatialReferenceSystems(ctx context.Context) ([]SpatialReferenceSystem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT srs_name, srs_id, organization, organization_coordsys_id, definition, COALESCE(description, '')
		FROM gpkg_spatial_ref_sys ORDER BY srs_id`)
	if err != nil {
		return nil, errors.Wrap(err, "query gpkg_spatial_ref_sys")
	}
	defer rows.Close()

	var out []SpatialReferenceSystem
	for rows.Next() {
		var srs SpatialReferenceSystem
		if err := rows.Scan(&srs.Name, &srs.ID, &srs.Organization, &srs.OrganizationCoordsysID, &srs.Definition, &srs.Description); err != nil {
			return nil, errors.Wrap(err, "scan gpkg_spatial_ref_sys")
		}
		out = append(out, srs)
	}
	return out, errors.Wrap(rows.Err(), "iterate gpkg_spatial_ref_sys")
}

// SpatialReferenceSystem returns the row with the given srs_id
func (s *Store) SpatialReferenceSystem(ctx context.Context, srsID int32) (SpatialReferenceSystem, error) {
	var srs SpatialReferenceSystem
	err := s.db.QueryRowContext(ctx, `SELECT srs_name, srs_id, organization, organization_coordsys_id, definition, COALESCE(description, '')
		FROM gpkg_spatial_ref_sys WHERE srs_id = ?`, srsID).
		Scan(&srs.Name, &srs.ID, &srs.Organization, &srs.OrganizationCoordsysID, &srs.Definition, &srs.Description)
	if err == sql.ErrNoRows {
		return srs, errors.Wrapf(ErrNotFound, "srs_id %d", srsID)
	}
	return srs, errors.Wrapf(err, "query srs_id %d", srsID)
}

// Contents lists gpkg_contents, optionally filtered by data_type
func (s *Store) Contents(ctx context.Context, dataType string) ([]Content, error) {
	query := `SELECT table_name, data_type, COALESCE(identifier, ''), COALESCE(description, ''), COALESCE(last_change, ''),
		min_x, min_y, max_x, max_y, srs_id FROM gpkg_contents`
	var args []any
	if dataType != "" {
		query += " WHERE data_type = ?"
		args = append(args, dataType)
	}
	query += " ORDER BY table_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query gpkg_contents")
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		var (
			c                      Content
			minX, minY, maxX, maxY sql.NullFloat64
			srsID                  sql.NullInt32
		)
		if err := rows.Scan(&c.TableName, &c.DataType, &c.Identifier, &c.Description, &c.LastChange,
			&minX, &minY, &maxX, &maxY, &srsID); err != nil {
			return nil, errors.Wrap(err, "scan gpkg_contents")
		}
		c.MinX, c.MinY, c.MaxX, c.MaxY = nullFloat(minX), nullFloat(minY), nullFloat(maxX), nullFloat(maxY)
		if srsID.Valid {
			id := srsID.Int32
			c.SRSID = &id
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterate gpkg_contents")
}

// Content returns the gpkg_contents row for table
func (s *Store) Content(ctx context.Context, table string) (Content, error) {
	all, err := s.Contents(ctx, "")
	if err != nil {
		return Content{}, err
	}
	for _, c := range all {
		if c.TableName == table {
			return c, nil
		}
	}
	return Content{}, errors.Wrapf(ErrNotFound, "table %q in gpkg_contents", table)
}

// GeometryColumn returns the geometry column registered for a feature table
func (s *Store) GeometryColumn(ctx context.Context, table string) (GeometryColumn, error) {
	var gc GeometryColumn
	err := s.db.QueryRowContext(ctx, `SELECT table_name, column_name, geometry_type_name, srs_id, z, m
		FROM gpkg_geometry_columns WHERE table_name = ?`, table).
		Scan(&gc.TableName, &gc.ColumnName, &gc.GeometryTypeName, &gc.SRSID, &gc.Z, &gc.M)
	if err == sql.ErrNoRows {
		return gc, errors.Wrapf(ErrNotFound, "geometry column for %q", table)
	}
	return gc, errors.Wrapf(err, "query geometry column for %q", table)
}

// PrimaryKey returns the INTEGER PRIMARY KEY column of a registered table
func (s *Store) PrimaryKey(ctx context.Context, table string) (string, error) {
	if _, err := s.Content(ctx, table); err != nil {
		return "", err
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return "", errors.Wrapf(err, "table_info %q", table)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid      int
			name     string
			typ      string
			notNull  int
			defValue sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defValue, &pk); err != nil {
			return "", errors.Wrapf(err, "scan table_info %q", table)
		}
		if pk == 1 && strings.EqualFold(typ, "INTEGER") {
			return name, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", errors.Wrapf(err, "iterate table_info %q", table)
	}
	return "", errors.Wrapf(ErrNotFound, "integer primary key of %q", table)
}

// CountFeatures counts the rows of a feature table
func (s *Store) CountFeatures(ctx context.Context, table string) (int64, error) {
	if _, err := s.Content(ctx, table); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n)
	return n, errors.Wrapf(err, "count %q", table)
}

// Features streams every feature row of table to fn in primary key order.
// Iteration stops at the first error returned by fn.
func (s *Store) Features(ctx context.Context, table string, fn func(Feature) error) error {
	query, err := s.featureQuery(ctx, table)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return errors.Wrapf(err, "query features of %q", table)
	}
	defer rows.Close()

	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Geometry); err != nil {
			return errors.Wrapf(err, "scan feature of %q", table)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return errors.Wrapf(rows.Err(), "iterate features of %q", table)
}

// FeaturesPage returns up to limit features whose id is greater than afterID
func (s *Store) FeaturesPage(ctx context.Context, table string, afterID int64, limit int) ([]Feature, error) {
	query, err := s.featureQuery(ctx, table)
	if err != nil {
		return nil, err
	}
	pk, err := s.PrimaryKey(ctx, table)
	if err != nil {
		return nil, err
	}

	// featureQuery ends with ORDER BY; splice the predicate in front of it
	idx := strings.LastIndex(query, " ORDER BY ")
	query = query[:idx] + " WHERE " + quoteIdent(pk) + " > ?" + query[idx:] + " LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "query features of %q", table)
	}
	defer rows.Close()

	out := make([]Feature, 0, limit)
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Geometry); err != nil {
			return nil, errors.Wrapf(err, "scan feature of %q", table)
		}
		out = append(out, f)
	}
	return out, errors.Wrapf(rows.Err(), "iterate features of %q", table)
}

func (s *Store) featureQuery(ctx context.Context, table string) (string, error) {
	gc, err := s.GeometryColumn(ctx, table)
	if err != nil {
		return "", err
	}
	pk, err := s.PrimaryKey(ctx, table)
	if err != nil {
		return "", err
	}
	return "SELECT " + quoteIdent(pk) + ", " + quoteIdent(gc.ColumnName) + " FROM " + quoteIdent(table) +
		" ORDER BY " + quoteIdent(pk), nil
}

// TileMatrixSet returns the gpkg_tile_matrix_set row for a tile table
func (s *Store) TileMatrixSet(ctx context.Context, table string) (TileMatrixSet, error) {
	var tms TileMatrixSet
	err := s.db.QueryRowContext(ctx, `SELECT table_name, srs_id, min_x, min_y, max_x, max_y
		FROM gpkg_tile_matrix_set WHERE table_name = ?`, table).
		Scan(&tms.TableName, &tms.SRSID, &tms.MinX, &tms.MinY, &tms.MaxX, &tms.MaxY)
	if err == sql.ErrNoRows {
		return tms, errors.Wrapf(ErrNotFound, "tile matrix set %q", table)
	}
	return tms, errors.Wrapf(err, "query tile matrix set %q", table)
}

// TileMatrices lists the zoom levels of a tile table in ascending order
func (s *Store) TileMatrices(ctx context.Context, table string) ([]TileMatrix, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_name, zoom_level, matrix_width, matrix_height, tile_width, tile_height,
		pixel_x_size, pixel_y_size FROM gpkg_tile_matrix WHERE table_name = ? ORDER BY zoom_level`, table)
	if err != nil {
		return nil, errors.Wrapf(err, "query tile matrices of %q", table)
	}
	defer rows.Close()

	var out []TileMatrix
	for rows.Next() {
		var tm TileMatrix
		if err := rows.Scan(&tm.TableName, &tm.ZoomLevel, &tm.MatrixWidth, &tm.MatrixHeight, &tm.TileWidth,
			&tm.TileHeight, &tm.PixelXSize, &tm.PixelYSize); err != nil {
			return nil, errors.Wrapf(err, "scan tile matrix of %q", table)
		}
		out = append(out, tm)
	}
	return out, errors.Wrapf(rows.Err(), "iterate tile matrices of %q", table)
}

// TileMatrix returns one zoom level of a tile table
func (s *Store) TileMatrix(ctx context.Context, table string, zoom int) (TileMatrix, error) {
	all, err := s.TileMatrices(ctx, table)
	if err != nil {
		return TileMatrix{}, err
	}
	for _, tm := range all {
		if tm.ZoomLevel == zoom {
			return tm, nil
		}
	}
	return TileMatrix{}, errors.Wrapf(ErrNotFound, "zoom level %d of %q", zoom, table)
}

// Tile reads one tile. Rows are counted from the top of the matrix.
func (s *Store) Tile(ctx context.Context, table string, zoom, column, row int) (Tile, error) {
	if _, err := s.Content(ctx, table); err != nil {
		return Tile{}, err
	}
	t := Tile{ZoomLevel: zoom, TileColumn: column, TileRow: row}
	err := s.db.QueryRowContext(ctx, "SELECT tile_data FROM "+quoteIdent(table)+
		" WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", zoom, column, row).Scan(&t.Data)
	if err == sql.ErrNoRows {
		return t, errors.Wrapf(ErrNotFound, "tile %d/%d/%d of %q", zoom, column, row, table)
	}
	return t, errors.Wrapf(err, "query tile %d/%d/%d of %q", zoom, column, row, table)
}

// Tiles streams every tile at zoom to fn ordered by row then column.
// A negative zoom visits every level.
func (s *Store) Tiles(ctx context.Context, table string, zoom int, fn func(Tile) error) error {
	if _, err := s.Content(ctx, table); err != nil {
		return err
	}

	query := "SELECT zoom_level, tile_column, tile_row, tile_data FROM " + quoteIdent(table)
	var args []any
	if zoom >= 0 {
		query += " WHERE zoom_level = ?"
		args = append(args, zoom)
	}
	query += " ORDER BY zoom_level, tile_row, tile_column"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "query tiles of %q", table)
	}
	defer rows.Close()

	for rows.Next() {
		var t Tile
		if err := rows.Scan(&t.ZoomLevel, &t.TileColumn, &t.TileRow, &t.Data); err != nil {
			return errors.Wrapf(err, "scan tile of %q", table)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return errors.Wrapf(rows.Err(), "iterate tiles of %q", table)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// quoteIdent double-quotes an SQL identifier. Callers only pass names
// already registered in gpkg_contents or returned by the catalog.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
