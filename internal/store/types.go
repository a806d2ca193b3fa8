// internal/store/types.go - Rows of the GeoPackage core tables
package store

// SpatialReferenceSystem is a row of gpkg_spatial_ref_sys
type SpatialReferenceSystem struct {
	Name                   string `json:"srs_name"`
	ID                     int32  `json:"srs_id"`
	Organization           string `json:"organization"`
	OrganizationCoordsysID int    `json:"organization_coordsys_id"`
	Definition             string `json:"definition"`
	Description            string `json:"description,omitempty"`
}

// Content is a row of gpkg_contents
type Content struct {
	TableName   string   `json:"table_name"`
	DataType    string   `json:"data_type"`
	Identifier  string   `json:"identifier,omitempty"`
	Description string   `json:"description,omitempty"`
	LastChange  string   `json:"last_change"`
	MinX        *float64 `json:"min_x,omitempty"`
	MinY        *float64 `json:"min_y,omitempty"`
	MaxX        *float64 `json:"max_x,omitempty"`
	MaxY        *float64 `json:"max_y,omitempty"`
	SRSID       *int32   `json:"srs_id,omitempty"`
}

// Data types used in gpkg_contents
const (
	DataTypeFeatures   = "features"
	DataTypeTiles      = "tiles"
	DataTypeVectorTile = "vector-tiles"
	DataTypeAttributes = "attributes"
)

// GeometryColumn is a row of gpkg_geometry_columns
type GeometryColumn struct {
	TableName        string `json:"table_name"`
	ColumnName       string `json:"column_name"`
	GeometryTypeName string `json:"geometry_type_name"`
	SRSID            int32  `json:"srs_id"`
	Z                int8   `json:"z"`
	M                int8   `json:"m"`
}

// TileMatrixSet is a row of gpkg_tile_matrix_set
type TileMatrixSet struct {
	TableName string  `json:"table_name"`
	SRSID     int32   `json:"srs_id"`
	MinX      float64 `json:"min_x"`
	MinY      float64 `json:"min_y"`
	MaxX      float64 `json:"max_x"`
	MaxY      float64 `json:"max_y"`
}

// TileMatrix is a row of gpkg_tile_matrix
type TileMatrix struct {
	TableName    string  `json:"table_name"`
	ZoomLevel    int     `json:"zoom_level"`
	MatrixWidth  int     `json:"matrix_width"`
	MatrixHeight int     `json:"matrix_height"`
	TileWidth    int     `json:"tile_width"`
	TileHeight   int     `json:"tile_height"`
	PixelXSize   float64 `json:"pixel_x_size"`
	PixelYSize   float64 `json:"pixel_y_size"`
}

// Feature is the id and raw geometry BLOB of one feature row
type Feature struct {
	ID       int64
	Geometry []byte
}

// Tile is one row of a tile pyramid user data table
type Tile struct {
	ZoomLevel  int
	TileColumn int
	TileRow    int
	Data       []byte
}
