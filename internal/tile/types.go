// internal/tile/types.go - Tile processing types
package tile

import (
	"context"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/geopackage/pkg/mvt"
)

// TileRequest identifies one stored tile of a pyramid
type TileRequest struct {
	Table string     `json:"table"`
	ID    mvt.TileID `json:"id"`
}

// TileResponse carries the raw tile bytes and where the tile sits in its CRS
type TileResponse struct {
	Request    *TileRequest  `json:"request"`
	Data       []byte        `json:"-"`
	Placement  mvt.Placement `json:"-"`
	Size       int           `json:"size"`
	Compressed bool          `json:"compressed"`
	FetchTime  time.Duration `json:"fetch_time"`
	Error      error         `json:"error,omitempty"`
}

// ProcessedTile represents a tile after conversion to GeoJSON
type ProcessedTile struct {
	ID       mvt.TileID                 `json:"id"`
	Data     *geojson.FeatureCollection `json:"data"`
	Metadata *TileMetadata              `json:"metadata"`
	Error    error                      `json:"error,omitempty"`
}

// TileMetadata contains metadata about the processed tile
type TileMetadata struct {
	Layers       []string      `json:"layers"`
	FeatureCount int           `json:"feature_count"`
	Size         int           `json:"size"`
	ProcessTime  time.Duration `json:"process_time"`
	Version      int           `json:"version"`
	Extent       int           `json:"extent"`
	Compressed   bool          `json:"compressed"`
}

// Fetcher reads stored tiles
type Fetcher interface {
	// Fetch reads one tile together with its placement
	Fetch(ctx context.Context, request *TileRequest) (*TileResponse, error)
	// List returns the addresses of the tiles stored at zoom; a negative zoom lists every level
	List(ctx context.Context, table string, zoom int) ([]mvt.TileID, error)
}

// Processor defines the interface for processing vector tiles
type Processor interface {
	Process(response *TileResponse) (*ProcessedTile, error)
	ProcessBatch(responses []*TileResponse) ([]*ProcessedTile, error)
}

// NewTileRequest creates a request for the tile at zoom/column/row of table
func NewTileRequest(table string, zoom, column, row int) *TileRequest {
	return &TileRequest{
		Table: table,
		ID:    mvt.TileID{Zoom: zoom, Column: column, Row: row},
	}
}

func (r *TileRequest) String() string {
	if r.Table == "" {
		return r.ID.String()
	}
	return r.Table + "/" + r.ID.String()
}
