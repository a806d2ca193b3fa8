// internal/output/formatter.go - Tile collection formatting
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/geopackage/internal/tile"
	"github.com/valpere/geopackage/pkg/mvt"
)

// TileProperty names the property holding the source tile of a feature in merged collections
const TileProperty = "_tile"

// tileSummary is attached to a single tile collection as its "tile" member
type tileSummary struct {
	ID           string        `json:"id"`
	Layers       []string      `json:"layers"`
	FeatureCount int           `json:"feature_count"`
	Size         int           `json:"size_bytes"`
	ProcessTime  time.Duration `json:"process_time"`
	Version      int           `json:"version"`
	Extent       int           `json:"extent"`
}

// batchSummary counts the tiles behind a merged document
type batchSummary struct {
	TotalTiles     int       `json:"total_tiles"`
	ConvertedTiles int       `json:"converted_tiles"`
	FailedTiles    int       `json:"failed_tiles"`
	Features       int       `json:"total_features"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// tileRecord is one element of a JSON batch
type tileRecord struct {
	ID       mvt.TileID                 `json:"id"`
	Data     *geojson.FeatureCollection `json:"data"`
	Error    string                     `json:"error,omitempty"`
	Metadata *tile.TileMetadata         `json:"metadata,omitempty"`
}

// GeoJSONFormatter writes tiles as GeoJSON FeatureCollections
type GeoJSONFormatter struct {
	pretty       bool
	includeStats bool
}

// NewGeoJSONFormatter creates a GeoJSON formatter; includeStats adds tile summaries
func NewGeoJSONFormatter(pretty, includeStats bool) *GeoJSONFormatter {
	return &GeoJSONFormatter{pretty: pretty, includeStats: includeStats}
}

// Format writes the collection of one converted tile
func (f *GeoJSONFormatter) Format(t *tile.ProcessedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}
	if t.Data == nil {
		return nil, fmt.Errorf("tile %s has no data", t.ID)
	}

	out := *t.Data
	if f.includeStats && t.Metadata != nil {
		out.ExtraMembers = out.ExtraMembers.Clone()
		if out.ExtraMembers == nil {
			out.ExtraMembers = geojson.Properties{}
		}
		out.ExtraMembers["tile"] = tileSummary{
			ID:           t.ID.String(),
			Layers:       t.Metadata.Layers,
			FeatureCount: t.Metadata.FeatureCount,
			Size:         t.Metadata.Size,
			ProcessTime:  t.Metadata.ProcessTime,
			Version:      t.Metadata.Version,
			Extent:       t.Metadata.Extent,
		}
	}
	return marshal(out, f.pretty)
}

// FormatBatch merges the features of every converted tile into one collection.
// Failed tiles are skipped; with statistics each feature is tagged with its tile.
func (f *GeoJSONFormatter) FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error) {
	merged := geojson.NewFeatureCollection()
	summary := batchSummary{TotalTiles: len(tiles)}

	for _, t := range tiles {
		if t.Error != nil || t.Data == nil {
			summary.FailedTiles++
			continue
		}
		summary.ConvertedTiles++

		for _, feature := range t.Data.Features {
			if f.includeStats {
				tagged := *feature
				tagged.Properties = feature.Properties.Clone()
				tagged.Properties[TileProperty] = t.ID.String()
				feature = &tagged
			}
			merged.Append(feature)
		}
	}

	if f.includeStats {
		summary.Features = len(merged.Features)
		summary.GeneratedAt = time.Now().UTC()
		merged.ExtraMembers = geojson.Properties{"metadata": summary}
	}
	return marshal(merged, f.pretty)
}

// ContentType returns the GeoJSON media type
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// JSONFormatter writes tiles as records carrying their address, collection and error
type JSONFormatter struct {
	pretty       bool
	includeStats bool
}

// NewJSONFormatter creates a JSON formatter; includeStats adds metadata and a summary
func NewJSONFormatter(pretty, includeStats bool) *JSONFormatter {
	return &JSONFormatter{pretty: pretty, includeStats: includeStats}
}

// Format writes the record of one tile
func (f *JSONFormatter) Format(t *tile.ProcessedTile) ([]byte, error) {
	return marshal(f.record(t), f.pretty)
}

// FormatBatch writes {"tiles": [...]} with failed tiles kept as records with an error
func (f *JSONFormatter) FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error) {
	out := struct {
		Tiles   []tileRecord  `json:"tiles"`
		Summary *batchSummary `json:"summary,omitempty"`
	}{Tiles: make([]tileRecord, 0, len(tiles))}

	summary := batchSummary{TotalTiles: len(tiles), GeneratedAt: time.Now().UTC()}
	for _, t := range tiles {
		if t.Error != nil {
			summary.FailedTiles++
		} else {
			summary.ConvertedTiles++
			if t.Data != nil {
				summary.Features += len(t.Data.Features)
			}
		}
		out.Tiles = append(out.Tiles, f.record(t))
	}

	if f.includeStats {
		out.Summary = &summary
	}
	return marshal(out, f.pretty)
}

func (f *JSONFormatter) record(t *tile.ProcessedTile) tileRecord {
	r := tileRecord{ID: t.ID, Data: t.Data}
	if t.Error != nil {
		r.Error = t.Error.Error()
		r.Data = nil
	}
	if f.includeStats {
		r.Metadata = t.Metadata
	}
	return r
}

// ContentType returns the JSON media type
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// NewFormatter creates the formatter for config.Format
func NewFormatter(config *FormatterConfig) (Formatter, error) {
	switch config.Format {
	case FormatGeoJSON:
		return NewGeoJSONFormatter(config.Pretty, config.IncludeStats), nil
	case FormatJSON:
		return NewJSONFormatter(config.Pretty, config.IncludeStats), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", config.Format)
	}
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
