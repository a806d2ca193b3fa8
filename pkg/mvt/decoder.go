// pkg/mvt/decoder.go - Mapbox Vector Tile decoding for GeoPackage tile tables
package mvt

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Decoder handles decoding of Mapbox Vector Tiles from Protocol Buffer format
type Decoder struct {
	extent int
}

// NewDecoder creates a decoder that assumes the default 4096 extent for layers without one
func NewDecoder() *Decoder {
	return &Decoder{
		extent: mvt.DefaultExtent,
	}
}

// NewDecoderWithExtent creates a decoder with a custom fallback extent
func NewDecoderWithExtent(extent int) *Decoder {
	return &Decoder{
		extent: extent,
	}
}

// DecodedTile represents a decoded MVT tile with its layers and metadata
type DecodedTile struct {
	Layers  map[string]*DecodedLayer `json:"layers"`
	Extent  int                      `json:"extent"`
	Version int                      `json:"version"`
	TileID  TileID                   `json:"tile_id"`
}

// DecodedLayer represents a single layer within an MVT tile
type DecodedLayer struct {
	Name     string            `json:"name"`
	Features []*DecodedFeature `json:"features"`
	Extent   int               `json:"extent"`
	Version  int               `json:"version"`
	Skipped  int               `json:"skipped,omitempty"`
}

// DecodedFeature represents a single feature within a layer
type DecodedFeature struct {
	ID       any            `json:"id,omitempty"`
	Tags     map[string]any `json:"tags"`
	Type     string         `json:"type"`
	Geometry orb.Geometry   `json:"geometry"`
}

// Decode decodes a tile payload, gzipped or not, and projects its geometry
// from tile-local coordinates into system using the tile's placement
func (d *Decoder) Decode(data []byte, pl Placement, system string) (*DecodedTile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tile data")
	}
	if err := validateCoordinateSystem(system); err != nil {
		return nil, err
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal MVT data: %w", err)
	}

	decodedTile := &DecodedTile{
		Layers:  make(map[string]*DecodedLayer, len(layers)),
		Extent:  d.extent,
		Version: 2,
		TileID:  pl.TileID,
	}

	for _, layer := range layers {
		decodedLayer, err := d.decodeLayer(layer, pl, system)
		if err != nil {
			return nil, fmt.Errorf("failed to decode layer %s: %w", layer.Name, err)
		}
		decodedTile.Layers[layer.Name] = decodedLayer
	}

	return decodedTile, nil
}

func (d *Decoder) decodeLayer(layer *mvt.Layer, pl Placement, system string) (*DecodedLayer, error) {
	extent := layer.Extent
	if extent == 0 {
		extent = uint32(d.extent)
	}

	decodedLayer := &DecodedLayer{
		Name:     layer.Name,
		Features: make([]*DecodedFeature, 0, len(layer.Features)),
		Extent:   int(extent),
		Version:  int(layer.Version),
	}

	proj, err := newProjector(pl, extent, system)
	if err != nil {
		return nil, err
	}

	for _, feature := range layer.Features {
		decodedFeature, err := decodeFeature(feature, proj)
		if err != nil {
			return nil, err
		}
		if decodedFeature == nil {
			decodedLayer.Skipped++
			continue
		}
		decodedLayer.Features = append(decodedLayer.Features, decodedFeature)
	}

	return decodedLayer, nil
}

// decodeFeature returns nil for features without a usable geometry
func decodeFeature(feature *geojson.Feature, proj *projector) (*DecodedFeature, error) {
	if feature.Geometry == nil {
		return nil, nil
	}

	typ, ok := geometryType(feature.Geometry)
	if !ok {
		return nil, nil
	}

	projected, err := proj.apply(feature.Geometry)
	if err != nil {
		return nil, err
	}

	return &DecodedFeature{
		ID:       feature.ID,
		Tags:     feature.Properties,
		Type:     typ,
		Geometry: projected,
	}, nil
}

func geometryType(g orb.Geometry) (string, bool) {
	switch g.(type) {
	case orb.Point, orb.MultiPoint, orb.LineString, orb.MultiLineString, orb.Polygon, orb.MultiPolygon:
		return g.GeoJSONType(), true
	default:
		return "", false
	}
}

// GetLayerNames returns the layer names in sorted order
func (dt *DecodedTile) GetLayerNames() []string {
	names := make([]string, 0, len(dt.Layers))
	for name := range dt.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetFeatureCount returns the total number of features across all layers
func (dt *DecodedTile) GetFeatureCount() int {
	count := 0
	for _, layer := range dt.Layers {
		count += len(layer.Features)
	}
	return count
}

// GetLayerFeatureCount returns the number of features in a specific layer
func (dt *DecodedTile) GetLayerFeatureCount(layerName string) int {
	if layer, exists := dt.Layers[layerName]; exists {
		return len(layer.Features)
	}
	return 0
}

// HasLayer checks if the tile contains a specific layer
func (dt *DecodedTile) HasLayer(layerName string) bool {
	_, exists := dt.Layers[layerName]
	return exists
}

// IsEmpty returns true if the tile contains no features
func (dt *DecodedTile) IsEmpty() bool {
	return dt.GetFeatureCount() == 0
}

func validateCoordinateSystem(system string) error {
	switch system {
	case CoordSystemTile, CoordSystemNative, CoordSystemGeodetic:
		return nil
	default:
		return fmt.Errorf("invalid coordinate system: %s, must be '%s', '%s' or '%s'",
			system, CoordSystemTile, CoordSystemNative, CoordSystemGeodetic)
	}
}
