// pkg/mvt/converter.go - Vector tile to GeoJSON conversion
package mvt

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// LayerProperty is the feature property naming the source layer
const LayerProperty = "_layer"

// Converter handles conversion of stored vector tiles to GeoJSON
type Converter struct {
	decoder *Decoder
	options *ConversionOptions
}

// ConversionOptions configures the conversion process
type ConversionOptions struct {
	IncludeMetadata   bool     `json:"include_metadata"`
	LayerFilter       []string `json:"layer_filter,omitempty"`
	PropertyFilter    []string `json:"property_filter,omitempty"`
	SimplifyGeometry  bool     `json:"simplify_geometry"`
	SimplifyTolerance float64  `json:"simplify_tolerance,omitempty"` // in output units
	CoordinateSystem  string   `json:"coordinate_system"`
}

// ConversionMetadata describes one converted tile
type ConversionMetadata struct {
	Layers       []string `json:"layers"`
	FeatureCount int      `json:"feature_count"`
	Skipped      int      `json:"skipped"`
	Version      int      `json:"version"`
	Extent       int      `json:"extent"`
	TileID       string   `json:"tile_id"`
}

// DefaultConversionOptions writes every layer in longitude/latitude
func DefaultConversionOptions() *ConversionOptions {
	return &ConversionOptions{
		CoordinateSystem: CoordSystemGeodetic,
	}
}

// NewConverter creates a converter with default options
func NewConverter() *Converter {
	return &Converter{
		decoder: NewDecoder(),
		options: DefaultConversionOptions(),
	}
}

// NewConverterWithOptions creates a converter with custom options
func NewConverterWithOptions(options *ConversionOptions) (*Converter, error) {
	if err := ValidateConversionOptions(options); err != nil {
		return nil, fmt.Errorf("invalid conversion options: %w", err)
	}

	return &Converter{
		decoder: NewDecoder(),
		options: options,
	}, nil
}

// Options returns the converter's options
func (c *Converter) Options() ConversionOptions {
	return *c.options
}

// Convert decodes one stored tile into a feature collection. Layers are
// emitted in name order.
func (c *Converter) Convert(data []byte, pl Placement) (*geojson.FeatureCollection, *ConversionMetadata, error) {
	decodedTile, err := c.decoder.Decode(data, pl, c.options.CoordinateSystem)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode MVT: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	metadata := &ConversionMetadata{
		Layers:  decodedTile.GetLayerNames(),
		Version: decodedTile.Version,
		Extent:  decodedTile.Extent,
		TileID:  decodedTile.TileID.String(),
	}

	var simplifier *simplify.DouglasPeuckerSimplifier
	if c.options.SimplifyGeometry {
		simplifier = simplify.DouglasPeucker(c.options.SimplifyTolerance)
	}

	for _, layerName := range metadata.Layers {
		if len(c.options.LayerFilter) > 0 && !slices.Contains(c.options.LayerFilter, layerName) {
			continue
		}

		layer := decodedTile.Layers[layerName]
		metadata.Skipped += layer.Skipped
		for _, feature := range layer.Features {
			f := c.convertFeature(feature, layerName)
			if simplifier != nil {
				f.Geometry = simplifier.Simplify(f.Geometry)
			}
			fc.Append(f)
		}
	}
	metadata.FeatureCount = len(fc.Features)

	if c.options.IncludeMetadata {
		fc.ExtraMembers = geojson.Properties{"metadata": metadata}
	}

	return fc, metadata, nil
}

func (c *Converter) convertFeature(feature *DecodedFeature, layerName string) *geojson.Feature {
	f := geojson.NewFeature(feature.Geometry)
	if feature.ID != nil {
		f.ID = feature.ID
	}

	for key, value := range feature.Tags {
		if len(c.options.PropertyFilter) > 0 && !slices.Contains(c.options.PropertyFilter, key) {
			continue
		}
		f.Properties[key] = value
	}
	f.Properties[LayerProperty] = layerName

	return f
}

// ConvertToGeoJSON converts a tile and marshals the resulting collection
func (c *Converter) ConvertToGeoJSON(data []byte, pl Placement, pretty bool) ([]byte, error) {
	fc, _, err := c.Convert(data, pl)
	if err != nil {
		return nil, err
	}

	var out []byte
	if pretty {
		out, err = json.MarshalIndent(fc, "", "  ")
	} else {
		out, err = json.Marshal(fc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return out, nil
}

// ValidateConversionOptions validates the conversion options
func ValidateConversionOptions(options *ConversionOptions) error {
	if options == nil {
		return fmt.Errorf("options are required")
	}
	if err := validateCoordinateSystem(options.CoordinateSystem); err != nil {
		return err
	}
	if options.SimplifyTolerance < 0 {
		return fmt.Errorf("simplify tolerance must not be negative")
	}
	return nil
}
