// pkg/gpb/blob.go - Encoding and decoding of complete geometry BLOBs
package gpb

import (
	"fmt"

	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/wkb"
)

// EncodeOptions controls how a geometry BLOB is written
type EncodeOptions struct {
	// ByteOrder applies to the header and the WKB body. The zero value is big-endian.
	ByteOrder wkb.ByteOrder
	// OmitEnvelope writes no envelope regardless of the geometry
	OmitEnvelope bool
}

// Decode parses a GeoPackage geometry BLOB. A nil factory means wkb.DefaultFactory().
// Extended binary geometries need a factory with their type codes registered.
func Decode(data []byte, f *wkb.Factory) (Header, geometry.Geometry, error) {
	h, size, err := ReadHeader(data)
	if err != nil {
		return Header{}, nil, err
	}
	g, err := wkb.Decode(data[size:], f)
	if err != nil {
		return h, nil, fmt.Errorf("decode wkb body: %w", err)
	}
	return h, g, nil
}

// Encode writes g with a header carrying srsID and the geometry's envelope
func Encode(g geometry.Geometry, srsID int32, opts EncodeOptions) ([]byte, error) {
	if g == nil {
		return nil, wkb.ErrNilGeometry
	}

	h := Header{
		Version:   Version1,
		Empty:     g.IsEmpty(),
		ByteOrder: opts.ByteOrder,
		SRSID:     srsID,
	}
	if !opts.OmitEnvelope {
		env, err := g.Envelope()
		if err != nil {
			return nil, fmt.Errorf("compute envelope: %w", err)
		}
		h.Envelope = env
	}

	buf := make([]byte, 0, h.Size()+wkb.Size(g))
	buf = h.Append(buf)
	return wkb.Append(buf, g, opts.ByteOrder)
}
