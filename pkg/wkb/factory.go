// pkg/wkb/factory.go - Type code keyed decoder registry
package wkb

import (
	"github.com/valpere/geopackage/pkg/geometry"
)

// DefaultMaxDepth bounds collection nesting for factories built by this package
const DefaultMaxDepth = 32

// DecodeFunc reads the body of one geometry whose header has already been consumed.
// The factory is passed so bodies holding nested geometries can read them.
type DecodeFunc func(f *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error)

// Factory maps full WKB type codes to body decoders. It is the only place
// new geometry kinds are plugged into the decoder.
type Factory struct {
	decoders map[uint32]DecodeFunc
	maxDepth int
}

// NewFactory creates a factory with no registered types
func NewFactory() *Factory {
	return &Factory{
		decoders: make(map[uint32]DecodeFunc),
		maxDepth: DefaultMaxDepth,
	}
}

// DefaultFactory creates a factory that decodes every base type in every layout
func DefaultFactory() *Factory {
	f := NewFactory()
	f.RegisterType(geometry.PointType, decodePoint)
	f.RegisterType(geometry.LineStringType, decodeLineString)
	f.RegisterType(geometry.PolygonType, decodePolygon)
	f.RegisterType(geometry.MultiPointType, decodeMultiPoint)
	f.RegisterType(geometry.MultiLineStringType, decodeMultiLineString)
	f.RegisterType(geometry.MultiPolygonType, decodeMultiPolygon)
	f.RegisterType(geometry.GeometryCollectionType, decodeGeometryCollection)
	return f
}

// Register binds a full type code to a decoder, replacing any previous binding
func (f *Factory) Register(code uint32, fn DecodeFunc) {
	f.decoders[code] = fn
}

// RegisterType binds a base type in all four layouts
func (f *Factory) RegisterType(t geometry.Type, fn DecodeFunc) {
	for _, layout := range []geometry.Layout{geometry.XY, geometry.XYZ, geometry.XYM, geometry.XYZM} {
		f.Register(t.Code(layout), fn)
	}
}

// Supports reports whether code has a decoder
func (f *Factory) Supports(code uint32) bool {
	_, ok := f.decoders[code]
	return ok
}

// SetMaxDepth changes the nesting limit; values below 1 are ignored
func (f *Factory) SetMaxDepth(depth int) {
	if depth > 0 {
		f.maxDepth = depth
	}
}

// Read decodes one complete geometry (header and body) at the reader position
func (f *Factory) Read(r *Reader) (geometry.Geometry, error) {
	parentOrder := r.order
	r.depth++
	defer func() {
		r.depth--
		r.order = parentOrder
	}()

	if r.depth > f.maxDepth {
		return nil, r.Malformed(ErrTooDeep, "limit %d", f.maxDepth)
	}

	start := r.pos
	code, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	fn, ok := f.decoders[code]
	if !ok {
		r.pos = start
		return nil, r.Malformed(ErrUnknownType, "code %d", code)
	}

	_, layout, ok := geometry.SplitCode(code)
	if !ok {
		r.pos = start
		return nil, r.Malformed(ErrUnknownType, "code %d", code)
	}

	return fn(f, r, layout)
}
