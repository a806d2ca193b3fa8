// pkg/wkb/decode.go - WKB decoding entry point and standard body decoders
package wkb

import (
	"errors"
	"fmt"

	"github.com/valpere/geopackage/pkg/geometry"
)

// Decode parses a complete WKB buffer. A nil factory means DefaultFactory().
// Every failure caused by the input satisfies errors.Is(err, ErrMalformedGeometry).
func Decode(data []byte, f *Factory) (geometry.Geometry, error) {
	if f == nil {
		f = DefaultFactory()
	}

	r := NewReader(data)
	if len(data) < headerSize {
		return nil, r.Malformed(ErrTruncated, "buffer of %d bytes is shorter than the %d byte header", len(data), headerSize)
	}

	g, err := f.Read(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, r.Malformed(ErrTrailingBytes, "%d bytes", r.Remaining())
	}
	return g, nil
}

func decodePoint(_ *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	c, err := r.ReadCoordinate(layout)
	if err != nil {
		return nil, err
	}
	return geometry.NewPoint(c), nil
}

func decodeLineString(_ *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	path, err := r.ReadLinearString(layout)
	if err != nil {
		return nil, err
	}
	line, err := geometry.NewLineString(layout, path.Coordinates()...)
	if err != nil {
		return nil, r.Malformed(err, "")
	}
	return line, nil
}

func decodePolygon(_ *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	// every ring carries at least its own point count
	n, err := r.ReadCount(4)
	if err != nil {
		return nil, err
	}

	rings := make([]geometry.LinearRing, 0, n)
	for i := 0; i < n; i++ {
		path, err := r.ReadLinearString(layout)
		if err != nil {
			return nil, err
		}
		rings = append(rings, geometry.LinearRing{LinearString: path})
	}

	poly, err := geometry.NewPolygon(layout, rings...)
	if err != nil {
		return nil, r.Malformed(err, "")
	}
	return poly, nil
}

func decodeMultiPoint(f *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	points, err := readMembers[geometry.Point](f, r, layout)
	if err != nil {
		return nil, err
	}
	mp, err := geometry.NewMultiPoint(layout, points...)
	if err != nil {
		return nil, r.Malformed(err, "")
	}
	return mp, nil
}

func decodeMultiLineString(f *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	lines, err := readMembers[geometry.LineString](f, r, layout)
	if err != nil {
		return nil, err
	}
	ml, err := geometry.NewMultiLineString(layout, lines...)
	if err != nil {
		return nil, r.Malformed(err, "")
	}
	return ml, nil
}

func decodeMultiPolygon(f *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	polygons, err := readMembers[geometry.Polygon](f, r, layout)
	if err != nil {
		return nil, err
	}
	mp, err := geometry.NewMultiPolygon(layout, polygons...)
	if err != nil {
		return nil, r.Malformed(err, "")
	}
	return mp, nil
}

func decodeGeometryCollection(f *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
	members, err := readMembers[geometry.Geometry](f, r, layout)
	if err != nil {
		return nil, err
	}
	gc, err := geometry.NewGeometryCollection(layout, members...)
	if err != nil {
		return nil, r.Malformed(err, "")
	}
	return gc, nil
}

// readMembers reads a count followed by that many complete geometries, each of
// which must be a G in the parent's layout.
func readMembers[G geometry.Geometry](f *Factory, r *Reader, layout geometry.Layout) ([]G, error) {
	n, err := r.ReadCount(headerSize)
	if err != nil {
		return nil, err
	}

	members := make([]G, 0, n)
	for i := 0; i < n; i++ {
		start := r.pos
		g, err := f.Read(r)
		if err != nil {
			return nil, err
		}

		member, ok := g.(G)
		if !ok {
			r.pos = start
			return nil, r.Malformed(ErrUnexpectedType, "member %d is %s", i, g.TypeName())
		}
		if g.Layout() != layout {
			r.pos = start
			return nil, r.Malformed(ErrDimensionMismatch, "member %d is %s, parent is %s", i, g.Layout(), layout)
		}
		members = append(members, member)
	}
	return members, nil
}

// IsMalformed reports whether err was caused by bad input bytes
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedGeometry)
}

// Offset extracts the failing byte offset from a decode error
func Offset(err error) (int, bool) {
	var mge *MalformedGeometryError
	if errors.As(err, &mge) {
		return mge.Offset, true
	}
	return 0, false
}

func (o ByteOrder) valid() error {
	if o != BigEndian && o != LittleEndian {
		return fmt.Errorf("%w: %d", ErrUnknownByteOrder, byte(o))
	}
	return nil
}
