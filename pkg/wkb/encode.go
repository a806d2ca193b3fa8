// pkg/wkb/encode.go - WKB encoding
package wkb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/valpere/geopackage/pkg/geometry"
)

// ErrNilGeometry is returned when asked to encode nil
var ErrNilGeometry = errors.New("wkb: nil geometry")

// Encode serializes g using the given byte order for every header and body
func Encode(g geometry.Geometry, order ByteOrder) ([]byte, error) {
	return Append(nil, g, order)
}

// Append serializes g onto dst
func Append(dst []byte, g geometry.Geometry, order ByteOrder) ([]byte, error) {
	if err := order.valid(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNilGeometry
	}
	e := encoder{buf: dst, order: order.Binary(), marker: byte(order)}
	if err := e.geometry(g); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Size returns the encoded length of g without encoding it
func Size(g geometry.Geometry) int {
	stride := 8 * g.Layout().Stride()
	switch v := g.(type) {
	case geometry.Point:
		return headerSize + stride
	case geometry.LineString:
		return headerSize + 4 + v.Path().Len()*stride
	case geometry.Polygon:
		n := headerSize + 4
		for _, ring := range v.Rings() {
			n += 4 + ring.Len()*stride
		}
		return n
	case geometry.MultiPoint:
		return headerSize + 4 + v.Len()*(headerSize+stride)
	case geometry.MultiLineString:
		return sumSizes(v.LineStrings())
	case geometry.MultiPolygon:
		return sumSizes(v.Polygons())
	case geometry.GeometryCollection:
		return sumSizes(v.Geometries())
	default:
		return 0
	}
}

func sumSizes[G geometry.Geometry](members []G) int {
	n := headerSize + 4
	for _, m := range members {
		n += Size(m)
	}
	return n
}

type encoder struct {
	buf    []byte
	order  binary.AppendByteOrder
	marker byte
}

func (e *encoder) geometry(g geometry.Geometry) error {
	e.buf = append(e.buf, e.marker)
	e.uint32(g.TypeCode())

	switch v := g.(type) {
	case geometry.Point:
		e.coordinate(v.Coordinate())
	case geometry.LineString:
		e.linearString(v.Path())
	case geometry.Polygon:
		rings := v.Rings()
		e.uint32(uint32(len(rings)))
		for _, ring := range rings {
			e.linearString(ring.LinearString)
		}
	case geometry.MultiPoint:
		return encodeMembers(e, v.Points())
	case geometry.MultiLineString:
		return encodeMembers(e, v.LineStrings())
	case geometry.MultiPolygon:
		return encodeMembers(e, v.Polygons())
	case geometry.GeometryCollection:
		return encodeMembers(e, v.Geometries())
	default:
		return fmt.Errorf("wkb: cannot encode %T", g)
	}
	return nil
}

func encodeMembers[G geometry.Geometry](e *encoder, members []G) error {
	e.uint32(uint32(len(members)))
	for _, m := range members {
		if err := e.geometry(m); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) linearString(s geometry.LinearString) {
	e.uint32(uint32(s.Len()))
	for i := 0; i < s.Len(); i++ {
		e.coordinate(s.At(i))
	}
}

func (e *encoder) coordinate(c geometry.Coordinate) {
	for _, v := range c.Values() {
		e.buf = e.order.AppendUint64(e.buf, math.Float64bits(v))
	}
}

func (e *encoder) uint32(v uint32) {
	e.buf = e.order.AppendUint32(e.buf, v)
}
