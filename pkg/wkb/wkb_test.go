// pkg/wkb/wkb_test.go - Unit tests for the WKB codec
package wkb

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/geopackage/pkg/geometry"
)

var layouts = []geometry.Layout{geometry.XY, geometry.XYZ, geometry.XYM, geometry.XYZM}

func coord(layout geometry.Layout, x, y float64) geometry.Coordinate {
	switch layout {
	case geometry.XYZ:
		return geometry.NewCoordinateZ(x, y, x+y)
	case geometry.XYM:
		return geometry.NewCoordinateM(x, y, x*y)
	case geometry.XYZM:
		return geometry.NewCoordinateZM(x, y, x+y, x*y)
	default:
		return geometry.NewCoordinate(x, y)
	}
}

func ring(t *testing.T, layout geometry.Layout, x0, y0, size float64) geometry.LinearRing {
	t.Helper()
	r, err := geometry.NewLinearRing(layout,
		coord(layout, x0, y0),
		coord(layout, x0+size, y0),
		coord(layout, x0+size, y0+size),
		coord(layout, x0, y0+size),
		coord(layout, x0, y0),
	)
	require.NoError(t, err)
	return r
}

// samples returns one geometry of every kind, including collections nested two deep
func samples(t *testing.T, layout geometry.Layout) map[string]geometry.Geometry {
	t.Helper()

	point := geometry.NewPoint(coord(layout, 1.5, -2.25))
	line, err := geometry.NewLineString(layout, coord(layout, 0, 0), coord(layout, 4, 0), coord(layout, 4, 3))
	require.NoError(t, err)
	poly, err := geometry.NewPolygon(layout, ring(t, layout, 0, 0, 10), ring(t, layout, 2, 2, 1))
	require.NoError(t, err)
	multiPoint, err := geometry.NewMultiPoint(layout, point, geometry.NewPoint(coord(layout, 7, 8)))
	require.NoError(t, err)
	multiLine, err := geometry.NewMultiLineString(layout, line, line)
	require.NoError(t, err)
	multiPoly, err := geometry.NewMultiPolygon(layout, poly, poly)
	require.NoError(t, err)
	inner, err := geometry.NewGeometryCollection(layout, point, line, multiPoly)
	require.NoError(t, err)
	outer, err := geometry.NewGeometryCollection(layout, inner, poly, multiPoint)
	require.NoError(t, err)
	emptyLine, err := geometry.NewLineString(layout)
	require.NoError(t, err)
	emptyCollection, err := geometry.NewGeometryCollection(layout)
	require.NoError(t, err)

	return map[string]geometry.Geometry{
		"point":             point,
		"linestring":        line,
		"polygon":           poly,
		"multipoint":        multiPoint,
		"multilinestring":   multiLine,
		"multipolygon":      multiPoly,
		"collection":        inner,
		"nested collection": outer,
		"empty linestring":  emptyLine,
		"empty collection":  emptyCollection,
	}
}

func TestRoundTrip(t *testing.T) {
	for _, layout := range layouts {
		for name, g := range samples(t, layout) {
			for _, order := range []ByteOrder{BigEndian, LittleEndian} {
				t.Run(layout.String()+"/"+name+"/"+order.String(), func(t *testing.T) {
					data, err := Encode(g, order)
					require.NoError(t, err)
					assert.Equal(t, Size(g), len(data))

					got, err := Decode(data, DefaultFactory())
					require.NoError(t, err)
					assert.Equal(t, g, got)
					assert.Equal(t, g.TypeCode(), got.TypeCode())
				})
			}
		}
	}
}

func TestEmptyPointRoundTrip(t *testing.T) {
	data, err := Encode(geometry.NewEmptyPoint(geometry.XYZ), LittleEndian)
	require.NoError(t, err)

	got, err := Decode(data, nil)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Equal(t, uint32(1001), got.TypeCode())
}

func TestEncodeKnownBytes(t *testing.T) {
	point := geometry.NewPoint(geometry.NewCoordinate(1, 2))

	little, err := Encode(point, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "0101000000000000000000f03f0000000000000040", hex.EncodeToString(little))

	big, err := Encode(point, BigEndian)
	require.NoError(t, err)
	assert.Equal(t, "00000000013ff00000000000004000000000000000", hex.EncodeToString(big))
}

func TestDecodeMixedByteOrder(t *testing.T) {
	// big-endian multipoint holding one little-endian point
	data := []byte{0x00}
	data = binary.BigEndian.AppendUint32(data, 4)
	data = binary.BigEndian.AppendUint32(data, 1)
	data = append(data, 0x01)
	data = binary.LittleEndian.AppendUint32(data, 1)
	data = binary.LittleEndian.AppendUint64(data, math.Float64bits(3))
	data = binary.LittleEndian.AppendUint64(data, math.Float64bits(4))

	got, err := Decode(data, nil)
	require.NoError(t, err)

	mp, ok := got.(geometry.MultiPoint)
	require.True(t, ok)
	require.Equal(t, 1, mp.Len())
	assert.Equal(t, 3.0, mp.Points()[0].Coordinate().X())
	assert.Equal(t, 4.0, mp.Points()[0].Coordinate().Y())
}

func TestDecodeMalformed(t *testing.T) {
	validPoint, err := Encode(geometry.NewPoint(geometry.NewCoordinate(1, 2)), LittleEndian)
	require.NoError(t, err)

	hugeCount := []byte{0x01}
	hugeCount = binary.LittleEndian.AppendUint32(hugeCount, 2)
	hugeCount = binary.LittleEndian.AppendUint32(hugeCount, math.MaxUint32)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
		offset  int
	}{
		{"three bytes", []byte{0x01, 0x01, 0x00}, ErrTruncated, 0},
		{"empty", nil, ErrTruncated, 0},
		{"bad byte order", []byte{0x07, 0x01, 0x00, 0x00, 0x00}, ErrUnknownByteOrder, 0},
		{"unknown type", []byte{0x01, 0x63, 0x00, 0x00, 0x00}, ErrUnknownType, 0},
		{"layout out of range", []byte{0x01, 0xa1, 0x0f, 0x00, 0x00}, ErrUnknownType, 0},
		{"truncated body", validPoint[:len(validPoint)-3], ErrTruncated, 13},
		{"count exceeds buffer", hugeCount, ErrTruncated, 9},
		{"trailing bytes", append(append([]byte{}, validPoint...), 0xff), ErrTrailingBytes, len(validPoint)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Decode(tt.data, DefaultFactory())
			require.Error(t, err)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrMalformedGeometry)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsMalformed(err))

			offset, ok := Offset(err)
			require.True(t, ok)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestDecodeCollectionDimensionMismatch(t *testing.T) {
	// GeometryCollection Z holding a 2D point
	data := []byte{0x01}
	data = binary.LittleEndian.AppendUint32(data, geometry.GeometryCollectionType.Code(geometry.XYZ))
	data = binary.LittleEndian.AppendUint32(data, 1)
	point, err := Encode(geometry.NewPoint(geometry.NewCoordinate(1, 2)), LittleEndian)
	require.NoError(t, err)
	data = append(data, point...)

	_, err = Decode(data, nil)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	var mge *MalformedGeometryError
	require.ErrorAs(t, err, &mge)
	assert.Equal(t, 9, mge.Offset)
	assert.Equal(t, 1, mge.Depth)
}

func TestDecodeUnexpectedMemberType(t *testing.T) {
	line, err := geometry.NewLineString(geometry.XY, geometry.NewCoordinate(0, 0), geometry.NewCoordinate(1, 1))
	require.NoError(t, err)
	member, err := Encode(line, LittleEndian)
	require.NoError(t, err)

	data := []byte{0x01}
	data = binary.LittleEndian.AppendUint32(data, uint32(geometry.MultiPointType))
	data = binary.LittleEndian.AppendUint32(data, 1)
	data = append(data, member...)

	_, err = Decode(data, nil)
	require.ErrorIs(t, err, ErrUnexpectedType)
}

func TestFactoryRegistration(t *testing.T) {
	point, err := Encode(geometry.NewPoint(geometry.NewCoordinate(1, 2)), LittleEndian)
	require.NoError(t, err)

	t.Run("empty factory rejects everything", func(t *testing.T) {
		_, err := Decode(point, NewFactory())
		require.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("custom decoder", func(t *testing.T) {
		f := NewFactory()
		called := 0
		f.Register(1, func(f *Factory, r *Reader, layout geometry.Layout) (geometry.Geometry, error) {
			called++
			return decodePoint(f, r, layout)
		})
		assert.True(t, f.Supports(1))
		assert.False(t, f.Supports(1001))

		g, err := Decode(point, f)
		require.NoError(t, err)
		assert.Equal(t, 1, called)
		assert.Equal(t, geometry.PointType, g.Type())
	})
}

func TestDecodeDepthLimit(t *testing.T) {
	var g geometry.Geometry = geometry.NewPoint(geometry.NewCoordinate(0, 0))
	for i := 0; i < 5; i++ {
		gc, err := geometry.NewGeometryCollection(geometry.XY, g)
		require.NoError(t, err)
		g = gc
	}
	data, err := Encode(g, BigEndian)
	require.NoError(t, err)

	f := DefaultFactory()
	f.SetMaxDepth(3)
	_, err = Decode(data, f)
	require.ErrorIs(t, err, ErrTooDeep)

	f.SetMaxDepth(6)
	_, err = Decode(data, f)
	require.NoError(t, err)
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil, LittleEndian)
	require.ErrorIs(t, err, ErrNilGeometry)

	_, err = Encode(geometry.NewPoint(geometry.NewCoordinate(0, 0)), ByteOrder(9))
	require.ErrorIs(t, err, ErrUnknownByteOrder)
}
