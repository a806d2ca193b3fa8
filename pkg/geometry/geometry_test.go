// pkg/geometry/geometry_test.go - Unit tests for geometry variants
package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCode(t *testing.T) {
	tests := []struct {
		code       uint32
		wantType   Type
		wantLayout Layout
		wantOK     bool
	}{
		{1, PointType, XY, true},
		{1002, LineStringType, XYZ, true},
		{2003, PolygonType, XYM, true},
		{3007, GeometryCollectionType, XYZM, true},
		{4001, 0, 0, false},
	}

	for _, tt := range tests {
		typ, layout, ok := SplitCode(tt.code)
		assert.Equal(t, tt.wantOK, ok, "code %d", tt.code)
		if !tt.wantOK {
			continue
		}
		assert.Equal(t, tt.wantType, typ)
		assert.Equal(t, tt.wantLayout, layout)
		assert.Equal(t, tt.code, typ.Code(layout))
	}
}

func TestLayout(t *testing.T) {
	assert.Equal(t, XYZM, NewLayout(true, true))
	assert.Equal(t, XYM, NewLayout(false, true))
	assert.Equal(t, 4, XYZM.Stride())
	assert.Equal(t, uint32(2000), XYM.CodeOffset())
	assert.True(t, XYZ.HasZ())
	assert.False(t, XYZ.HasM())
}

func TestCoordinate(t *testing.T) {
	c := NewCoordinateZM(1, 2, 3, 4)
	z, ok := c.Z()
	assert.True(t, ok)
	assert.Equal(t, 3.0, z)
	m, ok := c.M()
	assert.True(t, ok)
	assert.Equal(t, 4.0, m)
	assert.Equal(t, []float64{1, 2, 3, 4}, c.Values())

	_, ok = NewCoordinate(1, 2).Z()
	assert.False(t, ok)

	built, err := CoordinateFromValues(XYM, 1, 2, 9)
	require.NoError(t, err)
	assert.Equal(t, NewCoordinateM(1, 2, 9), built)

	_, err = CoordinateFromValues(XYZ, 1, 2)
	require.Error(t, err)
}

func TestLinearStringLayoutMismatch(t *testing.T) {
	_, err := NewLinearString(XY, NewCoordinate(0, 0), NewCoordinateZ(1, 1, 1))
	require.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestLinearRingIsClosed(t *testing.T) {
	closed, err := NewLinearRing(XY,
		NewCoordinate(0, 0), NewCoordinate(1, 0), NewCoordinate(1, 1), NewCoordinate(0, 0))
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())

	open, err := NewLinearRing(XY, NewCoordinate(0, 0), NewCoordinate(1, 0))
	require.NoError(t, err)
	assert.False(t, open.IsClosed())
}

func TestPolygonEnvelopeUsesExterior(t *testing.T) {
	shell, err := NewLinearRing(XY,
		NewCoordinate(0, 0), NewCoordinate(10, 0), NewCoordinate(10, 10), NewCoordinate(0, 10), NewCoordinate(0, 0))
	require.NoError(t, err)
	hole, err := NewLinearRing(XY,
		NewCoordinate(2, 2), NewCoordinate(3, 2), NewCoordinate(3, 3), NewCoordinate(2, 2))
	require.NoError(t, err)

	poly, err := NewPolygon(XY, shell, hole)
	require.NoError(t, err)
	assert.Len(t, poly.InteriorRings(), 1)

	env, err := poly.Envelope()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 0, 10}, env.Array())
}

func TestEmptyGeometries(t *testing.T) {
	empty := []Geometry{
		NewEmptyPoint(XYZ),
		must(NewLineString(XY)),
		must(NewPolygon(XYM)),
		must(NewMultiPoint(XY)),
		must(NewMultiLineString(XY)),
		must(NewMultiPolygon(XY)),
		must(NewGeometryCollection(XYZM)),
	}

	for _, g := range empty {
		t.Run(g.TypeName(), func(t *testing.T) {
			assert.True(t, g.IsEmpty())
			env, err := g.Envelope()
			require.NoError(t, err)
			assert.True(t, env.IsEmpty())
		})
	}
}

func TestTypeCodes(t *testing.T) {
	pt := NewPoint(NewCoordinateZM(1, 2, 3, 4))
	assert.Equal(t, uint32(3001), pt.TypeCode())
	assert.Equal(t, "Point", pt.TypeName())
	assert.True(t, pt.HasZ())
	assert.True(t, pt.HasM())

	line := must(NewLineString(XYM, NewCoordinateM(0, 0, 1)))
	assert.Equal(t, uint32(2002), line.TypeCode())
	assert.False(t, line.HasZ())
}

func TestCollectionLayoutMismatch(t *testing.T) {
	_, err := NewMultiPoint(XY, NewPoint(NewCoordinateZ(1, 2, 3)))
	require.ErrorIs(t, err, ErrLayoutMismatch)

	_, err = NewGeometryCollection(XYZ, NewPoint(NewCoordinate(1, 2)))
	require.ErrorIs(t, err, ErrLayoutMismatch)

	_, err = NewGeometryCollection(XY, nil)
	require.ErrorIs(t, err, ErrNilGeometry)
}

func TestCollectionEnvelope(t *testing.T) {
	inner := must(NewGeometryCollection(XY,
		NewPoint(NewCoordinate(-5, 1)),
		must(NewLineString(XY, NewCoordinate(0, 0), NewCoordinate(2, 8))),
	))
	outer := must(NewGeometryCollection(XY, inner, NewPoint(NewCoordinate(3, -2)), NewEmptyPoint(XY)))

	env, err := outer.Envelope()
	require.NoError(t, err)
	assert.Equal(t, []float64{-5, 3, -2, 8}, env.Array())
}

func TestCollectionOwnsMembers(t *testing.T) {
	points := []Point{NewPoint(NewCoordinate(1, 1)), NewPoint(NewCoordinate(2, 2))}
	mp := must(NewMultiPoint(XY, points...))

	points[0] = NewPoint(NewCoordinate(9, 9))
	assert.Equal(t, 1.0, mp.Points()[0].Coordinate().X())

	copied := mp.Points()
	copied[1] = NewPoint(NewCoordinate(7, 7))
	assert.Equal(t, 2.0, mp.Points()[1].Coordinate().X())
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
