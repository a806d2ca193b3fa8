// pkg/crs/crs_test.go - Unit tests for CRS identities, bounding boxes and profiles
package crs

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateReferenceSystemEqual(t *testing.T) {
	assert.True(t, New("epsg", 4326).Equal(EPSG4326))
	assert.True(t, CoordinateReferenceSystem{Authority: "Epsg", Identifier: 3857}.Equal(EPSG3857))
	assert.False(t, EPSG4326.Equal(EPSG3857))
	assert.False(t, New("OGC", 4326).Equal(EPSG4326))
	assert.Equal(t, "EPSG:3395", EPSG3395.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    CoordinateReferenceSystem
		wantErr bool
	}{
		{"EPSG:4326", EPSG4326, false},
		{"epsg: 3857", EPSG3857, false},
		{"4326", CoordinateReferenceSystem{}, true},
		{"EPSG:abc", CoordinateReferenceSystem{}, true},
		{":4326", CoordinateReferenceSystem{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestNewBoundingBox(t *testing.T) {
	b, err := NewBoundingBox(-10, -5, 30, 15)
	require.NoError(t, err)
	assert.Equal(t, 40.0, b.Width())
	assert.Equal(t, 20.0, b.Height())
	cx, cy := b.Center()
	assert.Equal(t, 10.0, cx)
	assert.Equal(t, 5.0, cy)
	assert.True(t, b.Contains(30, 15))
	assert.False(t, b.Contains(30.5, 15))

	_, err = NewBoundingBox(1, 0, 0, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewBoundingBox(0, math.NaN(), 1, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.ErrorIs(t, BoundingBox{}.Validate(), ErrInvalidArgument)
}

func TestProfileMetadata(t *testing.T) {
	tests := []struct {
		profile     Profile
		crs         CoordinateReferenceSystem
		name        string
		description string
		precision   int
	}{
		{NewGlobalGeodetic(), EPSG4326, "World Geodetic System (WGS) 1984", "World Geodetic System 1984", 7},
		{NewSphericalMercator(), EPSG3857, "Web Mercator", "Projection used in many popular web mapping applications (Google/Bing/OpenStreetMap/etc). Sometimes known as EPSG:900913.", 2},
		{NewEllipsoidalMercator(), EPSG3395, "World Mercator", "World (Ellipsoidal) Mercator", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.crs, tt.profile.CRS())
			assert.Equal(t, tt.name, tt.profile.Name())
			assert.Equal(t, tt.description, tt.profile.Description())
			assert.Equal(t, tt.precision, tt.profile.Precision())
			assert.Contains(t, tt.profile.WellKnownText(), `AUTHORITY["EPSG","`+strconv.Itoa(tt.crs.Identifier)+`"]]`)
		})
	}
}

func TestMercatorBounds(t *testing.T) {
	extent := math.Pi * EarthEquatorialRadius
	want := BoundingBox{MinX: -extent, MinY: -extent, MaxX: extent, MaxY: extent}
	assert.Equal(t, want, NewSphericalMercator().Bounds())
	assert.Equal(t, want, NewEllipsoidalMercator().Bounds())
	assert.Equal(t, BoundingBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}, NewGlobalGeodetic().Bounds())
}

func TestSphericalMercatorConversion(t *testing.T) {
	p := NewSphericalMercator()

	native, err := p.FromGlobalGeodetic(NewCoordinate(180, 0, EPSG4326))
	require.NoError(t, err)
	assert.InDelta(t, math.Pi*EarthEquatorialRadius, native.X, 1e-6)
	assert.InDelta(t, 0, native.Y, 1e-6)
	assert.True(t, native.CRS.Equal(EPSG3857))

	// the edge of the square web mercator world
	geodetic, err := p.ToGlobalGeodetic(NewCoordinate(0, math.Pi*EarthEquatorialRadius, EPSG3857))
	require.NoError(t, err)
	assert.InDelta(t, 85.0511287798, geodetic.Y, 1e-9)

	for _, lat := range []float64{-80, -45.5, 0, 12.25, 60, 84} {
		for _, lon := range []float64{-179, -20, 0, 33.3, 179.9} {
			native, err := p.FromGlobalGeodetic(NewCoordinate(lon, lat, EPSG4326))
			require.NoError(t, err)
			back, err := p.ToGlobalGeodetic(native)
			require.NoError(t, err)
			assert.InDelta(t, lon, back.X, 1e-9)
			assert.InDelta(t, lat, back.Y, 1e-9)
		}
	}
}

func TestEllipsoidalMercatorConversion(t *testing.T) {
	p := NewEllipsoidalMercator()

	// EPSG:3395 reference point: 45N is 5591295.92 m north
	native, err := p.FromGlobalGeodetic(NewCoordinate(0, 45, EPSG4326))
	require.NoError(t, err)
	assert.InDelta(t, 5591295.92, native.Y, 0.01)

	for _, lat := range []float64{-85, -60, -1, 0, 0.5, 30, 70, 85} {
		native, err := p.FromGlobalGeodetic(NewCoordinate(100, lat, EPSG4326))
		require.NoError(t, err)
		back, err := p.ToGlobalGeodetic(native)
		require.NoError(t, err)
		assert.InDelta(t, 100, back.X, 1e-9)
		assert.InDelta(t, lat, back.Y, 1e-9)
	}
}

func TestGlobalGeodeticIsIdentity(t *testing.T) {
	p := NewGlobalGeodetic()
	c := NewCoordinate(12.5, -33.25, New("epsg", 4326))

	out, err := p.ToGlobalGeodetic(c)
	require.NoError(t, err)
	assert.Equal(t, 12.5, out.X)
	assert.Equal(t, -33.25, out.Y)

	in, err := p.FromGlobalGeodetic(out)
	require.NoError(t, err)
	assert.Equal(t, out, in)
}

func TestConversionRejectsForeignCRS(t *testing.T) {
	tests := []struct {
		name    string
		convert func() error
	}{
		{"geodetic given mercator", func() error {
			_, err := NewGlobalGeodetic().ToGlobalGeodetic(NewCoordinate(0, 0, EPSG3857))
			return err
		}},
		{"spherical given ellipsoidal", func() error {
			_, err := NewSphericalMercator().ToGlobalGeodetic(NewCoordinate(0, 0, EPSG3395))
			return err
		}},
		{"ellipsoidal given geodetic", func() error {
			_, err := NewEllipsoidalMercator().ToGlobalGeodetic(NewCoordinate(0, 0, EPSG4326))
			return err
		}},
		{"spherical inverse given native", func() error {
			_, err := NewSphericalMercator().FromGlobalGeodetic(NewCoordinate(0, 0, EPSG3857))
			return err
		}},
		{"ellipsoidal inverse given unset crs", func() error {
			_, err := NewEllipsoidalMercator().FromGlobalGeodetic(Coordinate{})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.convert(), ErrInvalidArgument)
		})
	}
}

func TestGeodeticBounds(t *testing.T) {
	b, err := GeodeticBounds(NewSphericalMercator(), NewSphericalMercator().Bounds())
	require.NoError(t, err)
	assert.InDelta(t, -180, b.MinX, 1e-9)
	assert.InDelta(t, 180, b.MaxX, 1e-9)
	assert.InDelta(t, 85.0511287798, b.MaxY, 1e-9)

	native, err := NativeBounds(NewSphericalMercator(), b)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi*EarthEquatorialRadius, native.MaxY, 1e-3)
}
