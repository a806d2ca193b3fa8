// pkg/tilematrix/types_test.go - Unit tests for origins and dimensions
package tilematrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/geopackage/pkg/crs"
)

func TestOriginTransform(t *testing.T) {
	dims := Dimensions{Width: 9, Height: 7}

	tests := []struct {
		from, to Origin
		column   int
		row      int
		want     Coordinate
	}{
		{UpperLeft, UpperLeft, 3, 2, Coordinate{3, 2}},
		{UpperLeft, LowerLeft, 0, 0, Coordinate{0, 6}},
		{UpperLeft, LowerRight, 0, 0, Coordinate{8, 6}},
		{UpperLeft, UpperRight, 2, 5, Coordinate{6, 5}},
		{LowerRight, UpperLeft, 8, 6, Coordinate{0, 0}},
		{LowerLeft, UpperRight, 4, 3, Coordinate{4, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			got, err := tt.from.Transform(tt.to, tt.column, tt.row, dims)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := tt.to.Transform(tt.from, got.Column, got.Row, dims)
			require.NoError(t, err)
			assert.Equal(t, Coordinate{tt.column, tt.row}, back)
		})
	}

	_, err := UpperLeft.Transform(LowerLeft, 9, 0, dims)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOriginCorner(t *testing.T) {
	b := crs.BoundingBox{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}

	tests := []struct {
		origin Origin
		x, y   float64
	}{
		{UpperLeft, 1, 4},
		{LowerLeft, 1, 2},
		{UpperRight, 3, 4},
		{LowerRight, 3, 2},
	}

	for _, tt := range tests {
		x, y := tt.origin.Corner(b)
		assert.Equal(t, tt.x, x, tt.origin.String())
		assert.Equal(t, tt.y, y, tt.origin.String())
	}
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		input   string
		want    Origin
		wantErr bool
	}{
		{"upper-left", UpperLeft, false},
		{"LowerLeft", LowerLeft, false},
		{"ur", UpperRight, false},
		{"lower_right", LowerRight, false},
		{"middle", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOrigin(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDimensions(t *testing.T) {
	d, err := NewDimensions(3, 2)
	require.NoError(t, err)
	assert.True(t, d.Contains(2, 1))
	assert.False(t, d.Contains(3, 1))
	assert.False(t, d.Contains(-1, 0))
	assert.Equal(t, "3x2", d.String())

	_, err = NewDimensions(0, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
