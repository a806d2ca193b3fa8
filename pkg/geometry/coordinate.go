// pkg/geometry/coordinate.go - Immutable coordinate value
package geometry

import (
	"fmt"
	"math"
)

// Coordinate is an immutable position with optional Z and M ordinates
type Coordinate struct {
	x, y   float64
	z, m   float64
	layout Layout
}

// NewCoordinate creates a two dimensional coordinate
func NewCoordinate(x, y float64) Coordinate {
	return Coordinate{x: x, y: y, layout: XY}
}

// NewCoordinateZ creates a coordinate with a Z ordinate
func NewCoordinateZ(x, y, z float64) Coordinate {
	return Coordinate{x: x, y: y, z: z, layout: XYZ}
}

// NewCoordinateM creates a coordinate with an M ordinate
func NewCoordinateM(x, y, m float64) Coordinate {
	return Coordinate{x: x, y: y, m: m, layout: XYM}
}

// NewCoordinateZM creates a coordinate with both Z and M ordinates
func NewCoordinateZM(x, y, z, m float64) Coordinate {
	return Coordinate{x: x, y: y, z: z, m: m, layout: XYZM}
}

// CoordinateFromValues builds a coordinate from x, y and the optional ordinates in layout order
func CoordinateFromValues(layout Layout, values ...float64) (Coordinate, error) {
	if !layout.Valid() {
		return Coordinate{}, fmt.Errorf("geometry: invalid layout %d", layout)
	}
	if len(values) != layout.Stride() {
		return Coordinate{}, fmt.Errorf("geometry: layout %s needs %d values, got %d", layout, layout.Stride(), len(values))
	}

	switch layout {
	case XYZ:
		return NewCoordinateZ(values[0], values[1], values[2]), nil
	case XYM:
		return NewCoordinateM(values[0], values[1], values[2]), nil
	case XYZM:
		return NewCoordinateZM(values[0], values[1], values[2], values[3]), nil
	default:
		return NewCoordinate(values[0], values[1]), nil
	}
}

// X returns the x ordinate
func (c Coordinate) X() float64 { return c.x }

// Y returns the y ordinate
func (c Coordinate) Y() float64 { return c.y }

// Z returns the z ordinate and whether it is present
func (c Coordinate) Z() (float64, bool) { return c.z, c.layout.HasZ() }

// M returns the m ordinate and whether it is present
func (c Coordinate) M() (float64, bool) { return c.m, c.layout.HasM() }

// Layout returns the coordinate layout
func (c Coordinate) Layout() Layout { return c.layout }

// HasZ reports whether a Z ordinate is present
func (c Coordinate) HasZ() bool { return c.layout.HasZ() }

// HasM reports whether an M ordinate is present
func (c Coordinate) HasM() bool { return c.layout.HasM() }

// IsEmpty reports whether both x and y are NaN, the encoding of an empty point
func (c Coordinate) IsEmpty() bool {
	return math.IsNaN(c.x) && math.IsNaN(c.y)
}

// Values returns x, y and the present optional ordinates in encoding order
func (c Coordinate) Values() []float64 {
	values := make([]float64, 0, c.layout.Stride())
	values = append(values, c.x, c.y)
	if c.layout.HasZ() {
		values = append(values, c.z)
	}
	if c.layout.HasM() {
		values = append(values, c.m)
	}
	return values
}

// Equal compares two coordinates, treating NaN ordinates as equal to each other
func (c Coordinate) Equal(other Coordinate) bool {
	if c.layout != other.layout {
		return false
	}
	a, b := c.Values(), other.Values()
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

func (c Coordinate) String() string {
	switch c.layout {
	case XYZ:
		return fmt.Sprintf("(%g %g %g)", c.x, c.y, c.z)
	case XYM:
		return fmt.Sprintf("(%g %g m=%g)", c.x, c.y, c.m)
	case XYZM:
		return fmt.Sprintf("(%g %g %g m=%g)", c.x, c.y, c.z, c.m)
	default:
		return fmt.Sprintf("(%g %g)", c.x, c.y)
	}
}
