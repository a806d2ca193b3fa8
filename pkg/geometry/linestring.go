// pkg/geometry/linestring.go - Ordered coordinate sequences used by lines and rings
package geometry

import "fmt"

// LinearString is an ordered, immutable sequence of coordinates sharing one layout
type LinearString struct {
	layout Layout
	coords []Coordinate
}

// NewLinearString creates a sequence, rejecting coordinates whose layout differs from layout
func NewLinearString(layout Layout, coords ...Coordinate) (LinearString, error) {
	if !layout.Valid() {
		return LinearString{}, fmt.Errorf("geometry: invalid layout %d", layout)
	}
	for i, c := range coords {
		if c.layout != layout {
			return LinearString{}, fmt.Errorf("%w: coordinate %d is %s, sequence is %s", ErrLayoutMismatch, i, c.layout, layout)
		}
	}
	return LinearString{layout: layout, coords: cloneSlice(coords)}, nil
}

// Layout returns the layout shared by every coordinate
func (s LinearString) Layout() Layout { return s.layout }

// Len returns the number of coordinates
func (s LinearString) Len() int { return len(s.coords) }

// At returns the coordinate at index i
func (s LinearString) At(i int) Coordinate { return s.coords[i] }

// Coordinates returns a copy of the coordinates
func (s LinearString) Coordinates() []Coordinate { return cloneSlice(s.coords) }

// IsEmpty reports whether the sequence has no coordinates
func (s LinearString) IsEmpty() bool { return len(s.coords) == 0 }

// Envelope folds the coordinates into a bounding envelope
func (s LinearString) Envelope() (Envelope, error) {
	env := EmptyEnvelope()
	for _, c := range s.coords {
		var err error
		if env, err = env.Combine(EnvelopeOf(c)); err != nil {
			return Envelope{}, err
		}
	}
	return env, nil
}

// LinearRing is a coordinate sequence bounding a polygon or one of its holes
type LinearRing struct {
	LinearString
}

// NewLinearRing creates a ring. Closure is not enforced so decoded data round trips unchanged.
func NewLinearRing(layout Layout, coords ...Coordinate) (LinearRing, error) {
	s, err := NewLinearString(layout, coords...)
	if err != nil {
		return LinearRing{}, err
	}
	return LinearRing{LinearString: s}, nil
}

// IsClosed reports whether the first and last coordinates are equal
func (r LinearRing) IsClosed() bool {
	n := len(r.coords)
	return n > 0 && r.coords[0].Equal(r.coords[n-1])
}

func cloneSlice[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	return append([]T(nil), in...)
}
