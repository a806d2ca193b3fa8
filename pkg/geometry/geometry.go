// pkg/geometry/geometry.go - Closed set of geometry variants
package geometry

import (
	"fmt"
	"math"
)

// Geometry is implemented only by the variants in this package.
// Callers dispatch with a type switch over Point, LineString, Polygon,
// MultiPoint, MultiLineString, MultiPolygon and GeometryCollection.
type Geometry interface {
	Type() Type
	TypeCode() uint32
	TypeName() string
	Layout() Layout
	HasZ() bool
	HasM() bool
	IsEmpty() bool
	Envelope() (Envelope, error)

	sealed()
}

// Point is a single position
type Point struct {
	coord Coordinate
}

// NewPoint creates a point at c
func NewPoint(c Coordinate) Point {
	return Point{coord: c}
}

// NewEmptyPoint creates an empty point, stored with NaN ordinates
func NewEmptyPoint(layout Layout) Point {
	nan := math.NaN()
	c, _ := CoordinateFromValues(layout, repeat(nan, layout.Stride())...)
	return Point{coord: c}
}

// Coordinate returns the point position
func (p Point) Coordinate() Coordinate { return p.coord }

func (p Point) Type() Type                  { return PointType }
func (p Point) TypeCode() uint32            { return PointType.Code(p.coord.layout) }
func (p Point) TypeName() string            { return PointType.String() }
func (p Point) Layout() Layout              { return p.coord.layout }
func (p Point) HasZ() bool                  { return p.coord.HasZ() }
func (p Point) HasM() bool                  { return p.coord.HasM() }
func (p Point) IsEmpty() bool               { return p.coord.IsEmpty() }
func (p Point) Envelope() (Envelope, error) { return EnvelopeOf(p.coord), nil }
func (Point) sealed()                       {}

// LineString is an open path
type LineString struct {
	path LinearString
}

// NewLineString creates a line string from coordinates sharing layout
func NewLineString(layout Layout, coords ...Coordinate) (LineString, error) {
	path, err := NewLinearString(layout, coords...)
	if err != nil {
		return LineString{}, err
	}
	return LineString{path: path}, nil
}

// Path returns the underlying coordinate sequence
func (l LineString) Path() LinearString { return l.path }

// Coordinates returns a copy of the coordinates
func (l LineString) Coordinates() []Coordinate { return l.path.Coordinates() }

func (l LineString) Type() Type                  { return LineStringType }
func (l LineString) TypeCode() uint32            { return LineStringType.Code(l.path.layout) }
func (l LineString) TypeName() string            { return LineStringType.String() }
func (l LineString) Layout() Layout              { return l.path.layout }
func (l LineString) HasZ() bool                  { return l.path.layout.HasZ() }
func (l LineString) HasM() bool                  { return l.path.layout.HasM() }
func (l LineString) IsEmpty() bool               { return l.path.IsEmpty() }
func (l LineString) Envelope() (Envelope, error) { return l.path.Envelope() }
func (LineString) sealed()                       {}

// Polygon is an exterior ring followed by zero or more interior rings
type Polygon struct {
	layout Layout
	rings  []LinearRing
}

// NewPolygon creates a polygon. The first ring is the exterior.
func NewPolygon(layout Layout, rings ...LinearRing) (Polygon, error) {
	if !layout.Valid() {
		return Polygon{}, fmt.Errorf("geometry: invalid layout %d", layout)
	}
	for i, r := range rings {
		if r.layout != layout {
			return Polygon{}, fmt.Errorf("%w: ring %d is %s, polygon is %s", ErrLayoutMismatch, i, r.layout, layout)
		}
	}
	return Polygon{layout: layout, rings: cloneSlice(rings)}, nil
}

// Rings returns a copy of all rings, exterior first
func (p Polygon) Rings() []LinearRing { return cloneSlice(p.rings) }

// NumRings returns the number of rings
func (p Polygon) NumRings() int { return len(p.rings) }

// ExteriorRing returns the exterior ring and false when the polygon is empty
func (p Polygon) ExteriorRing() (LinearRing, bool) {
	if len(p.rings) == 0 {
		return LinearRing{}, false
	}
	return p.rings[0], true
}

// InteriorRings returns a copy of the holes
func (p Polygon) InteriorRings() []LinearRing {
	if len(p.rings) < 2 {
		return nil
	}
	return cloneSlice(p.rings[1:])
}

func (p Polygon) Type() Type       { return PolygonType }
func (p Polygon) TypeCode() uint32 { return PolygonType.Code(p.layout) }
func (p Polygon) TypeName() string { return PolygonType.String() }
func (p Polygon) Layout() Layout   { return p.layout }
func (p Polygon) HasZ() bool       { return p.layout.HasZ() }
func (p Polygon) HasM() bool       { return p.layout.HasM() }
func (p Polygon) IsEmpty() bool    { return len(p.rings) == 0 || p.rings[0].IsEmpty() }

// Envelope is the exterior ring's envelope; holes lie inside it
func (p Polygon) Envelope() (Envelope, error) {
	if len(p.rings) == 0 {
		return EmptyEnvelope(), nil
	}
	return p.rings[0].Envelope()
}

func (Polygon) sealed() {}

// MultiPoint is a collection of points
type MultiPoint struct {
	layout Layout
	points []Point
}

// NewMultiPoint creates a multi point whose members share layout
func NewMultiPoint(layout Layout, points ...Point) (MultiPoint, error) {
	if err := checkMembers(layout, points); err != nil {
		return MultiPoint{}, err
	}
	return MultiPoint{layout: layout, points: cloneSlice(points)}, nil
}

// Points returns a copy of the members
func (m MultiPoint) Points() []Point { return cloneSlice(m.points) }

// Len returns the number of members
func (m MultiPoint) Len() int { return len(m.points) }

func (m MultiPoint) Type() Type                  { return MultiPointType }
func (m MultiPoint) TypeCode() uint32            { return MultiPointType.Code(m.layout) }
func (m MultiPoint) TypeName() string            { return MultiPointType.String() }
func (m MultiPoint) Layout() Layout              { return m.layout }
func (m MultiPoint) HasZ() bool                  { return m.layout.HasZ() }
func (m MultiPoint) HasM() bool                  { return m.layout.HasM() }
func (m MultiPoint) IsEmpty() bool               { return allEmpty(m.points) }
func (m MultiPoint) Envelope() (Envelope, error) { return combineAll(m.points) }
func (MultiPoint) sealed()                       {}

// MultiLineString is a collection of line strings
type MultiLineString struct {
	layout Layout
	lines  []LineString
}

// NewMultiLineString creates a multi line string whose members share layout
func NewMultiLineString(layout Layout, lines ...LineString) (MultiLineString, error) {
	if err := checkMembers(layout, lines); err != nil {
		return MultiLineString{}, err
	}
	return MultiLineString{layout: layout, lines: cloneSlice(lines)}, nil
}

// LineStrings returns a copy of the members
func (m MultiLineString) LineStrings() []LineString { return cloneSlice(m.lines) }

// Len returns the number of members
func (m MultiLineString) Len() int { return len(m.lines) }

func (m MultiLineString) Type() Type                  { return MultiLineStringType }
func (m MultiLineString) TypeCode() uint32            { return MultiLineStringType.Code(m.layout) }
func (m MultiLineString) TypeName() string            { return MultiLineStringType.String() }
func (m MultiLineString) Layout() Layout              { return m.layout }
func (m MultiLineString) HasZ() bool                  { return m.layout.HasZ() }
func (m MultiLineString) HasM() bool                  { return m.layout.HasM() }
func (m MultiLineString) IsEmpty() bool               { return allEmpty(m.lines) }
func (m MultiLineString) Envelope() (Envelope, error) { return combineAll(m.lines) }
func (MultiLineString) sealed()                       {}

// MultiPolygon is a collection of polygons
type MultiPolygon struct {
	layout   Layout
	polygons []Polygon
}

// NewMultiPolygon creates a multi polygon whose members share layout
func NewMultiPolygon(layout Layout, polygons ...Polygon) (MultiPolygon, error) {
	if err := checkMembers(layout, polygons); err != nil {
		return MultiPolygon{}, err
	}
	return MultiPolygon{layout: layout, polygons: cloneSlice(polygons)}, nil
}

// Polygons returns a copy of the members
func (m MultiPolygon) Polygons() []Polygon { return cloneSlice(m.polygons) }

// Len returns the number of members
func (m MultiPolygon) Len() int { return len(m.polygons) }

func (m MultiPolygon) Type() Type                  { return MultiPolygonType }
func (m MultiPolygon) TypeCode() uint32            { return MultiPolygonType.Code(m.layout) }
func (m MultiPolygon) TypeName() string            { return MultiPolygonType.String() }
func (m MultiPolygon) Layout() Layout              { return m.layout }
func (m MultiPolygon) HasZ() bool                  { return m.layout.HasZ() }
func (m MultiPolygon) HasM() bool                  { return m.layout.HasM() }
func (m MultiPolygon) IsEmpty() bool               { return allEmpty(m.polygons) }
func (m MultiPolygon) Envelope() (Envelope, error) { return combineAll(m.polygons) }
func (MultiPolygon) sealed()                       {}

// GeometryCollection holds geometries of any kind sharing one layout
type GeometryCollection struct {
	layout     Layout
	geometries []Geometry
}

// NewGeometryCollection creates a collection. Members must be non-nil and match layout.
func NewGeometryCollection(layout Layout, geometries ...Geometry) (GeometryCollection, error) {
	if err := checkMembers(layout, geometries); err != nil {
		return GeometryCollection{}, err
	}
	return GeometryCollection{layout: layout, geometries: cloneSlice(geometries)}, nil
}

// Geometries returns a copy of the members
func (c GeometryCollection) Geometries() []Geometry { return cloneSlice(c.geometries) }

// Len returns the number of members
func (c GeometryCollection) Len() int { return len(c.geometries) }

func (c GeometryCollection) Type() Type                  { return GeometryCollectionType }
func (c GeometryCollection) TypeCode() uint32            { return GeometryCollectionType.Code(c.layout) }
func (c GeometryCollection) TypeName() string            { return GeometryCollectionType.String() }
func (c GeometryCollection) Layout() Layout              { return c.layout }
func (c GeometryCollection) HasZ() bool                  { return c.layout.HasZ() }
func (c GeometryCollection) HasM() bool                  { return c.layout.HasM() }
func (c GeometryCollection) IsEmpty() bool               { return allEmpty(c.geometries) }
func (c GeometryCollection) Envelope() (Envelope, error) { return combineAll(c.geometries) }
func (GeometryCollection) sealed()                       {}

func checkMembers[G Geometry](layout Layout, members []G) error {
	if !layout.Valid() {
		return fmt.Errorf("geometry: invalid layout %d", layout)
	}
	for i, m := range members {
		if Geometry(m) == nil {
			return fmt.Errorf("%w: index %d", ErrNilGeometry, i)
		}
		if m.Layout() != layout {
			return fmt.Errorf("%w: member %d is %s, collection is %s", ErrLayoutMismatch, i, m.Layout(), layout)
		}
	}
	return nil
}

func allEmpty[G Geometry](members []G) bool {
	for _, m := range members {
		if !m.IsEmpty() {
			return false
		}
	}
	return true
}

func combineAll[G Geometry](members []G) (Envelope, error) {
	env := EmptyEnvelope()
	for _, m := range members {
		child, err := m.Envelope()
		if err != nil {
			return Envelope{}, err
		}
		if env, err = env.Combine(child); err != nil {
			return Envelope{}, err
		}
	}
	return env, nil
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
