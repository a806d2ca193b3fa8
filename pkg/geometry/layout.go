// pkg/geometry/layout.go - Coordinate layouts and the geometry type code table
package geometry

import "fmt"

// Layout describes which optional ordinates a coordinate carries
type Layout uint8

// Supported layouts. The numeric value times 1000 is the WKB type code offset.
const (
	XY Layout = iota
	XYZ
	XYM
	XYZM
)

// NewLayout returns the layout for the given Z/M presence
func NewLayout(hasZ, hasM bool) Layout {
	switch {
	case hasZ && hasM:
		return XYZM
	case hasZ:
		return XYZ
	case hasM:
		return XYM
	default:
		return XY
	}
}

// HasZ reports whether the layout carries a Z ordinate
func (l Layout) HasZ() bool {
	return l == XYZ || l == XYZM
}

// HasM reports whether the layout carries an M ordinate
func (l Layout) HasM() bool {
	return l == XYM || l == XYZM
}

// Stride returns the number of doubles in one encoded coordinate
func (l Layout) Stride() int {
	switch l {
	case XYZ, XYM:
		return 3
	case XYZM:
		return 4
	default:
		return 2
	}
}

// CodeOffset returns the ISO SQL/MM offset added to a base type code
func (l Layout) CodeOffset() uint32 {
	return uint32(l) * 1000
}

// Valid reports whether l is one of the known layouts
func (l Layout) Valid() bool {
	return l <= XYZM
}

func (l Layout) String() string {
	switch l {
	case XY:
		return "XY"
	case XYZ:
		return "XYZ"
	case XYM:
		return "XYM"
	case XYZM:
		return "XYZM"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// Type is the base (two dimensional) geometry type code
type Type uint32

// Base geometry type codes as assigned by OGC Simple Features.
const (
	PointType              Type = 1
	LineStringType         Type = 2
	PolygonType            Type = 3
	MultiPointType         Type = 4
	MultiLineStringType    Type = 5
	MultiPolygonType       Type = 6
	GeometryCollectionType Type = 7
)

var typeNames = map[Type]string{
	PointType:              "Point",
	LineStringType:         "LineString",
	PolygonType:            "Polygon",
	MultiPointType:         "MultiPoint",
	MultiLineStringType:    "MultiLineString",
	MultiPolygonType:       "MultiPolygon",
	GeometryCollectionType: "GeometryCollection",
}

// Types lists the base types in code order
func Types() []Type {
	return []Type{
		PointType,
		LineStringType,
		PolygonType,
		MultiPointType,
		MultiLineStringType,
		MultiPolygonType,
		GeometryCollectionType,
	}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// Code returns the full type code for t in the given layout
func (t Type) Code(l Layout) uint32 {
	return uint32(t) + l.CodeOffset()
}

// SplitCode separates a full type code into its base type and layout.
// The base type is not checked against the known types.
func SplitCode(code uint32) (Type, Layout, bool) {
	layout := Layout(code / 1000)
	if !layout.Valid() {
		return 0, 0, false
	}
	return Type(code % 1000), layout, true
}
