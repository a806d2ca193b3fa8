// pkg/crs/crs.go - Coordinate reference system identity, coordinates and bounding boxes
package crs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArgument marks caller mistakes: absent arguments, CRS mismatches, negative indices
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownCRS is returned by registry lookups that find no profile
	ErrUnknownCRS = errors.New("unknown coordinate reference system")
)

// InvalidArgumentf formats an error wrapping ErrInvalidArgument
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// CoordinateReferenceSystem identifies a CRS by authority and numeric code.
// Authorities compare case-insensitively.
type CoordinateReferenceSystem struct {
	Authority  string
	Identifier int
}

// New creates a CRS identity with the authority upper-cased
func New(authority string, identifier int) CoordinateReferenceSystem {
	return CoordinateReferenceSystem{
		Authority:  strings.ToUpper(strings.TrimSpace(authority)),
		Identifier: identifier,
	}
}

// Parse reads "AUTHORITY:CODE", e.g. "EPSG:3857"
func Parse(s string) (CoordinateReferenceSystem, error) {
	authority, code, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(authority) == "" {
		return CoordinateReferenceSystem{}, InvalidArgumentf("crs %q must look like AUTHORITY:CODE", s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return CoordinateReferenceSystem{}, InvalidArgumentf("crs %q has a non-numeric code", s)
	}
	return New(authority, id), nil
}

// Equal compares identities, ignoring authority case
func (c CoordinateReferenceSystem) Equal(other CoordinateReferenceSystem) bool {
	return c.Identifier == other.Identifier && strings.EqualFold(c.Authority, other.Authority)
}

// IsZero reports whether the identity is unset
func (c CoordinateReferenceSystem) IsZero() bool {
	return c.Authority == "" && c.Identifier == 0
}

func (c CoordinateReferenceSystem) String() string {
	return fmt.Sprintf("%s:%d", strings.ToUpper(c.Authority), c.Identifier)
}

// Coordinate is a two dimensional position tagged with its CRS
type Coordinate struct {
	X   float64
	Y   float64
	CRS CoordinateReferenceSystem
}

// NewCoordinate creates a CRS coordinate
func NewCoordinate(x, y float64, crs CoordinateReferenceSystem) Coordinate {
	return Coordinate{X: x, Y: y, CRS: crs}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%g, %g) %s", c.X, c.Y, c.CRS)
}

// BoundingBox is a rectangle in CRS units
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBoundingBox creates a box, rejecting NaN values and inverted ranges
func NewBoundingBox(minX, minY, maxX, maxY float64) (BoundingBox, error) {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) {
			return BoundingBox{}, InvalidArgumentf("bounding box values may not be NaN")
		}
	}
	if minX > maxX {
		return BoundingBox{}, InvalidArgumentf("min x %g is greater than max x %g", minX, maxX)
	}
	if minY > maxY {
		return BoundingBox{}, InvalidArgumentf("min y %g is greater than max y %g", minY, maxY)
	}
	return BoundingBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}, nil
}

// Width returns MaxX - MinX
func (b BoundingBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY
func (b BoundingBox) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint
func (b BoundingBox) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Contains reports whether (x, y) is inside the box, edges included
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Validate rejects boxes that cannot host a tile matrix
func (b BoundingBox) Validate() error {
	if math.IsNaN(b.MinX) || math.IsNaN(b.MinY) || math.IsNaN(b.MaxX) || math.IsNaN(b.MaxY) {
		return InvalidArgumentf("bounding box values may not be NaN")
	}
	if !(b.Width() > 0) || !(b.Height() > 0) {
		return InvalidArgumentf("bounding box %s has no area", b)
	}
	return nil
}

// Round returns the box with every value rounded to precision decimal digits
func (b BoundingBox) Round(precision int) BoundingBox {
	return BoundingBox{
		MinX: Round(b.MinX, precision),
		MinY: Round(b.MinY, precision),
		MaxX: Round(b.MaxX, precision),
		MaxY: Round(b.MaxY, precision),
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Round rounds v to precision decimal digits
func Round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
