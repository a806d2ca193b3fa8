// pkg/tilematrix/types.go - Tile matrix dimensions, origins and tile addresses
package tilematrix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/geopackage/pkg/crs"
)

// ErrOutOfBounds is returned when a coordinate is not covered by the tile matrix bounds
var ErrOutOfBounds = errors.New("coordinate outside tile matrix bounds")

// ErrInvalidArgument is shared with the crs package so callers test a single sentinel
var ErrInvalidArgument = crs.ErrInvalidArgument

// Dimensions is the number of tile columns and rows at one zoom level
type Dimensions struct {
	Width  int
	Height int
}

// NewDimensions creates dimensions; both values must be positive
func NewDimensions(width, height int) (Dimensions, error) {
	d := Dimensions{Width: width, Height: height}
	if err := d.Validate(); err != nil {
		return Dimensions{}, err
	}
	return d, nil
}

// Validate rejects non-positive dimensions, including the zero value
func (d Dimensions) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return crs.InvalidArgumentf("tile matrix dimensions %dx%d must be positive", d.Width, d.Height)
	}
	return nil
}

// Contains reports whether (column, row) addresses a tile of the matrix
func (d Dimensions) Contains(column, row int) bool {
	return column >= 0 && column < d.Width && row >= 0 && row < d.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Origin names the corner that tile addressing starts from and the corner of each
// tile used as its anchor point.
type Origin int

// Tile origins. The zero value is not a valid origin.
const (
	UpperLeft Origin = iota + 1
	LowerLeft
	UpperRight
	LowerRight
)

// Origins lists every valid origin
func Origins() []Origin {
	return []Origin{UpperLeft, LowerLeft, UpperRight, LowerRight}
}

// ParseOrigin accepts names such as "upper-left", "UpperLeft" or "ul"
func ParseOrigin(s string) (Origin, error) {
	normalized := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch normalized {
	case "upperleft", "ul", "topleft":
		return UpperLeft, nil
	case "lowerleft", "ll", "bottomleft":
		return LowerLeft, nil
	case "upperright", "ur", "topright":
		return UpperRight, nil
	case "lowerright", "lr", "bottomright":
		return LowerRight, nil
	default:
		return 0, crs.InvalidArgumentf("unknown tile origin %q", s)
	}
}

// Valid reports whether o is one of the four corners
func (o Origin) Valid() bool {
	return o >= UpperLeft && o <= LowerRight
}

// Validate rejects the zero value and unknown origins
func (o Origin) Validate() error {
	if !o.Valid() {
		return crs.InvalidArgumentf("tile origin %d is not set", int(o))
	}
	return nil
}

// vertical is 1 for upper origins, 0 for lower ones
func (o Origin) vertical() int {
	if o == UpperLeft || o == UpperRight {
		return 1
	}
	return 0
}

// horizontal is 1 for right origins, 0 for left ones
func (o Origin) horizontal() int {
	if o == UpperRight || o == LowerRight {
		return 1
	}
	return 0
}

// Corner returns the corner of b matching the origin
func (o Origin) Corner(b crs.BoundingBox) (float64, float64) {
	x, y := b.MinX, b.MinY
	if o.horizontal() == 1 {
		x = b.MaxX
	}
	if o.vertical() == 1 {
		y = b.MaxY
	}
	return x, y
}

// Transform converts a tile address expressed from origin o into one expressed from origin to
func (o Origin) Transform(to Origin, column, row int, dims Dimensions) (Coordinate, error) {
	if err := o.Validate(); err != nil {
		return Coordinate{}, err
	}
	if err := to.Validate(); err != nil {
		return Coordinate{}, err
	}
	if err := dims.Validate(); err != nil {
		return Coordinate{}, err
	}
	if !dims.Contains(column, row) {
		return Coordinate{}, crs.InvalidArgumentf("tile (%d, %d) is outside %s", column, row, dims)
	}

	return Coordinate{
		Column: flip(column, o.horizontal()^to.horizontal(), dims.Width-1),
		Row:    flip(row, o.vertical()^to.vertical(), dims.Height-1),
	}, nil
}

func flip(index, swap, max int) int {
	return index + swap*(max-2*index)
}

func (o Origin) String() string {
	switch o {
	case UpperLeft:
		return "UpperLeft"
	case LowerLeft:
		return "LowerLeft"
	case UpperRight:
		return "UpperRight"
	case LowerRight:
		return "LowerRight"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Coordinate is a tile address
type Coordinate struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.Column, c.Row)
}
