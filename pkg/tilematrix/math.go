// pkg/tilematrix/math.go - Conversions between CRS coordinates and tile addresses
package tilematrix

import (
	"fmt"
	"math"

	"github.com/valpere/geopackage/pkg/crs"
)

// edgeDigits is how far below a profile's precision a coordinate may fall short of a
// tile edge and still be placed on it
const edgeDigits = 4

// CrsToTileCoordinate returns the tile of a matrix covering bounds that contains c.
// The matrix edges adjacent to the origin corner are inside the matrix; the two
// opposite edges belong to tiles one past the last index and fail with ErrOutOfBounds.
func CrsToTileCoordinate(p crs.Profile, c crs.Coordinate, bounds crs.BoundingBox, dims Dimensions, origin Origin) (Coordinate, error) {
	if err := validate(p, bounds, dims, origin); err != nil {
		return Coordinate{}, err
	}
	if err := crs.CheckCRS(p, c); err != nil {
		return Coordinate{}, err
	}

	if GeodeticTiling(p) {
		// precision rounding keeps coordinates that drifted while converting
		// to and from latitude/longitude inside the bounds
		precision := p.Precision()
		if !Contains(bounds.Round(precision), crs.Round(c.X, precision), crs.Round(c.Y, precision), origin) {
			return Coordinate{}, outOfBounds(c, bounds, origin)
		}

		geodeticBounds, err := crs.GeodeticBounds(p, bounds)
		if err != nil {
			return Coordinate{}, err
		}
		geodetic, err := p.ToGlobalGeodetic(c)
		if err != nil {
			return Coordinate{}, err
		}
		tolerance := edgeTolerance(crs.NewGlobalGeodetic().Precision())
		return locate(geodetic.X, geodetic.Y, geodeticBounds, dims, origin, tolerance), nil
	}

	if !Contains(bounds, c.X, c.Y, origin) {
		return Coordinate{}, outOfBounds(c, bounds, origin)
	}
	return locate(c.X, c.Y, bounds, dims, origin, edgeTolerance(p.Precision())), nil
}

// TileToCrsCoordinate returns the anchor (origin corner) of the tile at column, row.
// Indices past the matrix are extrapolated; only negative indices are rejected.
func TileToCrsCoordinate(p crs.Profile, column, row int, bounds crs.BoundingBox, dims Dimensions, origin Origin) (crs.Coordinate, error) {
	if err := validate(p, bounds, dims, origin); err != nil {
		return crs.Coordinate{}, err
	}
	if column < 0 || row < 0 {
		return crs.Coordinate{}, crs.InvalidArgumentf("tile (%d, %d) has a negative index", column, row)
	}

	if GeodeticTiling(p) {
		geodeticBounds, err := crs.GeodeticBounds(p, bounds)
		if err != nil {
			return crs.Coordinate{}, err
		}
		x, y := anchor(column, row, geodeticBounds, dims, origin)
		return p.FromGlobalGeodetic(crs.NewCoordinate(x, y, crs.EPSG4326))
	}

	x, y := anchor(column, row, bounds, dims, origin)
	return crs.NewCoordinate(x, y, p.CRS()), nil
}

// TileBounds returns the extent of the tile at column, row, which must lie inside dims
func TileBounds(p crs.Profile, column, row int, bounds crs.BoundingBox, dims Dimensions, origin Origin) (crs.BoundingBox, error) {
	if err := validate(p, bounds, dims, origin); err != nil {
		return crs.BoundingBox{}, err
	}
	if column < 0 || row < 0 {
		return crs.BoundingBox{}, crs.InvalidArgumentf("tile (%d, %d) has a negative index", column, row)
	}
	if !dims.Contains(column, row) {
		return crs.BoundingBox{}, crs.InvalidArgumentf("tile (%d, %d) is outside %s", column, row, dims)
	}

	near, err := TileToCrsCoordinate(p, column, row, bounds, dims, origin)
	if err != nil {
		return crs.BoundingBox{}, err
	}
	// the anchor of the diagonal neighbour away from the origin is this tile's far corner
	far, err := TileToCrsCoordinate(p, column+1, row+1, bounds, dims, origin)
	if err != nil {
		return crs.BoundingBox{}, err
	}

	return crs.NewBoundingBox(
		math.Min(near.X, far.X),
		math.Min(near.Y, far.Y),
		math.Max(near.X, far.X),
		math.Max(near.Y, far.Y),
	)
}

// Contains applies the tile matrix edge policy: bounds are inclusive except for the
// two edges opposite the origin corner.
func Contains(bounds crs.BoundingBox, x, y float64, origin Origin) bool {
	if !bounds.Contains(x, y) {
		return false
	}
	switch origin {
	case LowerLeft:
		return y != bounds.MaxY && x != bounds.MaxX
	case LowerRight:
		return y != bounds.MaxY && x != bounds.MinX
	case UpperLeft:
		return y != bounds.MinY && x != bounds.MaxX
	case UpperRight:
		return y != bounds.MinY && x != bounds.MinX
	default:
		return false
	}
}

// GeodeticTiling reports whether p lays its tiles out proportionally in
// latitude/longitude rather than in native units
func GeodeticTiling(p crs.Profile) bool {
	switch p.(type) {
	case crs.EllipsoidalMercator, *crs.EllipsoidalMercator:
		return true
	default:
		return false
	}
}

func validate(p crs.Profile, bounds crs.BoundingBox, dims Dimensions, origin Origin) error {
	if p == nil {
		return crs.InvalidArgumentf("profile may not be nil")
	}
	if err := bounds.Validate(); err != nil {
		return err
	}
	if err := dims.Validate(); err != nil {
		return err
	}
	return origin.Validate()
}

// edgeTolerance returns the distance in CRS units below which a coordinate is
// treated as lying on a tile edge
func edgeTolerance(precision int) float64 {
	return math.Pow(10, -float64(precision+edgeDigits))
}

// locate assumes (x, y) already passed the bounds check. tolerance is in the
// units of bounds.
func locate(x, y float64, bounds crs.BoundingBox, dims Dimensions, origin Origin, tolerance float64) Coordinate {
	cornerX, cornerY := origin.Corner(bounds)
	tileWidth := bounds.Width() / float64(dims.Width)
	tileHeight := bounds.Height() / float64(dims.Height)

	return Coordinate{
		Column: index(math.Abs(x-cornerX), tileWidth, tolerance, dims.Width),
		Row:    index(math.Abs(y-cornerY), tileHeight, tolerance, dims.Height),
	}
}

// index floors offset/tileSize, except that an offset within tolerance of a
// tile edge belongs to the tile starting there
func index(offset, tileSize, tolerance float64, size int) int {
	fraction := offset / tileSize
	if nearest := math.Round(fraction); math.Abs(offset-nearest*tileSize) < tolerance {
		fraction = nearest
	}
	i := int(math.Floor(fraction))
	if i >= size {
		i = size - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func anchor(column, row int, bounds crs.BoundingBox, dims Dimensions, origin Origin) (float64, float64) {
	cornerX, cornerY := origin.Corner(bounds)
	tileWidth := bounds.Width() / float64(dims.Width)
	tileHeight := bounds.Height() / float64(dims.Height)

	x := cornerX + float64(column)*tileWidth
	if origin.horizontal() == 1 {
		x = cornerX - float64(column)*tileWidth
	}
	y := cornerY + float64(row)*tileHeight
	if origin.vertical() == 1 {
		y = cornerY - float64(row)*tileHeight
	}
	return x, y
}

func outOfBounds(c crs.Coordinate, bounds crs.BoundingBox, origin Origin) error {
	return fmt.Errorf("%w: %s not in %s with origin %s", ErrOutOfBounds, c, bounds, origin)
}
