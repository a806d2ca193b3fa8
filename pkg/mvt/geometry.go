// pkg/mvt/geometry.go - Placement of tile-local geometry in the tile matrix CRS
package mvt

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/valpere/geopackage/pkg/crs"
	"github.com/valpere/geopackage/pkg/tilematrix"
)

// Coordinate system constants for decoded output
const (
	CoordSystemTile     = "tile"     // tile-local pixel coordinates, y down
	CoordSystemNative   = "native"   // the tile matrix set CRS
	CoordSystemGeodetic = "geodetic" // EPSG:4326 longitude/latitude
)

// TileID addresses a tile in a GeoPackage tile pyramid; rows count from the top
type TileID struct {
	Zoom   int `json:"zoom"`
	Column int `json:"column"`
	Row    int `json:"row"`
}

func (tid TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", tid.Zoom, tid.Column, tid.Row)
}

// Validate checks the address against the matrix dimensions at its zoom level
func (tid TileID) Validate(dims tilematrix.Dimensions) error {
	if tid.Zoom < 0 {
		return fmt.Errorf("invalid zoom level %d", tid.Zoom)
	}
	if !dims.Contains(tid.Column, tid.Row) {
		return fmt.Errorf("tile %s is outside the %s matrix", tid, dims)
	}
	return nil
}

// Placement locates one tile: its profile and its bounds in that profile's CRS
type Placement struct {
	Profile crs.Profile
	Bounds  crs.BoundingBox
	TileID  TileID
}

// Place computes the bounds of id inside a matrix covering matrixBounds
func Place(p crs.Profile, matrixBounds crs.BoundingBox, dims tilematrix.Dimensions, id TileID) (Placement, error) {
	if err := id.Validate(dims); err != nil {
		return Placement{}, err
	}
	b, err := tilematrix.TileBounds(p, id.Column, id.Row, matrixBounds, dims, tilematrix.UpperLeft)
	if err != nil {
		return Placement{}, fmt.Errorf("tile %s bounds: %w", id, err)
	}
	return Placement{Profile: p, Bounds: b, TileID: id}, nil
}

// projector maps tile-local points into a target coordinate system. Profiles that
// tile in geodetic space are interpolated across the tile's lon/lat extent.
type projector struct {
	profile  crs.Profile
	bounds   crs.BoundingBox
	geodetic bool // bounds are lon/lat
	target   string
	extent   float64
	err      error
}

func newProjector(pl Placement, extent uint32, target string) (*projector, error) {
	if pl.Profile == nil {
		return nil, fmt.Errorf("placement has no profile")
	}
	if err := pl.Bounds.Validate(); err != nil {
		return nil, err
	}
	if extent == 0 {
		return nil, fmt.Errorf("extent must be positive")
	}

	p := &projector{
		profile: pl.Profile,
		bounds:  pl.Bounds,
		target:  target,
		extent:  float64(extent),
	}
	if tilematrix.GeodeticTiling(pl.Profile) {
		b, err := crs.GeodeticBounds(pl.Profile, pl.Bounds)
		if err != nil {
			return nil, err
		}
		p.bounds = b
		p.geodetic = true
	}
	return p, nil
}

func (p *projector) point(pt orb.Point) orb.Point {
	x := p.bounds.MinX + pt[0]/p.extent*p.bounds.Width()
	y := p.bounds.MaxY - pt[1]/p.extent*p.bounds.Height()

	var (
		c   crs.Coordinate
		err error
	)
	switch {
	case p.geodetic && p.target == CoordSystemNative:
		c, err = p.profile.FromGlobalGeodetic(crs.NewCoordinate(x, y, crs.EPSG4326))
	case !p.geodetic && p.target == CoordSystemGeodetic:
		c, err = p.profile.ToGlobalGeodetic(crs.NewCoordinate(x, y, p.profile.CRS()))
	default:
		return orb.Point{x, y}
	}
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		return pt
	}
	return orb.Point{c.X, c.Y}
}

// apply projects g in place and reports the first conversion failure
func (p *projector) apply(g orb.Geometry) (orb.Geometry, error) {
	if p.target == CoordSystemTile {
		return g, nil
	}
	out := project.Geometry(g, p.point)
	return out, p.err
}
