// internal/output/geometry.go - Conversion of decoded geometries to orb types
package output

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/valpere/geopackage/pkg/geometry"
)

// ToOrb converts a decoded geometry to its orb equivalent. orb is planar, so Z and M
// are dropped. Empty geometries become nil, which GeoJSON writes as a null geometry,
// and empty members of multi geometries and collections are skipped.
func ToOrb(g geometry.Geometry) (orb.Geometry, error) {
	if g == nil || g.IsEmpty() {
		return nil, nil
	}

	switch g := g.(type) {
	case geometry.Point:
		return point(g.Coordinate()), nil
	case geometry.LineString:
		return orb.LineString(path(g.Path())), nil
	case geometry.Polygon:
		return polygon(g), nil
	case geometry.MultiPoint:
		var mp orb.MultiPoint
		for _, p := range g.Points() {
			if !p.IsEmpty() {
				mp = append(mp, point(p.Coordinate()))
			}
		}
		return mp, nil
	case geometry.MultiLineString:
		var mls orb.MultiLineString
		for _, l := range g.LineStrings() {
			if !l.IsEmpty() {
				mls = append(mls, orb.LineString(path(l.Path())))
			}
		}
		return mls, nil
	case geometry.MultiPolygon:
		var mp orb.MultiPolygon
		for _, p := range g.Polygons() {
			if !p.IsEmpty() {
				mp = append(mp, polygon(p))
			}
		}
		return mp, nil
	case geometry.GeometryCollection:
		var c orb.Collection
		for _, member := range g.Geometries() {
			og, err := ToOrb(member)
			if err != nil {
				return nil, err
			}
			if og != nil {
				c = append(c, og)
			}
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.TypeName())
	}
}

func point(c geometry.Coordinate) orb.Point {
	return orb.Point{c.X(), c.Y()}
}

func path(s geometry.LinearString) []orb.Point {
	out := make([]orb.Point, s.Len())
	for i := range out {
		out[i] = point(s.At(i))
	}
	return out
}

func polygon(p geometry.Polygon) orb.Polygon {
	rings := p.Rings()
	out := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		out = append(out, orb.Ring(path(r.LinearString)))
	}
	return out
}

// FromOrb converts a planar orb geometry into an XY geometry. A nil geometry
// becomes an empty point.
func FromOrb(g orb.Geometry) (geometry.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return geometry.NewEmptyPoint(geometry.XY), nil
	case orb.Point:
		return geometry.NewPoint(coordinate(g)), nil
	case orb.LineString:
		return geometry.NewLineString(geometry.XY, coordinates(g)...)
	case orb.Polygon:
		return fromPolygon(g)
	case orb.MultiPoint:
		points := make([]geometry.Point, len(g))
		for i, p := range g {
			points[i] = geometry.NewPoint(coordinate(p))
		}
		return geometry.NewMultiPoint(geometry.XY, points...)
	case orb.MultiLineString:
		lines := make([]geometry.LineString, 0, len(g))
		for _, ls := range g {
			l, err := geometry.NewLineString(geometry.XY, coordinates(ls)...)
			if err != nil {
				return nil, err
			}
			lines = append(lines, l)
		}
		return geometry.NewMultiLineString(geometry.XY, lines...)
	case orb.MultiPolygon:
		polygons := make([]geometry.Polygon, 0, len(g))
		for _, p := range g {
			poly, err := fromPolygon(p)
			if err != nil {
				return nil, err
			}
			polygons = append(polygons, poly)
		}
		return geometry.NewMultiPolygon(geometry.XY, polygons...)
	case orb.Collection:
		members := make([]geometry.Geometry, 0, len(g))
		for _, og := range g {
			m, err := FromOrb(og)
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		return geometry.NewGeometryCollection(geometry.XY, members...)
	case orb.Ring:
		return FromOrb(orb.Polygon{g})
	case orb.Bound:
		return FromOrb(g.ToPolygon())
	default:
		return nil, fmt.Errorf("unsupported orb geometry %T", g)
	}
}

func coordinate(p orb.Point) geometry.Coordinate {
	return geometry.NewCoordinate(p[0], p[1])
}

func coordinates(points []orb.Point) []geometry.Coordinate {
	out := make([]geometry.Coordinate, len(points))
	for i, p := range points {
		out[i] = coordinate(p)
	}
	return out
}

func fromPolygon(p orb.Polygon) (geometry.Polygon, error) {
	rings := make([]geometry.LinearRing, 0, len(p))
	for _, r := range p {
		ring, err := geometry.NewLinearRing(geometry.XY, coordinates(r)...)
		if err != nil {
			return geometry.Polygon{}, err
		}
		rings = append(rings, ring)
	}
	return geometry.NewPolygon(geometry.XY, rings...)
}
