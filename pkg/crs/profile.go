// pkg/crs/profile.go - CRS profiles: identity, bounds and conversion to geodetic coordinates
package crs

import "math"

// Profile describes one supported coordinate reference system
type Profile interface {
	CRS() CoordinateReferenceSystem
	Name() string
	Description() string
	WellKnownText() string
	// Precision is the number of meaningful decimal digits in native units
	Precision() int
	// Bounds is the native extent over which the projection is valid
	Bounds() BoundingBox
	// ToGlobalGeodetic converts a native coordinate to EPSG:4326 longitude/latitude
	ToGlobalGeodetic(c Coordinate) (Coordinate, error)
	// FromGlobalGeodetic converts an EPSG:4326 coordinate to native units
	FromGlobalGeodetic(c Coordinate) (Coordinate, error)
}

// Well known identities
var (
	EPSG4326 = New("EPSG", 4326)
	EPSG3857 = New("EPSG", 3857)
	EPSG3395 = New("EPSG", 3395)
)

// EarthEquatorialRadius is the WGS 84 semi-major axis in metres
const EarthEquatorialRadius = 6378137.0

// InverseFlattening is the WGS 84 inverse flattening
const InverseFlattening = 298.257223563

// CheckCRS fails with ErrInvalidArgument unless c is expressed in p's CRS
func CheckCRS(p Profile, c Coordinate) error {
	if !c.CRS.Equal(p.CRS()) {
		return InvalidArgumentf("coordinate is in %s, profile %q expects %s", c.CRS, p.Name(), p.CRS())
	}
	return nil
}

// GeodeticBounds converts a native bounding box of p into longitude/latitude
func GeodeticBounds(p Profile, b BoundingBox) (BoundingBox, error) {
	lower, err := p.ToGlobalGeodetic(NewCoordinate(b.MinX, b.MinY, p.CRS()))
	if err != nil {
		return BoundingBox{}, err
	}
	upper, err := p.ToGlobalGeodetic(NewCoordinate(b.MaxX, b.MaxY, p.CRS()))
	if err != nil {
		return BoundingBox{}, err
	}
	return NewBoundingBox(lower.X, lower.Y, upper.X, upper.Y)
}

// NativeBounds converts a longitude/latitude bounding box into p's native units
func NativeBounds(p Profile, b BoundingBox) (BoundingBox, error) {
	lower, err := p.FromGlobalGeodetic(NewCoordinate(b.MinX, b.MinY, EPSG4326))
	if err != nil {
		return BoundingBox{}, err
	}
	upper, err := p.FromGlobalGeodetic(NewCoordinate(b.MaxX, b.MaxY, EPSG4326))
	if err != nil {
		return BoundingBox{}, err
	}
	return NewBoundingBox(lower.X, lower.Y, upper.X, upper.Y)
}

const (
	geodeticWKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.01745329251994328,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]`

	sphericalMercatorWKT = `PROJCS["WGS 84 / Pseudo-Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]],PROJECTION["Mercator_1SP"],PARAMETER["central_meridian",0],PARAMETER["scale_factor",1],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["X",EAST],AXIS["Y",NORTH],AUTHORITY["EPSG","3857"]]`

	ellipsoidalMercatorWKT = `PROJCS["WGS 84 / World Mercator",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.01745329251994328,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]],PROJECTION["Mercator_1SP"],PARAMETER["central_meridian",0],PARAMETER["scale_factor",1],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","3395"]]`
)

// GlobalGeodetic is EPSG:4326; native units are already degrees
type GlobalGeodetic struct{}

// NewGlobalGeodetic returns the EPSG:4326 profile
func NewGlobalGeodetic() GlobalGeodetic { return GlobalGeodetic{} }

func (GlobalGeodetic) CRS() CoordinateReferenceSystem { return EPSG4326 }
func (GlobalGeodetic) Name() string                   { return "World Geodetic System (WGS) 1984" }
func (GlobalGeodetic) Description() string            { return "World Geodetic System 1984" }
func (GlobalGeodetic) WellKnownText() string          { return geodeticWKT }
func (GlobalGeodetic) Precision() int                 { return 7 }

func (GlobalGeodetic) Bounds() BoundingBox {
	return BoundingBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
}

func (p GlobalGeodetic) ToGlobalGeodetic(c Coordinate) (Coordinate, error) {
	if err := CheckCRS(p, c); err != nil {
		return Coordinate{}, err
	}
	return NewCoordinate(c.X, c.Y, EPSG4326), nil
}

func (p GlobalGeodetic) FromGlobalGeodetic(c Coordinate) (Coordinate, error) {
	return p.ToGlobalGeodetic(c)
}

// SphericalMercator is EPSG:3857, the spherical "web" Mercator
type SphericalMercator struct{}

// NewSphericalMercator returns the EPSG:3857 profile
func NewSphericalMercator() SphericalMercator { return SphericalMercator{} }

func (SphericalMercator) CRS() CoordinateReferenceSystem { return EPSG3857 }
func (SphericalMercator) Name() string                   { return "Web Mercator" }
func (SphericalMercator) Description() string {
	return "Projection used in many popular web mapping applications (Google/Bing/OpenStreetMap/etc). Sometimes known as EPSG:900913."
}
func (SphericalMercator) WellKnownText() string { return sphericalMercatorWKT }
func (SphericalMercator) Precision() int        { return 2 }

func (SphericalMercator) Bounds() BoundingBox {
	return mercatorBounds()
}

func (p SphericalMercator) ToGlobalGeodetic(c Coordinate) (Coordinate, error) {
	if err := CheckCRS(p, c); err != nil {
		return Coordinate{}, err
	}
	lon := degrees(c.X / EarthEquatorialRadius)
	lat := degrees(math.Pi/2 - 2*math.Atan(math.Exp(-c.Y/EarthEquatorialRadius)))
	return NewCoordinate(lon, lat, EPSG4326), nil
}

func (p SphericalMercator) FromGlobalGeodetic(c Coordinate) (Coordinate, error) {
	if err := CheckCRS(GlobalGeodetic{}, c); err != nil {
		return Coordinate{}, err
	}
	x := EarthEquatorialRadius * radians(c.X)
	y := EarthEquatorialRadius * math.Log(math.Tan(math.Pi/4+radians(c.Y)/2))
	return NewCoordinate(x, y, EPSG3857), nil
}

// EllipsoidalMercator is EPSG:3395, Mercator on the WGS 84 ellipsoid
type EllipsoidalMercator struct{}

// NewEllipsoidalMercator returns the EPSG:3395 profile
func NewEllipsoidalMercator() EllipsoidalMercator { return EllipsoidalMercator{} }

// eccentricity of the WGS 84 ellipsoid
var eccentricity = func() float64 {
	f := 1 / InverseFlattening
	return math.Sqrt(f * (2 - f))
}()

const (
	inverseMaxIterations = 100
	inverseTolerance     = 1e-15
)

func (EllipsoidalMercator) CRS() CoordinateReferenceSystem { return EPSG3395 }
func (EllipsoidalMercator) Name() string                   { return "World Mercator" }
func (EllipsoidalMercator) Description() string            { return "World (Ellipsoidal) Mercator" }
func (EllipsoidalMercator) WellKnownText() string          { return ellipsoidalMercatorWKT }
func (EllipsoidalMercator) Precision() int                 { return 2 }

func (EllipsoidalMercator) Bounds() BoundingBox {
	return mercatorBounds()
}

func (p EllipsoidalMercator) ToGlobalGeodetic(c Coordinate) (Coordinate, error) {
	if err := CheckCRS(p, c); err != nil {
		return Coordinate{}, err
	}
	lon := degrees(c.X / EarthEquatorialRadius)
	return NewCoordinate(lon, degrees(inverseEllipsoidalLatitude(c.Y)), EPSG4326), nil
}

func (p EllipsoidalMercator) FromGlobalGeodetic(c Coordinate) (Coordinate, error) {
	if err := CheckCRS(GlobalGeodetic{}, c); err != nil {
		return Coordinate{}, err
	}
	sinLat := math.Sin(radians(c.Y))
	x := EarthEquatorialRadius * radians(c.X)
	y := EarthEquatorialRadius*math.Atanh(sinLat) - EarthEquatorialRadius*eccentricity*math.Atanh(eccentricity*sinLat)
	return NewCoordinate(x, y, EPSG3395), nil
}

// inverseEllipsoidalLatitude solves y = a·atanh(sinφ) − a·e·atanh(e·sinφ) for φ by
// fixed point iteration on sinφ.
func inverseEllipsoidalLatitude(y float64) float64 {
	ratio := y / EarthEquatorialRadius
	prev := math.Tanh(ratio)
	for i := 0; i < inverseMaxIterations; i++ {
		next := math.Tanh(ratio + eccentricity*math.Atanh(eccentricity*prev))
		if math.Abs(next-prev) <= inverseTolerance {
			prev = next
			break
		}
		prev = next
	}
	return math.Asin(prev)
}

func mercatorBounds() BoundingBox {
	extent := math.Pi * EarthEquatorialRadius
	return BoundingBox{MinX: -extent, MinY: -extent, MaxX: extent, MaxY: extent}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
