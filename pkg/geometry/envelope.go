// pkg/geometry/envelope.go - Axis-aligned bounding envelopes in up to four dimensions
package geometry

import (
	"fmt"
	"math"
)

// ContentsIndicator tags which dimensions an envelope carries.
// The numeric values match the GeoPackage binary header flag bits.
type ContentsIndicator uint8

// Envelope contents indicators
const (
	NoEnvelope   ContentsIndicator = 0
	EnvelopeXY   ContentsIndicator = 1
	EnvelopeXYZ  ContentsIndicator = 2
	EnvelopeXYM  ContentsIndicator = 3
	EnvelopeXYZM ContentsIndicator = 4
)

// IndicatorFor returns the contents indicator matching a coordinate layout
func IndicatorFor(l Layout) ContentsIndicator {
	switch l {
	case XYZ:
		return EnvelopeXYZ
	case XYM:
		return EnvelopeXYM
	case XYZM:
		return EnvelopeXYZM
	default:
		return EnvelopeXY
	}
}

// Valid reports whether ci is a defined indicator
func (ci ContentsIndicator) Valid() bool {
	return ci <= EnvelopeXYZM
}

// ArraySize returns the number of doubles stored for this indicator
func (ci ContentsIndicator) ArraySize() int {
	switch ci {
	case EnvelopeXY:
		return 4
	case EnvelopeXYZ, EnvelopeXYM:
		return 6
	case EnvelopeXYZM:
		return 8
	default:
		return 0
	}
}

// HasZ reports whether the indicator includes the z range
func (ci ContentsIndicator) HasZ() bool {
	return ci == EnvelopeXYZ || ci == EnvelopeXYZM
}

// HasM reports whether the indicator includes the m range
func (ci ContentsIndicator) HasM() bool {
	return ci == EnvelopeXYM || ci == EnvelopeXYZM
}

func (ci ContentsIndicator) String() string {
	switch ci {
	case NoEnvelope:
		return "NoEnvelope"
	case EnvelopeXY:
		return "Xy"
	case EnvelopeXYZ:
		return "Xyz"
	case EnvelopeXYM:
		return "Xym"
	case EnvelopeXYZM:
		return "Xyzm"
	default:
		return fmt.Sprintf("ContentsIndicator(%d)", uint8(ci))
	}
}

// Envelope is an axis-aligned bounding box. The zero value is the empty envelope.
type Envelope struct {
	indicator  ContentsIndicator
	minX, maxX float64
	minY, maxY float64
	minZ, maxZ float64
	minM, maxM float64
}

// EmptyEnvelope returns an envelope with no numeric payload
func EmptyEnvelope() Envelope {
	return Envelope{}
}

// NewEnvelope builds an envelope from values in array order:
// minX, maxX, minY, maxY, then minZ, maxZ and minM, maxM when present.
func NewEnvelope(indicator ContentsIndicator, values ...float64) (Envelope, error) {
	if !indicator.Valid() {
		return Envelope{}, fmt.Errorf("%w: %d", ErrInvalidIndicator, indicator)
	}
	if len(values) != indicator.ArraySize() {
		return Envelope{}, fmt.Errorf("geometry: envelope %s needs %d values, got %d", indicator, indicator.ArraySize(), len(values))
	}
	if indicator == NoEnvelope {
		return Envelope{}, nil
	}

	e := Envelope{
		indicator: indicator,
		minX:      values[0],
		maxX:      values[1],
		minY:      values[2],
		maxY:      values[3],
	}
	next := 4
	if indicator.HasZ() {
		e.minZ, e.maxZ = values[next], values[next+1]
		next += 2
	}
	if indicator.HasM() {
		e.minM, e.maxM = values[next], values[next+1]
	}
	return e, nil
}

// EnvelopeOf returns the degenerate envelope of a single coordinate
func EnvelopeOf(c Coordinate) Envelope {
	if c.IsEmpty() {
		return Envelope{}
	}
	return Envelope{
		indicator: IndicatorFor(c.layout),
		minX:      c.x,
		maxX:      c.x,
		minY:      c.y,
		maxY:      c.y,
		minZ:      c.z,
		maxZ:      c.z,
		minM:      c.m,
		maxM:      c.m,
	}
}

// Indicator returns the contents indicator
func (e Envelope) Indicator() ContentsIndicator { return e.indicator }

// IsEmpty reports whether the envelope carries no payload
func (e Envelope) IsEmpty() bool { return e.indicator == NoEnvelope }

// MinX returns the minimum x
func (e Envelope) MinX() float64 { return e.minX }

// MaxX returns the maximum x
func (e Envelope) MaxX() float64 { return e.maxX }

// MinY returns the minimum y
func (e Envelope) MinY() float64 { return e.minY }

// MaxY returns the maximum y
func (e Envelope) MaxY() float64 { return e.maxY }

// ZRange returns the z range and whether it is present
func (e Envelope) ZRange() (float64, float64, bool) {
	return e.minZ, e.maxZ, e.indicator.HasZ()
}

// MRange returns the m range and whether it is present
func (e Envelope) MRange() (float64, float64, bool) {
	return e.minM, e.maxM, e.indicator.HasM()
}

// Array returns the envelope values in GeoPackage header order
func (e Envelope) Array() []float64 {
	if e.indicator == NoEnvelope {
		return nil
	}
	values := make([]float64, 0, e.indicator.ArraySize())
	values = append(values, e.minX, e.maxX, e.minY, e.maxY)
	if e.indicator.HasZ() {
		values = append(values, e.minZ, e.maxZ)
	}
	if e.indicator.HasM() {
		values = append(values, e.minM, e.maxM)
	}
	return values
}

// Combine returns the union of two envelopes. The empty envelope is the identity;
// any other pair must share the same contents indicator.
func (e Envelope) Combine(other Envelope) (Envelope, error) {
	if e.IsEmpty() {
		return other, nil
	}
	if other.IsEmpty() {
		return e, nil
	}
	if e.indicator != other.indicator {
		return Envelope{}, fmt.Errorf("%w: %s and %s", ErrEnvelopeMismatch, e.indicator, other.indicator)
	}

	return Envelope{
		indicator: e.indicator,
		minX:      math.Min(e.minX, other.minX),
		maxX:      math.Max(e.maxX, other.maxX),
		minY:      math.Min(e.minY, other.minY),
		maxY:      math.Max(e.maxY, other.maxY),
		minZ:      math.Min(e.minZ, other.minZ),
		maxZ:      math.Max(e.maxZ, other.maxZ),
		minM:      math.Min(e.minM, other.minM),
		maxM:      math.Max(e.maxM, other.maxM),
	}, nil
}

// Contains reports whether (x, y) lies inside the envelope, edges included
func (e Envelope) Contains(x, y float64) bool {
	if e.IsEmpty() {
		return false
	}
	return x >= e.minX && x <= e.maxX && y >= e.minY && y <= e.maxY
}

// Intersects reports whether the xy extents of two envelopes overlap
func (e Envelope) Intersects(other Envelope) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return false
	}
	return e.minX <= other.maxX && other.minX <= e.maxX &&
		e.minY <= other.maxY && other.minY <= e.maxY
}

func (e Envelope) String() string {
	if e.IsEmpty() {
		return "Envelope(empty)"
	}
	return fmt.Sprintf("Envelope(%s %v)", e.indicator, e.Array())
}
