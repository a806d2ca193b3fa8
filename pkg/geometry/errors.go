// pkg/geometry/errors.go - Geometry construction errors
package geometry

import "errors"

var (
	// ErrLayoutMismatch is returned when parts of a geometry disagree on Z/M presence
	ErrLayoutMismatch = errors.New("geometry: layout mismatch")

	// ErrEnvelopeMismatch is returned when combining envelopes of different dimensionality
	ErrEnvelopeMismatch = errors.New("geometry: envelope dimensionality mismatch")

	// ErrInvalidIndicator is returned for an envelope contents indicator outside 0-4
	ErrInvalidIndicator = errors.New("geometry: invalid envelope contents indicator")

	// ErrNilGeometry is returned when a collection member is nil
	ErrNilGeometry = errors.New("geometry: nil member")
)
