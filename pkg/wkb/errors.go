// pkg/wkb/errors.go - Decode failures
package wkb

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedGeometry matches every decode failure caused by the input bytes
	ErrMalformedGeometry = errors.New("wkb: malformed geometry")

	ErrTruncated         = errors.New("wkb: truncated input")
	ErrUnknownByteOrder  = errors.New("wkb: unknown byte order")
	ErrUnknownType       = errors.New("wkb: unknown geometry type")
	ErrUnexpectedType    = errors.New("wkb: unexpected member type")
	ErrDimensionMismatch = errors.New("wkb: member Z/M does not match its parent")
	ErrTooDeep           = errors.New("wkb: nesting too deep")
	ErrTrailingBytes     = errors.New("wkb: trailing bytes after geometry")
)

// MalformedGeometryError reports where in the buffer decoding failed
type MalformedGeometryError struct {
	Offset int
	Depth  int
	Err    error
}

func (e *MalformedGeometryError) Error() string {
	return fmt.Sprintf("wkb: malformed geometry at offset %d (depth %d): %v", e.Offset, e.Depth, e.Err)
}

func (e *MalformedGeometryError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedGeometry) true for every MalformedGeometryError
func (e *MalformedGeometryError) Is(target error) bool {
	return target == ErrMalformedGeometry
}
