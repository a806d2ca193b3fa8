// pkg/wkb/reader.go - Byte-order aware cursor over a WKB buffer
package wkb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/valpere/geopackage/pkg/geometry"
)

// ByteOrder is the WKB byte order marker
type ByteOrder byte

// Byte order markers
const (
	BigEndian    ByteOrder = 0 // XDR
	LittleEndian ByteOrder = 1 // NDR
)

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", byte(o))
	}
}

// Binary returns the encoding/binary order matching o
func (o ByteOrder) Binary() binary.AppendByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// headerSize is the byte order marker plus the type code
const headerSize = 5

// Reader walks a WKB buffer. Each nested geometry may switch the byte order;
// the Factory restores the parent's order once a member is read.
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	depth int
}

// NewReader creates a reader positioned at the start of data
func NewReader(data []byte) *Reader {
	return &Reader{data: data, order: binary.BigEndian}
}

// Offset returns the current read position
func (r *Reader) Offset() int { return r.pos }

// Depth returns the nesting depth of the geometry being read; the root is 1
func (r *Reader) Depth() int { return r.depth }

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Malformed builds a MalformedGeometryError at the current position
func (r *Reader) Malformed(err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &MalformedGeometryError{Offset: r.pos, Depth: r.depth, Err: err}
}

// ReadByte reads one byte
func (r *Reader) ReadByte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, r.Malformed(ErrTruncated, "need 1 byte")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint32 reads an unsigned 32-bit integer in the current byte order
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, r.Malformed(ErrTruncated, "need 4 bytes, have %d", r.Remaining())
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadFloat64 reads an IEEE-754 double in the current byte order
func (r *Reader) ReadFloat64() (float64, error) {
	if r.Remaining() < 8 {
		return 0, r.Malformed(ErrTruncated, "need 8 bytes, have %d", r.Remaining())
	}
	v := math.Float64frombits(r.order.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

// ReadCount reads an element count and checks that count elements of at least
// minSize bytes each can still fit in the buffer.
func (r *Reader) ReadCount(minSize int) (int, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if minSize > 0 && uint64(n)*uint64(minSize) > uint64(r.Remaining()) {
		return 0, r.Malformed(ErrTruncated, "count %d needs at least %d bytes, have %d", n, uint64(n)*uint64(minSize), r.Remaining())
	}
	return int(n), nil
}

// ReadCoordinate reads one coordinate with the given layout
func (r *Reader) ReadCoordinate(layout geometry.Layout) (geometry.Coordinate, error) {
	var values [4]float64
	stride := layout.Stride()
	for i := 0; i < stride; i++ {
		v, err := r.ReadFloat64()
		if err != nil {
			return geometry.Coordinate{}, err
		}
		values[i] = v
	}
	return geometry.CoordinateFromValues(layout, values[:stride]...)
}

// ReadLinearString reads a point count followed by that many coordinates
func (r *Reader) ReadLinearString(layout geometry.Layout) (geometry.LinearString, error) {
	n, err := r.ReadCount(8 * layout.Stride())
	if err != nil {
		return geometry.LinearString{}, err
	}
	coords := make([]geometry.Coordinate, 0, n)
	for i := 0; i < n; i++ {
		c, err := r.ReadCoordinate(layout)
		if err != nil {
			return geometry.LinearString{}, err
		}
		coords = append(coords, c)
	}
	return geometry.NewLinearString(layout, coords...)
}

// readHeader consumes the byte order marker and type code, switching the
// reader to the declared order.
func (r *Reader) readHeader() (uint32, error) {
	if r.Remaining() < headerSize {
		return 0, r.Malformed(ErrTruncated, "need %d header bytes, have %d", headerSize, r.Remaining())
	}
	marker, _ := r.ReadByte()
	switch ByteOrder(marker) {
	case BigEndian:
		r.order = binary.BigEndian
	case LittleEndian:
		r.order = binary.LittleEndian
	default:
		r.pos--
		return 0, r.Malformed(ErrUnknownByteOrder, "marker %d", marker)
	}
	return r.ReadUint32()
}
