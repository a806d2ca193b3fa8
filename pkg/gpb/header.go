// pkg/gpb/header.go - GeoPackage geometry BLOB header
package gpb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/wkb"
)

// ErrInvalidHeader is returned for BLOBs that do not start with a valid GeoPackage header
var ErrInvalidHeader = errors.New("gpb: invalid geometry header")

// Magic is the two byte prefix of every GeoPackage geometry BLOB
var Magic = [2]byte{'G', 'P'}

// Version1 is the version byte written for GeoPackage 1.x
const Version1 byte = 0

// minHeaderSize covers magic, version, flags and srs_id
const minHeaderSize = 8

// Flag bits
const (
	flagLittleEndian   = 0b0000_0001
	flagEnvelopeMask   = 0b0000_1110
	flagEmpty          = 0b0001_0000
	flagExtended       = 0b0010_0000
	flagReservedMask   = 0b1100_0000
	envelopeFlagOffset = 1
)

// BinaryType distinguishes standard geometries from extension geometries
type BinaryType uint8

// Binary types
const (
	StandardBinary BinaryType = 0
	ExtendedBinary BinaryType = 1
)

// Header is the fixed prefix of a GeoPackage geometry BLOB
type Header struct {
	Version    byte
	BinaryType BinaryType
	Empty      bool
	ByteOrder  wkb.ByteOrder
	SRSID      int32
	Envelope   geometry.Envelope
}

// Size returns the encoded header length
func (h Header) Size() int {
	return minHeaderSize + 8*h.Envelope.Indicator().ArraySize()
}

// Flags packs the flag byte
func (h Header) Flags() byte {
	var flags byte
	if h.ByteOrder == wkb.LittleEndian {
		flags |= flagLittleEndian
	}
	flags |= byte(h.Envelope.Indicator()) << envelopeFlagOffset
	if h.Empty {
		flags |= flagEmpty
	}
	if h.BinaryType == ExtendedBinary {
		flags |= flagExtended
	}
	return flags
}

// Append writes the header onto dst
func (h Header) Append(dst []byte) []byte {
	order := h.ByteOrder.Binary()
	dst = append(dst, Magic[0], Magic[1], h.Version, h.Flags())
	dst = order.AppendUint32(dst, uint32(h.SRSID))
	for _, v := range h.Envelope.Array() {
		dst = order.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

// ReadHeader parses the header at the start of data and returns it with its length
func ReadHeader(data []byte) (Header, int, error) {
	if len(data) < minHeaderSize {
		return Header{}, 0, fmt.Errorf("%w: need at least %d bytes, have %d", ErrInvalidHeader, minHeaderSize, len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] {
		return Header{}, 0, fmt.Errorf("%w: magic %q", ErrInvalidHeader, data[:2])
	}

	h := Header{Version: data[2]}
	if h.Version != Version1 {
		return Header{}, 0, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, h.Version)
	}

	flags := data[3]
	if flags&flagReservedMask != 0 {
		return Header{}, 0, fmt.Errorf("%w: reserved flag bits set in 0x%02x", ErrInvalidHeader, flags)
	}

	var order binary.ByteOrder = binary.BigEndian
	h.ByteOrder = wkb.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
		h.ByteOrder = wkb.LittleEndian
	}
	h.Empty = flags&flagEmpty != 0
	if flags&flagExtended != 0 {
		h.BinaryType = ExtendedBinary
	}

	indicator := geometry.ContentsIndicator((flags & flagEnvelopeMask) >> envelopeFlagOffset)
	if !indicator.Valid() {
		return Header{}, 0, fmt.Errorf("%w: envelope contents indicator %d", ErrInvalidHeader, indicator)
	}

	size := minHeaderSize + 8*indicator.ArraySize()
	if len(data) < size {
		return Header{}, 0, fmt.Errorf("%w: envelope %s needs %d bytes, have %d", ErrInvalidHeader, indicator, size, len(data))
	}

	h.SRSID = int32(order.Uint32(data[4:8]))

	values := make([]float64, indicator.ArraySize())
	for i := range values {
		values[i] = math.Float64frombits(order.Uint64(data[minHeaderSize+8*i:]))
	}
	env, err := geometry.NewEnvelope(indicator, values...)
	if err != nil {
		return Header{}, 0, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	h.Envelope = env

	return h, size, nil
}
