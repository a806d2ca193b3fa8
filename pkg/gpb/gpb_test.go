// pkg/gpb/gpb_test.go - Unit tests for GeoPackage geometry BLOBs
package gpb

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/wkb"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	line, err := geometry.NewLineString(geometry.XYZ,
		geometry.NewCoordinateZ(0, 0, 1),
		geometry.NewCoordinateZ(4, 0, 2),
		geometry.NewCoordinateZ(4, 3, 3),
	)
	require.NoError(t, err)

	tests := []struct {
		name          string
		opts          EncodeOptions
		wantIndicator geometry.ContentsIndicator
		wantSize      int
	}{
		{"big-endian with envelope", EncodeOptions{}, geometry.EnvelopeXYZ, 8 + 48},
		{"little-endian with envelope", EncodeOptions{ByteOrder: wkb.LittleEndian}, geometry.EnvelopeXYZ, 8 + 48},
		{"no envelope", EncodeOptions{OmitEnvelope: true}, geometry.NoEnvelope, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(line, 4326, tt.opts)
			require.NoError(t, err)

			h, g, err := Decode(data, wkb.DefaultFactory())
			require.NoError(t, err)
			assert.Equal(t, line, g)
			assert.Equal(t, int32(4326), h.SRSID)
			assert.Equal(t, tt.opts.ByteOrder, h.ByteOrder)
			assert.Equal(t, tt.wantIndicator, h.Envelope.Indicator())
			assert.Equal(t, tt.wantSize, h.Size())
			assert.False(t, h.Empty)

			if tt.wantIndicator != geometry.NoEnvelope {
				assert.Equal(t, []float64{0, 4, 0, 3, 1, 3}, h.Envelope.Array())
			}
		})
	}
}

func TestHeaderFlags(t *testing.T) {
	env, err := geometry.NewEnvelope(geometry.EnvelopeXYM, 0, 1, 0, 1, 0, 1)
	require.NoError(t, err)

	h := Header{
		BinaryType: ExtendedBinary,
		Empty:      true,
		ByteOrder:  wkb.LittleEndian,
		Envelope:   env,
	}
	assert.Equal(t, byte(0b0011_0111), h.Flags())
}

func TestEncodeEmptyGeometry(t *testing.T) {
	data, err := Encode(geometry.NewEmptyPoint(geometry.XY), 0, EncodeOptions{})
	require.NoError(t, err)

	h, g, err := Decode(data, nil)
	require.NoError(t, err)
	assert.True(t, h.Empty)
	assert.True(t, h.Envelope.IsEmpty())
	assert.True(t, g.IsEmpty())
}

func TestReadHeaderKnownBytes(t *testing.T) {
	// "GP", version 0, flags little-endian + xy envelope, srs_id 3857
	raw, err := hex.DecodeString("47500003" + "110f0000" +
		"000000000000f03f" + "0000000000000040" + "0000000000000840" + "0000000000001040")
	require.NoError(t, err)

	h, size, err := ReadHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, 40, size)
	assert.Equal(t, wkb.LittleEndian, h.ByteOrder)
	assert.Equal(t, int32(3857), h.SRSID)
	assert.Equal(t, []float64{1, 2, 3, 4}, h.Envelope.Array())
}

func TestReadHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{'G', 'P', 0}},
		{"bad magic", []byte{'X', 'P', 0, 0, 0, 0, 0, 0}},
		{"bad version", []byte{'G', 'P', 2, 0, 0, 0, 0, 0}},
		{"reserved bits", []byte{'G', 'P', 0, 0b0100_0000, 0, 0, 0, 0}},
		{"invalid indicator", []byte{'G', 'P', 0, 0b0000_1010, 0, 0, 0, 0}},
		{"envelope truncated", []byte{'G', 'P', 0, 0b0000_0010, 0, 0, 0, 0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadHeader(tt.data)
			require.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestDecodeMalformedBody(t *testing.T) {
	h := Header{SRSID: 4326}
	data := append(h.Append(nil), 0x01, 0x01)

	_, _, err := Decode(data, nil)
	require.ErrorIs(t, err, wkb.ErrMalformedGeometry)
}
