// pkg/wkb/interop_test.go - Byte compatibility with go-geom's WKB codec
package wkb

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	gowkb "github.com/twpayne/go-geom/encoding/wkb"

	"github.com/valpere/geopackage/pkg/geometry"
)

var geomLayouts = map[geometry.Layout]geom.Layout{
	geometry.XY:   geom.XY,
	geometry.XYZ:  geom.XYZ,
	geometry.XYM:  geom.XYM,
	geometry.XYZM: geom.XYZM,
}

var geomOrders = map[ByteOrder]binary.ByteOrder{
	BigEndian:    gowkb.XDR,
	LittleEndian: gowkb.NDR,
}

func TestGoGeomReadsEncode(t *testing.T) {
	for _, layout := range layouts {
		for name, g := range samples(t, layout) {
			if strings.HasPrefix(name, "empty") {
				continue
			}
			for order, geomOrder := range geomOrders {
				t.Run(layout.String()+"/"+name+"/"+order.String(), func(t *testing.T) {
					data, err := Encode(g, order)
					require.NoError(t, err)

					parsed, err := gowkb.Unmarshal(data)
					require.NoError(t, err)
					assert.Equal(t, geomLayouts[layout], parsed.Layout())

					// go-geom writes the same bytes back
					again, err := gowkb.Marshal(parsed, geomOrder)
					require.NoError(t, err)
					assert.Equal(t, data, again)

					got, err := Decode(again, DefaultFactory())
					require.NoError(t, err)
					assert.Equal(t, g, got)
				})
			}
		}
	}
}

func TestDecodeGoGeomMarshal(t *testing.T) {
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			stride := layout.Stride()
			flat := make([]float64, 0, 3*stride)
			want := make([]geometry.Coordinate, 0, 3)
			for _, p := range [][2]float64{{0, 0}, {4, 0}, {4, 3}} {
				c := coord(layout, p[0], p[1])
				flat = append(flat, c.Values()...)
				want = append(want, c)
			}

			line := geom.NewLineStringFlat(geomLayouts[layout], flat)
			for order, geomOrder := range geomOrders {
				data, err := gowkb.Marshal(line, geomOrder)
				require.NoError(t, err)

				got, err := Decode(data, nil)
				require.NoError(t, err, order.String())

				ls, ok := got.(geometry.LineString)
				require.True(t, ok)
				assert.Equal(t, layout, ls.Layout())
				assert.Equal(t, want, ls.Coordinates())
			}
		})
	}
}
