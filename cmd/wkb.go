// cmd/wkb.go - Well-Known Binary decode and encode commands
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/output"
	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/wkb"
)

// wkbCmd groups the WKB subcommands
var wkbCmd = &cobra.Command{
	Use:   "wkb",
	Short: "Decode and encode Well-Known Binary geometries",
}

var wkbDecodeCmd = &cobra.Command{
	Use:   "decode [hex]",
	Short: "Decode a hex encoded WKB geometry",
	Long: `Decode a Well-Known Binary geometry given as hex, either as arguments or on stdin.
Both byte orders and the ISO Z, M and ZM type codes are accepted.

Examples:
  # Decode POINT(2 4)
  gpkg-tool wkb decode 000000000140000000000000004010000000000000

  # Decode from stdin with pretty output
  echo "0101000000000000000000f03f0000000000000040" | gpkg-tool wkb decode --pretty`,
	RunE: runWKBDecode,
}

var wkbEncodeCmd = &cobra.Command{
	Use:   "encode [geojson]",
	Short: "Encode a GeoJSON geometry as hex WKB",
	Long: `Encode a GeoJSON geometry, given as an argument or on stdin, as Well-Known Binary.
The byte order comes from --byte-order.

Examples:
  gpkg-tool wkb encode '{"type":"Point","coordinates":[2,4]}'
  gpkg-tool wkb encode --byte-order little < geometry.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWKBEncode,
}

func init() {
	rootCmd.AddCommand(wkbCmd)
	wkbCmd.AddCommand(wkbDecodeCmd)
	wkbCmd.AddCommand(wkbEncodeCmd)
}

// geometryReport describes a decoded geometry
type geometryReport struct {
	Type     string            `json:"type"`
	TypeCode uint32            `json:"type_code"`
	Layout   string            `json:"layout"`
	Empty    bool              `json:"empty"`
	Envelope []float64         `json:"envelope,omitempty"`
	Geometry *geojson.Geometry `json:"geometry"`
}

func newGeometryReport(g geometry.Geometry) (*geometryReport, error) {
	env, err := g.Envelope()
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, "failed to compute envelope", err)
	}
	og, err := output.ToOrb(g)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeProcessing, "failed to convert geometry", err)
	}

	r := &geometryReport{
		Type:     g.TypeName(),
		TypeCode: g.TypeCode(),
		Layout:   g.Layout().String(),
		Empty:    g.IsEmpty(),
		Geometry: geojson.NewGeometry(og),
	}
	if !env.IsEmpty() {
		r.Envelope = env.Array()
	}
	return r, nil
}

func runWKBDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := readHexInput(cmd, args)
	if err != nil {
		return err
	}

	g, err := wkb.Decode(data, cfg.Factory())
	if err != nil {
		return malformed(err)
	}

	report, err := newGeometryReport(g)
	if err != nil {
		return err
	}
	return writeJSON(cmd, report, cfg.Output.Pretty)
}

func runWKBEncode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	g, err := readGeoJSONGeometry(cmd, args)
	if err != nil {
		return err
	}

	data, err := wkb.Encode(g, cfg.ByteOrder())
	if err != nil {
		return internal.NewError(internal.ErrorCodeProcessing, "failed to encode geometry", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
	return err
}

// readGeoJSONGeometry parses a GeoJSON geometry from the first argument or stdin
func readGeoJSONGeometry(cmd *cobra.Command, args []string) (geometry.Geometry, error) {
	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to read stdin", err)
		}
		text = string(data)
	}

	parsed, err := geojson.UnmarshalGeometry([]byte(strings.TrimSpace(text)))
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid GeoJSON geometry", err)
	}

	g, err := output.FromOrb(parsed.Geometry())
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "unsupported GeoJSON geometry", err)
	}
	return g, nil
}

// malformed classifies a decode failure
func malformed(err error) error {
	if wkb.IsMalformed(err) {
		if offset, ok := wkb.Offset(err); ok {
			return internal.NewError(internal.ErrorCodeMalformed, fmt.Sprintf("malformed geometry at byte %d", offset), err)
		}
		return internal.NewError(internal.ErrorCodeMalformed, "malformed geometry", err)
	}
	return internal.NewError(internal.ErrorCodeProcessing, "failed to decode geometry", err)
}
