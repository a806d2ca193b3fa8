// cmd/tile.go - Tile matrix math commands
package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/tile"
	"github.com/valpere/geopackage/pkg/crs"
	"github.com/valpere/geopackage/pkg/tilematrix"
)

// tileCmd groups the tile math subcommands
var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Tile matrix math for the supported CRS profiles",
	Long: `Tile matrix math for the supported CRS profiles.

The matrix covers --bounds (default: the profile bounds) and has --width by --height
tiles. When neither is given the dimensions come from --zoom: 2^zoom square, twice as
wide for EPSG:4326.`,
}

var tileLocateCmd = &cobra.Command{
	Use:   "locate x y",
	Short: "Find the tile containing a coordinate",
	Long: `Find the column and row of the tile containing a CRS coordinate.

Examples:
  gpkg-tool tile locate --crs EPSG:3857 --zoom 4 -- -8238310 4970241
  gpkg-tool tile locate --crs EPSG:4326 --zoom 2 --origin lower-left 10.5 45.2`,
	Args: cobra.ExactArgs(2),
	RunE: runTileLocate,
}

var tileBoundsCmd = &cobra.Command{
	Use:   "bounds column row",
	Short: "Compute the bounds of a tile",
	Long: `Compute the bounds of a tile in the matrix CRS and in geodetic longitude/latitude.

Examples:
  gpkg-tool tile bounds --crs EPSG:3857 --zoom 1 1 0
  gpkg-tool tile bounds --crs EPSG:3395 --bounds=-20037508.34,-20037508.34,20037508.34,20037508.34 --width 4 --height 4 2 1`,
	Args: cobra.ExactArgs(2),
	RunE: runTileBounds,
}

var tileTransformCmd = &cobra.Command{
	Use:   "transform column row",
	Short: "Convert a tile address between origins",
	Long: `Convert a tile address from --origin to --to-origin within the same matrix.

Examples:
  # XYZ (upper-left) to TMS (lower-left) at zoom 3
  gpkg-tool tile transform --zoom 3 --origin upper-left --to-origin lower-left 2 1`,
	Args: cobra.ExactArgs(2),
	RunE: runTileTransform,
}

func init() {
	rootCmd.AddCommand(tileCmd)
	tileCmd.AddCommand(tileLocateCmd)
	tileCmd.AddCommand(tileBoundsCmd)
	tileCmd.AddCommand(tileTransformCmd)

	tileCmd.PersistentFlags().String("crs", "EPSG:3857", "CRS of the tile matrix")
	tileCmd.PersistentFlags().Int("zoom", 0, "zoom level used to derive the matrix dimensions")
	tileCmd.PersistentFlags().Int("width", 0, "matrix width in tiles (overrides --zoom)")
	tileCmd.PersistentFlags().Int("height", 0, "matrix height in tiles (overrides --zoom)")
	tileCmd.PersistentFlags().String("bounds", "", "matrix bounds: 'min_x,min_y,max_x,max_y' in CRS units")
	tileCmd.PersistentFlags().String("origin", "upper-left", "tile origin (upper-left, lower-left, upper-right, lower-right)")

	tileTransformCmd.Flags().String("to-origin", "lower-left", "target tile origin")
}

// matrix is the tile matrix described by the tile command flags
type matrix struct {
	profile crs.Profile
	bounds  crs.BoundingBox
	dims    tilematrix.Dimensions
	origin  tilematrix.Origin
}

func matrixFromFlags(cmd *cobra.Command) (*matrix, error) {
	crsName, _ := cmd.Flags().GetString("crs")
	zoom, _ := cmd.Flags().GetInt("zoom")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	boundsStr, _ := cmd.Flags().GetString("bounds")
	originStr, _ := cmd.Flags().GetString("origin")

	profile, err := resolveProfile(crsName)
	if err != nil {
		return nil, err
	}

	m := &matrix{profile: profile, bounds: profile.Bounds()}

	if boundsStr != "" {
		if m.bounds, err = parseBoundingBox(boundsStr); err != nil {
			return nil, err
		}
	}

	if width > 0 || height > 0 {
		m.dims, err = tilematrix.NewDimensions(width, height)
	} else {
		m.dims = tile.Dimensions(profile, zoom)
		err = m.dims.Validate()
	}
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid matrix dimensions", err)
	}

	if m.origin, err = tilematrix.ParseOrigin(originStr); err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid origin", err)
	}
	return m, nil
}

// tileAddress is the output of tile locate and tile transform
type tileAddress struct {
	Column int    `json:"column"`
	Row    int    `json:"row"`
	Origin string `json:"origin"`
	Matrix string `json:"matrix"`
}

// tileBoundsReport is the output of tile bounds
type tileBoundsReport struct {
	Column   int        `json:"column"`
	Row      int        `json:"row"`
	CRS      string     `json:"crs"`
	Bounds   [4]float64 `json:"bounds"`
	Geodetic [4]float64 `json:"geodetic"`
}

func runTileLocate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := matrixFromFlags(cmd)
	if err != nil {
		return err
	}
	values, err := parseFloats(args)
	if err != nil {
		return err
	}

	c := crs.NewCoordinate(values[0], values[1], m.profile.CRS())
	tc, err := tilematrix.CrsToTileCoordinate(m.profile, c, m.bounds, m.dims, m.origin)
	if err != nil {
		return tileMathError(err)
	}

	return writeJSON(cmd, tileAddress{
		Column: tc.Column,
		Row:    tc.Row,
		Origin: m.origin.String(),
		Matrix: m.dims.String(),
	}, cfg.Output.Pretty)
}

func runTileBounds(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := matrixFromFlags(cmd)
	if err != nil {
		return err
	}
	column, row, err := parseTileAddress(args)
	if err != nil {
		return err
	}

	b, err := tilematrix.TileBounds(m.profile, column, row, m.bounds, m.dims, m.origin)
	if err != nil {
		return tileMathError(err)
	}
	g, err := crs.GeodeticBounds(m.profile, b)
	if err != nil {
		return tileMathError(err)
	}

	b = b.Round(m.profile.Precision())
	g = g.Round(crs.NewGlobalGeodetic().Precision())
	return writeJSON(cmd, tileBoundsReport{
		Column:   column,
		Row:      row,
		CRS:      m.profile.CRS().String(),
		Bounds:   [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY},
		Geodetic: [4]float64{g.MinX, g.MinY, g.MaxX, g.MaxY},
	}, cfg.Output.Pretty)
}

func runTileTransform(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := matrixFromFlags(cmd)
	if err != nil {
		return err
	}
	column, row, err := parseTileAddress(args)
	if err != nil {
		return err
	}

	toStr, _ := cmd.Flags().GetString("to-origin")
	to, err := tilematrix.ParseOrigin(toStr)
	if err != nil {
		return internal.NewError(internal.ErrorCodeValidation, "invalid target origin", err)
	}

	tc, err := m.origin.Transform(to, column, row, m.dims)
	if err != nil {
		return tileMathError(err)
	}

	return writeJSON(cmd, tileAddress{
		Column: tc.Column,
		Row:    tc.Row,
		Origin: to.String(),
		Matrix: m.dims.String(),
	}, cfg.Output.Pretty)
}

// tileMathError maps tile math failures to error codes
func tileMathError(err error) error {
	switch {
	case errors.Is(err, tilematrix.ErrOutOfBounds):
		return internal.NewError(internal.ErrorCodeNotFound, "coordinate is outside the tile matrix", err)
	case errors.Is(err, crs.ErrInvalidArgument):
		return internal.NewError(internal.ErrorCodeValidation, "invalid tile matrix argument", err)
	default:
		return internal.NewError(internal.ErrorCodeProcessing, "tile math failed", err)
	}
}

// parseTileAddress reads column and row arguments
func parseTileAddress(args []string) (int, int, error) {
	column, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("invalid column: %s", args[0]), err)
	}
	row, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("invalid row: %s", args[1]), err)
	}
	return column, row, nil
}

// parseBoundingBox parses a bounding box string
func parseBoundingBox(bbox string) (crs.BoundingBox, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return crs.BoundingBox{}, internal.NewError(internal.ErrorCodeValidation,
			"bounding box must have 4 values: min_x,min_y,max_x,max_y", nil)
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return crs.BoundingBox{}, internal.NewError(internal.ErrorCodeValidation,
				fmt.Sprintf("invalid coordinate value: %s", part), err)
		}
		coords[i] = val
	}

	b, err := crs.NewBoundingBox(coords[0], coords[1], coords[2], coords[3])
	if err != nil {
		return crs.BoundingBox{}, internal.NewError(internal.ErrorCodeValidation, "invalid bounding box", err)
	}
	return b, nil
}
