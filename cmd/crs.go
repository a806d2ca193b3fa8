// cmd/crs.go - Coordinate reference system commands
package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/pkg/crs"
)

// registry resolves every CRS named on the command line
var registry = crs.DefaultRegistry()

// crsCmd groups the CRS subcommands
var crsCmd = &cobra.Command{
	Use:   "crs",
	Short: "List coordinate reference systems and convert coordinates",
}

var crsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the supported CRS profiles",
	Long: `List the supported CRS profiles with their names, precision and native bounds.

Examples:
  gpkg-tool crs list
  gpkg-tool crs list --json --pretty`,
	Args: cobra.NoArgs,
	RunE: runCRSList,
}

var crsConvertCmd = &cobra.Command{
	Use:   "convert x y [x y ...]",
	Short: "Convert coordinates between CRS profiles",
	Long: `Convert coordinate pairs from one supported CRS to another through geodetic
longitude/latitude. Output values are rounded to the target profile's precision.

Examples:
  # Web Mercator to longitude/latitude
  gpkg-tool crs convert --from EPSG:3857 --to EPSG:4326 -- -8238310.24 4970241.33

  # Longitude/latitude to World Mercator
  gpkg-tool crs convert --from EPSG:4326 --to EPSG:3395 -74.006 40.7128`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return fmt.Errorf("expected x y pairs, got %d values", len(args))
		}
		return nil
	},
	RunE: runCRSConvert,
}

func init() {
	rootCmd.AddCommand(crsCmd)
	crsCmd.AddCommand(crsListCmd)
	crsCmd.AddCommand(crsConvertCmd)

	crsListCmd.Flags().Bool("json", false, "write JSON instead of a table")
	crsListCmd.Flags().Bool("wkt", false, "include the well-known text definition")

	crsConvertCmd.Flags().String("from", "EPSG:4326", "source CRS")
	crsConvertCmd.Flags().String("to", "EPSG:3857", "target CRS")
}

// profileReport describes one registered profile
type profileReport struct {
	CRS         string     `json:"crs"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Precision   int        `json:"precision"`
	Bounds      [4]float64 `json:"bounds"`
	WKT         string     `json:"wkt,omitempty"`
}

func runCRSList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	withWKT, _ := cmd.Flags().GetBool("wkt")

	var reports []profileReport
	for _, p := range registry.Profiles() {
		b := p.Bounds()
		r := profileReport{
			CRS:         p.CRS().String(),
			Name:        p.Name(),
			Description: p.Description(),
			Precision:   p.Precision(),
			Bounds:      [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY},
		}
		if withWKT {
			r.WKT = p.WellKnownText()
		}
		reports = append(reports, r)
	}

	if asJSON {
		return writeJSON(cmd, reports, cfg.Output.Pretty)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CRS\tNAME\tPRECISION\tBOUNDS")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g,%g,%g,%g\n", r.CRS, r.Name, r.Precision,
			r.Bounds[0], r.Bounds[1], r.Bounds[2], r.Bounds[3])
		if withWKT {
			fmt.Fprintf(w, "\t%s\t\t\n", r.WKT)
		}
	}
	return w.Flush()
}

func runCRSConvert(cmd *cobra.Command, args []string) error {
	fromName, _ := cmd.Flags().GetString("from")
	toName, _ := cmd.Flags().GetString("to")

	from, err := resolveProfile(fromName)
	if err != nil {
		return err
	}
	to, err := resolveProfile(toName)
	if err != nil {
		return err
	}

	values, err := parseFloats(args)
	if err != nil {
		return err
	}

	for i := 0; i < len(values); i += 2 {
		c, err := convertCoordinate(from, to, crs.NewCoordinate(values[i], values[i+1], from.CRS()))
		if err != nil {
			return internal.NewError(internal.ErrorCodeProcessing,
				fmt.Sprintf("failed to convert (%g, %g)", values[i], values[i+1]), err)
		}
		precision := to.Precision()
		fmt.Fprintf(cmd.OutOrStdout(), "%.*f %.*f\n", precision, c.X, precision, c.Y)
	}
	return nil
}

// convertCoordinate converts c between profiles through geodetic coordinates
func convertCoordinate(from, to crs.Profile, c crs.Coordinate) (crs.Coordinate, error) {
	geodetic, err := from.ToGlobalGeodetic(c)
	if err != nil {
		return crs.Coordinate{}, err
	}
	return to.FromGlobalGeodetic(geodetic)
}

// resolveProfile parses AUTHORITY:CODE and looks it up in the registry
func resolveProfile(name string) (crs.Profile, error) {
	id, err := crs.Parse(name)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid CRS", err)
	}
	p, err := registry.Resolve(id)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeNotFound, "unsupported CRS", err)
	}
	return p, nil
}

func parseFloats(args []string) ([]float64, error) {
	values := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("invalid number: %s", arg), err)
		}
		values[i] = v
	}
	return values, nil
}
