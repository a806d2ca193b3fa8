// cmd/info.go - GeoPackage summary command
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/store"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarize the contents of a GeoPackage",
	Long: `Summarize a GeoPackage: its application id, spatial reference systems and every
table listed in gpkg_contents. Feature tables report their geometry column and row
count; tile tables report their tile matrix set and zoom levels.

Examples:
  gpkg-tool info --gpkg city.gpkg --pretty`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// infoReport is the output of the info command
type infoReport struct {
	Path          string                         `json:"path"`
	ApplicationID string                         `json:"application_id"`
	SRS           []store.SpatialReferenceSystem `json:"spatial_reference_systems"`
	Tables        []tableReport                  `json:"tables"`
}

// tableReport describes one gpkg_contents entry
type tableReport struct {
	store.Content
	GeometryColumn *store.GeometryColumn `json:"geometry_column,omitempty"`
	FeatureCount   *int64                `json:"feature_count,omitempty"`
	TileMatrixSet  *store.TileMatrixSet  `json:"tile_matrix_set,omitempty"`
	TileMatrices   []store.TileMatrix    `json:"tile_matrices,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := describe(ctx, st)
	if err != nil {
		return internal.NewError(internal.ErrorCodeStore, "failed to read GeoPackage", err)
	}
	return writeJSON(cmd, report, cfg.Output.Pretty)
}

// describe reads the core tables of st into a report
func describe(ctx context.Context, st *store.Store) (*infoReport, error) {
	appID, err := st.ApplicationID(ctx)
	if err != nil {
		return nil, err
	}

	srs, err := st.SpatialReferenceSystems(ctx)
	if err != nil {
		return nil, err
	}

	contents, err := st.Contents(ctx, "")
	if err != nil {
		return nil, err
	}

	report := &infoReport{
		Path:          st.Path(),
		ApplicationID: applicationIDString(appID),
		SRS:           srs,
		Tables:        make([]tableReport, 0, len(contents)),
	}

	for _, c := range contents {
		t := tableReport{Content: c}

		switch c.DataType {
		case store.DataTypeFeatures:
			column, err := st.GeometryColumn(ctx, c.TableName)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", c.TableName, err)
			}
			count, err := st.CountFeatures(ctx, c.TableName)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", c.TableName, err)
			}
			t.GeometryColumn = &column
			t.FeatureCount = &count

		case store.DataTypeTiles, store.DataTypeVectorTile:
			set, err := st.TileMatrixSet(ctx, c.TableName)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", c.TableName, err)
			}
			matrices, err := st.TileMatrices(ctx, c.TableName)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", c.TableName, err)
			}
			t.TileMatrixSet = &set
			t.TileMatrices = matrices
		}

		report.Tables = append(report.Tables, t)
	}

	return report, nil
}

// applicationIDString renders the four character application id, or hex when unprintable
func applicationIDString(id uint32) string {
	b := []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08X", id)
		}
	}
	return string(b)
}
