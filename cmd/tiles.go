// cmd/tiles.go - Vector tile export command
package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/config"
	"github.com/valpere/geopackage/internal/output"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/internal/tile"
	"github.com/valpere/geopackage/pkg/mvt"
)

// tilesCmd groups the tile pyramid subcommands
var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Work with vector tile pyramids",
}

// tilesExportCmd represents the tiles export command
var tilesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert stored Mapbox Vector Tiles to GeoJSON or JSON",
	Long: `Convert Mapbox Vector Tiles stored in a GeoPackage tile table, or in a local
{z}/{x}/{y} directory, to GeoJSON or JSON.

Tile geometry is placed using the tile matrix bounds and the CRS profile of the
table, then written in geodetic longitude/latitude (the default), native CRS units
or tile pixels (--coordinate-system).

Data Sources:
- GeoPackage tile tables (vector-tiles extension), rows counted from the top
- Local tile directories with standard z/x/y organization (--source local)

Examples:
  # Convert a single tile to stdout
  gpkg-tool tiles export --gpkg basemap.gpkg --table roads --tiles 14/8362/5956 --pretty

  # Convert every tile of zoom 10 into one FeatureCollection
  gpkg-tool tiles export --gpkg basemap.gpkg --table roads --zoom 10 --output roads-10.geojson

  # Convert every stored tile, one file per tile
  gpkg-tool tiles export --gpkg basemap.gpkg --table roads --output ./tiles/ --multi-file

  # Convert local tiles, keeping only the water layer
  gpkg-tool tiles export --source local --base-path ./mvt --zoom 3 --layers water --output water.geojson.gz`,
	RunE: runTilesExport,
}

func init() {
	rootCmd.AddCommand(tilesCmd)
	tilesCmd.AddCommand(tilesExportCmd)

	// Tile selection flags
	tilesExportCmd.Flags().String("table", "", "tile table name (geopackage source)")
	tilesExportCmd.Flags().Int("zoom", -1, "zoom level to export (default: every level)")
	tilesExportCmd.Flags().String("tiles", "", "specific tiles list: 'z/x/y,z/x/y,...'")

	// Source override flags
	tilesExportCmd.Flags().String("source", "", "override source type (geopackage, local)")
	tilesExportCmd.Flags().String("base-path", "", "base path for local tiles (local source)")
	tilesExportCmd.Flags().String("crs", "", "CRS of local tiles (default EPSG:3857)")

	// Conversion flags
	tilesExportCmd.Flags().String("coordinate-system", "", "output coordinates (geodetic, native, tile)")
	tilesExportCmd.Flags().StringSlice("layers", nil, "only export these layers")
	tilesExportCmd.Flags().StringSlice("properties", nil, "only keep these feature properties")
	tilesExportCmd.Flags().Float64("simplify", 0, "Douglas-Peucker tolerance in output units (0 disables)")

	// Output flags
	tilesExportCmd.Flags().StringP("output", "o", "", "output file or directory (default: stdout)")
	tilesExportCmd.Flags().Bool("multi-file", false, "write each tile to {output}/{z}/{x}/{y}")
	tilesExportCmd.Flags().Bool("metadata", false, "include tile metadata in output")

	// Processing flags
	tilesExportCmd.Flags().Bool("fail-on-error", false, "stop on the first tile that cannot be converted")

	tilesExportCmd.MarkFlagsMutuallyExclusive("zoom", "tiles")
}

func runTilesExport(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Get command flags
	table, _ := cmd.Flags().GetString("table")
	zoom, _ := cmd.Flags().GetInt("zoom")
	tilesStr, _ := cmd.Flags().GetString("tiles")
	outputPath, _ := cmd.Flags().GetString("output")
	multiFile, _ := cmd.Flags().GetBool("multi-file")
	metadata, _ := cmd.Flags().GetBool("metadata")
	failOnError, _ := cmd.Flags().GetBool("fail-on-error")

	if err := applyTileFlags(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Path = outputPath
	}
	if cmd.Flags().Changed("fail-on-error") {
		cfg.Batch.FailFast = failOnError
	}

	sourceType := cfg.DetermineSourceType()
	if sourceType == internal.SourceTypeGeoPackage && table == "" {
		return internal.NewError(internal.ErrorCodeValidation, "--table is required for the geopackage source", nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Batch.Timeout)
	defer cancel()
	log := newLogger(cmd, cfg, "tiles")

	var st *store.Store
	if sourceType == internal.SourceTypeGeoPackage {
		if st, err = openStore(ctx, cfg); err != nil {
			return err
		}
		defer st.Close()
	}

	// Create fetcher and processor
	factory := tile.NewFetcherFactory(cfg, st, fs, registry)
	fetcher, err := factory.CreateFetcherForType(sourceType)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	processor, err := tile.NewMVTProcessor(conversionOptions(cmd, cfg))
	if err != nil {
		return internal.NewError(internal.ErrorCodeConfig, "invalid conversion options", err)
	}
	processor.WithConcurrency(cfg.Batch.Concurrency)

	// Build the tile list
	var ids []mvt.TileID
	if tilesStr != "" {
		if ids, err = parseTilesList(tilesStr); err != nil {
			return err
		}
	} else if ids, err = fetcher.List(ctx, table, zoom); err != nil {
		return fmt.Errorf("failed to list tiles: %w", err)
	}
	if len(ids) == 0 {
		return internal.NewError(internal.ErrorCodeNotFound, "no tiles to export", nil)
	}

	if cfg.Logging.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Processing %d tiles\n", len(ids))
		fmt.Fprintf(cmd.ErrOrStderr(), "Source type: %s\n", sourceType)
	}

	// Create writer
	writerConfig := output.NewWriterConfig(&cfg.Output, metadata)
	writer, err := output.NewWriter(fs, cmd.OutOrStdout(), writerConfig, cfg.Output.Path, multiFile)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	start := time.Now()
	stats, err := exportTiles(ctx, fetcher, processor, writer, table, ids, cfg.Batch.ChunkSize, cfg.Batch.FailFast, multiFile)
	if err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to close output", err)
	}

	log.Info().
		Int("tiles", stats.tiles).
		Int("failed", stats.failed).
		Int("features", stats.features).
		Dur("elapsed", time.Since(start)).
		Msg("tiles exported")
	return nil
}

// applyTileFlags copies tile source flags over the configuration and revalidates it
func applyTileFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := map[string]*string{
		"source":            &cfg.Tiles.Source,
		"base-path":         &cfg.Tiles.BasePath,
		"crs":               &cfg.Tiles.CRS,
		"coordinate-system": &cfg.Tiles.CoordinateSystem,
	}
	for name, target := range flags {
		if cmd.Flags().Changed(name) {
			value, _ := cmd.Flags().GetString(name)
			*target = value
		}
	}
	if err := config.Validate(cfg); err != nil {
		return internal.NewError(internal.ErrorCodeValidation, "invalid tile options", err)
	}
	return nil
}

// conversionOptions builds the MVT conversion options from flags and configuration
func conversionOptions(cmd *cobra.Command, cfg *config.Config) *mvt.ConversionOptions {
	layers, _ := cmd.Flags().GetStringSlice("layers")
	properties, _ := cmd.Flags().GetStringSlice("properties")
	tolerance, _ := cmd.Flags().GetFloat64("simplify")

	return &mvt.ConversionOptions{
		IncludeMetadata:   cfg.Tiles.IncludeMetadata,
		LayerFilter:       layers,
		PropertyFilter:    properties,
		SimplifyGeometry:  tolerance > 0,
		SimplifyTolerance: tolerance,
		CoordinateSystem:  cfg.Tiles.CoordinateSystem,
	}
}

// exportStats summarizes an export
type exportStats struct {
	tiles    int
	failed   int
	features int
}

// exportTiles fetches and converts tiles chunk by chunk. A multi-file writer receives
// each chunk as it completes; other writers receive every converted tile in one batch
// so the output is a single document. Failed tiles are counted, never written.
func exportTiles(ctx context.Context, fetcher tile.Fetcher, processor tile.Processor, writer output.Writer,
	table string, ids []mvt.TileID, chunkSize int, failFast, multiFile bool) (exportStats, error) {
	var stats exportStats
	var collected []*tile.ProcessedTile

	for begin := 0; begin < len(ids); begin += chunkSize {
		end := min(begin+chunkSize, len(ids))

		responses := make([]*tile.TileResponse, 0, end-begin)
		for _, id := range ids[begin:end] {
			if err := ctx.Err(); err != nil {
				return stats, internal.NewError(internal.ErrorCodeTimeout, "tile export interrupted", err)
			}
			response, err := fetcher.Fetch(ctx, tile.NewTileRequest(table, id.Zoom, id.Column, id.Row))
			if err != nil && failFast {
				return stats, fmt.Errorf("failed to fetch tile %s: %w", id, err)
			}
			responses = append(responses, response)
		}

		processed, err := processor.ProcessBatch(responses)
		if err != nil {
			return stats, internal.NewError(internal.ErrorCodeProcessing, "failed to process tiles", err)
		}

		ok := make([]*tile.ProcessedTile, 0, len(processed))
		for _, t := range processed {
			stats.tiles++
			if t.Error != nil {
				if failFast {
					return stats, internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("tile %s", t.ID), t.Error)
				}
				stats.failed++
				continue
			}
			stats.features += len(t.Data.Features)
			ok = append(ok, t)
		}

		if multiFile {
			if err := writer.WriteBatch(ok); err != nil {
				return stats, internal.NewError(internal.ErrorCodeFileSystem, "failed to write tiles", err)
			}
			continue
		}
		collected = append(collected, ok...)
	}

	if multiFile {
		return stats, nil
	}

	var err error
	if len(collected) == 1 {
		err = writer.Write(collected[0])
	} else {
		err = writer.WriteBatch(collected)
	}
	if err != nil {
		return stats, internal.NewError(internal.ErrorCodeFileSystem, "failed to write output", err)
	}
	return stats, nil
}

// parseTilesList parses a comma-separated list of tile coordinates
func parseTilesList(tiles string) ([]mvt.TileID, error) {
	parts := strings.Split(tiles, ",")
	ids := make([]mvt.TileID, 0, len(parts))

	for _, part := range parts {
		coords := strings.Split(strings.TrimSpace(part), "/")
		if len(coords) != 3 {
			return nil, internal.NewError(internal.ErrorCodeValidation,
				fmt.Sprintf("invalid tile format: %s (expected z/x/y)", part), nil)
		}

		values := make([]int, 3)
		for i, name := range []string{"zoom level", "x coordinate", "y coordinate"} {
			v, err := strconv.Atoi(coords[i])
			if err != nil || v < 0 {
				return nil, internal.NewError(internal.ErrorCodeValidation,
					fmt.Sprintf("invalid %s: %s", name, coords[i]), err)
			}
			values[i] = v
		}

		ids = append(ids, mvt.TileID{Zoom: values[0], Column: values[1], Row: values[2]})
	}

	return ids, nil
}
