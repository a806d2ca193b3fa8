// cmd/features.go - Feature table export command
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/batch"
	"github.com/valpere/geopackage/internal/features"
	"github.com/valpere/geopackage/internal/metrics"
	"github.com/valpere/geopackage/internal/output"
	"github.com/valpere/geopackage/internal/store"
)

// featuresCmd groups the feature table subcommands
var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Work with GeoPackage feature tables",
}

// featuresExportCmd represents the features export command
var featuresExportCmd = &cobra.Command{
	Use:   "export [table...]",
	Short: "Export feature tables as GeoJSON or JSON",
	Long: `Decode every geometry of one or more feature tables and write them as a GeoJSON
FeatureCollection (format geojson) or as one JSON record per line (format json).

Tables are decoded concurrently in chunks. Rows whose geometry cannot be decoded are
counted and skipped unless --fail-on-error is set. A NULL geometry is written as a
feature with a null geometry.

Output:
- no --output, or "-": standard output, one document per table
- a single table and a file path: that file
- several tables, or a directory path ending in /: {dir}/{table}.geojson

Examples:
  # Export one table to stdout
  gpkg-tool features export --gpkg roads.gpkg roads

  # Export every feature table into a directory, gzip compressed
  gpkg-tool features export --gpkg city.gpkg --all --output ./out/ --compression gzip

  # Export as JSON lines with 16 decoders and stop on the first bad geometry
  gpkg-tool features export --gpkg city.gpkg --format json --concurrency 16 --fail-on-error parcels`,
	RunE: runFeaturesExport,
}

func init() {
	rootCmd.AddCommand(featuresCmd)
	featuresCmd.AddCommand(featuresExportCmd)

	// Selection flags
	featuresExportCmd.Flags().Bool("all", false, "export every feature table listed in gpkg_contents")

	// Output flags
	featuresExportCmd.Flags().StringP("output", "o", "", "output file or directory (default: stdout)")

	// Processing flags
	featuresExportCmd.Flags().Bool("fail-on-error", false, "stop a table on its first undecodable geometry")
	featuresExportCmd.Flags().Duration("timeout", 0, "per table timeout (default 30m)")
	featuresExportCmd.Flags().Bool("progress", false, "show progress indicator")
}

func runFeaturesExport(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Get command flags
	all, _ := cmd.Flags().GetBool("all")
	outputPath, _ := cmd.Flags().GetString("output")
	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	showProgress, _ := cmd.Flags().GetBool("progress")

	// Command flags override the configuration file
	if cmd.Flags().Changed("output") {
		cfg.Output.Path = outputPath
	}
	if cmd.Flags().Changed("fail-on-error") {
		cfg.Batch.FailFast = failOnError
	}
	if timeout > 0 {
		cfg.Batch.Timeout = timeout
	}
	if !all && len(args) == 0 {
		return internal.NewError(internal.ErrorCodeValidation, "name at least one table or use --all", nil)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cmd, cfg, "features")

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tables, err := featureTables(ctx, st, args, all)
	if err != nil {
		return err
	}

	provider := newMetrics(cfg)
	decoder, err := features.NewService(features.Options{
		CacheSize: cfg.Cache.Size,
		Factory:   cfg.Factory(),
		Metrics:   metrics.NewCodec(registerer(provider)),
		Logger:    log,
	})
	if err != nil {
		return internal.NewError(internal.ErrorCodeConfig, "failed to create decoder", err)
	}

	writerConfig := output.NewWriterConfig(&cfg.Output, false)
	if err := writerConfig.Validate(); err != nil {
		return internal.NewError(internal.ErrorCodeConfig, "invalid output configuration", err)
	}

	layout, err := newFeatureLayout(fs, cfg.Output.Path, len(tables), writerConfig)
	if err != nil {
		return err
	}

	sink := output.NewTableSink(func(table string) (*output.FeatureWriter, error) {
		var dest output.Destination
		if layout.stdout {
			dest = output.NewStreamDestination(cmd.OutOrStdout())
		} else {
			var err error
			if dest, err = output.NewFileDestination(fs, layout.path(table), writerConfig.Compression); err != nil {
				return nil, err
			}
		}
		return output.NewFeatureWriter(dest, writerConfig.Format, table, writerConfig.Pretty)
	})

	var reporter batch.ProgressReporter
	if showProgress {
		reporter = NewConsoleProgressReporter(cmd.ErrOrStderr())
	}

	processor := batch.NewFeatureProcessor(st, decoder, sink, reporter, log).
		WithMetrics(metrics.NewBatch(registerer(provider)))
	coordinator := batch.NewDefaultCoordinator(processor)
	defer coordinator.Shutdown()

	jobConfig := &batch.JobConfig{
		Concurrency: cfg.Batch.Concurrency,
		ChunkSize:   cfg.Batch.ChunkSize,
		Timeout:     cfg.Batch.Timeout,
		FailOnError: cfg.Batch.FailFast,
	}

	if cfg.Logging.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exporting %d tables from %s\n", len(tables), st.Path())
	}

	// Jobs sharing standard output run one at a time so documents do not interleave
	start := time.Now()
	var jobs []*batch.Job
	var runErr error
	if layout.stdout {
		for _, table := range tables {
			job, err := runExportJob(ctx, coordinator, sink, table, jobConfig)
			jobs = append(jobs, job)
			runErr = multierr.Append(runErr, err)
			if err != nil && cfg.Batch.FailFast {
				break
			}
		}
	} else {
		jobs, runErr = runExportJobs(ctx, coordinator, sink, tables, jobConfig)
	}

	runErr = multierr.Append(runErr, sink.Close())
	summarize(log, jobs, sink.Results(), time.Since(start))

	if err := writeMetrics(cmd, cfg, provider); err != nil {
		runErr = multierr.Append(runErr, err)
	}
	if runErr != nil {
		return internal.NewError(internal.ErrorCodeProcessing, "feature export failed", runErr)
	}
	return nil
}

// featureTables resolves the tables to export and checks each is a feature table
func featureTables(ctx context.Context, st *store.Store, names []string, all bool) ([]string, error) {
	if all {
		contents, err := st.Contents(ctx, store.DataTypeFeatures)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeStore, "failed to list feature tables", err)
		}
		tables := make([]string, 0, len(contents))
		for _, c := range contents {
			tables = append(tables, c.TableName)
		}
		if len(tables) == 0 {
			return nil, internal.NewError(internal.ErrorCodeNotFound, "the GeoPackage has no feature tables", nil)
		}
		return tables, nil
	}

	seen := make(map[string]bool, len(names))
	tables := make([]string, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		c, err := st.Content(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("table %q is not in gpkg_contents", name), err)
		}
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeStore, fmt.Sprintf("failed to read table %q", name), err)
		}
		if c.DataType != store.DataTypeFeatures {
			return nil, internal.NewError(internal.ErrorCodeValidation,
				fmt.Sprintf("table %q holds %s, not features", name, c.DataType), nil)
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// featureLayout decides where each table is written
type featureLayout struct {
	stdout bool
	dir    string
	file   string
	ext    string
}

func newFeatureLayout(fs afero.Fs, path string, tables int, cfg *output.WriterConfig) (*featureLayout, error) {
	if path == "" || path == "-" {
		return &featureLayout{stdout: true}, nil
	}

	isDir, _ := afero.IsDir(fs, path)
	if tables > 1 || isDir || strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := fs.MkdirAll(path, 0o755); err != nil {
			return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to create output directory", err)
		}
		return &featureLayout{dir: path, ext: cfg.Format.Extension()}, nil
	}
	return &featureLayout{file: path}, nil
}

// path returns the output file for table; compression suffixes are added by the destination
func (l *featureLayout) path(table string) string {
	if l.file != "" {
		return l.file
	}
	return filepath.Join(l.dir, table+l.ext)
}
