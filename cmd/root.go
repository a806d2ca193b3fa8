// cmd/root.go - Root command implementation
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/geopackage/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gpkg-tool",
	Short: "Inspect and export GeoPackage geometries and tiles",
	Long: `gpkg-tool reads OGC GeoPackage containers. It decodes the GeoPackage geometry
BLOB and Well-Known Binary encodings, converts between the supported coordinate
reference systems, performs tile matrix math, and exports feature tables and
vector tile pyramids as GeoJSON.

Supported CRS profiles:
- EPSG:4326 World Geodetic System 1984
- EPSG:3857 Web Mercator
- EPSG:3395 World (Ellipsoidal) Mercator

Examples:
  # Describe the tables of a GeoPackage
  gpkg-tool info --gpkg roads.gpkg

  # Export every feature table into a directory
  gpkg-tool features export --gpkg roads.gpkg --all --output ./out/

  # Export the vector tiles of one zoom level
  gpkg-tool tiles export --gpkg basemap.gpkg --table tiles --zoom 3 --output tiles.geojson

  # Decode a WKB geometry given as hex
  gpkg-tool wkb decode 000000000140000000000000004010000000000000

  # Locate the tile containing a Web Mercator coordinate
  gpkg-tool tile locate --crs EPSG:3857 --zoom 4 -- -8238310 4970241

  # Use configuration file
  gpkg-tool info --config config.yaml`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+config.FileName+".yaml)")

	// Store flags
	rootCmd.PersistentFlags().String("gpkg", "", "path to the GeoPackage file")
	rootCmd.PersistentFlags().Duration("busy-timeout", 0, "SQLite busy timeout (default 5s)")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", "geojson", "output format (geojson, json)")
	rootCmd.PersistentFlags().Bool("pretty", false, "pretty print JSON output")
	rootCmd.PersistentFlags().String("compression", "none", "output file compression (none, gzip)")

	// Processing flags
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("concurrency", 8, "number of concurrent decoders")
	rootCmd.PersistentFlags().Int("chunk-size", 500, "number of features per processing chunk")
	rootCmd.PersistentFlags().Int("cache-size", 4096, "decoded geometry cache entries (negative disables)")
	rootCmd.PersistentFlags().String("byte-order", "big", "WKB byte order for encoding (big, little)")
	rootCmd.PersistentFlags().Int("max-depth", 0, "maximum geometry collection nesting when decoding")

	// Metrics flags
	rootCmd.PersistentFlags().Bool("metrics", false, "collect prometheus metrics")
	rootCmd.PersistentFlags().String("metrics-out", "", "write collected metrics in text format to this file on exit")

	// Bind flags to viper
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("gpkg"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("output.compression", rootCmd.PersistentFlags().Lookup("compression"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("batch.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("batch.chunk_size", rootCmd.PersistentFlags().Lookup("chunk-size"))
	viper.BindPFlag("cache.size", rootCmd.PersistentFlags().Lookup("cache-size"))
	viper.BindPFlag("wkb.byte_order", rootCmd.PersistentFlags().Lookup("byte-order"))
	viper.BindPFlag("metrics.enabled", rootCmd.PersistentFlags().Lookup("metrics"))
	viper.BindPFlag("metrics.path", rootCmd.PersistentFlags().Lookup("metrics-out"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".gpkg-tool" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.FileName)
	}

	// Environment variables, e.g. GPKG_TOOL_STORE_PATH
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Flags left at zero keep the configured defaults
	flags := rootCmd.PersistentFlags()
	if flags.Changed("busy-timeout") {
		timeout, _ := flags.GetDuration("busy-timeout")
		viper.Set("store.busy_timeout", timeout)
	}
	if flags.Changed("max-depth") {
		depth, _ := flags.GetInt("max-depth")
		viper.Set("wkb.max_depth", depth)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
