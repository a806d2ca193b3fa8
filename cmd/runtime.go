// cmd/runtime.go - Shared command plumbing: configuration, logging, store, metrics and I/O helpers
package cmd

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/config"
	"github.com/valpere/geopackage/internal/logger"
	"github.com/valpere/geopackage/internal/metrics"
	"github.com/valpere/geopackage/internal/store"
)

// fs is the filesystem every command reads and writes through
var fs = afero.NewOsFs()

// loadConfig loads and validates the merged configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "failed to load configuration", err)
	}
	return cfg, nil
}

// newLogger builds the component logger writing to the command's stderr
func newLogger(cmd *cobra.Command, cfg *config.Config, component string) zerolog.Logger {
	return logger.Build(cfg.LoggerConfig(component), cmd.ErrOrStderr())
}

// openStore opens the configured GeoPackage
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if err := config.ValidateStorePath(fs, cfg); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store.Path, cfg.StoreOptions())
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeStore, "failed to open GeoPackage", err)
	}
	return st, nil
}

// newMetrics returns a provider when metrics are enabled, nil otherwise
func newMetrics(cfg *config.Config) *metrics.Provider {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(cfg.Metrics.Runtime)
}

// registerer returns where collectors go; nil leaves them unregistered
func registerer(p *metrics.Provider) prometheus.Registerer {
	if p == nil {
		return nil
	}
	return p.Registerer()
}

// writeMetrics dumps the gathered metrics to metrics.path, or to stderr when only
// metrics.enabled is set and verbose output is on
func writeMetrics(cmd *cobra.Command, cfg *config.Config, p *metrics.Provider) error {
	if p == nil {
		return nil
	}

	if cfg.Metrics.Path == "" {
		if cfg.Logging.Verbose {
			return p.WriteText(cmd.ErrOrStderr())
		}
		return nil
	}

	f, err := fs.Create(cfg.Metrics.Path)
	if err != nil {
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to create metrics file", err)
	}
	if err := p.WriteText(f); err != nil {
		f.Close()
		return internal.NewError(internal.ErrorCodeFileSystem, "failed to write metrics", err)
	}
	return f.Close()
}

// readHexInput decodes the hex given as the first argument, or read from stdin.
// Whitespace, a 0x prefix and SQL blob quoting (X'...') are ignored.
func readHexInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, "")
	} else {
		data, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeFileSystem, "failed to read stdin", err)
		}
		text = string(data)
	}

	data, err := parseHex(text)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid hex input", err)
	}
	return data, nil
}

// parseHex accepts plain, 0x-prefixed or X'..' quoted hex with embedded whitespace
func parseHex(text string) ([]byte, error) {
	text = strings.Join(strings.Fields(text), "")
	switch {
	case len(text) >= 3 && (text[0] == 'x' || text[0] == 'X') && text[1] == '\'' && text[len(text)-1] == '\'':
		text = text[2 : len(text)-1]
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		text = text[2:]
	}
	if text == "" {
		return nil, fmt.Errorf("no input")
	}
	return hex.DecodeString(text)
}

// writeJSON encodes v to the command's stdout followed by a newline
func writeJSON(cmd *cobra.Command, v interface{}, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return internal.NewError(internal.ErrorCodeProcessing, "failed to encode output", err)
	}
	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}
