// internal/output/types.go - Output handling types
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/valpere/geopackage/internal/config"
	"github.com/valpere/geopackage/internal/tile"
)

// Format represents different output formats supported by the application
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
)

// Compression names accepted by output.compression
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
)

// Writer defines the interface for writing processed tiles to various destinations
type Writer interface {
	Write(tile *tile.ProcessedTile) error
	WriteBatch(tiles []*tile.ProcessedTile) error
	Close() error
}

// Formatter defines the interface for formatting processed tiles into different output formats
type Formatter interface {
	Format(tile *tile.ProcessedTile) ([]byte, error)
	FormatBatch(tiles []*tile.ProcessedTile) ([]byte, error)
	ContentType() string
}

// Destination represents an output destination (file, stdout, etc.)
type Destination interface {
	io.WriteCloser
	Name() string
	Size() int64
}

// WriteResult represents the result of a write operation
type WriteResult struct {
	Destination  string
	Features     int
	BytesWritten int64
	Duration     time.Duration
}

// WriterConfig contains configuration for creating writers
type WriterConfig struct {
	Format      Format
	Pretty      bool
	Compression bool
	Metadata    bool
}

// FormatterConfig contains configuration for creating formatters
type FormatterConfig struct {
	Format       Format
	Pretty       bool
	IncludeStats bool
}

// NewWriterConfig builds a writer configuration from the output section
func NewWriterConfig(cfg *config.OutputConfig, metadata bool) *WriterConfig {
	return &WriterConfig{
		Format:      Format(strings.ToLower(cfg.Format)),
		Pretty:      cfg.Pretty,
		Compression: strings.EqualFold(cfg.Compression, CompressionGzip),
		Metadata:    metadata,
	}
}

// Validate validates the writer configuration
func (c *WriterConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Extension returns the file extension for the format, with .gz when compressed
func (c *WriterConfig) Extension() string {
	ext := c.Format.Extension()
	if c.Compression {
		ext += ".gz"
	}
	return ext
}

// String returns a string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	switch f {
	case FormatGeoJSON, FormatJSON:
		return true
	default:
		return false
	}
}

// Extension returns the file extension used for the format
func (f Format) Extension() string {
	if f == FormatGeoJSON {
		return ".geojson"
	}
	return ".json"
}
