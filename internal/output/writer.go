// internal/output/writer.go - Output writing implementation
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	"github.com/valpere/geopackage/internal/tile"
	"github.com/valpere/geopackage/pkg/mvt"
)

// FileWriter writes output to a single file with optional compression
type FileWriter struct {
	formatter   Formatter
	destination Destination
	config      *WriterConfig
}

// NewFileWriter creates a new file-based writer
func NewFileWriter(fs afero.Fs, config *WriterConfig, destination string) (*FileWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       config.Format,
		Pretty:       config.Pretty,
		IncludeStats: config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	dest, err := NewFileDestination(fs, destination, config.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create file destination: %w", err)
	}

	return &FileWriter{
		formatter:   formatter,
		destination: dest,
		config:      config,
	}, nil
}

// Write writes a single processed tile to the output destination
func (w *FileWriter) Write(t *tile.ProcessedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	if _, err := w.destination.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}

// WriteBatch writes multiple processed tiles as a batch operation
func (w *FileWriter) WriteBatch(tiles []*tile.ProcessedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}

	if _, err := w.destination.Write(data); err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}

	return nil
}

// Name returns the path written to
func (w *FileWriter) Name() string {
	return w.destination.Name()
}

// Close closes the writer and underlying destination
func (w *FileWriter) Close() error {
	return w.destination.Close()
}

// StreamWriter writes output to an io.Writer such as standard output
type StreamWriter struct {
	formatter Formatter
	out       io.Writer
}

// NewStreamWriter creates a writer emitting one document per line to out; nil means os.Stdout
func NewStreamWriter(out io.Writer, format Format, pretty bool) (*StreamWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format: format,
		Pretty: pretty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}
	if out == nil {
		out = os.Stdout
	}

	return &StreamWriter{formatter: formatter, out: out}, nil
}

// Write writes a single tile to the stream
func (w *StreamWriter) Write(t *tile.ProcessedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}
	return w.writeLine(data)
}

// WriteBatch writes multiple tiles to the stream
func (w *StreamWriter) WriteBatch(tiles []*tile.ProcessedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}
	return w.writeLine(data)
}

func (w *StreamWriter) writeLine(data []byte) error {
	if _, err := w.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write to stream failed: %w", err)
	}
	return nil
}

// Close is a no-op for stream writers
func (w *StreamWriter) Close() error {
	return nil
}

// MultiFileWriter writes each tile to {base}/{z}/{x}/{y}{ext}
type MultiFileWriter struct {
	fs        afero.Fs
	formatter Formatter
	baseDir   string
	config    *WriterConfig
}

// NewMultiFileWriter creates a writer that outputs each tile to a separate file
func NewMultiFileWriter(fs afero.Fs, config *WriterConfig, baseDir string) (*MultiFileWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       config.Format,
		Pretty:       config.Pretty,
		IncludeStats: config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	// Ensure base directory exists
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &MultiFileWriter{
		fs:        fs,
		formatter: formatter,
		baseDir:   baseDir,
		config:    config,
	}, nil
}

// Write writes a single tile to its own file
func (w *MultiFileWriter) Write(t *tile.ProcessedTile) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	dest, err := NewFileDestination(w.fs, filepath.Join(w.baseDir, w.generateFilename(t.ID)), w.config.Compression)
	if err != nil {
		return fmt.Errorf("failed to create file destination: %w", err)
	}

	if _, err := dest.Write(data); err != nil {
		dest.Close()
		return fmt.Errorf("write failed: %w", err)
	}
	return dest.Close()
}

// WriteBatch writes each tile in the batch to separate files
func (w *MultiFileWriter) WriteBatch(tiles []*tile.ProcessedTile) error {
	for _, t := range tiles {
		if err := w.Write(t); err != nil {
			return fmt.Errorf("failed to write tile %s: %w", t.ID, err)
		}
	}
	return nil
}

// Close is a no-op for multi-file writer
func (w *MultiFileWriter) Close() error {
	return nil
}

// generateFilename creates a relative filename for a tile based on its address
func (w *MultiFileWriter) generateFilename(id mvt.TileID) string {
	return filepath.Join(fmt.Sprint(id.Zoom), fmt.Sprint(id.Column), fmt.Sprintf("%d%s", id.Row, w.config.Format.Extension()))
}

// fileDestination implements the Destination interface for file output
type fileDestination struct {
	file afero.File
	gz   *gzip.Writer
	name string
	size int64
}

// NewFileDestination creates a file, and its parent directories, with optional gzip compression.
// Compressed paths get a .gz suffix when they lack one.
func NewFileDestination(fs afero.Fs, path string, compression bool) (Destination, error) {
	if compression && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	// Ensure parent directory exists
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	d := &fileDestination{file: file, name: path}
	if compression {
		d.gz = gzip.NewWriter(file)
	}
	return d, nil
}

// Write implements io.Writer
func (d *fileDestination) Write(p []byte) (n int, err error) {
	if d.gz != nil {
		n, err = d.gz.Write(p)
	} else {
		n, err = d.file.Write(p)
	}
	d.size += int64(n)
	return n, err
}

// Close implements io.Closer
func (d *fileDestination) Close() error {
	if d.gz != nil {
		if err := d.gz.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

// Name returns the destination file path
func (d *fileDestination) Name() string {
	return d.name
}

// Size returns the number of uncompressed bytes written
func (d *fileDestination) Size() int64 {
	return d.size
}

// streamDestination adapts a stream such as stdout; Close does not close it
type streamDestination struct {
	out  io.Writer
	name string
	size int64
}

// NewStreamDestination wraps out as a Destination; nil means os.Stdout
func NewStreamDestination(out io.Writer) Destination {
	if out == nil {
		out = os.Stdout
	}
	return &streamDestination{out: out, name: "-"}
}

func (d *streamDestination) Write(p []byte) (int, error) {
	n, err := d.out.Write(p)
	d.size += int64(n)
	return n, err
}

func (d *streamDestination) Close() error { return nil }
func (d *streamDestination) Name() string { return d.name }
func (d *streamDestination) Size() int64  { return d.size }

// NewWriter creates the appropriate writer based on configuration. An empty
// destination or "-" writes to out.
func NewWriter(fs afero.Fs, out io.Writer, config *WriterConfig, destination string, multiFile bool) (Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if destination == "" || destination == "-" {
		return NewStreamWriter(out, config.Format, config.Pretty)
	}

	if multiFile {
		return NewMultiFileWriter(fs, config, destination)
	}

	return NewFileWriter(fs, config, destination)
}
