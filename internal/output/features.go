// internal/output/features.go - Streaming output of decoded feature tables
package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/multierr"

	"github.com/valpere/geopackage/internal/batch"
	"github.com/valpere/geopackage/internal/features"
)

// Feature properties written for every exported row
const (
	PropertyID    = "id"
	PropertySRSID = "srs_id"
)

// FeatureRecord is one line of the json feature format
type FeatureRecord struct {
	Table    string            `json:"table"`
	ID       int64             `json:"id"`
	SRSID    int32             `json:"srs_id"`
	Type     string            `json:"type,omitempty"`
	Empty    bool              `json:"empty"`
	Envelope []float64         `json:"envelope,omitempty"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// NewGeoJSONFeature converts a decoded row into a GeoJSON feature carrying its id and SRS
func NewGeoJSONFeature(f features.Feature) (*geojson.Feature, error) {
	g, err := ToOrb(f.Geometry)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.ID, err)
	}

	out := geojson.NewFeature(g)
	out.ID = f.ID
	out.Properties[PropertyID] = f.ID
	out.Properties[PropertySRSID] = f.Header.SRSID

	if env := f.Header.Envelope; !env.IsEmpty() {
		out.BBox = geojson.BBox{env.MinX(), env.MinY(), env.MaxX(), env.MaxY()}
	}
	return out, nil
}

// NewFeatureRecord converts a decoded row into a json format record
func NewFeatureRecord(table string, f features.Feature) (*FeatureRecord, error) {
	g, err := ToOrb(f.Geometry)
	if err != nil {
		return nil, fmt.Errorf("feature %d: %w", f.ID, err)
	}

	r := &FeatureRecord{
		Table:    table,
		ID:       f.ID,
		SRSID:    f.Header.SRSID,
		Empty:    f.Geometry == nil || f.Geometry.IsEmpty(),
		Geometry: geojson.NewGeometry(g),
	}
	if f.Geometry != nil {
		r.Type = f.Geometry.TypeName()
	}
	if env := f.Header.Envelope; !env.IsEmpty() {
		r.Envelope = env.Array()
	}
	return r, nil
}

// FeatureWriter streams the features of one table. The geojson format writes a single
// FeatureCollection, the json format one record per line. It implements batch.Sink.
type FeatureWriter struct {
	dest   Destination
	format Format
	pretty bool
	table  string

	mu      sync.Mutex
	count   int
	started bool
	closed  bool
}

// NewFeatureWriter creates a writer for table; the destination is closed by Close
func NewFeatureWriter(dest Destination, format Format, table string, pretty bool) (*FeatureWriter, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("invalid output format: %s", format)
	}
	return &FeatureWriter{
		dest:   dest,
		format: format,
		pretty: pretty,
		table:  table,
	}, nil
}

// WriteChunk writes decoded features in order
func (w *FeatureWriter) WriteChunk(_ *batch.Job, decoded []features.Feature) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("feature writer for %q is closed", w.table)
	}

	for _, f := range decoded {
		if err := w.writeFeature(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *FeatureWriter) writeFeature(f features.Feature) error {
	var v interface{}
	var err error
	if w.format == FormatGeoJSON {
		v, err = NewGeoJSONFeature(f)
	} else {
		v, err = NewFeatureRecord(w.table, f)
	}
	if err != nil {
		return err
	}

	var data []byte
	if w.pretty && w.format == FormatGeoJSON {
		data, err = json.MarshalIndent(v, "    ", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal feature %d: %w", f.ID, err)
	}

	if err := w.writeSeparator(); err != nil {
		return err
	}
	if w.format == FormatGeoJSON && w.pretty {
		data = append([]byte("    "), data...)
	}
	if w.format == FormatJSON {
		data = append(data, '\n')
	}
	if _, err := w.dest.Write(data); err != nil {
		return fmt.Errorf("write feature %d: %w", f.ID, err)
	}
	w.count++
	return nil
}

// writeSeparator emits the collection header before the first feature and commas after it
func (w *FeatureWriter) writeSeparator() error {
	if w.format != FormatGeoJSON {
		return nil
	}

	var sep string
	switch {
	case !w.started && w.pretty:
		sep = "{\n  \"type\": \"FeatureCollection\",\n  \"features\": [\n"
	case !w.started:
		sep = `{"type":"FeatureCollection","features":[`
	case w.pretty:
		sep = ",\n"
	default:
		sep = ","
	}
	w.started = true

	_, err := w.dest.Write([]byte(sep))
	return err
}

// Count returns the number of features written
func (w *FeatureWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Result reports what was written so far
func (w *FeatureWriter) Result() WriteResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriteResult{
		Destination:  w.dest.Name(),
		Features:     w.count,
		BytesWritten: w.dest.Size(),
	}
}

// Close terminates the collection and closes the destination. An empty table still
// produces a valid empty FeatureCollection.
func (w *FeatureWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.format == FormatGeoJSON {
		var tail string
		switch {
		case !w.started && w.pretty:
			tail = "{\n  \"type\": \"FeatureCollection\",\n  \"features\": []\n}\n"
		case !w.started:
			tail = `{"type":"FeatureCollection","features":[]}` + "\n"
		case w.pretty:
			tail = "\n  ]\n}\n"
		default:
			tail = "]}\n"
		}
		_, err = w.dest.Write([]byte(tail))
	}

	return multierr.Append(err, w.dest.Close())
}

// TableSink routes the chunks of each job to a per-table FeatureWriter opened on first use
type TableSink struct {
	open func(table string) (*FeatureWriter, error)

	mu      sync.Mutex
	writers map[string]*FeatureWriter
}

// NewTableSink creates a sink that opens writers with open
func NewTableSink(open func(table string) (*FeatureWriter, error)) *TableSink {
	return &TableSink{
		open:    open,
		writers: make(map[string]*FeatureWriter),
	}
}

// WriteChunk implements batch.Sink
func (s *TableSink) WriteChunk(job *batch.Job, decoded []features.Feature) error {
	w, err := s.Writer(job.Table)
	if err != nil {
		return err
	}
	return w.WriteChunk(job, decoded)
}

// Writer returns the writer for table, opening it when needed
func (s *TableSink) Writer(table string) (*FeatureWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.writers[table]; ok {
		return w, nil
	}
	w, err := s.open(table)
	if err != nil {
		return nil, fmt.Errorf("open output for %q: %w", table, err)
	}
	s.writers[table] = w
	return w, nil
}

// Results returns the write result of every opened table
func (s *TableSink) Results() map[string]WriteResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]WriteResult, len(s.writers))
	for table, w := range s.writers {
		out[table] = w.Result()
	}
	return out
}

// Close closes every writer and combines their errors
func (s *TableSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]string, 0, len(s.writers))
	for table := range s.writers {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var err error
	for _, table := range tables {
		err = multierr.Append(err, s.writers[table].Close())
	}
	return err
}
