// internal/metrics/metrics.go - prometheus registry and codec collectors
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// Provider owns the registry every component registers its collectors with
type Provider struct {
	reg *prometheus.Registry
}

// New creates a provider; runtime collectors are added when withRuntime is set
func New(withRuntime bool) *Provider {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return &Provider{reg: reg}
}

// Register adds collectors, panicking on duplicates
func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
func (p *Provider) Gatherer() prometheus.Gatherer     { return p.reg }

// WriteText dumps every gathered family in the text exposition format
func (p *Provider) WriteText(w io.Writer) error {
	families, err := p.reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Codec holds the counters shared by the decoding services
type Codec struct {
	Decoded     *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Bytes       prometheus.Counter
}

// NewCodec creates the codec collectors and registers them when reg is non-nil
func NewCodec(reg prometheus.Registerer) *Codec {
	c := &Codec{
		Decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpkg_geometries_decoded_total",
			Help: "Geometries decoded, by geometry type.",
		}, []string{"type"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpkg_decode_failures_total",
			Help: "Geometry BLOBs that failed to decode, by reason.",
		}, []string{"reason"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpkg_geometry_cache_hits_total",
			Help: "Decoded geometry cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpkg_geometry_cache_misses_total",
			Help: "Decoded geometry cache misses.",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpkg_geometry_bytes_total",
			Help: "Geometry BLOB bytes read.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.Decoded, c.Failures, c.CacheHits, c.CacheMisses, c.Bytes)
	}
	return c
}

// Batch holds the collectors updated by batch jobs
type Batch struct {
	Features      *prometheus.CounterVec
	ChunkDuration prometheus.Histogram
}

// NewBatch creates the batch collectors and registers them when reg is non-nil
func NewBatch(reg prometheus.Registerer) *Batch {
	b := &Batch{
		Features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpkg_batch_features_total",
			Help: "Features processed by batch jobs, by result.",
		}, []string{"result"}),
		ChunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gpkg_batch_chunk_duration_seconds",
			Help:    "Time spent decoding one chunk.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(b.Features, b.ChunkDuration)
	}
	return b
}
