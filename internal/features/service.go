// internal/features/service.go - Decoding of GeoPackage feature BLOBs with a content cache
package features

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/valpere/geopackage/internal/metrics"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/gpb"
	"github.com/valpere/geopackage/pkg/wkb"
)

// DefaultCacheSize is used when Options.CacheSize is zero
const DefaultCacheSize = 4096

// Options configures a Service
type Options struct {
	CacheSize int // negative disables the cache
	Factory   *wkb.Factory
	Metrics   *metrics.Codec
	Logger    zerolog.Logger
}

// Feature is a decoded feature row
type Feature struct {
	ID       int64
	Header   gpb.Header
	Geometry geometry.Geometry
}

type entry struct {
	blob   []byte
	header gpb.Header
	geom   geometry.Geometry
}

// Service decodes geometry BLOBs. It is safe for concurrent use.
type Service struct {
	factory *wkb.Factory
	cache   *lru.Cache[uint64, entry]
	metrics *metrics.Codec
	log     zerolog.Logger
}

// NewService creates a decoding service
func NewService(opts Options) (*Service, error) {
	s := &Service{
		factory: opts.Factory,
		metrics: opts.Metrics,
		log:     opts.Logger,
	}
	if s.factory == nil {
		s.factory = wkb.DefaultFactory()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCodec(nil)
	}

	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		c, err := lru.New[uint64, entry](size)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return s, nil
}

// Decode parses one GeoPackage geometry BLOB
func (s *Service) Decode(blob []byte) (gpb.Header, geometry.Geometry, error) {
	s.metrics.Bytes.Add(float64(len(blob)))

	var key uint64
	if s.cache != nil {
		key = xxhash.Sum64(blob)
		if e, ok := s.cache.Get(key); ok && bytes.Equal(e.blob, blob) {
			s.metrics.CacheHits.Inc()
			return e.header, e.geom, nil
		}
		s.metrics.CacheMisses.Inc()
	}

	h, g, err := gpb.Decode(blob, s.factory)
	if err != nil {
		s.metrics.Failures.WithLabelValues(Reason(err)).Inc()
		return h, nil, err
	}
	s.metrics.Decoded.WithLabelValues(g.TypeName()).Inc()

	if s.cache != nil {
		s.cache.Add(key, entry{blob: bytes.Clone(blob), header: h, geom: g})
	}
	return h, g, nil
}

// DecodeFeature decodes the geometry of a stored feature row
func (s *Service) DecodeFeature(f store.Feature) (Feature, error) {
	h, g, err := s.Decode(f.Geometry)
	if err != nil {
		s.log.Debug().Int64("id", f.ID).Err(err).Msg("feature geometry rejected")
		return Feature{ID: f.ID}, &FeatureError{ID: f.ID, Err: err}
	}
	return Feature{ID: f.ID, Header: h, Geometry: g}, nil
}

// Table decodes every feature of table in id order. A NULL geometry
// column is passed through with a nil Geometry.
func (s *Service) Table(ctx context.Context, st *store.Store, table string, fn func(Feature) error) error {
	return st.Features(ctx, table, func(row store.Feature) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if row.Geometry == nil {
			return fn(Feature{ID: row.ID})
		}
		f, err := s.DecodeFeature(row)
		if err != nil {
			return err
		}
		return fn(f)
	})
}

// CacheLen reports how many decoded geometries are cached
func (s *Service) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// Metrics returns the counters the service updates
func (s *Service) Metrics() *metrics.Codec {
	return s.metrics
}

// FeatureError ties a decoding failure to its feature id
type FeatureError struct {
	ID  int64
	Err error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %d: %v", e.ID, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

// Reason classifies a decoding error for the failure counter
func Reason(err error) string {
	switch {
	case errors.Is(err, gpb.ErrInvalidHeader):
		return "header"
	case errors.Is(err, wkb.ErrTruncated):
		return "truncated"
	case errors.Is(err, wkb.ErrUnknownByteOrder):
		return "byte_order"
	case errors.Is(err, wkb.ErrUnknownType), errors.Is(err, wkb.ErrUnexpectedType):
		return "type"
	case errors.Is(err, wkb.ErrDimensionMismatch):
		return "dimension"
	case errors.Is(err, wkb.ErrTooDeep):
		return "depth"
	case errors.Is(err, wkb.ErrTrailingBytes):
		return "trailing"
	case errors.Is(err, wkb.ErrMalformedGeometry):
		return "malformed"
	default:
		return "other"
	}
}
