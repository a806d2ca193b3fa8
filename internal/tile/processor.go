// internal/tile/processor.go - Tile processing implementation
package tile

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/valpere/geopackage/pkg/mvt"
)

// MVTProcessor implements the Processor interface for Mapbox Vector Tiles
type MVTProcessor struct {
	converter   *mvt.Converter
	concurrency int
}

// NewMVTProcessor creates a processor; nil options mean mvt.DefaultConversionOptions()
func NewMVTProcessor(options *mvt.ConversionOptions) (*MVTProcessor, error) {
	if options == nil {
		options = mvt.DefaultConversionOptions()
	}
	converter, err := mvt.NewConverterWithOptions(options)
	if err != nil {
		return nil, err
	}
	return &MVTProcessor{
		converter:   converter,
		concurrency: runtime.GOMAXPROCS(0),
	}, nil
}

// WithConcurrency bounds the goroutines used by ProcessBatch
func (p *MVTProcessor) WithConcurrency(n int) *MVTProcessor {
	if n > 0 {
		p.concurrency = n
	}
	return p
}

// Process converts a single tile response to GeoJSON
func (p *MVTProcessor) Process(response *TileResponse) (*ProcessedTile, error) {
	start := time.Now()
	id := response.Request.ID

	// Handle cases where the fetch failed
	if response.Error != nil {
		return &ProcessedTile{
			ID:    id,
			Error: fmt.Errorf("tile fetch failed: %w", response.Error),
		}, response.Error
	}

	// Validate that we have data to process
	if len(response.Data) == 0 {
		err := fmt.Errorf("empty tile data for tile %s", id)
		return &ProcessedTile{ID: id, Error: err}, err
	}

	fc, metadata, err := p.converter.Convert(response.Data, response.Placement)
	if err != nil {
		return &ProcessedTile{
			ID:    id,
			Error: fmt.Errorf("MVT conversion failed: %w", err),
		}, err
	}

	return &ProcessedTile{
		ID:   id,
		Data: fc,
		Metadata: &TileMetadata{
			Layers:       metadata.Layers,
			FeatureCount: metadata.FeatureCount,
			Size:         len(response.Data),
			ProcessTime:  time.Since(start),
			Version:      metadata.Version,
			Extent:       metadata.Extent,
			Compressed:   response.Compressed,
		},
	}, nil
}

// ProcessBatch processes responses concurrently. Failures are reported in the
// matching ProcessedTile rather than failing the batch; output order follows input.
func (p *MVTProcessor) ProcessBatch(responses []*TileResponse) ([]*ProcessedTile, error) {
	results := make([]*ProcessedTile, len(responses))

	wp := pool.New().WithMaxGoroutines(p.concurrency)
	for i, response := range responses {
		wp.Go(func() {
			processed, err := p.Process(response)
			if err != nil && processed == nil {
				processed = &ProcessedTile{ID: response.Request.ID, Error: err}
			}
			results[i] = processed
		})
	}
	wp.Wait()

	return results, nil
}
