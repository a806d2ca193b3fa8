// internal/batch/processor.go - Chunked concurrent decoding of feature tables
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/valpere/geopackage/internal/features"
	"github.com/valpere/geopackage/internal/metrics"
	"github.com/valpere/geopackage/internal/store"
)

// FeatureProcessor implements Processor over a GeoPackage feature table
type FeatureProcessor struct {
	store    *store.Store
	decoder  *features.Service
	sink     Sink
	reporter ProgressReporter
	metrics  *metrics.Batch
	log      zerolog.Logger
	mutex    sync.Mutex
}

// NewFeatureProcessor creates a processor; reporter may be nil
func NewFeatureProcessor(st *store.Store, decoder *features.Service, sink Sink, reporter ProgressReporter, log zerolog.Logger) *FeatureProcessor {
	return &FeatureProcessor{
		store:    st,
		decoder:  decoder,
		sink:     sink,
		reporter: reporter,
		metrics:  metrics.NewBatch(nil),
		log:      log,
	}
}

// WithMetrics replaces the processor's unregistered collectors
func (bp *FeatureProcessor) WithMetrics(m *metrics.Batch) *FeatureProcessor {
	if m != nil {
		bp.metrics = m
	}
	return bp
}

// Process decodes every feature of job.Table chunk by chunk
func (bp *FeatureProcessor) Process(ctx context.Context, job *Job) error {
	bp.mutex.Lock()
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress.StartTime = now
	bp.mutex.Unlock()

	if bp.reporter != nil {
		bp.reporter.ReportProgress(job)
	}

	total, err := bp.store.CountFeatures(ctx, job.Table)
	if err != nil {
		err = fmt.Errorf("count features: %w", err)
		bp.completeJobWithError(job, err)
		return err
	}

	chunkSize := job.Config.ChunkSize
	bp.mutex.Lock()
	job.Progress.TotalFeatures = total
	job.Progress.TotalChunks = int((total + int64(chunkSize) - 1) / int64(chunkSize))
	bp.mutex.Unlock()

	log := bp.log.With().Str("job", job.ID).Str("table", job.Table).Logger()
	log.Debug().Int64("features", total).Int("chunk_size", chunkSize).Msg("batch started")

	var afterID int64
	for chunkID := 0; ; chunkID++ {
		if err := ctx.Err(); err != nil {
			bp.completeJobWithError(job, err)
			return err
		}

		rows, err := bp.store.FeaturesPage(ctx, job.Table, afterID, chunkSize)
		if err != nil {
			err = fmt.Errorf("read chunk %d: %w", chunkID, err)
			bp.completeJobWithError(job, err)
			return err
		}
		if len(rows) == 0 {
			break
		}
		afterID = rows[len(rows)-1].ID

		items := make([]*WorkItem, len(rows))
		for i, row := range rows {
			items[i] = NewWorkItem(row, chunkID, chunkID*chunkSize+i)
		}

		bp.mutex.Lock()
		job.Progress.CurrentChunk = chunkID + 1
		bp.mutex.Unlock()

		chunkResult, err := bp.processChunk(ctx, items, job.Config.Concurrency)
		if err != nil {
			bp.completeJobWithError(job, err)
			return err
		}
		bp.updateJobProgress(job, chunkResult)

		if chunkResult.FailureCount > 0 && job.Config.FailOnError {
			err := firstFailure(chunkResult)
			bp.completeJobWithError(job, err)
			return err
		}

		if err := bp.sink.WriteChunk(job, successes(chunkResult)); err != nil {
			err = fmt.Errorf("write chunk %d: %w", chunkID, err)
			bp.completeJobWithError(job, err)
			return err
		}

		log.Debug().Int("chunk", chunkID).Int("ok", chunkResult.SuccessCount).Int("failed", chunkResult.FailureCount).
			Dur("duration", chunkResult.Duration).Msg("chunk complete")

		if bp.reporter != nil {
			bp.reporter.ReportChunkComplete(job, chunkResult)
		}
	}

	bp.completeJobSuccessfully(job)
	log.Info().Int64("processed", job.Progress.ProcessedFeatures).Int64("failed", job.Progress.FailedFeatures).
		Msg("batch complete")

	if bp.reporter != nil {
		bp.reporter.ReportJobComplete(job)
	}

	return nil
}

// ProcessChunk decodes a chunk of work items using every available CPU
func (bp *FeatureProcessor) ProcessChunk(ctx context.Context, workItems []*WorkItem) (*ChunkResult, error) {
	return bp.processChunk(ctx, workItems, runtime.GOMAXPROCS(0))
}

func (bp *FeatureProcessor) processChunk(ctx context.Context, workItems []*WorkItem, concurrency int) (*ChunkResult, error) {
	start := time.Now()
	if len(workItems) == 0 {
		return &ChunkResult{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*WorkResult, len(workItems))
	p := pool.New().WithMaxGoroutines(min(concurrency, len(workItems)))
	for i, item := range workItems {
		p.Go(func() {
			results[i] = bp.processWorkItem(ctx, item)
		})
	}
	p.Wait()

	chunk := &ChunkResult{
		ChunkID:  workItems[0].ChunkID,
		Results:  results,
		Duration: time.Since(start),
	}
	for _, r := range results {
		if r.Error != nil {
			chunk.FailureCount++
		} else {
			chunk.SuccessCount++
		}
	}
	bp.metrics.ChunkDuration.Observe(chunk.Duration.Seconds())
	bp.metrics.Features.WithLabelValues("success").Add(float64(chunk.SuccessCount))
	bp.metrics.Features.WithLabelValues("failure").Add(float64(chunk.FailureCount))

	if err := ctx.Err(); err != nil {
		return chunk, err
	}
	return chunk, nil
}

// processWorkItem decodes a single row; a NULL geometry is not an error
func (bp *FeatureProcessor) processWorkItem(ctx context.Context, item *WorkItem) *WorkResult {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return &WorkResult{Item: item, Error: err}
	}
	if item.Row.Geometry == nil {
		return &WorkResult{Item: item, Feature: features.Feature{ID: item.Row.ID}, Duration: time.Since(start)}
	}

	f, err := bp.decoder.DecodeFeature(item.Row)
	return &WorkResult{
		Item:     item,
		Feature:  f,
		Error:    err,
		Duration: time.Since(start),
	}
}

func (bp *FeatureProcessor) updateJobProgress(job *Job, chunkResult *ChunkResult) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Progress.ProcessedFeatures += int64(len(chunkResult.Results))
	job.Progress.SuccessFeatures += int64(chunkResult.SuccessCount)
	job.Progress.FailedFeatures += int64(chunkResult.FailureCount)
	job.Progress.UpdateThroughput()

	estimatedEnd := job.Progress.EstimateCompletion()
	job.Progress.EstimatedEnd = &estimatedEnd
}

func (bp *FeatureProcessor) completeJobSuccessfully(job *Job) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Status = JobStatusCompleted
	now := time.Now()
	job.CompletedAt = &now
}

// completeJobWithError marks the job failed, or canceled when its context was canceled
func (bp *FeatureProcessor) completeJobWithError(job *Job, err error) {
	bp.mutex.Lock()
	job.Status = JobStatusFailed
	if errors.Is(err, context.Canceled) {
		job.Status = JobStatusCanceled
	}
	job.Error = err
	now := time.Now()
	job.CompletedAt = &now
	bp.mutex.Unlock()

	bp.log.Warn().Str("job", job.ID).Err(err).Msg("batch stopped")
	if bp.reporter != nil {
		bp.reporter.ReportJobFailed(job, err)
	}
}

func successes(chunk *ChunkResult) []features.Feature {
	out := make([]features.Feature, 0, chunk.SuccessCount)
	for _, r := range chunk.Results {
		if r.Error == nil {
			out = append(out, r.Feature)
		}
	}
	return out
}

func firstFailure(chunk *ChunkResult) error {
	for _, r := range chunk.Results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}
