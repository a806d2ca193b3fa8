// cmd/batch.go - Batch job plumbing shared by the export commands
package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/batch"
	"github.com/valpere/geopackage/internal/output"
)

// runExportJob exports one table and waits for it
func runExportJob(ctx context.Context, c *batch.DefaultCoordinator, sink *output.TableSink, table string, jobConfig *batch.JobConfig) (*batch.Job, error) {
	if _, err := sink.Writer(table); err != nil {
		return nil, err
	}

	job := batch.NewJob(generateJobID("features", table), table, jobConfig)
	if err := c.SubmitJob(job); err != nil {
		return nil, err
	}
	return waitJob(ctx, c, job)
}

// runExportJobs exports every table concurrently and waits for all of them
func runExportJobs(ctx context.Context, c *batch.DefaultCoordinator, sink *output.TableSink, tables []string, jobConfig *batch.JobConfig) ([]*batch.Job, error) {
	var err error
	jobs := make([]*batch.Job, 0, len(tables))
	for _, table := range tables {
		// Open every output up front so empty tables still produce a document
		if _, openErr := sink.Writer(table); openErr != nil {
			err = multierr.Append(err, openErr)
			continue
		}
		job := batch.NewJob(generateJobID("features", table), table, jobConfig)
		if submitErr := c.SubmitJob(job); submitErr != nil {
			err = multierr.Append(err, submitErr)
			continue
		}
		jobs = append(jobs, job)
	}

	for _, job := range jobs {
		_, waitErr := waitJob(ctx, c, job)
		err = multierr.Append(err, waitErr)
	}
	return jobs, err
}

// waitJob waits for a job, canceling it when ctx ends first
func waitJob(ctx context.Context, c *batch.DefaultCoordinator, job *batch.Job) (*batch.Job, error) {
	done, err := c.Wait(ctx, job.ID)
	if internal.CodeOf(err) == internal.ErrorCodeTimeout {
		c.CancelJob(job.ID)
		c.Wait(context.Background(), job.ID)
	}
	if err != nil {
		return done, fmt.Errorf("table %s: %w", job.Table, err)
	}
	return done, nil
}

// summarize logs one line per exported table
func summarize(log zerolog.Logger, jobs []*batch.Job, results map[string]output.WriteResult, elapsed time.Duration) {
	for _, job := range jobs {
		if job == nil {
			continue
		}
		result := results[job.Table]
		event := log.Info()
		if job.Status != batch.JobStatusCompleted {
			event = log.Error().Err(job.Error)
		}
		event.Str("table", job.Table).
			Str("status", job.Status.String()).
			Int64("features", job.Progress.SuccessFeatures).
			Int64("failed", job.Progress.FailedFeatures).
			Str("destination", result.Destination).
			Int64("bytes", result.BytesWritten).
			Msg("table exported")
	}
	log.Debug().Dur("elapsed", elapsed).Int("tables", len(jobs)).Msg("export finished")
}

// generateJobID creates a unique job ID
func generateJobID(kind, table string) string {
	return fmt.Sprintf("%s-%s-%d", kind, table, time.Now().UnixNano())
}

// ConsoleProgressReporter implements progress reporting to console
type ConsoleProgressReporter struct {
	out        io.Writer
	mu         sync.Mutex
	lastUpdate time.Time
}

// NewConsoleProgressReporter creates a new console progress reporter
func NewConsoleProgressReporter(out io.Writer) *ConsoleProgressReporter {
	return &ConsoleProgressReporter{out: out}
}

// ReportProgress reports job progress to console
func (r *ConsoleProgressReporter) ReportProgress(job *batch.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastUpdate) < time.Second {
		return nil // Rate limit updates
	}

	progress := job.Progress.CalculateProgress()
	fmt.Fprintf(r.out, "\r%s: %.1f%% (%d/%d features, %.2f features/sec)",
		job.Table, progress, job.Progress.ProcessedFeatures, job.Progress.TotalFeatures, job.Progress.Throughput)

	r.lastUpdate = time.Now()
	return nil
}

// ReportChunkComplete reports chunk completion
func (r *ConsoleProgressReporter) ReportChunkComplete(job *batch.Job, chunk *batch.ChunkResult) error {
	return r.ReportProgress(job)
}

// ReportJobComplete reports job completion
func (r *ConsoleProgressReporter) ReportJobComplete(job *batch.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\r%s: completed (%d features, %d failed)\n",
		job.Table, job.Progress.SuccessFeatures, job.Progress.FailedFeatures)
	return nil
}

// ReportJobFailed reports job failure
func (r *ConsoleProgressReporter) ReportJobFailed(job *batch.Job, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\r%s: failed: %s\n", job.Table, err.Error())
	return nil
}
