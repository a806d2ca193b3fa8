// internal/batch/types.go - Batch decoding types
package batch

import (
	"context"
	"time"

	"github.com/valpere/geopackage/internal/features"
	"github.com/valpere/geopackage/internal/store"
)

// Job decodes every feature of one table
type Job struct {
	ID          string       `json:"id"`
	Table       string       `json:"table"`
	Config      *JobConfig   `json:"config"`
	Status      JobStatus    `json:"status"`
	Progress    *JobProgress `json:"progress"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       error        `json:"-"`
}

// JobConfig contains configuration for a batch job
type JobConfig struct {
	Concurrency int           `json:"concurrency"`
	ChunkSize   int           `json:"chunk_size"`
	Timeout     time.Duration `json:"timeout"`
	FailOnError bool          `json:"fail_on_error"`
}

// JobStatus represents the current status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobProgress tracks the progress of a batch job
type JobProgress struct {
	TotalFeatures     int64      `json:"total_features"`
	ProcessedFeatures int64      `json:"processed_features"`
	FailedFeatures    int64      `json:"failed_features"`
	SuccessFeatures   int64      `json:"success_features"`
	CurrentChunk      int        `json:"current_chunk"`
	TotalChunks       int        `json:"total_chunks"`
	StartTime         time.Time  `json:"start_time"`
	EstimatedEnd      *time.Time `json:"estimated_end,omitempty"`
	Throughput        float64    `json:"throughput"`
}

// WorkItem is one feature row waiting to be decoded
type WorkItem struct {
	Row     store.Feature
	ChunkID int
	ItemID  int
}

// WorkResult is the outcome of decoding one work item
type WorkResult struct {
	Item     *WorkItem
	Feature  features.Feature
	Error    error
	Duration time.Duration
}

// ChunkResult collects the results of one chunk in row order
type ChunkResult struct {
	ChunkID      int           `json:"chunk_id"`
	Results      []*WorkResult `json:"-"`
	Duration     time.Duration `json:"duration"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
}

// Coordinator manages batch jobs
type Coordinator interface {
	SubmitJob(job *Job) error
	GetJob(id string) (*Job, error)
	CancelJob(id string) error
	ListJobs() ([]*Job, error)
	CleanupJob(id string) error
	Wait(ctx context.Context, id string) (*Job, error)
}

// Processor executes batch jobs
type Processor interface {
	Process(ctx context.Context, job *Job) error
	ProcessChunk(ctx context.Context, workItems []*WorkItem) (*ChunkResult, error)
}

// Sink receives the successfully decoded features of each chunk in row order
type Sink interface {
	WriteChunk(job *Job, decoded []features.Feature) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(job *Job, decoded []features.Feature) error

func (f SinkFunc) WriteChunk(job *Job, decoded []features.Feature) error { return f(job, decoded) }

// ProgressReporter receives job lifecycle notifications
type ProgressReporter interface {
	ReportProgress(job *Job) error
	ReportChunkComplete(job *Job, chunk *ChunkResult) error
	ReportJobComplete(job *Job) error
	ReportJobFailed(job *Job, err error) error
}

// NewJob creates a new batch job for table
func NewJob(id, table string, config *JobConfig) *Job {
	return &Job{
		ID:        id,
		Table:     table,
		Config:    config,
		Status:    JobStatusPending,
		Progress:  NewJobProgress(),
		CreatedAt: time.Now(),
	}
}

// NewJobConfig creates a job configuration with default values
func NewJobConfig() *JobConfig {
	return &JobConfig{
		Concurrency: 8,
		ChunkSize:   500,
		Timeout:     30 * time.Minute,
		FailOnError: false,
	}
}

// NewJobProgress creates a new job progress tracker
func NewJobProgress() *JobProgress {
	return &JobProgress{StartTime: time.Now()}
}

// NewWorkItem creates a new work item
func NewWorkItem(row store.Feature, chunkID, itemID int) *WorkItem {
	return &WorkItem{
		Row:     row,
		ChunkID: chunkID,
		ItemID:  itemID,
	}
}

// IsComplete returns true if the job has finished (successfully or with error)
func (j *Job) IsComplete() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCanceled
}

// IsRunning returns true if the job is currently being processed
func (j *Job) IsRunning() bool {
	return j.Status == JobStatusRunning
}

// EstimateCompletion estimates when the job will complete based on current progress
func (p *JobProgress) EstimateCompletion() time.Time {
	if p.Throughput == 0 || p.ProcessedFeatures == 0 {
		return time.Now().Add(time.Hour)
	}

	remaining := p.TotalFeatures - p.ProcessedFeatures
	if remaining <= 0 {
		return time.Now()
	}

	secondsRemaining := float64(remaining) / p.Throughput
	return time.Now().Add(time.Duration(secondsRemaining * float64(time.Second)))
}

// CalculateProgress calculates the completion percentage
func (p *JobProgress) CalculateProgress() float64 {
	if p.TotalFeatures == 0 {
		return 0
	}
	return float64(p.ProcessedFeatures) / float64(p.TotalFeatures) * 100
}

// UpdateThroughput updates the features-per-second rate from elapsed time
func (p *JobProgress) UpdateThroughput() {
	elapsed := time.Since(p.StartTime)
	if elapsed.Seconds() > 0 && p.ProcessedFeatures > 0 {
		p.Throughput = float64(p.ProcessedFeatures) / elapsed.Seconds()
	}
}

func (s JobStatus) String() string {
	return string(s)
}

// IsValid checks if the job status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}
