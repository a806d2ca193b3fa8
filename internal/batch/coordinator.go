// internal/batch/coordinator.go - Batch coordination implementation
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/geopackage/internal"
)

// run tracks the goroutine executing one job
type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultCoordinator implements the Coordinator interface. A job's fields
// are owned by its processor until Wait returns.
type DefaultCoordinator struct {
	jobs      map[string]*Job
	runs      map[string]*run
	processor Processor
	mutex     sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewDefaultCoordinator creates a new batch coordinator
func NewDefaultCoordinator(processor Processor) *DefaultCoordinator {
	ctx, cancel := context.WithCancel(context.Background())

	return &DefaultCoordinator{
		jobs:      make(map[string]*Job),
		runs:      make(map[string]*run),
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SubmitJob validates a job and starts processing it asynchronously
func (c *DefaultCoordinator) SubmitJob(job *Job) error {
	if job.ID == "" {
		return internal.NewError(internal.ErrorCodeValidation, "job ID is required", nil)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.jobs[job.ID]; exists {
		return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("job %s already exists", job.ID), nil)
	}

	if err := validateJob(job); err != nil {
		return internal.NewError(internal.ErrorCodeValidation, "job validation failed", err)
	}

	job.Progress = NewJobProgress()
	job.CreatedAt = time.Now()
	job.Status = JobStatusPending

	jobCtx, jobCancel := context.WithTimeout(c.ctx, job.Config.Timeout)
	r := &run{cancel: jobCancel, done: make(chan struct{})}
	c.jobs[job.ID] = job
	c.runs[job.ID] = r

	go func() {
		defer close(r.done)
		defer jobCancel()

		c.processor.Process(jobCtx, job)
	}()

	return nil
}

// GetJob retrieves a job by its ID
func (c *DefaultCoordinator) GetJob(id string) (*Job, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	job, exists := c.jobs[id]
	if !exists {
		return nil, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("job %s not found", id), nil)
	}
	return job, nil
}

// Wait blocks until the job finishes or ctx is done
func (c *DefaultCoordinator) Wait(ctx context.Context, id string) (*Job, error) {
	c.mutex.RLock()
	job, exists := c.jobs[id]
	r := c.runs[id]
	c.mutex.RUnlock()

	if !exists {
		return nil, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("job %s not found", id), nil)
	}

	select {
	case <-r.done:
		return job, job.Error
	case <-ctx.Done():
		return job, internal.NewError(internal.ErrorCodeTimeout, fmt.Sprintf("waiting for job %s", id), ctx.Err())
	}
}

// CancelJob stops a running or pending job; its status becomes canceled once the processor returns
func (c *DefaultCoordinator) CancelJob(id string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	r, exists := c.runs[id]
	if !exists {
		return internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("job %s not found", id), nil)
	}

	select {
	case <-r.done:
		return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("job %s is already complete", id), nil)
	default:
	}

	r.cancel()
	return nil
}

// ListJobs returns all jobs managed by the coordinator
func (c *DefaultCoordinator) ListJobs() ([]*Job, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	jobs := make([]*Job, 0, len(c.jobs))
	for _, job := range c.jobs {
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// CleanupJob forgets a finished job
func (c *DefaultCoordinator) CleanupJob(id string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	r, exists := c.runs[id]
	if !exists {
		return internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("job %s not found", id), nil)
	}

	select {
	case <-r.done:
	default:
		return internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("job %s is not complete", id), nil)
	}

	delete(c.jobs, id)
	delete(c.runs, id)
	return nil
}

// Shutdown cancels every job and waits for their processors to return
func (c *DefaultCoordinator) Shutdown() error {
	c.cancel()

	c.mutex.RLock()
	runs := make([]*run, 0, len(c.runs))
	for _, r := range c.runs {
		runs = append(runs, r)
	}
	c.mutex.RUnlock()

	for _, r := range runs {
		<-r.done
	}
	return nil
}

// validateJob validates job configuration and requirements
func validateJob(job *Job) error {
	if job.Config == nil {
		return fmt.Errorf("job configuration is required")
	}

	if job.Table == "" {
		return fmt.Errorf("table is required")
	}

	if job.Config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if job.Config.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}

	if job.Config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// GetJobStatistics counts finished jobs by status; unfinished jobs count as running
func (c *DefaultCoordinator) GetJobStatistics() map[string]int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := map[string]int{
		"total_jobs": len(c.jobs),
	}
	for id, job := range c.jobs {
		select {
		case <-c.runs[id].done:
			stats[job.Status.String()]++
		default:
			stats[JobStatusRunning.String()]++
		}
	}

	return stats
}
