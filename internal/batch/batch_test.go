// internal/batch/batch_test.go
package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/geopackage/internal"
	"github.com/valpere/geopackage/internal/features"
	"github.com/valpere/geopackage/internal/logger"
	"github.com/valpere/geopackage/internal/metrics"
	"github.com/valpere/geopackage/internal/store"
	"github.com/valpere/geopackage/internal/store/storetest"
	"github.com/valpere/geopackage/pkg/geometry"
	"github.com/valpere/geopackage/pkg/gpb"
)

type collectingSink struct {
	mu     sync.Mutex
	chunks [][]features.Feature
	err    error
}

func (s *collectingSink) WriteChunk(_ *Job, decoded []features.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.chunks = append(s.chunks, decoded)
	return nil
}

func (s *collectingSink) ids() []int64 {
	var out []int64
	for _, c := range s.chunks {
		for _, f := range c {
			out = append(out, f.ID)
		}
	}
	return out
}

// openFixture builds a table of n points; ids listed in bad get an invalid BLOB
func openFixture(t *testing.T, n int, bad ...int) *store.Store {
	t.Helper()

	badSet := map[int]bool{}
	for _, b := range bad {
		badSet[b] = true
	}

	g := storetest.New(t)
	g.AddFeatureTable("points", "POINT", 4326)
	for i := 1; i <= n; i++ {
		if badSet[i] {
			g.AddFeature("points", []byte("GP\x00\x01\x00"))
			continue
		}
		blob, err := gpb.Encode(geometry.NewPoint(geometry.NewCoordinate(float64(i), float64(-i))), 4326, gpb.EncodeOptions{})
		require.NoError(t, err)
		g.AddFeature("points", blob)
	}
	g.Close()

	st, err := store.Open(context.Background(), g.Path, store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newProcessor(t *testing.T, st *store.Store, sink Sink) *FeatureProcessor {
	t.Helper()
	decoder, err := features.NewService(features.Options{})
	require.NoError(t, err)
	return NewFeatureProcessor(st, decoder, sink, nil, logger.Nop())
}

func TestProcess(t *testing.T) {
	st := openFixture(t, 25)
	sink := &collectingSink{}
	m := metrics.NewBatch(nil)
	bp := newProcessor(t, st, sink).WithMetrics(m)

	job := NewJob("j1", "points", &JobConfig{Concurrency: 4, ChunkSize: 10, Timeout: time.Minute})
	require.NoError(t, bp.Process(context.Background(), job))

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, int64(25), job.Progress.TotalFeatures)
	assert.Equal(t, int64(25), job.Progress.ProcessedFeatures)
	assert.Equal(t, int64(25), job.Progress.SuccessFeatures)
	assert.Equal(t, 3, job.Progress.TotalChunks)
	assert.Equal(t, 3, job.Progress.CurrentChunk)
	assert.Equal(t, 100.0, job.Progress.CalculateProgress())
	require.NotNil(t, job.CompletedAt)

	require.Len(t, sink.chunks, 3)
	assert.Len(t, sink.chunks[2], 5)
	ids := sink.ids()
	require.Len(t, ids, 25)
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	p := sink.chunks[0][3].Geometry.(geometry.Point)
	assert.Equal(t, 4.0, p.Coordinate().X())
	assert.Equal(t, 25.0, testutil.ToFloat64(m.Features.WithLabelValues("success")))
}

func TestProcessSkipsFailures(t *testing.T) {
	st := openFixture(t, 6, 2, 5)
	sink := &collectingSink{}
	bp := newProcessor(t, st, sink)

	job := NewJob("j1", "points", &JobConfig{Concurrency: 2, ChunkSize: 4, Timeout: time.Minute})
	require.NoError(t, bp.Process(context.Background(), job))

	assert.Equal(t, int64(2), job.Progress.FailedFeatures)
	assert.Equal(t, []int64{1, 3, 4, 6}, sink.ids())
}

func TestProcessFailOnError(t *testing.T) {
	st := openFixture(t, 6, 5)
	sink := &collectingSink{}
	bp := newProcessor(t, st, sink)

	job := NewJob("j1", "points", &JobConfig{Concurrency: 2, ChunkSize: 4, Timeout: time.Minute, FailOnError: true})
	err := bp.Process(context.Background(), job)
	require.Error(t, err)

	var fe *features.FeatureError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(5), fe.ID)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, []int64{1, 2, 3, 4}, sink.ids())
}

func TestProcessSinkError(t *testing.T) {
	st := openFixture(t, 3)
	boom := errors.New("disk full")
	bp := newProcessor(t, st, &collectingSink{err: boom})

	job := NewJob("j1", "points", NewJobConfig())
	err := bp.Process(context.Background(), job)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, JobStatusFailed, job.Status)
}

func TestProcessUnknownTable(t *testing.T) {
	st := openFixture(t, 1)
	bp := newProcessor(t, st, &collectingSink{})

	job := NewJob("j1", "nope", NewJobConfig())
	err := bp.Process(context.Background(), job)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestProcessCanceled(t *testing.T) {
	st := openFixture(t, 3)
	bp := newProcessor(t, st, &collectingSink{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob("j1", "points", NewJobConfig())
	err := bp.Process(ctx, job)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, JobStatusCanceled, job.Status)
}

func TestProcessChunkKeepsOrder(t *testing.T) {
	st := openFixture(t, 1)
	bp := newProcessor(t, st, &collectingSink{})

	blob, err := gpb.Encode(geometry.NewPoint(geometry.NewCoordinate(1, 1)), 4326, gpb.EncodeOptions{})
	require.NoError(t, err)

	items := make([]*WorkItem, 50)
	for i := range items {
		items[i] = NewWorkItem(store.Feature{ID: int64(i), Geometry: blob}, 0, i)
	}
	items[10].Row.Geometry = []byte("bad")
	items[20].Row.Geometry = nil

	chunk, err := bp.ProcessChunk(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 49, chunk.SuccessCount)
	assert.Equal(t, 1, chunk.FailureCount)
	for i, r := range chunk.Results {
		assert.Same(t, items[i], r.Item)
	}
	assert.Nil(t, chunk.Results[20].Feature.Geometry)
	assert.Error(t, firstFailure(chunk))
}

func TestCoordinator(t *testing.T) {
	st := openFixture(t, 12)
	sink := &collectingSink{}
	c := NewDefaultCoordinator(newProcessor(t, st, sink))
	defer c.Shutdown()

	job := NewJob("export-points", "points", &JobConfig{Concurrency: 3, ChunkSize: 5, Timeout: time.Minute})
	require.NoError(t, c.SubmitJob(job))

	done, err := c.Wait(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, done.Status)
	assert.Len(t, sink.ids(), 12)

	stats := c.GetJobStatistics()
	assert.Equal(t, 1, stats["total_jobs"])
	assert.Equal(t, 1, stats["completed"])

	jobs, err := c.ListJobs()
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	err = c.CancelJob(job.ID)
	assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))

	require.NoError(t, c.CleanupJob(job.ID))
	_, err = c.GetJob(job.ID)
	assert.Equal(t, internal.ErrorCodeNotFound, internal.CodeOf(err))
}

func TestCoordinatorValidation(t *testing.T) {
	c := NewDefaultCoordinator(nil)
	defer c.Shutdown()

	tests := []struct {
		name string
		job  *Job
	}{
		{"missing id", NewJob("", "points", NewJobConfig())},
		{"missing table", NewJob("a", "", NewJobConfig())},
		{"missing config", NewJob("b", "points", nil)},
		{"zero concurrency", NewJob("c", "points", &JobConfig{ChunkSize: 1, Timeout: time.Second})},
		{"zero chunk", NewJob("d", "points", &JobConfig{Concurrency: 1, Timeout: time.Second})},
		{"zero timeout", NewJob("e", "points", &JobConfig{Concurrency: 1, ChunkSize: 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.SubmitJob(tt.job)
			assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))
		})
	}
}

func TestCoordinatorDuplicate(t *testing.T) {
	st := openFixture(t, 1)
	c := NewDefaultCoordinator(newProcessor(t, st, &collectingSink{}))
	defer c.Shutdown()

	require.NoError(t, c.SubmitJob(NewJob("same", "points", NewJobConfig())))
	err := c.SubmitJob(NewJob("same", "points", NewJobConfig()))
	assert.Equal(t, internal.ErrorCodeValidation, internal.CodeOf(err))

	_, err = c.Wait(context.Background(), "same")
	require.NoError(t, err)
}

func TestJobProgress(t *testing.T) {
	p := NewJobProgress()
	assert.Zero(t, p.CalculateProgress())
	assert.True(t, p.EstimateCompletion().After(time.Now().Add(59*time.Minute)))

	p.TotalFeatures = 10
	p.ProcessedFeatures = 10
	p.Throughput = 5
	assert.Equal(t, 100.0, p.CalculateProgress())
	assert.WithinDuration(t, time.Now(), p.EstimateCompletion(), time.Second)

	assert.True(t, JobStatusCanceled.IsValid())
	assert.False(t, JobStatus("paused").IsValid())
}

func TestSinkFunc(t *testing.T) {
	var got int
	s := SinkFunc(func(_ *Job, decoded []features.Feature) error {
		got = len(decoded)
		return nil
	})
	require.NoError(t, s.WriteChunk(nil, make([]features.Feature, 3)))
	assert.Equal(t, 3, got)
}
