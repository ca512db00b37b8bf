package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/scheduler"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/testutil"
)

const testPoll = 20 * time.Millisecond

func setupScheduler(t *testing.T, concurrency int) (*scheduler.Scheduler, *store.Store) {
	t.Helper()
	st := store.New(testutil.SetupTestDB(t))
	return scheduler.New(st, concurrency, testPoll), st
}

func capturePayload() models.CapturePayload {
	return models.CapturePayload{OwnerID: "user-1", CaptureID: 1}
}

func waitForStatus(t *testing.T, st *store.Store, jobID int64, status string) *models.CaptureJob {
	t.Helper()
	var job *models.CaptureJob
	require.Eventually(t, func() bool {
		j, err := st.GetJob(jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == status
	}, 2*time.Second, 10*time.Millisecond, "job %d never reached %s", jobID, status)
	return job
}

func TestEnqueueValidation(t *testing.T) {
	s, st := setupScheduler(t, 1)

	t.Run("rejects mismatched payload type", func(t *testing.T) {
		_, err := s.Enqueue(models.JobKindCapture, models.CrawlBatchPayload{OwnerID: "u", GroupID: 1, MaxDepth: 1, MaxPages: 1})
		assert.Error(t, err)
	})

	t.Run("rejects missing owner", func(t *testing.T) {
		_, err := s.Enqueue(models.JobKindCapture, models.CapturePayload{CaptureID: 1})
		assert.Error(t, err)
	})

	t.Run("rejects zero target id", func(t *testing.T) {
		_, err := s.Enqueue(models.JobKindFrameCapture, models.FrameCapturePayload{OwnerID: "u"})
		assert.Error(t, err)
	})

	t.Run("rejects bad crawl bounds", func(t *testing.T) {
		_, err := s.Enqueue(models.JobKindCrawlBatch, models.CrawlBatchPayload{OwnerID: "u", GroupID: 1, MaxDepth: 0, MaxPages: 5})
		assert.Error(t, err)
		_, err = s.Enqueue(models.JobKindCrawlBatch, models.CrawlBatchPayload{OwnerID: "u", GroupID: 1, MaxDepth: 1, MaxPages: 0})
		assert.Error(t, err)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := s.Enqueue(models.JobKind("defrag"), capturePayload())
		assert.Error(t, err)
	})

	t.Run("accepts a valid payload", func(t *testing.T) {
		id, err := s.Enqueue(models.JobKindCapture, capturePayload())
		require.NoError(t, err)

		job, err := st.GetJob(id)
		require.NoError(t, err)
		assert.Equal(t, models.JobKindCapture, job.Kind)
		assert.Equal(t, models.JobQueued, job.Status)
		assert.JSONEq(t, `{"owner_id":"user-1","capture_id":1}`, job.Payload)
	})
}

func TestSchedulerRunsJob(t *testing.T) {
	s, st := setupScheduler(t, 2)

	var gotPayload atomic.Value
	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		gotPayload.Store(job.Payload)
		return nil
	})

	id, err := s.Enqueue(models.JobKindCapture, capturePayload())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	job := waitForStatus(t, st, id, models.JobCompleted)
	assert.Empty(t, job.Error)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)
	assert.JSONEq(t, `{"owner_id":"user-1","capture_id":1}`, gotPayload.Load().(string))
}

func TestSchedulerRecordsFailureWithoutRetry(t *testing.T) {
	s, st := setupScheduler(t, 1)

	var calls atomic.Int32
	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		calls.Add(1)
		return assert.AnError
	})

	id, err := s.Enqueue(models.JobKindCapture, capturePayload())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	job := waitForStatus(t, st, id, models.JobFailed)
	assert.Equal(t, assert.AnError.Error(), job.Error)

	// Several more poll cycles must not pick the failed row up again.
	time.Sleep(5 * testPoll)
	assert.Equal(t, int32(1), calls.Load())
	job, err = st.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
}

func TestSchedulerRecoversPanic(t *testing.T) {
	s, st := setupScheduler(t, 1)

	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		panic("handler exploded")
	})
	id, err := s.Enqueue(models.JobKindCapture, capturePayload())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	job := waitForStatus(t, st, id, models.JobFailed)
	assert.Contains(t, job.Error, "job panicked")
	assert.Contains(t, job.Error, "handler exploded")

	// The worker survived and keeps serving jobs.
	var served atomic.Bool
	s.Register(models.JobKindAutoScroll, func(ctx context.Context, job *models.CaptureJob) error {
		served.Store(true)
		return nil
	})
	next, err := s.Enqueue(models.JobKindAutoScroll, models.AutoScrollPayload{OwnerID: "user-1", GroupID: 1})
	require.NoError(t, err)
	waitForStatus(t, st, next, models.JobCompleted)
	assert.True(t, served.Load())
}

func TestSchedulerFailsKindsWithoutHandler(t *testing.T) {
	s, st := setupScheduler(t, 1)

	id, err := s.Enqueue(models.JobKindAutoScroll, models.AutoScrollPayload{OwnerID: "user-1", GroupID: 1})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	job := waitForStatus(t, st, id, models.JobFailed)
	assert.Contains(t, job.Error, "no handler registered")
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	s, st := setupScheduler(t, 2)

	var inFlight, peak atomic.Int32
	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(40 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	ids := make([]int64, 0, 6)
	for i := 0; i < 6; i++ {
		id, err := s.Enqueue(models.JobKindCapture, capturePayload())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, s.Start())
	defer s.Stop()

	for _, id := range ids {
		waitForStatus(t, st, id, models.JobCompleted)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSchedulerStopWaitsForInFlight(t *testing.T) {
	s, st := setupScheduler(t, 1)

	started := make(chan struct{})
	var finished atomic.Bool
	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		close(started)
		time.Sleep(80 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	id, err := s.Enqueue(models.JobKindCapture, capturePayload())
	require.NoError(t, err)
	require.NoError(t, s.Start())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	s.Stop()
	assert.True(t, finished.Load(), "Stop returned before the running job finished")

	job, err := st.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
}

func TestStartRequeuesInterruptedJobs(t *testing.T) {
	s, st := setupScheduler(t, 1)

	// A row stuck in running simulates a process that died mid-job.
	id, err := s.Enqueue(models.JobKindCapture, capturePayload())
	require.NoError(t, err)
	claimed, err := st.ClaimJob(id)
	require.NoError(t, err)
	require.True(t, claimed)

	var calls atomic.Int32
	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, s.Start())
	defer s.Stop()

	waitForStatus(t, st, id, models.JobCompleted)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeferredJobWaitsForRunAt(t *testing.T) {
	s, st := setupScheduler(t, 1)

	var calls atomic.Int32
	s.Register(models.JobKindCapture, func(ctx context.Context, job *models.CaptureJob) error {
		calls.Add(1)
		return nil
	})

	id, err := s.EnqueueAt(models.JobKindCapture, capturePayload(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(5 * testPoll)
	assert.Equal(t, int32(0), calls.Load())

	job, err := st.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.Status)
}
