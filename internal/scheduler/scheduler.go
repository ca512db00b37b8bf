// Package scheduler runs the durable job queue: a fixed pool of
// workers pulling claimed rows from the database on a polling
// interval. The scheduler dispatches by kind and records outcomes;
// what a job means is entirely the registered handler's business.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
)

const (
	defaultConcurrency  = 5
	defaultPollInterval = 5 * time.Second
)

// Handler executes one claimed job. A non-nil error marks the job
// failed with the error text; there is no automatic retry.
type Handler func(ctx context.Context, job *models.CaptureJob) error

type Scheduler struct {
	store        *store.Store
	concurrency  int
	pollInterval time.Duration

	mu       sync.Mutex
	handlers map[models.JobKind]Handler
	started  bool

	jobQueue chan *models.CaptureJob
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(st *store.Store, concurrency int, pollInterval time.Duration) *Scheduler {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Scheduler{
		store:        st,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		handlers:     make(map[models.JobKind]Handler),
	}
}

// Register installs the handler for a job kind. Kinds without a
// handler fail at dispatch, not at enqueue, so registration order
// does not matter.
func (s *Scheduler) Register(kind models.JobKind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Enqueue validates the payload against its kind and writes a queue
// row due immediately.
func (s *Scheduler) Enqueue(kind models.JobKind, payload interface{}) (int64, error) {
	return s.EnqueueAt(kind, payload, time.Now())
}

// EnqueueAt is Enqueue with an explicit due time.
func (s *Scheduler) EnqueueAt(kind models.JobKind, payload interface{}, runAt time.Time) (int64, error) {
	if err := validatePayload(kind, payload); err != nil {
		return 0, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}
	return s.store.EnqueueJob(kind, string(data), runAt)
}

// Start brings up the worker pool and the poller. Jobs left running
// by a previous process are re-queued first so a crash never strands
// work.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	requeued, err := s.store.ResetRunningJobs()
	if err != nil {
		return fmt.Errorf("failed to reset interrupted jobs: %w", err)
	}
	if requeued > 0 {
		log.Printf("Re-queued %d jobs interrupted by the previous run", requeued)
	}

	s.jobQueue = make(chan *models.CaptureJob, s.concurrency)
	s.stop = make(chan struct{})
	for i := 1; i <= s.concurrency; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.wg.Add(1)
	go s.poll()

	s.started = true
	return nil
}

// Stop halts dispatch and waits for in-flight jobs to finish. Claimed
// rows that never reached a worker go back to queued.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	if _, err := s.store.ResetRunningJobs(); err != nil {
		log.Printf("Failed to release claimed jobs on shutdown: %v", err)
	}
}

func (s *Scheduler) poll() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		s.dispatchDue()
		select {
		case <-ticker.C:
		case <-s.stop:
			return
		}
	}
}

// dispatchDue claims due rows and feeds them to the pool. The claim
// is a conditional queued-to-running update, so a row is handed to at
// most one worker even with several processes polling the same
// database.
func (s *Scheduler) dispatchDue() {
	due, err := s.store.DueJobs(s.concurrency)
	if err != nil {
		log.Printf("Failed to fetch due jobs: %v", err)
		return
	}
	for _, job := range due {
		claimed, err := s.store.ClaimJob(job.ID)
		if err != nil {
			log.Printf("Failed to claim job %d: %v", job.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		select {
		case s.jobQueue <- job:
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobQueue:
			s.runJob(job)
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) runJob(job *models.CaptureJob) {
	s.mu.Lock()
	h := s.handlers[job.Kind]
	s.mu.Unlock()
	if h == nil {
		errText := fmt.Sprintf("no handler registered for job kind %q", job.Kind)
		log.Printf("Job %d: %s", job.ID, errText)
		if err := s.store.FailJob(job.ID, errText); err != nil {
			log.Printf("Failed to record failure of job %d: %v", job.ID, err)
		}
		return
	}

	if err := s.invoke(h, job); err != nil {
		log.Printf("Job %d (%s) failed: %v", job.ID, job.Kind, err)
		if ferr := s.store.FailJob(job.ID, err.Error()); ferr != nil {
			log.Printf("Failed to record failure of job %d: %v", job.ID, ferr)
		}
		return
	}
	if err := s.store.CompleteJob(job.ID); err != nil {
		log.Printf("Failed to record completion of job %d: %v", job.ID, err)
	}
}

// invoke shields the pool from handler panics; a panicking job is a
// failed job, not a dead worker.
func (s *Scheduler) invoke(h Handler, job *models.CaptureJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return h(context.Background(), job)
}

// validatePayload rejects malformed work before it reaches the queue.
// Each kind carries exactly one payload type.
func validatePayload(kind models.JobKind, payload interface{}) error {
	switch kind {
	case models.JobKindCapture:
		p, ok := payload.(models.CapturePayload)
		if !ok {
			return fmt.Errorf("payload for %q must be a CapturePayload", kind)
		}
		if p.OwnerID == "" || p.CaptureID <= 0 {
			return fmt.Errorf("capture payload requires an owner and a capture id")
		}
	case models.JobKindFrameCapture:
		p, ok := payload.(models.FrameCapturePayload)
		if !ok {
			return fmt.Errorf("payload for %q must be a FrameCapturePayload", kind)
		}
		if p.OwnerID == "" || p.GroupID <= 0 {
			return fmt.Errorf("frame-capture payload requires an owner and a group id")
		}
	case models.JobKindCrawl:
		p, ok := payload.(models.CrawlPayload)
		if !ok {
			return fmt.Errorf("payload for %q must be a CrawlPayload", kind)
		}
		if p.OwnerID == "" || p.CaptureID <= 0 {
			return fmt.Errorf("crawl payload requires an owner and a capture id")
		}
	case models.JobKindCrawlBatch:
		p, ok := payload.(models.CrawlBatchPayload)
		if !ok {
			return fmt.Errorf("payload for %q must be a CrawlBatchPayload", kind)
		}
		if p.OwnerID == "" || p.GroupID <= 0 {
			return fmt.Errorf("crawl-batch payload requires an owner and a group id")
		}
		if p.MaxDepth < 1 || p.MaxPages < 1 {
			return fmt.Errorf("crawl-batch payload requires maxDepth and maxPages of at least 1")
		}
	case models.JobKindAutoScroll:
		p, ok := payload.(models.AutoScrollPayload)
		if !ok {
			return fmt.Errorf("payload for %q must be an AutoScrollPayload", kind)
		}
		if p.OwnerID == "" || p.GroupID <= 0 {
			return fmt.Errorf("auto-scroll payload requires an owner and a group id")
		}
	default:
		return fmt.Errorf("unknown job kind %q", kind)
	}
	return nil
}
