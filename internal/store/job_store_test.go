package store_test

import (
	"testing"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/testutil"
)

func TestEnqueueAndGetJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	id, err := s.EnqueueJob(models.JobKindCapture, `{"owner_id":"user-1","capture_id":1}`, time.Now())
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	job, err := s.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Kind != models.JobKindCapture {
		t.Errorf("Expected kind 'capture', got '%s'", job.Kind)
	}
	if job.Status != models.JobQueued {
		t.Errorf("Expected status 'queued', got '%s'", job.Status)
	}
	if job.Payload != `{"owner_id":"user-1","capture_id":1}` {
		t.Errorf("Expected payload to round-trip, got '%s'", job.Payload)
	}
}

func TestDueJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	s.EnqueueJob(models.JobKindCapture, `{}`, time.Now().Add(-time.Minute))
	s.EnqueueJob(models.JobKindCrawl, `{}`, time.Now().Add(-2*time.Minute))
	s.EnqueueJob(models.JobKindCapture, `{}`, time.Now().Add(time.Hour))

	due, err := s.DueJobs(10)
	if err != nil {
		t.Fatalf("DueJobs failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("Expected 2 due jobs, got %d", len(due))
	}
	// Oldest run_at first.
	if due[0].Kind != models.JobKindCrawl {
		t.Errorf("Expected oldest job first, got kind '%s'", due[0].Kind)
	}

	limited, _ := s.DueJobs(1)
	if len(limited) != 1 {
		t.Errorf("Expected limit of 1 to apply, got %d", len(limited))
	}
}

func TestClaimJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	id, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())

	claimed, err := s.ClaimJob(id)
	if err != nil {
		t.Fatalf("ClaimJob failed: %v", err)
	}
	if !claimed {
		t.Error("Expected first claim to succeed")
	}

	job, _ := s.GetJob(id)
	if job.Status != models.JobRunning {
		t.Errorf("Expected status 'running' after claim, got '%s'", job.Status)
	}
	if job.StartedAt == nil {
		t.Error("Expected started_at to be set after claim")
	}

	// A competing dispatcher polling the same row must lose.
	claimed, err = s.ClaimJob(id)
	if err != nil {
		t.Fatalf("Second ClaimJob failed: %v", err)
	}
	if claimed {
		t.Error("Expected second claim of the same job to fail")
	}
}

func TestCompleteAndFailJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	okID, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	badID, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	s.ClaimJob(okID)
	s.ClaimJob(badID)

	if err := s.CompleteJob(okID); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}
	job, _ := s.GetJob(okID)
	if job.Status != models.JobCompleted {
		t.Errorf("Expected status 'completed', got '%s'", job.Status)
	}
	if job.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}

	if err := s.FailJob(badID, "handler exploded"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}
	job, _ = s.GetJob(badID)
	if job.Status != models.JobFailed {
		t.Errorf("Expected status 'failed', got '%s'", job.Status)
	}
	if job.Error != "handler exploded" {
		t.Errorf("Expected error text to be persisted, got '%s'", job.Error)
	}
}

func TestRequeueJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	id, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	s.ClaimJob(id)
	s.FailJob(id, "boom")

	if err := s.RequeueJob(id); err != nil {
		t.Fatalf("RequeueJob failed: %v", err)
	}
	job, _ := s.GetJob(id)
	if job.Status != models.JobQueued {
		t.Errorf("Expected status 'queued' after requeue, got '%s'", job.Status)
	}
	if job.Error != "" {
		t.Errorf("Expected error to be cleared, got '%s'", job.Error)
	}
	if job.StartedAt != nil || job.FinishedAt != nil {
		t.Error("Expected timestamps to be cleared on requeue")
	}

	// Only failed jobs are eligible.
	if err := s.RequeueJob(id); err == nil {
		t.Error("Expected requeue of a queued job to fail")
	}
}

func TestResetRunningJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	a, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	b, _ := s.EnqueueJob(models.JobKindCrawl, `{}`, time.Now())
	s.ClaimJob(a)
	s.ClaimJob(b)
	done, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	s.ClaimJob(done)
	s.CompleteJob(done)

	n, err := s.ResetRunningJobs()
	if err != nil {
		t.Fatalf("ResetRunningJobs failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 jobs reset, got %d", n)
	}

	job, _ := s.GetJob(a)
	if job.Status != models.JobQueued {
		t.Errorf("Expected status 'queued' after reset, got '%s'", job.Status)
	}
	job, _ = s.GetJob(done)
	if job.Status != models.JobCompleted {
		t.Errorf("Completed job must not be reset, got '%s'", job.Status)
	}
}

func TestPurgeFinishedJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	oldID, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	s.ClaimJob(oldID)
	s.CompleteJob(oldID)
	// Age the finished row past the cutoff.
	db.Exec("UPDATE capture_jobs SET finished_at = ? WHERE id = ?", time.Now().Add(-48*time.Hour), oldID)

	recentID, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	s.ClaimJob(recentID)
	s.CompleteJob(recentID)

	runningID, _ := s.EnqueueJob(models.JobKindCapture, `{}`, time.Now())
	s.ClaimJob(runningID)

	n, err := s.PurgeFinishedJobs(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeFinishedJobs failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 job purged, got %d", n)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM capture_jobs").Scan(&count)
	if count != 2 {
		t.Errorf("Expected 2 jobs to remain, got %d", count)
	}
}
