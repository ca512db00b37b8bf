package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

const jobColumns = "id, kind, payload, status, error, run_at, created_at, started_at, finished_at"

func scanJob(row rowScanner) (*models.CaptureJob, error) {
	var j models.CaptureJob
	var errText sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(&j.ID, &j.Kind, &j.Payload, &j.Status, &errText, &j.RunAt, &j.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	j.Error = errText.String
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		j.FinishedAt = &finishedAt.Time
	}
	return &j, nil
}

// EnqueueJob appends a job row to the durable queue. runAt defers
// dispatch; pass time.Now() for immediate eligibility.
func (s *Store) EnqueueJob(kind models.JobKind, payload string, runAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO capture_jobs (kind, payload, status, run_at, created_at) VALUES (?, ?, 'queued', ?, ?)",
		kind, payload, runAt, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetJob retrieves a single job row by ID.
func (s *Store) GetJob(id int64) (*models.CaptureJob, error) {
	query := "SELECT " + jobColumns + " FROM capture_jobs WHERE id = ?"
	return scanJob(s.db.QueryRow(query, id))
}

// ListJobs returns the most recent queue rows for the admin view.
func (s *Store) ListJobs(limit int) ([]*models.CaptureJob, error) {
	query := "SELECT " + jobColumns + " FROM capture_jobs ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.CaptureJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// DueJobs retrieves a limited number of queued jobs whose run_at has
// passed, oldest first.
func (s *Store) DueJobs(limit int) ([]*models.CaptureJob, error) {
	query := "SELECT " + jobColumns + ` FROM capture_jobs
		WHERE status = 'queued' AND run_at <= ?
		ORDER BY run_at ASC, id ASC LIMIT ?`
	rows, err := s.db.Query(query, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.CaptureJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimJob conditionally moves a queued job to running. Only one
// dispatcher can win the claim, so a row is never handed to two
// workers even if polling overlaps.
func (s *Store) ClaimJob(id int64) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE capture_jobs SET status = 'running', started_at = ? WHERE id = ? AND status = 'queued'",
		time.Now(), id,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CompleteJob marks a running job as finished successfully.
func (s *Store) CompleteJob(id int64) error {
	_, err := s.db.Exec(
		"UPDATE capture_jobs SET status = 'completed', finished_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// FailJob marks a running job as failed with the handler's error text.
// Failed jobs are never retried automatically.
func (s *Store) FailJob(id int64, errText string) error {
	_, err := s.db.Exec(
		"UPDATE capture_jobs SET status = 'failed', error = ?, finished_at = ? WHERE id = ?",
		errText, time.Now(), id,
	)
	return err
}

// RequeueJob sets a specific failed job back to queued. Retry policy
// belongs to the enqueuing collaborator; this is its explicit hook.
func (s *Store) RequeueJob(id int64) error {
	res, err := s.db.Exec(
		"UPDATE capture_jobs SET status = 'queued', error = NULL, run_at = ?, started_at = NULL, finished_at = NULL WHERE id = ? AND status = 'failed'",
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("capture job with ID %d not found or not in failed status", id)
	}
	return nil
}

// ResetRunningJobs sets jobs from 'running' back to 'queued' on startup,
// so work interrupted by a process restart is dispatched again.
func (s *Store) ResetRunningJobs() (int64, error) {
	res, err := s.db.Exec(
		"UPDATE capture_jobs SET status = 'queued', started_at = NULL WHERE status = 'running'",
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeFinishedJobs removes terminal queue rows older than the cutoff.
func (s *Store) PurgeFinishedJobs(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM capture_jobs WHERE status IN ('completed', 'failed') AND finished_at < ?",
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
