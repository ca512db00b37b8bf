package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// groupColumns includes the derived completed count so callers always
// observe the live value, never a cached one.
const groupColumns = `
	g.id, g.public_id, g.owner_id, g.kind, g.base_url, g.status,
	g.expected_total, g.auto_scroll, g.params, g.created_at, g.updated_at, g.completed_at,
	(SELECT COUNT(*) FROM captures c WHERE c.group_id = g.id AND c.status IN ('completed', 'failed'))`

func scanGroup(row rowScanner) (*models.CaptureGroup, error) {
	var g models.CaptureGroup
	var params sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&g.ID, &g.PublicID, &g.OwnerID, &g.Kind, &g.BaseURL, &g.Status,
		&g.ExpectedTotal, &g.AutoScroll, &params, &g.CreatedAt, &g.UpdatedAt, &completedAt,
		&g.CompletedCount,
	)
	if err != nil {
		return nil, err
	}
	g.Params = params.String
	if completedAt.Valid {
		g.CompletedAt = &completedAt.Time
	}
	return &g, nil
}

// CreateGroup inserts a new capture group and fills in the generated
// id and timestamps. Groups exist before any of their captures.
func (s *Store) CreateGroup(g *models.CaptureGroup) error {
	if g.Status == "" {
		g.Status = models.StatusPending
	}
	now := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO capture_groups
		(public_id, owner_id, kind, base_url, status, expected_total, auto_scroll, params, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.PublicID, g.OwnerID, g.Kind, g.BaseURL, g.Status,
		g.ExpectedTotal, g.AutoScroll, nullIfEmpty(g.Params), now, now,
	)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

// GetGroup retrieves a single group by its primary key.
func (s *Store) GetGroup(id int64) (*models.CaptureGroup, error) {
	query := "SELECT " + groupColumns + " FROM capture_groups g WHERE g.id = ?"
	return scanGroup(s.db.QueryRow(query, id))
}

// GetGroupByPublicID retrieves a single group by its public id.
func (s *Store) GetGroupByPublicID(publicID string) (*models.CaptureGroup, error) {
	query := "SELECT " + groupColumns + " FROM capture_groups g WHERE g.public_id = ?"
	return scanGroup(s.db.QueryRow(query, publicID))
}

// ListGroupsByOwner returns an owner's groups, newest first.
func (s *Store) ListGroupsByOwner(ownerID string, limit int) ([]*models.CaptureGroup, error) {
	query := "SELECT " + groupColumns + " FROM capture_groups g WHERE g.owner_id = ? ORDER BY g.created_at DESC, g.id DESC LIMIT ?"
	rows, err := s.db.Query(query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.CaptureGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateGroupStatus sets a group's non-terminal status (a job marks
// its group processing when it starts). Completion goes through
// CompleteGroup so it can only happen once.
func (s *Store) UpdateGroupStatus(id int64, status string) error {
	res, err := s.db.Exec(
		"UPDATE capture_groups SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("capture group with ID %d not found", id)
	}
	return nil
}

// CompleteGroup latches a group into its completed state. The
// conditional update makes the transition happen exactly once: the
// first caller observes true, every later caller false. Concurrent
// terminal-capture notifications race here safely.
func (s *Store) CompleteGroup(id int64) (bool, error) {
	now := time.Now()
	res, err := s.db.Exec(
		"UPDATE capture_groups SET status = 'completed', completed_at = ?, updated_at = ? WHERE id = ? AND status != 'completed'",
		now, now, id,
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

// SetGroupExpectedTotal records how many member captures the group is
// waiting for, once discovery knows the number.
func (s *Store) SetGroupExpectedTotal(id int64, total int) error {
	_, err := s.db.Exec(
		"UPDATE capture_groups SET expected_total = ?, updated_at = ? WHERE id = ?",
		total, time.Now(), id,
	)
	return err
}

// GrowGroupExpectedTotal bumps the expected total when a chained run
// appends members whose count was unknown in advance (auto-scroll).
func (s *Store) GrowGroupExpectedTotal(id int64, delta int) error {
	_, err := s.db.Exec(
		"UPDATE capture_groups SET expected_total = expected_total + ?, updated_at = ? WHERE id = ?",
		delta, time.Now(), id,
	)
	return err
}
