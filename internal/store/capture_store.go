package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// captureColumns is the column list shared by every capture query so
// scanCapture stays in sync with a single definition.
const captureColumns = `
	id, public_id, owner_id, group_id, url, kind, status, error,
	image_path, thumbnail_path, title, width, height, file_size, captured_at,
	frame_index, frame_total, frame_offset, scroll_index, scroll_position,
	trigger_index, form_step, form_phase, parent_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCapture(row rowScanner) (*models.Capture, error) {
	var c models.Capture
	var groupID, fileSize, parentID sql.NullInt64
	var errText, imagePath, thumbPath, title, formPhase sql.NullString
	var width, height, frameIndex, frameTotal, frameOffset, scrollIndex, scrollPosition, triggerIndex, formStep sql.NullInt64
	var capturedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.PublicID, &c.OwnerID, &groupID, &c.URL, &c.Kind, &c.Status, &errText,
		&imagePath, &thumbPath, &title, &width, &height, &fileSize, &capturedAt,
		&frameIndex, &frameTotal, &frameOffset, &scrollIndex, &scrollPosition,
		&triggerIndex, &formStep, &formPhase, &parentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if groupID.Valid {
		c.GroupID = &groupID.Int64
	}
	c.Error = errText.String
	c.ImagePath = imagePath.String
	c.ThumbnailPath = thumbPath.String
	c.Title = title.String
	c.Width = int(width.Int64)
	c.Height = int(height.Int64)
	c.FileSize = fileSize.Int64
	if capturedAt.Valid {
		c.CapturedAt = &capturedAt.Time
	}
	intPtr := func(v sql.NullInt64) *int {
		if !v.Valid {
			return nil
		}
		n := int(v.Int64)
		return &n
	}
	c.FrameIndex = intPtr(frameIndex)
	c.FrameTotal = intPtr(frameTotal)
	c.FrameOffset = intPtr(frameOffset)
	c.ScrollIndex = intPtr(scrollIndex)
	c.ScrollPosition = intPtr(scrollPosition)
	c.TriggerIndex = intPtr(triggerIndex)
	c.FormStep = intPtr(formStep)
	c.FormPhase = formPhase.String
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return &c, nil
}

// CreateCapture inserts a new capture in its initial state and fills
// in the generated id and timestamps.
func (s *Store) CreateCapture(c *models.Capture) error {
	if c.Status == "" {
		c.Status = models.StatusPending
	}
	now := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO captures
		(public_id, owner_id, group_id, url, kind, status,
		 frame_index, frame_total, frame_offset, scroll_index, scroll_position,
		 trigger_index, form_step, form_phase, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.PublicID, c.OwnerID, c.GroupID, c.URL, c.Kind, c.Status,
		c.FrameIndex, c.FrameTotal, c.FrameOffset, c.ScrollIndex, c.ScrollPosition,
		c.TriggerIndex, c.FormStep, nullIfEmpty(c.FormPhase), c.ParentID, now, now,
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// GetCapture retrieves a single capture by its primary key.
func (s *Store) GetCapture(id int64) (*models.Capture, error) {
	query := "SELECT " + captureColumns + " FROM captures WHERE id = ?"
	return scanCapture(s.db.QueryRow(query, id))
}

// GetCaptureByPublicID retrieves a single capture by its public id.
func (s *Store) GetCaptureByPublicID(publicID string) (*models.Capture, error) {
	query := "SELECT " + captureColumns + " FROM captures WHERE public_id = ?"
	return scanCapture(s.db.QueryRow(query, publicID))
}

// ListCapturesByGroup returns all captures belonging to a group,
// sequence members first in their natural order.
func (s *Store) ListCapturesByGroup(groupID int64) ([]*models.Capture, error) {
	query := "SELECT " + captureColumns + ` FROM captures
		WHERE group_id = ?
		ORDER BY COALESCE(frame_index, 0), COALESCE(scroll_index, 0), id ASC`
	rows, err := s.db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*models.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// ListCapturesByOwner returns an owner's captures, newest first.
func (s *Store) ListCapturesByOwner(ownerID string, limit int) ([]*models.Capture, error) {
	query := "SELECT " + captureColumns + " FROM captures WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := s.db.Query(query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*models.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// PendingCapturesInGroup returns the group's captures still waiting to
// be processed, in sequence order.
func (s *Store) PendingCapturesInGroup(groupID int64) ([]*models.Capture, error) {
	query := "SELECT " + captureColumns + ` FROM captures
		WHERE group_id = ? AND status = 'pending'
		ORDER BY COALESCE(frame_index, 0), id ASC`
	rows, err := s.db.Query(query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*models.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// MarkCaptureProcessing transitions a capture from pending to
// processing. Any other source state yields ErrInvalidTransition so a
// terminal capture can never be re-executed.
func (s *Store) MarkCaptureProcessing(id int64) error {
	res, err := s.db.Exec(
		"UPDATE captures SET status = 'processing', updated_at = ? WHERE id = ? AND status = 'pending'",
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
		return fmt.Errorf("capture %d to processing: %w", id, ErrInvalidTransition)
	}
	return nil
}

// CompleteCapture records the result of a successful capture and moves
// it to its terminal completed state.
func (s *Store) CompleteCapture(id int64, res *models.CaptureResult) error {
	r, err := s.db.Exec(`
		UPDATE captures
		SET status = 'completed', image_path = ?, thumbnail_path = ?, title = ?,
		    width = ?, height = ?, file_size = ?, captured_at = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		res.ImagePath, res.ThumbnailPath, res.Title,
		res.Width, res.Height, res.FileSize, time.Now(), time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("capture %d to completed: %w", id, ErrInvalidTransition)
	}
	return nil
}

// FailCapture moves a capture to its terminal failed state with the
// error text attached. Pending captures may fail directly (a group
// member whose page never materialized); terminal ones may not.
func (s *Store) FailCapture(id int64, errText string) error {
	res, err := s.db.Exec(`
		UPDATE captures SET status = 'failed', error = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'processing')`,
		errText, time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("capture %d to failed: %w", id, ErrInvalidTransition)
	}
	return nil
}

// CountTerminalByGroup counts a group's members that reached a final
// state. This is the only completed-count the pipeline ever uses; it
// is never cached.
func (s *Store) CountTerminalByGroup(groupID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM captures WHERE group_id = ? AND status IN ('completed', 'failed')",
		groupID,
	).Scan(&count)
	return count, err
}

// CountByGroupAndStatus counts a group's members in one status.
func (s *Store) CountByGroupAndStatus(groupID int64, status string) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM captures WHERE group_id = ? AND status = ?",
		groupID, status,
	).Scan(&count)
	return count, err
}

// CompletedCaptures returns every capture that finished successfully.
// The maintenance jobs walk this set to re-derive thumbnails that
// vanished from disk and to report missing raw rasters.
func (s *Store) CompletedCaptures() ([]*models.Capture, error) {
	query := "SELECT " + captureColumns + " FROM captures WHERE status = 'completed' AND thumbnail_path IS NOT NULL"
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*models.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}
