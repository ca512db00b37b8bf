// This file defines the core data structures (models) for the capture
// pipeline: captures, capture groups and their status machines.

package models

import "time"

// Capture kinds.
const (
	CaptureKindSingle    = "single"
	CaptureKindCrawlItem = "crawl-item"
	CaptureKindFrame     = "frame"
	CaptureKindScroll    = "scroll"
)

// Capture and group statuses. Transitions only move forward:
// pending -> processing -> completed or failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Capture represents one captured image unit and its result.
type Capture struct {
	ID            int64      `json:"id"`
	PublicID      string     `json:"public_id"`
	OwnerID       string     `json:"owner_id"`
	GroupID       *int64     `json:"group_id,omitempty"` // Nullable, set for crawl/frame/scroll members
	URL           string     `json:"url"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"` // Set only when status is "failed"
	ImagePath     string     `json:"image_path,omitempty"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	Title         string     `json:"title,omitempty"`
	Width         int        `json:"width,omitempty"`
	Height        int        `json:"height,omitempty"`
	FileSize      int64      `json:"file_size,omitempty"`
	CapturedAt    *time.Time `json:"captured_at,omitempty"`

	// Kind-specific metadata.
	FrameIndex     *int   `json:"frame_index,omitempty"`
	FrameTotal     *int   `json:"frame_total,omitempty"`
	FrameOffset    *int   `json:"frame_offset,omitempty"` // Seconds after navigation settles
	ScrollIndex    *int   `json:"scroll_index,omitempty"`
	ScrollPosition *int   `json:"scroll_position,omitempty"` // Pixels from the top of the region
	TriggerIndex   *int   `json:"trigger_index,omitempty"`
	FormStep       *int   `json:"form_step,omitempty"`
	FormPhase      string `json:"form_phase,omitempty"` // "fill", "submit" or "validation"
	ParentID       *int64 `json:"parent_id,omitempty"`  // Back-reference for interaction shots

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the capture reached a final state.
func (c *Capture) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}

// CaptureResult carries the artifacts of a successful capture into the
// store when the capture is marked completed.
type CaptureResult struct {
	ImagePath     string
	ThumbnailPath string
	Title         string
	Width         int
	Height        int
	FileSize      int64
}

// Group kinds.
const (
	GroupKindCrawl  = "crawl"
	GroupKindFrames = "frames"
)

// CaptureGroup is the container for the captures of one crawl session
// or one frame/auto-scroll sequence. CompletedCount is always derived
// by counting terminal member captures, never stored.
type CaptureGroup struct {
	ID             int64      `json:"id"`
	PublicID       string     `json:"public_id"`
	OwnerID        string     `json:"owner_id"`
	Kind           string     `json:"kind"`
	BaseURL        string     `json:"base_url"`
	Status         string     `json:"status"`
	ExpectedTotal  int        `json:"expected_total"` // May grow when auto-scroll appends items
	CompletedCount int        `json:"completed_count"`
	AutoScroll     bool       `json:"auto_scroll"`
	Params         string     `json:"-"` // JSON-encoded CaptureOptions, read back by chained jobs
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
