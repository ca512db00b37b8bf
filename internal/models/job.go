package models

import "time"

// JobKind selects the payload type and the handler a queue row is
// dispatched to.
type JobKind string

const (
	JobKindCapture      JobKind = "capture"
	JobKindFrameCapture JobKind = "frame-capture"
	JobKindCrawl        JobKind = "crawl"
	JobKindCrawlBatch   JobKind = "crawl-batch"
	JobKindAutoScroll   JobKind = "auto-scroll"
)

// Job queue statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// CaptureJob is one row of the durable job queue.
type CaptureJob struct {
	ID         int64      `json:"id"`
	Kind       JobKind    `json:"kind"`
	Payload    string     `json:"payload"` // JSON, typed per kind
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	RunAt      time.Time  `json:"run_at"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Typed payloads, one per job kind, validated at enqueue time.

// CapturePayload runs one standalone capture to its terminal state.
// Standalone captures have no group row to hold their options, so the
// options bag rides on the payload itself.
type CapturePayload struct {
	OwnerID   string          `json:"owner_id"`
	CaptureID int64           `json:"capture_id"`
	Options   *CaptureOptions `json:"options,omitempty"`
}

// FrameCapturePayload drives every pending frame of a group through a
// single shared page.
type FrameCapturePayload struct {
	OwnerID string `json:"owner_id"`
	GroupID int64  `json:"group_id"`
}

// CrawlPayload re-runs one discovered capture inside its group. This
// is the vehicle for a collaborator's explicit re-enqueue of a failed
// crawl item.
type CrawlPayload struct {
	OwnerID   string `json:"owner_id"`
	CaptureID int64  `json:"capture_id"`
}

// CrawlBatchPayload discovers same-origin pages from the group's base
// URL and captures them sequentially within the job.
type CrawlBatchPayload struct {
	OwnerID  string `json:"owner_id"`
	GroupID  int64  `json:"group_id"`
	MaxDepth int    `json:"max_depth"`
	MaxPages int    `json:"max_pages"`
}

// AutoScrollPayload chains the scroll loop after a frame group
// completes. Scroll parameters travel on the group's stored options.
type AutoScrollPayload struct {
	OwnerID string `json:"owner_id"`
	GroupID int64  `json:"group_id"`
}
