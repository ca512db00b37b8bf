package models

// Event names published to owner notification channels.
const (
	EventCaptureProgress    = "capture-progress"
	EventGroupProgress      = "group-progress"
	EventGroupProgressClear = "group-progress-clear"
)

// CaptureProgress reports executor checkpoints for a single capture.
// Advisory only; no consumer blocks on it.
type CaptureProgress struct {
	CaptureID string `json:"capture_id"` // public id
	GroupID   string `json:"group_id,omitempty"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"` // 0..100
	Stage     string `json:"stage"`
	Error     string `json:"error,omitempty"`
}

// GroupProgress reports aggregate completion for a capture group. The
// counts are recomputed from the store on every emission.
type GroupProgress struct {
	GroupID   string `json:"group_id"` // public id
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Expected  int    `json:"expected"`
	Progress  int    `json:"progress"` // 0..100
}

// MaintenanceUpdate reports the state of an administrative job run.
// Broadcast to every connected client rather than a single owner
// channel; maintenance affects the whole installation.
type MaintenanceUpdate struct {
	JobID    string  `json:"job_id"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Done     bool    `json:"done"`
}
