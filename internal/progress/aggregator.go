// Package progress turns terminal-capture notifications into group
// accounting: completion counts, milestone events, and the chained
// follow-up job when a frame group asks for auto-scroll.
package progress

import (
	"log"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/notify"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
)

// Enqueuer chains follow-up jobs. The scheduler implements it; tests
// substitute a recorder.
type Enqueuer interface {
	Enqueue(kind models.JobKind, payload interface{}) (int64, error)
}

// Aggregator recomputes group completion from the store on every
// terminal capture. It never keeps its own counter, so concurrent
// notifications from different jobs cannot drift from the database.
type Aggregator struct {
	store      *store.Store
	publisher  notify.Publisher
	enqueuer   Enqueuer
	clearDelay time.Duration
}

func New(st *store.Store, pub notify.Publisher, enq Enqueuer, clearDelay time.Duration) *Aggregator {
	return &Aggregator{
		store:      st,
		publisher:  pub,
		enqueuer:   enq,
		clearDelay: clearDelay,
	}
}

// OnCaptureTerminal updates the capture's group, if it has one.
// Standalone captures need no accounting.
func (a *Aggregator) OnCaptureTerminal(c *models.Capture) {
	if c.GroupID == nil {
		return
	}
	group, err := a.store.GetGroup(*c.GroupID)
	if err != nil {
		log.Printf("Progress update for capture %s dropped: %v", c.PublicID, err)
		return
	}
	completed, err := a.store.CountTerminalByGroup(group.ID)
	if err != nil {
		log.Printf("Progress update for group %s dropped: %v", group.PublicID, err)
		return
	}

	expected := group.ExpectedTotal
	if expected <= 0 || completed < expected {
		a.publish(group, group.Status, completed, expected)
		return
	}

	won, err := a.store.CompleteGroup(group.ID)
	if err != nil {
		log.Printf("Failed to complete group %s: %v", group.PublicID, err)
		return
	}
	if !won {
		// Another notification latched the group first, or captures
		// appended after completion are draining. Report the numbers
		// and leave the milestone to the winner.
		a.publish(group, models.StatusCompleted, completed, expected)
		return
	}

	a.publish(group, models.StatusCompleted, completed, expected)
	a.maybeChainAutoScroll(group, c)

	clear := models.GroupProgress{
		GroupID:   group.PublicID,
		Status:    models.StatusCompleted,
		Completed: completed,
		Expected:  expected,
		Progress:  100,
	}
	owner := group.OwnerID
	// Leave the completed state visible briefly before telling
	// observers to drop it.
	time.AfterFunc(a.clearDelay, func() {
		a.publisher.Publish(owner, models.EventGroupProgressClear, clear)
	})
}

func (a *Aggregator) publish(group *models.CaptureGroup, status string, completed, expected int) {
	percent := 0
	if expected > 0 {
		percent = completed * 100 / expected
		if percent > 100 {
			percent = 100
		}
	}
	a.publisher.Publish(group.OwnerID, models.EventGroupProgress, models.GroupProgress{
		GroupID:   group.PublicID,
		Status:    status,
		Completed: completed,
		Expected:  expected,
		Progress:  percent,
	})
}

// maybeChainAutoScroll enqueues the scroll follow-up for a freshly
// completed frame group that requested it. A scroll capture can never
// trigger another scroll job, so the chain has length one.
func (a *Aggregator) maybeChainAutoScroll(group *models.CaptureGroup, c *models.Capture) {
	if group.Kind != models.GroupKindFrames || !group.AutoScroll {
		return
	}
	if c.Kind == models.CaptureKindScroll {
		return
	}
	if a.enqueuer == nil {
		return
	}
	payload := models.AutoScrollPayload{OwnerID: group.OwnerID, GroupID: group.ID}
	if _, err := a.enqueuer.Enqueue(models.JobKindAutoScroll, payload); err != nil {
		log.Printf("Failed to chain auto-scroll for group %s: %v", group.PublicID, err)
	}
}
