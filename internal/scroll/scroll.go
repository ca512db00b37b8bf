// Package scroll drives a scrollable region through an incremental
// capture loop, one shot per position. It runs as a chained follow-up
// after a frame group completes, never on its own.
package scroll

import (
	"context"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

const (
	defaultStepSize    = 400
	defaultIntervalMs  = 1000
	defaultMaxAttempts = 10
)

// Scroll mechanisms a driver can detect.
const (
	MechanismWidget = "widget"
	MechanismNative = "native"
	MechanismNone   = "none"
)

// State describes the detected scroll mechanism at one instant.
type State struct {
	Mechanism string `json:"mechanism"`
	Position  int    `json:"position"` // Pixels from the top of the region
	Max       int    `json:"max"`      // Largest reachable position
}

// Scrollable reports whether the region can still advance.
func (s State) Scrollable() bool {
	return s.Mechanism != MechanismNone && s.Position < s.Max
}

// Driver is the page-facing half of the loop: inspect the scroll
// state, advance it, rasterize the current view.
type Driver interface {
	State(ctx context.Context) (State, error)
	Advance(ctx context.Context, step int) error
	Shoot(ctx context.Context) ([]byte, error)
}

// Emit persists one scroll capture. Index counts shots from zero;
// position is where in the region the shot was taken.
type Emit func(index, position int, image []byte) error

// Run loops capture-then-advance until the region stops scrolling or
// maxAttempts is reached, and returns how many captures were emitted.
// A region that is not scrollable at invocation produces none.
func Run(ctx context.Context, d Driver, opts *models.ScrollOptions, emit Emit) (int, error) {
	if opts == nil {
		opts = &models.ScrollOptions{}
	}
	step := opts.StepSize
	if step <= 0 {
		step = defaultStepSize
	}
	intervalMs := opts.IntervalMs
	if intervalMs <= 0 {
		intervalMs = defaultIntervalMs
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	count := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		st, err := d.State(ctx)
		if err != nil {
			return count, err
		}
		if !st.Scrollable() {
			break
		}

		img, err := d.Shoot(ctx)
		if err != nil {
			return count, err
		}
		if err := emit(count, st.Position, img); err != nil {
			return count, err
		}
		count++

		if err := d.Advance(ctx, step); err != nil {
			return count, err
		}
		select {
		case <-time.After(time.Duration(intervalMs) * time.Millisecond):
		case <-ctx.Done():
			return count, ctx.Err()
		}
	}
	return count, nil
}
