// Package capture executes one capture from pending to terminal:
// render, rasterize, thumbnail, persist, and report progress. The
// browser-facing half sits behind the Renderer interface so the state
// machine can be exercised without a running engine.
package capture

import (
	"context"
	"errors"

	"github.com/anishtr4/screenshuter-sub001/internal/interact"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// ErrCaptureFailure covers page acquisition, rasterization and
// thumbnail errors. It is fatal to the capture it occurs in.
var ErrCaptureFailure = errors.New("capture failure")

// ProgressFunc reports a checkpoint while a capture runs. Percent is
// monotonically increasing; the stage label is advisory.
type ProgressFunc func(percent int, stage string)

// RenderOutput is the stabilized result of a render pass: the raw
// raster, the resolved page title, and any interaction shots taken
// along the way.
type RenderOutput struct {
	Image  []byte
	Title  string
	Extras []interact.Shot
}

// Renderer produces the raster for one capture. The production
// implementation drives a browser page; tests substitute fakes. On
// error the returned output may still be non-nil, carrying interaction
// shots taken before the failure.
type Renderer interface {
	Render(ctx context.Context, c *models.Capture, opts *models.CaptureOptions, progress ProgressFunc) (*RenderOutput, error)
}

// TerminalSink observes captures reaching a terminal status. The
// progress aggregator implements it to maintain group accounting.
type TerminalSink interface {
	OnCaptureTerminal(c *models.Capture)
}

// NopSink ignores terminal notifications.
type NopSink struct{}

func (NopSink) OnCaptureTerminal(*models.Capture) {}
