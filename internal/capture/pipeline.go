package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/browser"
	"github.com/anishtr4/screenshuter-sub001/internal/interact"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/render"
	"github.com/anishtr4/screenshuter-sub001/internal/scroll"
)

const defaultNavTimeout = 60 * time.Second

// Pipeline is the rod-backed Renderer used by the server. It borrows a
// page from the shared engine, runs navigation and any requested
// interactions, and rasterizes the settled page.
type Pipeline struct {
	browser    *browser.Manager
	navTimeout time.Duration
}

// NewPipeline returns a renderer bound to the shared browser engine.
func NewPipeline(b *browser.Manager, navTimeout time.Duration) *Pipeline {
	if navTimeout <= 0 {
		navTimeout = defaultNavTimeout
	}
	return &Pipeline{browser: b, navTimeout: navTimeout}
}

func (p *Pipeline) Render(ctx context.Context, c *models.Capture, opts *models.CaptureOptions, progress ProgressFunc) (*RenderOutput, error) {
	progress(10, "opening page")
	page, err := p.browser.NewPage(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	defer p.browser.ClosePage(page)

	progress(20, "navigating")
	res, err := render.Render(ctx, page, c.URL, opts, p.navTimeout)
	if err != nil {
		return nil, err
	}
	progress(40, "page ready")

	out := &RenderOutput{Title: res.Title}
	shoot := func() ([]byte, error) { return Rasterize(page, opts.FullPage) }

	// Interactions only run for standalone captures. Crawl items and
	// frame sequences record pages exactly as found.
	if c.GroupID == nil && (len(opts.TriggerSelectors) > 0 || len(opts.FormSteps) > 0) {
		progress(50, "running interactions")
		shots, err := interact.RunTriggers(ctx, page, opts.TriggerSelectors, shoot)
		out.Extras = append(out.Extras, shots...)
		if err != nil {
			return out, err
		}
		formShots, err := interact.RunForms(ctx, page, opts.FormSteps, shoot)
		out.Extras = append(out.Extras, formShots...)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
		}
	}

	progress(60, "capturing image")
	img, err := Rasterize(page, opts.FullPage)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	out.Image = img
	return out, nil
}

// FrameShooter receives one rasterized frame as the shared page
// reaches that frame's offset.
type FrameShooter func(index int, image []byte, title string) error

// RenderFrames drives a single shared page through a timed frame
// sequence. Offsets are seconds after navigation settles, ascending;
// the shooter is called once per offset. An error from navigation,
// rasterization or the shooter aborts the remaining frames.
func (p *Pipeline) RenderFrames(ctx context.Context, pageURL string, opts *models.CaptureOptions, offsets []int, shoot FrameShooter) error {
	page, err := p.browser.NewPage(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	defer p.browser.ClosePage(page)

	res, err := render.Render(ctx, page, pageURL, opts, p.navTimeout)
	if err != nil {
		return err
	}

	elapsed := 0
	for i, offset := range offsets {
		if wait := offset - elapsed; wait > 0 {
			select {
			case <-time.After(time.Duration(wait) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			elapsed = offset
		}
		img, err := Rasterize(page, opts.FullPage)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCaptureFailure, err)
		}
		if err := shoot(i, img, res.Title); err != nil {
			return err
		}
	}
	return nil
}

// RunScroll renders the page once, then runs the incremental scroll
// loop against it, emitting one viewport image per advance. Returns
// the number of images emitted.
func (p *Pipeline) RunScroll(ctx context.Context, pageURL string, opts *models.CaptureOptions, scrollOpts *models.ScrollOptions, emit scroll.Emit) (int, error) {
	page, err := p.browser.NewPage(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	defer p.browser.ClosePage(page)

	if _, err := render.Render(ctx, page, pageURL, opts, p.navTimeout); err != nil {
		return 0, err
	}

	selector := ""
	if scrollOpts != nil {
		selector = scrollOpts.Selector
	}
	return scroll.Run(ctx, scroll.NewPageDriver(page, selector), scrollOpts, emit)
}
