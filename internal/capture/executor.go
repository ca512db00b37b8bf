package capture

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anishtr4/screenshuter-sub001/internal/interact"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/notify"
	"github.com/anishtr4/screenshuter-sub001/internal/storage"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/util"
)

// Executor drives a capture from pending to a terminal state. It owns
// every status transition and every progress event along the way; the
// renderer only produces pixels.
type Executor struct {
	store     *store.Store
	assets    *storage.Storage
	renderer  Renderer
	publisher notify.Publisher
	sink      TerminalSink
}

// NewExecutor wires an executor. A nil sink is replaced with a no-op
// so callers without group aggregation can skip it.
func NewExecutor(st *store.Store, assets *storage.Storage, r Renderer, pub notify.Publisher, sink TerminalSink) *Executor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Executor{
		store:     st,
		assets:    assets,
		renderer:  r,
		publisher: pub,
		sink:      sink,
	}
}

// Execute runs the full pipeline for one pending capture. By the time
// it returns the capture is terminal: completed with artifacts, or
// failed with the cause recorded on it. The error mirrors the failure
// so the scheduler can record the surrounding job as failed too.
func (e *Executor) Execute(ctx context.Context, c *models.Capture, opts *models.CaptureOptions, groupPublicID string) error {
	if err := e.Begin(c, groupPublicID); err != nil {
		return err
	}

	out, err := e.renderer.Render(ctx, c, opts, func(percent int, stage string) {
		e.publishProgress(c, groupPublicID, models.StatusProcessing, percent, stage, "")
	})
	if err != nil {
		e.Fail(c, groupPublicID, err)
		// Interaction shots taken before the failure are already real
		// results and still get persisted.
		if out != nil {
			e.saveExtras(c, out.Extras)
		}
		return err
	}

	if err := e.Finalize(c, groupPublicID, out.Image, out.Title); err != nil {
		e.Fail(c, groupPublicID, err)
		return err
	}

	e.saveExtras(c, out.Extras)
	return nil
}

// Begin moves a capture into processing and announces it. A capture
// that is not pending cannot begin; the caller gets the transition
// error and must not run the pipeline.
func (e *Executor) Begin(c *models.Capture, groupPublicID string) error {
	if err := e.store.MarkCaptureProcessing(c.ID); err != nil {
		return fmt.Errorf("capture %s cannot start: %w", c.PublicID, err)
	}
	c.Status = models.StatusProcessing
	e.publishProgress(c, groupPublicID, models.StatusProcessing, 0, "starting", "")
	return nil
}

// Finalize stores the artifacts of a successful render and marks the
// capture completed. The capture must already be in processing.
func (e *Executor) Finalize(c *models.Capture, groupPublicID string, imageData []byte, title string) error {
	e.publishProgress(c, groupPublicID, models.StatusProcessing, 70, "generating thumbnail", "")
	thumb, err := Thumbnail(imageData)
	if err != nil {
		return err
	}
	width, height, err := imageDimensions(imageData)
	if err != nil {
		return err
	}

	e.publishProgress(c, groupPublicID, models.StatusProcessing, 80, "writing assets", "")
	imageRel := e.assets.ImageRel(c.PublicID, groupPublicID)
	if _, err := e.assets.Write(imageRel, imageData); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	thumbRel := e.assets.ThumbRel(c.PublicID, groupPublicID)
	if _, err := e.assets.Write(thumbRel, thumb); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	e.publishProgress(c, groupPublicID, models.StatusProcessing, 90, "saving record", "")
	res := &models.CaptureResult{
		ImagePath:     imageRel,
		ThumbnailPath: thumbRel,
		Title:         title,
		Width:         width,
		Height:        height,
		FileSize:      int64(len(imageData)),
	}
	if err := e.store.CompleteCapture(c.ID, res); err != nil {
		return fmt.Errorf("failed to mark capture completed: %w", err)
	}

	now := time.Now()
	c.Status = models.StatusCompleted
	c.ImagePath = imageRel
	c.ThumbnailPath = thumbRel
	c.Title = title
	c.Width = width
	c.Height = height
	c.FileSize = res.FileSize
	c.CapturedAt = &now

	e.publishProgress(c, groupPublicID, models.StatusCompleted, 100, "completed", "")
	e.sink.OnCaptureTerminal(c)
	return nil
}

// Fail records the cause on the capture and announces the terminal
// state. Store errors here are logged rather than returned because the
// outcome of the capture is already decided.
func (e *Executor) Fail(c *models.Capture, groupPublicID string, cause error) {
	if err := e.store.FailCapture(c.ID, cause.Error()); err != nil {
		log.Printf("Failed to record failure of capture %s: %v", c.PublicID, err)
	}
	c.Status = models.StatusFailed
	c.Error = cause.Error()
	e.publishProgress(c, groupPublicID, models.StatusFailed, 100, "failed", cause.Error())
	e.sink.OnCaptureTerminal(c)
}

// saveExtras persists interaction shots as child captures of a parent
// that already completed. Each child runs through the same status
// machine as any capture. Problems are logged and swallowed; a missing
// interaction shot must not retroactively fail the parent.
func (e *Executor) saveExtras(c *models.Capture, shots []interact.Shot) {
	for i := range shots {
		shot := &shots[i]
		title := shot.Description
		if title == "" {
			title = c.Title
		}
		child := &models.Capture{
			PublicID:     util.NewPublicID(),
			OwnerID:      c.OwnerID,
			GroupID:      c.GroupID,
			URL:          c.URL,
			Kind:         c.Kind,
			TriggerIndex: shot.TriggerIndex,
			FormStep:     shot.FormStep,
			FormPhase:    shot.FormPhase,
			ParentID:     &c.ID,
		}
		if err := e.store.CreateCapture(child); err != nil {
			log.Printf("Failed to save interaction shot %d of capture %s: %v", i, c.PublicID, err)
			continue
		}
		if err := e.Begin(child, ""); err != nil {
			log.Printf("Failed to start interaction shot %s: %v", child.PublicID, err)
			continue
		}
		if err := e.Finalize(child, "", shot.Image, title); err != nil {
			e.Fail(child, "", err)
		}
	}
}

func (e *Executor) publishProgress(c *models.Capture, groupPublicID, status string, percent int, stage, errText string) {
	e.publisher.Publish(c.OwnerID, models.EventCaptureProgress, models.CaptureProgress{
		CaptureID: c.PublicID,
		GroupID:   groupPublicID,
		Status:    status,
		Progress:  percent,
		Stage:     stage,
		Error:     errText,
	})
}
