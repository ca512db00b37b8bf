package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/anishtr4/screenshuter-sub001/internal/crawl"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/scroll"
	"github.com/anishtr4/screenshuter-sub001/internal/store"
	"github.com/anishtr4/screenshuter-sub001/internal/util"
)

// FrameRenderer drives one shared page through a timed frame sequence.
// Implemented by Pipeline; faked in tests.
type FrameRenderer interface {
	RenderFrames(ctx context.Context, pageURL string, opts *models.CaptureOptions, offsets []int, shoot FrameShooter) error
}

// ScrollRunner renders a page and runs the incremental scroll loop
// against it. Implemented by Pipeline; faked in tests.
type ScrollRunner interface {
	RunScroll(ctx context.Context, pageURL string, opts *models.CaptureOptions, scrollOpts *models.ScrollOptions, emit scroll.Emit) (int, error)
}

// Handlers holds the job handlers for every capture job kind. Each
// HandleX method matches the scheduler's handler signature and is
// registered against its kind at startup.
type Handlers struct {
	store    *store.Store
	executor *Executor
	frames   FrameRenderer
	scroller ScrollRunner
	fetcher  crawl.Fetcher
}

func NewHandlers(st *store.Store, exec *Executor, frames FrameRenderer, scroller ScrollRunner, fetcher crawl.Fetcher) *Handlers {
	return &Handlers{
		store:    st,
		executor: exec,
		frames:   frames,
		scroller: scroller,
		fetcher:  fetcher,
	}
}

// HandleCapture runs one standalone capture to its terminal state. The
// options bag travels on the payload because standalone captures have
// no group row to store it on.
func (h *Handlers) HandleCapture(ctx context.Context, job *models.CaptureJob) error {
	var p models.CapturePayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("bad capture payload: %w", err)
	}
	c, err := h.store.GetCapture(p.CaptureID)
	if err != nil {
		return fmt.Errorf("capture %d not found: %w", p.CaptureID, err)
	}
	opts := p.Options
	if opts == nil {
		opts = &models.CaptureOptions{}
	}
	return h.executor.Execute(ctx, c, opts, "")
}

// HandleFrameCapture takes every pending frame of a group from a
// single shared page. All frames are claimed up front, then finalized
// one by one as the page reaches each offset; if the page itself never
// delivers, every claimed frame fails with the shared cause.
func (h *Handlers) HandleFrameCapture(ctx context.Context, job *models.CaptureJob) error {
	var p models.FrameCapturePayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("bad frame-capture payload: %w", err)
	}
	group, err := h.store.GetGroup(p.GroupID)
	if err != nil {
		return fmt.Errorf("group %d not found: %w", p.GroupID, err)
	}
	if group.Kind != models.GroupKindFrames {
		return fmt.Errorf("group %s is not a frame group", group.PublicID)
	}
	opts, err := groupOptions(group)
	if err != nil {
		return err
	}

	pending, err := h.store.PendingCapturesInGroup(group.ID)
	if err != nil {
		return fmt.Errorf("failed to load pending frames of group %s: %w", group.PublicID, err)
	}
	if len(pending) == 0 {
		log.Printf("Frame group %s has no pending captures", group.PublicID)
		return nil
	}
	if group.Status == models.StatusPending {
		if err := h.store.UpdateGroupStatus(group.ID, models.StatusProcessing); err != nil {
			log.Printf("Failed to mark group %s processing: %v", group.PublicID, err)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return frameOffset(pending[i]) < frameOffset(pending[j])
	})

	started := make([]*models.Capture, 0, len(pending))
	for _, c := range pending {
		if err := h.executor.Begin(c, group.PublicID); err != nil {
			log.Printf("Frame %s cannot start: %v", c.PublicID, err)
			continue
		}
		started = append(started, c)
	}
	if len(started) == 0 {
		return nil
	}

	offsets := make([]int, len(started))
	for i, c := range started {
		offsets[i] = frameOffset(c)
	}

	shoot := func(i int, image []byte, title string) error {
		c := started[i]
		if err := h.executor.Finalize(c, group.PublicID, image, title); err != nil {
			h.executor.Fail(c, group.PublicID, err)
		}
		return nil
	}
	if err := h.frames.RenderFrames(ctx, group.BaseURL, opts, offsets, shoot); err != nil {
		for _, c := range started {
			if !c.Terminal() {
				h.executor.Fail(c, group.PublicID, err)
			}
		}
		return fmt.Errorf("frame sequence for group %s: %w", group.PublicID, err)
	}
	return nil
}

// HandleCrawl re-runs a single discovered capture inside its group.
// Terminal captures cannot be re-run; the store guard surfaces the
// transition error and the job records it.
func (h *Handlers) HandleCrawl(ctx context.Context, job *models.CaptureJob) error {
	var p models.CrawlPayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("bad crawl payload: %w", err)
	}
	c, err := h.store.GetCapture(p.CaptureID)
	if err != nil {
		return fmt.Errorf("capture %d not found: %w", p.CaptureID, err)
	}
	if c.GroupID == nil {
		return fmt.Errorf("capture %s does not belong to a crawl group", c.PublicID)
	}
	group, err := h.store.GetGroup(*c.GroupID)
	if err != nil {
		return fmt.Errorf("group %d not found: %w", *c.GroupID, err)
	}
	opts, err := groupOptions(group)
	if err != nil {
		return err
	}
	return h.executor.Execute(ctx, c, opts, group.PublicID)
}

// HandleCrawlBatch discovers same-origin pages from the group's base
// URL, creates one crawl-item capture per page and executes them
// sequentially within this job to bound browser load. Re-running the
// job skips pages that already have a capture row, so a requeue
// resumes instead of duplicating.
func (h *Handlers) HandleCrawlBatch(ctx context.Context, job *models.CaptureJob) error {
	var p models.CrawlBatchPayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("bad crawl-batch payload: %w", err)
	}
	group, err := h.store.GetGroup(p.GroupID)
	if err != nil {
		return fmt.Errorf("group %d not found: %w", p.GroupID, err)
	}
	if group.Kind != models.GroupKindCrawl {
		return fmt.Errorf("group %s is not a crawl group", group.PublicID)
	}
	opts, err := groupOptions(group)
	if err != nil {
		return err
	}
	if group.Status == models.StatusPending {
		if err := h.store.UpdateGroupStatus(group.ID, models.StatusProcessing); err != nil {
			log.Printf("Failed to mark group %s processing: %v", group.PublicID, err)
		}
	}

	urls, err := crawl.Discover(ctx, h.fetcher, group.BaseURL, p.MaxDepth, p.MaxPages)
	if err != nil {
		// A group with zero members would otherwise sit in processing
		// forever; record the failure on the group itself.
		if serr := h.store.UpdateGroupStatus(group.ID, models.StatusFailed); serr != nil {
			log.Printf("Failed to mark group %s failed: %v", group.PublicID, serr)
		}
		return fmt.Errorf("crawl discovery for group %s: %w", group.PublicID, err)
	}

	existing, err := h.store.ListCapturesByGroup(group.ID)
	if err != nil {
		return fmt.Errorf("failed to list captures of group %s: %w", group.PublicID, err)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.URL] = true
	}
	total := len(existing)
	for _, u := range urls {
		if have[u] {
			continue
		}
		c := &models.Capture{
			PublicID: util.NewPublicID(),
			OwnerID:  group.OwnerID,
			GroupID:  &group.ID,
			URL:      u,
			Kind:     models.CaptureKindCrawlItem,
		}
		if err := h.store.CreateCapture(c); err != nil {
			return fmt.Errorf("failed to create crawl item for %s: %w", u, err)
		}
		have[u] = true
		total++
	}
	if err := h.store.SetGroupExpectedTotal(group.ID, total); err != nil {
		return fmt.Errorf("failed to set expected total of group %s: %w", group.PublicID, err)
	}

	items, err := h.store.PendingCapturesInGroup(group.ID)
	if err != nil {
		return fmt.Errorf("failed to load pending items of group %s: %w", group.PublicID, err)
	}
	for _, item := range items {
		if err := h.executor.Execute(ctx, item, opts, group.PublicID); err != nil {
			// The item is already terminal with its own error; one bad
			// page never aborts the rest of the crawl.
			log.Printf("Crawl item %s (%s) failed: %v", item.PublicID, item.URL, err)
		}
	}
	return nil
}

// HandleAutoScroll appends scroll captures to a completed frame group.
// Each emitted image grows the group's expected total and runs through
// the normal capture machine, so observers see the group's numbers
// advance without the group ever reopening.
func (h *Handlers) HandleAutoScroll(ctx context.Context, job *models.CaptureJob) error {
	var p models.AutoScrollPayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("bad auto-scroll payload: %w", err)
	}
	group, err := h.store.GetGroup(p.GroupID)
	if err != nil {
		return fmt.Errorf("group %d not found: %w", p.GroupID, err)
	}
	if group.Kind != models.GroupKindFrames || !group.AutoScroll {
		return fmt.Errorf("group %s did not request auto-scroll", group.PublicID)
	}
	opts, err := groupOptions(group)
	if err != nil {
		return err
	}

	emit := func(index, position int, image []byte) error {
		if err := h.store.GrowGroupExpectedTotal(group.ID, 1); err != nil {
			return fmt.Errorf("failed to grow expected total of group %s: %w", group.PublicID, err)
		}
		idx, pos := index, position
		c := &models.Capture{
			PublicID:       util.NewPublicID(),
			OwnerID:        group.OwnerID,
			GroupID:        &group.ID,
			URL:            group.BaseURL,
			Kind:           models.CaptureKindScroll,
			ScrollIndex:    &idx,
			ScrollPosition: &pos,
		}
		if err := h.store.CreateCapture(c); err != nil {
			return fmt.Errorf("failed to create scroll capture for group %s: %w", group.PublicID, err)
		}
		if err := h.executor.Begin(c, group.PublicID); err != nil {
			return err
		}
		if err := h.executor.Finalize(c, group.PublicID, image, ""); err != nil {
			h.executor.Fail(c, group.PublicID, err)
		}
		return nil
	}

	count, err := h.scroller.RunScroll(ctx, group.BaseURL, opts, opts.Scroll, emit)
	if err != nil {
		return fmt.Errorf("auto-scroll for group %s: %w", group.PublicID, err)
	}
	log.Printf("Auto-scroll appended %d captures to group %s", count, group.PublicID)
	return nil
}

// groupOptions decodes the options bag stored on a group when it was
// created. Chained jobs read it back instead of carrying their own.
func groupOptions(g *models.CaptureGroup) (*models.CaptureOptions, error) {
	opts := &models.CaptureOptions{}
	if g.Params == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(g.Params), opts); err != nil {
		return nil, fmt.Errorf("group %s has malformed stored options: %w", g.PublicID, err)
	}
	return opts, nil
}

func frameOffset(c *models.Capture) int {
	if c.FrameOffset != nil {
		return *c.FrameOffset
	}
	return 0
}
