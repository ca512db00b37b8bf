// Package render drives a page from blank tab to a stabilized,
// capture-ready document: navigation with a fallback policy, custom
// script and style injection, viewport sizing, lazy-load priming and
// sticky element handling.
package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/anishtr4/screenshuter-sub001/internal/browser"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// ErrNavigationTimeout is returned when both the network-idle policy
// and the weaker content-loaded fallback fail to stabilize the page.
var ErrNavigationTimeout = errors.New("page navigation timed out")

const (
	// networkIdleWindow is how long the network must stay quiet before
	// the primary policy considers the page settled.
	networkIdleWindow = 500 * time.Millisecond

	// fallbackSettle is the fixed delay after the weaker content-loaded
	// condition succeeds.
	fallbackSettle = 2 * time.Second

	// lazyLoadStepQuiet bounds the per-step network wait while priming
	// lazy-loaded content.
	lazyLoadStepQuiet = 2 * time.Second

	// lazyLoadMaxSteps caps the priming loop on pages whose height
	// keeps growing (infinite feeds).
	lazyLoadMaxSteps = 40
)

// Result reports the stabilized page's resolved metadata. The page
// handle passed to Render is the stabilized handle.
type Result struct {
	Title string
}

// Render navigates the page and applies the configured injection and
// readiness steps. The timeout bounds each navigation attempt, not the
// whole call.
func Render(ctx context.Context, page *rod.Page, pageURL string, opts *models.CaptureOptions, timeout time.Duration) (*Result, error) {
	// Injection ordering is driven by two independent flags. Scripts
	// registered before navigation run at document start; otherwise
	// they are evaluated on the loaded document. The viewport is sized
	// before navigation unless injection must precede it.
	if opts.InjectBeforeNavigation {
		if err := registerEarlyInjection(page, opts); err != nil {
			return nil, fmt.Errorf("failed to register injection: %w", err)
		}
	}
	if !opts.InjectBeforeViewport {
		if err := browser.SetViewport(page, opts.Width, opts.Height, opts.DeviceScaleFactor); err != nil {
			return nil, fmt.Errorf("failed to size viewport: %w", err)
		}
	}

	if err := navigate(ctx, page, pageURL, timeout); err != nil {
		return nil, err
	}

	if !opts.InjectBeforeNavigation {
		injectNow(page, opts)
	}
	if opts.InjectBeforeViewport {
		if err := browser.SetViewport(page, opts.Width, opts.Height, opts.DeviceScaleFactor); err != nil {
			return nil, fmt.Errorf("failed to size viewport: %w", err)
		}
	}

	if opts.FullPage {
		if err := primeLazyContent(ctx, page, opts.Height); err != nil {
			return nil, fmt.Errorf("failed to prime lazy content: %w", err)
		}
	}

	if opts.Unsticky {
		if err := neutralizeSticky(page); err != nil {
			log.Printf("Failed to neutralize sticky elements: %v", err)
		}
	} else if opts.FullPage {
		// Sticky elements stay; let them settle at their end state by
		// parking the page at the bottom before capture.
		if err := settleAtBottom(ctx, page); err != nil {
			log.Printf("Failed to settle page at bottom: %v", err)
		}
	}

	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}

	return &Result{Title: title}, nil
}

// navigate runs the primary network-idle policy and falls back once to
// the weaker content-loaded condition. Both attempts share the same
// per-attempt timeout.
func navigate(ctx context.Context, page *rod.Page, pageURL string, timeout time.Duration) error {
	err := navigateNetworkIdle(ctx, page, pageURL, timeout)
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		// Hard navigation failures (DNS, connection refused) will not
		// improve on retry with a weaker wait condition.
		return fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}

	log.Printf("Navigation to %s timed out waiting for network idle, retrying with content-loaded condition", pageURL)

	if err := NavigateSettled(ctx, page, pageURL, timeout); err != nil {
		return fmt.Errorf("navigation to %s failed on both policies: %w", pageURL, ErrNavigationTimeout)
	}
	return nil
}

func navigateNetworkIdle(ctx context.Context, page *rod.Page, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(pageURL); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return err
	}
	p.WaitRequestIdle(networkIdleWindow, nil, nil, nil)()
	// WaitRequestIdle returns silently when the deadline interrupts
	// it; only the context tells the difference.
	return navCtx.Err()
}

// NavigateSettled loads pageURL waiting only for DOMContentLoaded plus
// a short settle window. It is the weaker of the two navigation
// policies: rendering falls back to it on a network-idle timeout, and
// crawl discovery uses it as its only policy.
func NavigateSettled(ctx context.Context, page *rod.Page, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := page.Context(navCtx)

	wait := p.WaitEvent(&proto.PageDomContentEventFired{})
	if err := p.Navigate(pageURL); err != nil {
		return err
	}
	wait()
	if err := navCtx.Err(); err != nil {
		return err
	}

	select {
	case <-time.After(fallbackSettle):
	case <-navCtx.Done():
		return navCtx.Err()
	}
	return nil
}

// registerEarlyInjection queues the custom JS and CSS to run at
// document start on the next navigation.
func registerEarlyInjection(page *rod.Page, opts *models.CaptureOptions) error {
	if opts.CustomJS != "" {
		if _, err := page.EvalOnNewDocument(opts.CustomJS); err != nil {
			return err
		}
	}
	if opts.CustomCSS != "" {
		if _, err := page.EvalOnNewDocument(styleBootstrap(opts.CustomCSS)); err != nil {
			return err
		}
	}
	return nil
}

// injectNow applies the custom JS and CSS to the loaded document.
// Script exceptions are the page author's business; they are logged
// and do not fail the capture.
func injectNow(page *rod.Page, opts *models.CaptureOptions) {
	if opts.CustomCSS != "" {
		_, err := page.Eval(`(css) => {
			const style = document.createElement('style');
			style.textContent = css;
			document.head.appendChild(style);
		}`, opts.CustomCSS)
		if err != nil {
			log.Printf("Failed to inject custom CSS: %v", err)
		}
	}
	if opts.CustomJS != "" {
		if _, err := page.Eval("() => {\n" + opts.CustomJS + "\n}"); err != nil {
			log.Printf("Failed to run custom JS: %v", err)
		}
	}
}

// styleBootstrap builds a self-invoking script that appends the CSS as
// soon as the document head exists.
func styleBootstrap(css string) string {
	return `(() => {
	const injectStyle = () => {
		const style = document.createElement('style');
		style.textContent = ` + strconv.Quote(css) + `;
		document.head.appendChild(style);
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', injectStyle);
	} else if (document.head) {
		injectStyle();
	}
})();`
}

// primeLazyContent walks the page top to bottom in viewport-sized
// increments, firing synthetic scroll and resize signals and waiting
// for the network to quiet down at each step, so lazy-loaded content
// materializes before a full-page capture. Ends back at the top.
func primeLazyContent(ctx context.Context, page *rod.Page, viewportHeight int) error {
	if viewportHeight <= 0 {
		viewportHeight = 1080
	}

	for step, y := 0, 0; step < lazyLoadMaxSteps; step++ {
		// The document can keep growing as content loads, so the
		// height is re-read every step.
		res, err := page.Eval(`() => document.documentElement.scrollHeight`)
		if err != nil {
			return err
		}
		if y >= res.Value.Int() {
			break
		}

		_, err = page.Eval(`(y) => {
			window.scrollTo(0, y);
			window.dispatchEvent(new Event('scroll'));
			window.dispatchEvent(new Event('resize'));
		}`, y)
		if err != nil {
			return err
		}

		quietCtx, cancel := context.WithTimeout(ctx, lazyLoadStepQuiet)
		page.Context(quietCtx).WaitRequestIdle(networkIdleWindow, nil, nil, nil)()
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		y += viewportHeight
	}

	if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		return err
	}
	return nil
}

// neutralizeSticky rewrites sticky and fixed positioning to static so
// those elements appear exactly once in a full-page composition.
func neutralizeSticky(page *rod.Page) error {
	_, err := page.Eval(`() => {
		for (const el of document.querySelectorAll('*')) {
			const position = getComputedStyle(el).position;
			if (position === 'sticky' || position === 'fixed') {
				el.style.setProperty('position', 'static', 'important');
			}
		}
	}`)
	return err
}

// settleAtBottom scrolls to the document end and gives sticky
// elements a moment to land.
func settleAtBottom(ctx context.Context, page *rod.Page) error {
	_, err := page.Eval(`() => window.scrollTo(0, document.documentElement.scrollHeight)`)
	if err != nil {
		return err
	}
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
