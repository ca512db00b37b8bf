package scroll

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// scrollProbeJS inspects, and when step > 0 advances, the scrollable
// mechanism of the page. Detection order: the virtual-scrollbar widget
// pattern (a viewport/overview pair where scrolling translates the
// overview's top style) under the configured selector by its canonical
// class names, then by a looser class-contains match, then anywhere in
// the page, and finally native scrolling. Returns the resulting state
// as a JSON string.
const scrollProbeJS = `(selector, step) => {
	const pairIn = (root) => {
		if (!root) return null;
		let viewport = root.querySelector('.viewport');
		let overview = root.querySelector('.overview');
		if (!viewport || !overview) {
			viewport = root.querySelector('[class*="viewport"]');
			overview = root.querySelector('[class*="overview"]');
		}
		if (!viewport || !overview) return null;
		const max = overview.offsetHeight - viewport.offsetHeight;
		if (max <= 0) return null;
		return { overview, max };
	};

	const el = selector ? document.querySelector(selector) : null;
	const pair = pairIn(el) || pairIn(document);
	if (pair) {
		let pos = Math.abs(parseInt(pair.overview.style.top || '0', 10) || 0);
		pos = Math.min(pos, pair.max);
		if (step > 0) {
			pos = Math.min(pos + step, pair.max);
			pair.overview.style.top = '-' + pos + 'px';
		}
		return JSON.stringify({ mechanism: 'widget', position: pos, max: pair.max });
	}

	const target = (el && el.scrollHeight > el.clientHeight)
		? el
		: (document.scrollingElement || document.documentElement);
	const max = target.scrollHeight - target.clientHeight;
	if (max <= 0) {
		return JSON.stringify({ mechanism: 'none', position: 0, max: 0 });
	}
	let pos = Math.round(target.scrollTop);
	if (step > 0) {
		pos = Math.min(pos + step, max);
		target.scrollTop = pos;
	}
	return JSON.stringify({ mechanism: 'native', position: pos, max: max });
}`

// PageDriver evaluates the probe against a live page.
type PageDriver struct {
	page     *rod.Page
	selector string
}

func NewPageDriver(page *rod.Page, selector string) *PageDriver {
	return &PageDriver{page: page, selector: selector}
}

func (p *PageDriver) State(ctx context.Context) (State, error) {
	return p.probe(ctx, 0)
}

func (p *PageDriver) Advance(ctx context.Context, step int) error {
	_, err := p.probe(ctx, step)
	return err
}

// Shoot takes a viewport screenshot. Scroll captures are always
// viewport-sized; a full-page raster would defeat the point of
// stepping through the region.
func (p *PageDriver) Shoot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *PageDriver) probe(ctx context.Context, step int) (State, error) {
	res, err := p.page.Context(ctx).Eval(scrollProbeJS, p.selector, step)
	if err != nil {
		return State{}, err
	}
	var st State
	if err := json.Unmarshal([]byte(res.Value.Str()), &st); err != nil {
		return State{}, fmt.Errorf("bad scroll probe result: %w", err)
	}
	return st, nil
}
