package crawl

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/anishtr4/screenshuter-sub001/internal/browser"
	"github.com/anishtr4/screenshuter-sub001/internal/models"
	"github.com/anishtr4/screenshuter-sub001/internal/render"
)

const defaultFetchTimeout = 30 * time.Second

// EngineFetcher renders pages through the shared browser engine and
// reads anchors from the live DOM. Crawl targets are routinely script
// driven, so fetching raw HTML over the wire would miss the links the
// browser builds. Discovery settles for the weaker content-loaded
// wait; the captures that follow do the careful loading.
type EngineFetcher struct {
	browser *browser.Manager
	timeout time.Duration
}

func NewEngineFetcher(b *browser.Manager, timeout time.Duration) *EngineFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &EngineFetcher{browser: b, timeout: timeout}
}

func (f *EngineFetcher) Links(ctx context.Context, pageURL string) ([]string, error) {
	page, err := f.browser.NewPage(ctx, &models.CaptureOptions{})
	if err != nil {
		return nil, err
	}
	defer f.browser.ClosePage(page)

	if err := render.NavigateSettled(ctx, page, pageURL, f.timeout); err != nil {
		return nil, err
	}
	html, err := page.HTML()
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}
