// Package crawl discovers the set of same-origin pages reachable from
// a base URL so a crawl group can capture each one.
package crawl

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/anishtr4/screenshuter-sub001/internal/util"
)

// Fetcher returns the outbound hrefs of one page, as written in the
// document. Discover resolves and filters them.
type Fetcher interface {
	Links(ctx context.Context, pageURL string) ([]string, error)
}

// Discover walks the link graph breadth first from baseURL and returns
// every same-origin page found, the base included and first. A link is
// admitted only while the found set is below maxPages. Depth is not
// tracked per node; instead the walk stops after visiting maxDepth*10
// pages, which bounds how far from the base it can wander.
func Discover(ctx context.Context, fetcher Fetcher, baseURL string, maxDepth, maxPages int) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}
	base.Fragment = ""
	if base.Path == "" {
		base.Path = "/"
	}
	start := base.String()

	found := []string{start}
	seen := map[string]bool{start: true}
	frontier := []string{start}
	visitLimit := maxDepth * 10

	for visited := 0; len(frontier) > 0 && visited < visitLimit && len(found) < maxPages; visited++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		current := frontier[0]
		frontier = frontier[1:]

		hrefs, err := fetcher.Links(ctx, current)
		if err != nil {
			// One unreachable page does not abort the crawl.
			log.Printf("Crawl skipping %s: %v", current, err)
			continue
		}
		currentURL, err := url.Parse(current)
		if err != nil {
			continue
		}

		for _, href := range hrefs {
			resolved, ok := util.NormalizeLink(currentURL, href)
			if !ok {
				continue
			}
			resolvedURL, err := url.Parse(resolved)
			if err != nil || !util.SameOrigin(base, resolvedURL) {
				continue
			}
			if seen[resolved] || len(found) >= maxPages {
				continue
			}
			seen[resolved] = true
			found = append(found, resolved)
			frontier = append(frontier, resolved)
		}
	}
	return found, nil
}
