package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anishtr4/screenshuter-sub001/internal/crawl"
)

// fakeFetcher serves a canned link graph keyed by canonical page URL.
type fakeFetcher struct {
	pages  map[string][]string
	errs   map[string]error
	visits []string
}

func (f *fakeFetcher) Links(ctx context.Context, pageURL string) ([]string, error) {
	f.visits = append(f.visits, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return nil, err
	}
	return f.pages[pageURL], nil
}

func TestDiscoverSameOriginOnly(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://site.test/": {
			"/about",
			"docs/guide",
			"https://site.test/contact",
			"https://elsewhere.test/external",
			"http://site.test/insecure", // scheme differs, other origin
			"mailto:hi@site.test",
			"javascript:void(0)",
		},
	}}

	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test", 2, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{
		"https://site.test/",
		"https://site.test/about",
		"https://site.test/docs/guide",
		"https://site.test/contact",
	}
	if len(found) != len(want) {
		t.Fatalf("Expected %d pages, got %d: %v", len(want), len(found), found)
	}
	for i, w := range want {
		if found[i] != w {
			t.Errorf("Expected found[%d] = %q, got %q", i, w, found[i])
		}
	}
}

func TestDiscoverBaseComesFirst(t *testing.T) {
	fetcher := &fakeFetcher{}
	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test/landing", 1, 5)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 1 || found[0] != "https://site.test/landing" {
		t.Errorf("Expected just the base URL, got %v", found)
	}
}

func TestDiscoverRespectsMaxPages(t *testing.T) {
	links := make([]string, 20)
	for i := range links {
		links[i] = fmt.Sprintf("/page-%d", i)
	}
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://site.test/": links,
	}}

	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test", 3, 5)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 5 {
		t.Errorf("Expected exactly 5 pages, got %d", len(found))
	}
	if found[0] != "https://site.test/" {
		t.Errorf("Expected the base URL first, got %q", found[0])
	}
}

func TestDiscoverSkipsUnreachablePages(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][]string{
			"https://site.test/":     {"/broken", "/fine"},
			"https://site.test/fine": {"/deeper"},
		},
		errs: map[string]error{
			"https://site.test/broken": errors.New("fetch failed with status 503"),
		},
	}

	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test", 2, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	// The broken page stays in the found set; only its outbound links
	// are lost.
	want := map[string]bool{
		"https://site.test/":       true,
		"https://site.test/broken": true,
		"https://site.test/fine":   true,
		"https://site.test/deeper": true,
	}
	if len(found) != len(want) {
		t.Fatalf("Expected %d pages, got %v", len(want), found)
	}
	for _, u := range found {
		if !want[u] {
			t.Errorf("Unexpected page %q in found set", u)
		}
	}
}

func TestDiscoverUnreachableBaseStillReturnsIt(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://site.test/": errors.New("connection refused"),
	}}

	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test", 2, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 1 || found[0] != "https://site.test/" {
		t.Errorf("Expected the base URL alone, got %v", found)
	}
}

func TestDiscoverDeduplicates(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://site.test/":  {"/a", "/a", "https://site.test"},
		"https://site.test/a": {"/", "/a", "/b#top", "/b"},
		"https://site.test/b": {"/a"},
	}}

	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test", 2, 10)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	want := []string{"https://site.test/", "https://site.test/a", "https://site.test/b"}
	if len(found) != len(want) {
		t.Fatalf("Expected %v, got %v", want, found)
	}
	for i, w := range want {
		if found[i] != w {
			t.Errorf("Expected found[%d] = %q, got %q", i, w, found[i])
		}
	}
}

func TestDiscoverVisitCeiling(t *testing.T) {
	// A strict chain: every visit discovers exactly one new page, so
	// maxDepth=1 allows ten visits before the walk stops.
	pages := make(map[string][]string)
	for i := 0; i < 30; i++ {
		pages[chainURL(i)] = []string{fmt.Sprintf("/page-%d", i+1)}
	}
	fetcher := &fakeFetcher{pages: pages}

	found, err := crawl.Discover(context.Background(), fetcher, "https://site.test/page-0", 1, 100)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(fetcher.visits) != 10 {
		t.Errorf("Expected 10 visits, got %d", len(fetcher.visits))
	}
	if len(found) != 11 {
		t.Errorf("Expected 11 pages for a 10-visit chain walk, got %d", len(found))
	}
}

func chainURL(i int) string {
	return fmt.Sprintf("https://site.test/page-%d", i)
}

func TestDiscoverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://site.test/": {"/a"},
	}}
	found, err := crawl.Discover(ctx, fetcher, "https://site.test", 2, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(found) != 1 {
		t.Errorf("Expected the partial found set, got %v", found)
	}
}

func TestDiscoverRejectsBadBase(t *testing.T) {
	if _, err := crawl.Discover(context.Background(), &fakeFetcher{}, "ftp://site.test", 1, 5); err == nil {
		t.Error("Expected an error for a non-http base URL")
	}
}
