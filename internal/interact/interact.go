// Package interact automates pre-capture page interactions: trigger
// click sequences and multi-step form runs. Both produce intermediate
// screenshots that the capture pipeline persists as child captures.
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// ErrElementNotFound marks a selector that never matched within its
// lookup window. Trigger sequences treat it as a warning; form steps
// treat it as fatal.
var ErrElementNotFound = errors.New("element not found")

// elementWait bounds how long a selector lookup blocks before the
// element is declared absent.
const elementWait = 2 * time.Second

// Shot is one intermediate screenshot taken mid-interaction, tagged
// with where in the sequence it was produced.
type Shot struct {
	Image        []byte
	TriggerIndex *int
	FormStep     *int
	FormPhase    string // after-fill, after-submit, after-validation
	Description  string
}

// ShotFunc rasterizes the page in its current state. The pipeline
// provides it so interaction code stays ignorant of capture settings.
type ShotFunc func() ([]byte, error)

// findElement looks a selector up with a bounded wait and rebinds the
// element to the caller's context so later operations are not cut off
// by the lookup deadline.
func findElement(ctx context.Context, page *rod.Page, selector string) (*rod.Element, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, elementWait)
	defer cancel()

	el, err := page.Context(lookupCtx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, ErrElementNotFound)
	}
	return el.Context(ctx), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func intPtr(v int) *int { return &v }
