package interact

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// RunTriggers executes the ordered click sequence and returns one shot
// per trigger that ran to completion. A trigger whose element is
// missing or whose click fails is logged and skipped; it never aborts
// the remaining triggers.
func RunTriggers(ctx context.Context, page *rod.Page, triggers []models.TriggerSelector, shoot ShotFunc) ([]Shot, error) {
	var shots []Shot

	for i, trigger := range triggers {
		if err := sleepCtx(ctx, time.Duration(trigger.DelayBefore)*time.Millisecond); err != nil {
			return shots, err
		}

		if err := runTrigger(ctx, page, trigger); err != nil {
			if ctx.Err() != nil {
				return shots, ctx.Err()
			}
			log.Printf("Trigger %d (%s) skipped: %v", i, trigger.Selector, err)
			continue
		}

		if err := sleepCtx(ctx, time.Duration(trigger.WaitAfter)*time.Millisecond); err != nil {
			return shots, err
		}

		image, err := shoot()
		if err != nil {
			log.Printf("Trigger %d (%s) screenshot failed: %v", i, trigger.Selector, err)
			continue
		}
		shots = append(shots, Shot{
			Image:        image,
			TriggerIndex: intPtr(i),
			Description:  trigger.Description,
		})
	}

	return shots, nil
}

func runTrigger(ctx context.Context, page *rod.Page, trigger models.TriggerSelector) error {
	el, err := findElement(ctx, page, trigger.Selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return humanClick(ctx, page, el)
}

// humanClick moves the pointer to the element along randomized
// waypoints with positional jitter before clicking, approximating a
// person rather than a teleporting cursor.
func humanClick(ctx context.Context, page *rod.Page, el *rod.Element) error {
	target, err := el.Interactable()
	if err != nil {
		return err
	}

	// Land slightly off-center.
	dest := proto.Point{
		X: target.X + jitter(3),
		Y: target.Y + jitter(3),
	}

	// Approach through one or two intermediate waypoints scattered
	// around the destination.
	for i := 0; i < 1+rand.Intn(2); i++ {
		waypoint := proto.Point{
			X: dest.X + jitter(80),
			Y: dest.Y + jitter(80),
		}
		if err := page.Mouse.MoveLinear(waypoint, 8+rand.Intn(8)); err != nil {
			return err
		}
		if err := sleepCtx(ctx, time.Duration(20+rand.Intn(60))*time.Millisecond); err != nil {
			return err
		}
	}

	if err := page.Mouse.MoveLinear(dest, 10+rand.Intn(10)); err != nil {
		return err
	}
	if err := sleepCtx(ctx, time.Duration(30+rand.Intn(90))*time.Millisecond); err != nil {
		return err
	}
	return page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func jitter(radius int) float64 {
	return float64(rand.Intn(2*radius+1) - radius)
}
