package interact

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// defaultStepTimeout bounds a form step that does not declare its own.
const defaultStepTimeout = 30 * time.Second

// RunForms executes the ordered form steps. A step error aborts the
// remaining steps and propagates; the shots taken so far are still
// returned so completed work is not thrown away.
func RunForms(ctx context.Context, page *rod.Page, steps []models.FormStep, shoot ShotFunc) ([]Shot, error) {
	var shots []Shot

	for i, step := range steps {
		stepShots, err := runFormStep(ctx, page, i, step, shoot)
		shots = append(shots, stepShots...)
		if err != nil {
			return shots, fmt.Errorf("form step %d failed: %w", i, err)
		}
	}

	return shots, nil
}

func runFormStep(ctx context.Context, page *rod.Page, index int, step models.FormStep, shoot ShotFunc) ([]Shot, error) {
	timeout := defaultStepTimeout
	if step.StepTimeout > 0 {
		timeout = time.Duration(step.StepTimeout) * time.Millisecond
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var shots []Shot
	snap := func(phase string) error {
		image, err := shoot()
		if err != nil {
			return fmt.Errorf("screenshot %s: %w", phase, err)
		}
		shots = append(shots, Shot{
			Image:       image,
			FormStep:    intPtr(index),
			FormPhase:   phase,
			Description: step.Description,
		})
		return nil
	}

	for _, input := range step.Inputs {
		if err := fillInput(stepCtx, page, input); err != nil {
			return shots, err
		}
	}
	if step.ScreenshotAfterFill {
		if err := snap("after-fill"); err != nil {
			return shots, err
		}
	}

	if step.SubmitTrigger != "" {
		el, err := findElement(stepCtx, page, step.SubmitTrigger)
		if err != nil {
			return shots, err
		}
		if err := el.ScrollIntoView(); err != nil {
			return shots, err
		}
		if err := humanClick(stepCtx, page, el); err != nil {
			return shots, err
		}
		if err := sleepCtx(stepCtx, time.Duration(step.WaitAfterSubmit)*time.Millisecond); err != nil {
			return shots, err
		}
		if step.ScreenshotAfterSubmit {
			if err := snap("after-submit"); err != nil {
				return shots, err
			}
		}
	}

	if len(step.ValidationChecks) > 0 {
		runValidations(stepCtx, page, index, step.ValidationChecks)
		if step.ScreenshotAfterValidation {
			if err := snap("after-validation"); err != nil {
				return shots, err
			}
		}
	}

	return shots, nil
}

// fillInput writes one form control according to its declared type.
// The selector is required; a missing element fails the whole step.
func fillInput(ctx context.Context, page *rod.Page, input models.FormInput) error {
	el, err := findElement(ctx, page, input.Selector)
	if err != nil {
		return err
	}

	switch strings.ToLower(input.Type) {
	case "select":
		_, err = el.Eval(`(value) => {
			this.value = value;
			this.dispatchEvent(new Event('input', { bubbles: true }));
			this.dispatchEvent(new Event('change', { bubbles: true }));
		}`, input.Value)
		return err
	case "checkbox":
		checked := input.Value == "true" || input.Value == "1" || input.Value == "on"
		_, err = el.Eval(`(checked) => {
			this.checked = checked;
			this.dispatchEvent(new Event('change', { bubbles: true }));
		}`, checked)
		return err
	case "radio":
		_, err = el.Eval(`() => {
			this.checked = true;
			this.dispatchEvent(new Event('change', { bubbles: true }));
		}`)
		return err
	default:
		// text, textarea and anything type-compatible with typing.
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(input.Value)
	}
}

// runValidations evaluates each check and logs its outcome. Checks
// are observational; none of them can fail the step.
func runValidations(ctx context.Context, page *rod.Page, stepIndex int, checks []models.ValidationCheck) {
	for _, check := range checks {
		ok, detail := evalValidation(ctx, page, check)
		if ok {
			log.Printf("Form step %d validation passed: %s %s", stepIndex, check.Kind, check.Selector)
		} else {
			log.Printf("Form step %d validation failed: %s %s: %s", stepIndex, check.Kind, check.Selector, detail)
		}
	}
}

func evalValidation(ctx context.Context, page *rod.Page, check models.ValidationCheck) (bool, string) {
	el, err := findElement(ctx, page, check.Selector)
	if err != nil {
		return false, "element not found"
	}

	switch strings.ToLower(check.Kind) {
	case "exists", "":
		return true, ""
	case "text":
		text, err := el.Text()
		if err != nil {
			return false, fmt.Sprintf("text read failed: %v", err)
		}
		if strings.Contains(text, check.Expected) {
			return true, ""
		}
		return false, fmt.Sprintf("text %q does not contain %q", text, check.Expected)
	case "class":
		attr, err := el.Attribute("class")
		if err != nil || attr == nil {
			return false, "no class attribute"
		}
		for _, class := range strings.Fields(*attr) {
			if class == check.Expected {
				return true, ""
			}
		}
		return false, fmt.Sprintf("class list %q is missing %q", *attr, check.Expected)
	case "attribute":
		attr, err := el.Attribute(check.Attribute)
		if err != nil || attr == nil {
			return false, fmt.Sprintf("attribute %q absent", check.Attribute)
		}
		if *attr == check.Expected {
			return true, ""
		}
		return false, fmt.Sprintf("attribute %q = %q, want %q", check.Attribute, *attr, check.Expected)
	default:
		return false, fmt.Sprintf("unknown validation kind %q", check.Kind)
	}
}
