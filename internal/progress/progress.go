// Package progress computes the fulfillment progress bar shown for each order line item.
package progress

import (
	"errors"
	"fmt"
	"slices"
)

// Canonical fulfillment stages, in order.
const (
	StageCreated   = "Created"
	StageAllocated = "Allocated"
	StagePickedUp  = "Picked Up"
	StageShipped   = "Shipped"
	StageDelivered = "Delivered"
)

// CanonicalStages is the fixed stage sequence every line item moves through.
var CanonicalStages = []string{StageCreated, StageAllocated, StagePickedUp, StageShipped, StageDelivered}

// Step is one stage marker of the bar.
type Step struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
}

// Connector joins Steps[i] and Steps[i+1].
type Connector struct {
	Completed bool `json:"completed"`
}

// Bar is the view model of a line item's progress.
// len(Connectors) == max(len(Steps)-1, 0).
type Bar struct {
	Steps      []Step      `json:"steps"`
	Connectors []Connector `json:"connectors"`
}

// Render maps the completed stages of a line item onto the canonical sequence.
//
// A step is completed when its name appears in completed. The step at index
// len(completed)-1 is active when it is completed and the sequence is not yet
// full. Connector i is completed when len(completed) > i. Names that are not
// canonical stages are ignored.
func Render(completed, canonical []string) Bar {
	bar := Bar{
		Steps:      make([]Step, len(canonical)),
		Connectors: make([]Connector, max(len(canonical)-1, 0)),
	}
	last := len(completed) - 1
	partial := len(completed) < len(canonical)

	for i, name := range canonical {
		done := slices.Contains(completed, name)
		bar.Steps[i] = Step{
			Name:      name,
			Completed: done,
			Active:    done && i == last && partial,
		}
		if i < len(canonical)-1 {
			bar.Connectors[i] = Connector{Completed: len(completed) > i}
		}
	}
	return bar
}

// RenderCanonical is Render against CanonicalStages.
func RenderCanonical(completed []string) Bar {
	return Render(completed, CanonicalStages)
}

// CompletedCount returns the number of completed steps.
func (b Bar) CompletedCount() int {
	n := 0
	for _, s := range b.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}

// Fraction returns the completed share of steps in [0, 1].
func (b Bar) Fraction() float64 {
	if len(b.Steps) == 0 {
		return 0
	}
	return float64(b.CompletedCount()) / float64(len(b.Steps))
}

// ActiveStep returns the active step name, or "" when no step is active.
func (b Bar) ActiveStep() string {
	for _, s := range b.Steps {
		if s.Active {
			return s.Name
		}
	}
	return ""
}

var (
	// ErrUnknownStage is returned by Validate for names outside the canonical sequence.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrTooManyStages is returned by Validate when completed is longer than canonical.
	ErrTooManyStages = errors.New("more stages than canonical sequence")
	// ErrStageOrder is returned by Validate when completed is not in canonical order.
	ErrStageOrder = errors.New("stages out of canonical order")
)

// Validate checks that completed only names canonical stages, in canonical order,
// without exceeding the canonical length. Render does not require this; it is
// used to flag bad upstream data.
func Validate(completed, canonical []string) error {
	if len(completed) > len(canonical) {
		return fmt.Errorf("%w: %d > %d", ErrTooManyStages, len(completed), len(canonical))
	}
	prev := -1
	for _, name := range completed {
		idx := slices.Index(canonical, name)
		if idx < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
		if idx <= prev {
			return fmt.Errorf("%w: %q after %q", ErrStageOrder, name, canonical[prev])
		}
		prev = idx
	}
	return nil
}
