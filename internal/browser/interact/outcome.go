// Package interact is the resilient interaction layer: every click and
// keystroke goes through a bounded retry loop, and only after the standard
// path is exhausted does an ordered chain of recovery strategies run.
package interact

import (
	"fmt"

	"github.com/verityqa/verity/internal/browser/locator"
)

// Strategy names the mechanism that ultimately performed an interaction.
type Strategy string

const (
	// StrategyStandard is the normal resolve-then-act path.
	StrategyStandard Strategy = "standard"
	// StrategyAlternativeLocator retried with locators derived from the
	// original.
	StrategyAlternativeLocator Strategy = "alternative_locator"
	// StrategyJavaScript performed the interaction by injected script.
	StrategyJavaScript Strategy = "javascript_injection"
	// StrategyPointer dispatched a composed press and release pointer
	// sequence on the resolved node.
	StrategyPointer Strategy = "pointer_composite"
	// StrategyScrollRetry scrolled the element into view and retried once.
	StrategyScrollRetry Strategy = "scroll_retry"
	// StrategyCoordinates dispatched raw input events at the element's
	// viewport coordinates, bypassing DOM-level targeting entirely.
	StrategyCoordinates Strategy = "raw_coordinates"
)

// Outcome describes how an interaction concluded. Callers that only care
// about success can rely on the error return alone; the outcome exists so a
// step can report that it passed degraded, e.g. through a fallback.
type Outcome struct {
	// Succeeded is true when the interaction reached the page.
	Succeeded bool
	// Strategy is the mechanism that succeeded, or the last one tried.
	Strategy Strategy
	// Attempts counts standard-path attempts before any fallback ran.
	Attempts int
}

// Degraded reports whether the interaction needed a fallback to succeed.
func (o Outcome) Degraded() bool {
	return o.Succeeded && o.Strategy != StrategyStandard
}

// InteractionError is returned when the standard attempts and every recovery
// strategy failed. RootCause preserves the error from the standard path, which
// is usually the most diagnostic one.
type InteractionError struct {
	Locator   locator.Locator
	Action    string
	Attempts  int
	RootCause error
	// FallbackErr is the error from the final recovery strategy.
	FallbackErr error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s on %s failed after %d attempts and all recovery strategies: %v",
		e.Action, e.Locator, e.Attempts, e.RootCause)
}

func (e *InteractionError) Unwrap() error { return e.RootCause }
