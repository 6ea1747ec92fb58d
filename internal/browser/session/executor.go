package session

import (
	"context"

	"github.com/chromedp/chromedp"
)

// ActionExecutor is the narrow surface through which the locator resolver and
// the interaction layer reach the browser. Implementations combine the
// operational context with the long-lived session context so actions carry
// the CDP connection information.
type ActionExecutor interface {
	// RunActions executes browser actions under the given operational context.
	RunActions(ctx context.Context, actions ...chromedp.Action) error

	// RunBackgroundActions executes actions in a detached context so they are
	// not cancelled when the operational context finishes. Used for cleanup
	// work such as releasing highlight attributes after a failed step.
	RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error
}
