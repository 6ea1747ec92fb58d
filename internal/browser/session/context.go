package session

import (
	"context"
	"time"
)

// CombineContext derives a context from primary that is canceled when either
// primary or secondary is canceled. Values come from primary. chromedp stores
// its connection handle in context values, so browser actions must derive
// from the session context (primary) while still honoring the operation's
// deadline (secondary).
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

// valueOnlyContext inherits values from its parent but ignores the parent's
// deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context carrying ctx's values that outlives ctx's
// cancellation. Used for cleanup actions that must still reach the browser
// while an operation context is being torn down.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
