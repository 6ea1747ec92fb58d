package interact

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/browser/locator"
	"github.com/verityqa/verity/internal/browser/session"
	"github.com/verityqa/verity/internal/config"
)

// attemptFn performs one standard-path attempt against a locator. The
// alternative-locator and scroll strategies reuse it with different inputs.
type attemptFn func(ctx context.Context, loc locator.Locator) error

// recovery is one entry in the ordered fallback chain.
type recovery struct {
	name Strategy
	run  func(ctx context.Context) error
}

// Interactor performs element interactions with bounded retries and an
// ordered recovery chain. It is bound to a single session and is not safe for
// concurrent use across workers; each worker builds its own.
type Interactor struct {
	exec     session.ActionExecutor
	resolver *session.Resolver
	retry    config.RetryConfig
	logger   *zap.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New builds an interactor over one session's executor.
func New(exec session.ActionExecutor, resolver *session.Resolver, cfg *config.Config, logger *zap.Logger) *Interactor {
	return &Interactor{
		exec:     exec,
		resolver: resolver,
		retry:    cfg.Retry,
		logger:   logger.Named("interact"),
		sleep:    time.Sleep,
	}
}

// Click clicks the first element matching loc.
func (it *Interactor) Click(ctx context.Context, loc locator.Locator) (Outcome, error) {
	chain := []recovery{
		{StrategyAlternativeLocator, it.viaAlternatives(loc, it.clickOnce)},
		{StrategyJavaScript, func(ctx context.Context) error { return it.jsClick(ctx, loc) }},
		{StrategyPointer, func(ctx context.Context) error { return it.pointerClick(ctx, loc) }},
		{StrategyScrollRetry, it.viaScrollRetry(loc, it.clickOnce)},
		{StrategyCoordinates, func(ctx context.Context) error { return it.coordinateClick(ctx, loc) }},
	}
	return it.perform(ctx, "click", loc, it.clickOnce, chain)
}

// Type clears the first element matching loc and types value into it.
func (it *Interactor) Type(ctx context.Context, loc locator.Locator, value string) (Outcome, error) {
	once := func(ctx context.Context, l locator.Locator) error {
		return it.typeOnce(ctx, l, value)
	}
	chain := []recovery{
		{StrategyAlternativeLocator, it.viaAlternatives(loc, once)},
		{StrategyJavaScript, func(ctx context.Context) error { return it.jsType(ctx, loc, value) }},
		{StrategyPointer, func(ctx context.Context) error { return it.pointerType(ctx, loc, value) }},
		{StrategyScrollRetry, it.viaScrollRetry(loc, once)},
		{StrategyCoordinates, func(ctx context.Context) error { return it.coordinateType(ctx, loc, value) }},
	}
	return it.perform(ctx, "type", loc, once, chain)
}

// perform runs the standard attempt loop and, once it is exhausted, walks the
// recovery chain in order. At most one recovery strategy succeeds.
func (it *Interactor) perform(ctx context.Context, action string, loc locator.Locator, once attemptFn, chain []recovery) (Outcome, error) {
	log := it.logger.With(zap.String("action", action), zap.Stringer("locator", loc))

	var rootCause error
	attempts := 0
	for attempt := 1; attempt <= it.retry.MaxAttempts; attempt++ {
		attempts = attempt
		err := once(ctx, loc)
		if err == nil {
			if attempt > 1 {
				log.Info("Interaction succeeded after retry", zap.Int("attempt", attempt))
			}
			return Outcome{Succeeded: true, Strategy: StrategyStandard, Attempts: attempt}, nil
		}
		rootCause = err
		log.Warn("Interaction attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", it.retry.MaxAttempts),
			zap.Error(err))
		if ctx.Err() != nil {
			return Outcome{Strategy: StrategyStandard, Attempts: attempts},
				fmt.Errorf("%s on %s aborted: %w", action, loc, ctx.Err())
		}
		if attempt < it.retry.MaxAttempts {
			it.sleep(it.retry.Backoff)
		}
	}

	last := StrategyStandard
	var fallbackErr error
	for _, r := range chain {
		if ctx.Err() != nil {
			break
		}
		last = r.name
		log.Info("Trying recovery strategy", zap.String("strategy", string(r.name)))
		if err := r.run(ctx); err != nil {
			fallbackErr = err
			log.Debug("Recovery strategy failed",
				zap.String("strategy", string(r.name)),
				zap.Error(err))
			continue
		}
		log.Info("Recovery strategy succeeded", zap.String("strategy", string(r.name)))
		return Outcome{Succeeded: true, Strategy: r.name, Attempts: attempts}, nil
	}

	err := &InteractionError{
		Locator:     loc,
		Action:      action,
		Attempts:    attempts,
		RootCause:   rootCause,
		FallbackErr: fallbackErr,
	}
	log.Error("Interaction failed after all recovery strategies", zap.Error(err))
	return Outcome{Strategy: last, Attempts: attempts}, err
}

// clickOnce is the standard click path: resolve a clickable node, then
// dispatch a mouse click at its center.
func (it *Interactor) clickOnce(ctx context.Context, loc locator.Locator) error {
	node, err := it.resolver.ResolveClickable(ctx, loc)
	if err != nil {
		return err
	}
	return it.exec.RunActions(ctx, chromedp.MouseClickNode(node))
}

// typeOnce is the standard typing path: wait for visibility, clear, then send
// keys so page listeners observe each keystroke.
func (it *Interactor) typeOnce(ctx context.Context, loc locator.Locator, value string) error {
	if _, err := it.resolver.ResolveVisible(ctx, loc); err != nil {
		return err
	}
	sel := loc.Selector()
	return it.exec.RunActions(ctx,
		chromedp.Clear(sel, session.QueryMode(loc)),
		chromedp.SendKeys(sel, value, session.QueryMode(loc)))
}

// Text returns the visible text of the first element matching loc.
func (it *Interactor) Text(ctx context.Context, loc locator.Locator) (string, error) {
	if _, err := it.resolver.ResolveVisible(ctx, loc); err != nil {
		return "", err
	}
	var text string
	if err := it.exec.RunActions(ctx,
		chromedp.Text(loc.Selector(), &text, session.QueryMode(loc))); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", loc, err)
	}
	return text, nil
}

// Attribute returns the named attribute of the first element matching loc.
// The boolean is false when the attribute is absent.
func (it *Interactor) Attribute(ctx context.Context, loc locator.Locator, name string) (string, bool, error) {
	if _, err := it.resolver.Resolve(ctx, loc); err != nil {
		return "", false, err
	}
	var value string
	var ok bool
	if err := it.exec.RunActions(ctx,
		chromedp.AttributeValue(loc.Selector(), name, &value, &ok, session.QueryMode(loc))); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %q of %s: %w", name, loc, err)
	}
	return value, ok, nil
}

// IsDisplayed reports whether loc resolves to a visible element within the
// resolution deadline. Absence is a normal answer, not an error.
func (it *Interactor) IsDisplayed(ctx context.Context, loc locator.Locator) (bool, error) {
	_, err := it.resolver.ResolveVisible(ctx, loc)
	if err == nil {
		return true, nil
	}
	if session.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Hover moves the pointer to the center of the element matching loc.
func (it *Interactor) Hover(ctx context.Context, loc locator.Locator) error {
	if _, err := it.resolver.ResolveVisible(ctx, loc); err != nil {
		return err
	}
	center, err := it.elementCenter(ctx, loc)
	if err != nil {
		return err
	}
	return it.exec.RunActions(ctx, mouseMove(center))
}

// SelectOption selects the option with the given value, or failing that the
// option with the given visible label, in a select element.
func (it *Interactor) SelectOption(ctx context.Context, loc locator.Locator, option string) error {
	if _, err := it.resolver.ResolveVisible(ctx, loc); err != nil {
		return err
	}
	return it.jsSelect(ctx, loc, option)
}
