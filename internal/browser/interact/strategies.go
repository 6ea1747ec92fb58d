package interact

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/browser/locator"
	"github.com/verityqa/verity/internal/browser/session"
)

// viaAlternatives retries the standard path with locators derived from the
// original, in order from most to least specific.
func (it *Interactor) viaAlternatives(loc locator.Locator, once attemptFn) func(context.Context) error {
	return func(ctx context.Context) error {
		alts := loc.Alternatives()
		if len(alts) == 0 {
			return fmt.Errorf("no alternative locators for %s: %w", loc, session.ErrElementNotFound)
		}
		var lastErr error
		for _, alt := range alts {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			it.logger.Debug("Trying alternative locator",
				zap.Stringer("original", loc),
				zap.Stringer("alternative", alt))
			if err := once(ctx, alt); err != nil {
				lastErr = err
				continue
			}
			return nil
		}
		return lastErr
	}
}

// viaScrollRetry scrolls the element to the viewport center and retries the
// standard path exactly once.
func (it *Interactor) viaScrollRetry(loc locator.Locator, once attemptFn) func(context.Context) error {
	return func(ctx context.Context) error {
		err := it.exec.RunActions(ctx,
			chromedp.ScrollIntoView(loc.Selector(), session.QueryMode(loc)))
		if err != nil {
			return fmt.Errorf("scroll into view failed for %s: %w", loc, err)
		}
		return once(ctx, loc)
	}
}

// jsLookup renders a script expression that resolves loc to an element, or
// null when nothing matches.
func jsLookup(loc locator.Locator) string {
	sel := loc.Selector()
	if loc.IsXPath() {
		return fmt.Sprintf(
			`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			sel)
	}
	return fmt.Sprintf(`document.querySelector(%q)`, sel)
}

func evalOpts(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithReturnByValue(true).WithSilent(true)
}

// evalFound evaluates expr, which must yield true when it located and acted
// on the element, and maps a false result to ErrElementNotFound.
func (it *Interactor) evalFound(ctx context.Context, loc locator.Locator, expr string) error {
	var found bool
	if err := it.exec.RunActions(ctx, chromedp.Evaluate(expr, &found, evalOpts)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("script did not locate %s: %w", loc, session.ErrElementNotFound)
	}
	return nil
}

// jsClick clicks through the DOM API, sidestepping overlays and pointer
// interception.
func (it *Interactor) jsClick(ctx context.Context, loc locator.Locator) error {
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.click();
		return true;
	})()`, jsLookup(loc))
	return it.evalFound(ctx, loc, expr)
}

// jsType assigns the value directly and fires input and change events so
// framework listeners still see the edit.
func (it *Interactor) jsType(ctx context.Context, loc locator.Locator, value string) error {
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.focus();
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsLookup(loc), value)
	return it.evalFound(ctx, loc, expr)
}

// jsSelect picks an option by value first, then by visible label.
func (it *Interactor) jsSelect(ctx context.Context, loc locator.Locator, option string) error {
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el || !el.options) return false;
		const want = %q;
		let match = Array.from(el.options).find(o => o.value === want) ||
			Array.from(el.options).find(o => o.label.trim() === want);
		if (!match) return false;
		el.value = match.value;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsLookup(loc), option)
	return it.evalFound(ctx, loc, expr)
}

// pointerGesture composes the user-like sequence: move the pointer to the
// element's center first, then click through the resolved node.
func pointerGesture(center point, node *cdp.Node) []chromedp.Action {
	return []chromedp.Action{
		mouseMove(center),
		chromedp.MouseClickNode(node),
	}
}

// pointerClick re-resolves the node and performs a move-then-click gesture on
// it. The leading move distinguishes this path from the standard click and
// triggers hover handlers that gate some controls.
func (it *Interactor) pointerClick(ctx context.Context, loc locator.Locator) error {
	node, err := it.resolver.Resolve(ctx, loc)
	if err != nil {
		return err
	}
	center, err := it.elementCenter(ctx, loc)
	if err != nil {
		return err
	}
	return it.exec.RunActions(ctx, pointerGesture(center, node)...)
}

// pointerType performs the click gesture to focus the element, clears any
// partial input, then sends the text through the input domain.
func (it *Interactor) pointerType(ctx context.Context, loc locator.Locator, value string) error {
	if err := it.pointerClick(ctx, loc); err != nil {
		return err
	}
	if err := it.clearField(ctx, loc); err != nil {
		return err
	}
	return it.exec.RunActions(ctx, input.InsertText(value))
}

// clearExpr resets the element's value. Fallback typing runs after a standard
// attempt that may have typed part of the text, and InsertText appends, so
// the field must be emptied first.
func clearExpr(loc locator.Locator) string {
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		if ('value' in el) {
			el.value = '';
			el.dispatchEvent(new Event('input', {bubbles: true}));
		}
		return true;
	})()`, jsLookup(loc))
}

func (it *Interactor) clearField(ctx context.Context, loc locator.Locator) error {
	return it.evalFound(ctx, loc, clearExpr(loc))
}

// point is an element center in CSS pixels, as reported by the page.
type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// elementCenter scrolls the element to the viewport center and returns its
// midpoint, computed inside the page so it reflects the live layout.
func (it *Interactor) elementCenter(ctx context.Context, loc locator.Locator) (point, error) {
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return null;
		el.scrollIntoView({block: 'center', inline: 'center'});
		const r = el.getBoundingClientRect();
		return {x: r.left + r.width / 2, y: r.top + r.height / 2};
	})()`, jsLookup(loc))

	var p *point
	if err := it.exec.RunActions(ctx, chromedp.Evaluate(expr, &p, evalOpts)); err != nil {
		return point{}, err
	}
	if p == nil {
		return point{}, fmt.Errorf("geometry lookup did not locate %s: %w", loc, session.ErrElementNotFound)
	}
	return *p, nil
}

func mouseMove(p point) chromedp.Action {
	return input.DispatchMouseEvent(input.MouseMoved, p.X, p.Y)
}

func mousePress(p point) chromedp.Action {
	return input.DispatchMouseEvent(input.MousePressed, p.X, p.Y).
		WithButton(input.Left).
		WithClickCount(1)
}

func mouseRelease(p point) chromedp.Action {
	return input.DispatchMouseEvent(input.MouseReleased, p.X, p.Y).
		WithButton(input.Left).
		WithClickCount(1)
}

// coordinateGesture is the raw event sequence fired at a viewport point,
// with no DOM-level targeting at all.
func coordinateGesture(p point) []chromedp.Action {
	return []chromedp.Action{mouseMove(p), mousePress(p), mouseRelease(p)}
}

// coordinateClick is the last resort: it asks the page for the element's
// coordinates and fires raw input events there, ignoring DOM-level targeting.
func (it *Interactor) coordinateClick(ctx context.Context, loc locator.Locator) error {
	center, err := it.elementCenter(ctx, loc)
	if err != nil {
		return err
	}
	it.logger.Debug("Dispatching raw click",
		zap.Stringer("locator", loc),
		zap.Float64("x", center.X),
		zap.Float64("y", center.Y))
	return it.exec.RunActions(ctx, coordinateGesture(center)...)
}

// coordinateType clicks at the element's coordinates to focus it, clears any
// partial input, then inserts the text through the input domain.
func (it *Interactor) coordinateType(ctx context.Context, loc locator.Locator, value string) error {
	if err := it.coordinateClick(ctx, loc); err != nil {
		return err
	}
	if err := it.clearField(ctx, loc); err != nil {
		return err
	}
	return it.exec.RunActions(ctx, input.InsertText(value))
}
