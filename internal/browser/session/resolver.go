package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/browser/locator"
)

var (
	// ErrElementNotFound indicates resolution polled until its deadline
	// without any node matching the locator.
	ErrElementNotFound = errors.New("element not found")

	// ErrStaleElement indicates a previously resolved node detached from the
	// document before the action reached it.
	ErrStaleElement = errors.New("stale element reference")
)

// IsStale reports whether err stems from a detached DOM node. The CDP backend
// surfaces these as "Could not find node" protocol errors (code -32000).
func IsStale(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStaleElement) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Could not find node") ||
		strings.Contains(msg, "-32000") ||
		strings.Contains(msg, "does not belong to the document")
}

// IsNotFound reports whether err indicates the locator matched nothing within
// the resolution deadline.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrElementNotFound) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Resolver turns symbolic locators into live DOM nodes, polling until the
// configured explicit wait expires. When a locator matches multiple elements
// the first match wins.
type Resolver struct {
	exec    ActionExecutor
	logger  *zap.Logger
	timeout time.Duration
}

// NewResolver constructs a resolver bound to one session's executor.
func NewResolver(exec ActionExecutor, logger *zap.Logger, timeout time.Duration) *Resolver {
	return &Resolver{
		exec:    exec,
		logger:  logger.Named("resolver"),
		timeout: timeout,
	}
}

// Timeout returns the resolution deadline applied per lookup.
func (r *Resolver) Timeout() time.Duration { return r.timeout }

// QueryMode picks the chromedp query backend matching the locator's selector
// syntax: the search backend for XPath expressions, plain CSS queries for
// everything else.
func QueryMode(loc locator.Locator) chromedp.QueryOption {
	if loc.IsXPath() {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// Resolve waits for the locator to match a node in the DOM and returns the
// first match.
func (r *Resolver) Resolve(ctx context.Context, loc locator.Locator) (*cdp.Node, error) {
	return r.resolve(ctx, loc, chromedp.NodeReady)
}

// ResolveVisible waits for a node that is present and rendered.
func (r *Resolver) ResolveVisible(ctx context.Context, loc locator.Locator) (*cdp.Node, error) {
	return r.resolve(ctx, loc, chromedp.NodeVisible)
}

// ResolveClickable waits for a node that is rendered and enabled, the
// precondition for pointer interaction.
func (r *Resolver) ResolveClickable(ctx context.Context, loc locator.Locator) (*cdp.Node, error) {
	node, err := r.resolve(ctx, loc, chromedp.NodeVisible)
	if err != nil {
		return nil, err
	}
	if node.AttributeValue("disabled") != "" {
		return nil, fmt.Errorf("element %s is disabled: %w", loc, ErrElementNotFound)
	}
	return node, nil
}

func (r *Resolver) resolve(ctx context.Context, loc locator.Locator, wait chromedp.QueryOption) (*cdp.Node, error) {
	if loc.IsZero() {
		return nil, fmt.Errorf("empty locator: %w", ErrElementNotFound)
	}

	bounded, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := r.exec.RunActions(bounded,
		chromedp.Nodes(loc.Selector(), &nodes, QueryMode(loc), wait))
	if err != nil {
		if bounded.Err() != nil && ctx.Err() == nil {
			r.logger.Debug("Element resolution timed out",
				zap.Stringer("locator", loc),
				zap.Duration("timeout", r.timeout))
			return nil, fmt.Errorf("no element matched %s within %s: %w",
				loc, r.timeout, ErrElementNotFound)
		}
		return nil, fmt.Errorf("failed to resolve %s: %w", loc, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no element matched %s: %w", loc, ErrElementNotFound)
	}
	if len(nodes) > 1 {
		r.logger.Debug("Locator matched multiple elements; using the first",
			zap.Stringer("locator", loc),
			zap.Int("matches", len(nodes)))
	}
	return nodes[0], nil
}
