package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/verityqa/verity/internal/browser/locator"
)

// fakeExecutor scripts per-call results without a live browser. A nil entry
// means the call succeeds without executing its actions.
type fakeExecutor struct {
	results []error
	calls   int
	// blockUntilDone makes RunActions wait for ctx cancellation, simulating
	// an element that never appears.
	blockUntilDone bool
}

func (f *fakeExecutor) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	f.calls++
	if f.blockUntilDone {
		<-ctx.Done()
		return ctx.Err()
	}
	if len(f.results) == 0 {
		return nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return err
}

func (f *fakeExecutor) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	return f.RunActions(ctx, actions...)
}

func TestResolveEmptyLocator(t *testing.T) {
	r := NewResolver(&fakeExecutor{}, zaptest.NewLogger(t), time.Second)

	_, err := r.Resolve(context.Background(), locator.Locator{})
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestResolveTimesOutAsNotFound(t *testing.T) {
	r := NewResolver(&fakeExecutor{blockUntilDone: true},
		zaptest.NewLogger(t), 20*time.Millisecond)

	_, err := r.Resolve(context.Background(), locator.ID("missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.True(t, IsNotFound(err))
}

func TestResolveHonorsCallerCancellation(t *testing.T) {
	r := NewResolver(&fakeExecutor{blockUntilDone: true},
		zaptest.NewLogger(t), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Resolve(ctx, locator.ID("missing"))
	require.Error(t, err)
	// Caller cancellation is not a resolution timeout.
	assert.NotErrorIs(t, err, ErrElementNotFound)
}

func TestResolveNoMatchIsNotFound(t *testing.T) {
	// Executor succeeds but leaves the node slice empty.
	r := NewResolver(&fakeExecutor{}, zaptest.NewLogger(t), time.Second)

	_, err := r.ResolveVisible(context.Background(), locator.CSS("button.missing"))
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestResolvePropagatesExecutorErrors(t *testing.T) {
	boom := errors.New("websocket closed")
	r := NewResolver(&fakeExecutor{results: []error{boom}},
		zaptest.NewLogger(t), time.Second)

	_, err := r.Resolve(context.Background(), locator.ID("x"))
	assert.ErrorIs(t, err, boom)
}

func TestIsStale(t *testing.T) {
	assert.True(t, IsStale(errors.New("Could not find node with given id (-32000)")))
	assert.True(t, IsStale(errors.New("node with given id does not belong to the document")))
	assert.True(t, IsStale(fmt.Errorf("click: %w", ErrStaleElement)))
	assert.False(t, IsStale(errors.New("net::ERR_CONNECTION_REFUSED")))
	assert.False(t, IsStale(nil))
}

func TestQueryModeBySelectorSyntax(t *testing.T) {
	// XPath and text locators need the search backend; everything else is a
	// plain CSS query. Query options are functions, so compare by pointer.
	optOf := func(opt chromedp.QueryOption) uintptr {
		return reflect.ValueOf(opt).Pointer()
	}
	assert.Equal(t, optOf(chromedp.BySearch), optOf(QueryMode(locator.XPath("//a"))))
	assert.Equal(t, optOf(chromedp.BySearch), optOf(QueryMode(locator.Text("Sign in"))))
	assert.Equal(t, optOf(chromedp.ByQuery), optOf(QueryMode(locator.ID("loginBtn"))))
	assert.Equal(t, optOf(chromedp.ByQuery), optOf(QueryMode(locator.CSS("button"))))
}
