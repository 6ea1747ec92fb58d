package suite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/verityqa/verity/internal/browser/session"
	"github.com/verityqa/verity/internal/config"
	"github.com/verityqa/verity/internal/report"
)

// recordingSink captures entries and remembers how many had arrived by the
// time Close ran, which is how the join barrier is observable.
type recordingSink struct {
	mu             sync.Mutex
	entries        []report.Entry
	closed         bool
	entriesAtClose int
}

func (s *recordingSink) Record(e report.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entriesAtClose = len(s.entries)
	return nil
}

func (s *recordingSink) byName(name string) (report.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Test == name {
			return e, true
		}
	}
	return report.Entry{}, false
}

func newTestRunner(t *testing.T, cfg *config.Config, sink report.Sink) *Runner {
	t.Helper()
	logger := zaptest.NewLogger(t)
	r := NewRunner(cfg, session.NewManager(cfg, logger), sink, logger)
	r.capture = func(ctx context.Context, sess *session.Session) ([]byte, error) {
		return []byte("png"), nil
	}
	return r
}

func noopStep(name string) Step {
	return Step{Name: name, Run: func(ctx context.Context, sc *ScenarioContext) error {
		return nil
	}}
}

func TestRunnerRunsEveryScenario(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 2
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	var mu sync.Mutex
	ran := map[string]int{}
	counting := func(name string) Scenario {
		return Scenario{Name: name, Steps: []Step{{Name: "count", Run: func(ctx context.Context, sc *ScenarioContext) error {
			mu.Lock()
			defer mu.Unlock()
			ran[name] = sc.WorkerID
			return nil
		}}}}
	}

	scenarios := []Scenario{
		counting("a"), counting("b"), counting("c"), counting("d"),
	}
	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)

	assert.Equal(t, report.Summary{Total: 4, Passed: 4}, summary)
	assert.Len(t, ran, 4)
	for name, workerID := range ran {
		assert.Contains(t, []int{0, 1}, workerID, "scenario %s", name)
	}

	// The join barrier: all entries recorded before the sink was flushed.
	assert.True(t, sink.closed)
	assert.Equal(t, 4, sink.entriesAtClose)

	// Every worker session was released.
	assert.Equal(t, 0, r.manager.Len())
}

func TestRunnerStepContextIsWired(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	scenarios := []Scenario{{Name: "wiring", Steps: []Step{{Name: "inspect", Run: func(ctx context.Context, sc *ScenarioContext) error {
		require.NotNil(t, sc.Session)
		require.NotNil(t, sc.Browser)
		require.NotNil(t, sc.API)
		require.NotNil(t, sc.Config)
		return nil
	}}}}}

	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed)
}

func TestRunnerTagFiltering(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	cfg.Suite.Tags = "smoke"
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	scenarios := []Scenario{
		{Name: "smoke_login", Tags: []string{"smoke"}, Steps: []Step{noopStep("s")}},
		{Name: "full_checkout", Tags: []string{"regression"}, Steps: []Step{noopStep("s")}},
		{Name: "untagged", Steps: []Step{noopStep("s")}},
	}

	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, report.Summary{Total: 3, Passed: 1, Skipped: 2}, summary)

	entry, ok := sink.byName("full_checkout")
	require.True(t, ok)
	assert.Equal(t, report.StatusSkip, entry.Status)
	assert.Equal(t, "filtered by tags", entry.Message)
}

func TestRunnerFailureStopsLaterStepsAndCapturesScreenshot(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	cfg.Screenshot.Dir = t.TempDir()
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	laterRan := false
	scenarios := []Scenario{{Name: "login failure", Steps: []Step{
		{Name: "open page", Run: func(ctx context.Context, sc *ScenarioContext) error {
			return errors.New("element not found")
		}},
		{Name: "never runs", Run: func(ctx context.Context, sc *ScenarioContext) error {
			laterRan = true
			return nil
		}},
	}}}

	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, laterRan)

	entry, ok := sink.byName("login failure")
	require.True(t, ok)
	assert.Equal(t, report.StatusFail, entry.Status)
	assert.Contains(t, entry.Message, `step "open page"`)
	require.NotEmpty(t, entry.Screenshot)
	assert.FileExists(t, entry.Screenshot)
	assert.Contains(t, entry.Screenshot, "login_failure_")
}

func TestRunnerRetriesFailedScenario(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	cfg.Suite.Retries = 2
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	runs := 0
	scenarios := []Scenario{{Name: "flaky login", Steps: []Step{
		{Name: "submit", Run: func(ctx context.Context, sc *ScenarioContext) error {
			runs++
			if runs < 3 {
				return errors.New("element not found")
			}
			return nil
		}},
	}}}

	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 3, runs)
	assert.Equal(t, report.Summary{Total: 1, Passed: 1}, summary)

	entry, ok := sink.byName("flaky login")
	require.True(t, ok)
	assert.Equal(t, report.StatusPass, entry.Status)
	assert.Contains(t, entry.Message, "attempt 3")
}

func TestRunnerRetriesExhaustedReportsFailure(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	cfg.Suite.Retries = 1
	cfg.Screenshot.Dir = t.TempDir()
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	runs := 0
	scenarios := []Scenario{{Name: "always failing", Steps: []Step{
		{Name: "submit", Run: func(ctx context.Context, sc *ScenarioContext) error {
			runs++
			return errors.New("assertion failed")
		}},
	}}}

	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
	assert.Equal(t, report.Summary{Total: 1, Failed: 1}, summary)

	entry, ok := sink.byName("always failing")
	require.True(t, ok)
	assert.Equal(t, report.StatusFail, entry.Status)
	assert.Contains(t, entry.Message, `step "submit"`)
}

func TestRunnerToleratesScreenshotFailure(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)
	r.capture = func(ctx context.Context, sess *session.Session) ([]byte, error) {
		return nil, errors.New("browser gone")
	}

	scenarios := []Scenario{{Name: "failing", Steps: []Step{
		{Name: "boom", Run: func(ctx context.Context, sc *ScenarioContext) error {
			return errors.New("assertion failed")
		}},
	}}}

	summary, err := r.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	entry, ok := sink.byName("failing")
	require.True(t, ok)
	assert.Empty(t, entry.Screenshot)
}

func TestRunnerAbortsOnCancellation(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Suite.Workers = 1
	sink := &recordingSink{}
	r := newTestRunner(t, cfg, sink)

	ctx, cancel := context.WithCancel(context.Background())
	var ran int
	slow := func(name string) Scenario {
		return Scenario{Name: name, Steps: []Step{{Name: "slow", Run: func(ctx context.Context, sc *ScenarioContext) error {
			ran++
			cancel()
			time.Sleep(10 * time.Millisecond)
			return nil
		}}}}
	}

	_, err := r.Run(ctx, []Scenario{slow("a"), slow("b"), slow("c")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, ran, 3)
	assert.True(t, sink.closed, "sinks flush even on abort")
}

func TestScenarioHasAnyTag(t *testing.T) {
	sc := Scenario{Tags: []string{"smoke", "login"}}
	assert.True(t, sc.HasAnyTag(nil))
	assert.True(t, sc.HasAnyTag([]string{"login"}))
	assert.True(t, sc.HasAnyTag([]string{"regression", "smoke"}))
	assert.False(t, sc.HasAnyTag([]string{"regression"}))
	assert.False(t, Scenario{}.HasAnyTag([]string{"smoke"}))
}
