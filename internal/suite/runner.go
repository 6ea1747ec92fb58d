package suite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verityqa/verity/internal/browser/session"
	"github.com/verityqa/verity/internal/config"
	"github.com/verityqa/verity/internal/report"
)

// Runner executes scenarios on a fixed pool of workers. Each worker owns one
// browser session for its lifetime; the pool fully drains before the report
// sinks are flushed.
type Runner struct {
	cfg     *config.Config
	manager *session.Manager
	sink    report.Sink
	logger  *zap.Logger

	// capture is swapped out in tests to avoid launching a browser.
	capture func(ctx context.Context, sess *session.Session) ([]byte, error)
	now     func() time.Time

	mu      sync.Mutex
	summary report.Summary
}

// NewRunner builds a runner over the given session registry and sink.
func NewRunner(cfg *config.Config, manager *session.Manager, sink report.Sink, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		manager: manager,
		sink:    sink,
		logger:  logger.Named("suite"),
		capture: func(ctx context.Context, sess *session.Session) ([]byte, error) {
			return sess.Screenshot(ctx)
		},
		now: time.Now,
	}
}

// Run executes the scenarios and returns the aggregated summary. The error
// covers infrastructure problems only; scenario failures are reported through
// the summary so the caller decides the process exit code.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (report.Summary, error) {
	workers := r.cfg.Suite.Workers
	if workers < 1 {
		workers = 1
	}

	tags := r.cfg.TagFilter()
	jobs := make(chan Scenario)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		workerID := w
		g.Go(func() error {
			defer r.manager.Release(workerID)
			for sc := range jobs {
				r.runScenario(ctx, workerID, sc)
			}
			return nil
		})
	}

	r.logger.Info("Suite started",
		zap.String("suite", r.cfg.Suite.Name),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("workers", workers),
		zap.Strings("tags", tags))

scheduling:
	for _, sc := range scenarios {
		if !sc.HasAnyTag(tags) {
			r.record(report.Entry{
				Test:      sc.Name,
				Status:    report.StatusSkip,
				Message:   "filtered by tags",
				Timestamp: r.now(),
			})
			continue
		}
		select {
		case jobs <- sc:
		case <-ctx.Done():
			r.logger.Warn("Suite aborted before all scenarios were scheduled",
				zap.Error(ctx.Err()))
			break scheduling
		}
	}
	close(jobs)
	// Join barrier: every worker finishes and releases its session before
	// anything is flushed.
	_ = g.Wait()
	r.manager.CloseAll()

	if err := r.sink.Close(); err != nil {
		r.logger.Error("Failed to flush reports", zap.Error(err))
	}

	r.mu.Lock()
	summary := r.summary
	r.mu.Unlock()

	r.logger.Info("Suite finished",
		zap.Int("total", summary.Total),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))

	if ctx.Err() != nil {
		return summary, fmt.Errorf("suite aborted: %w", ctx.Err())
	}
	return summary, nil
}

func (r *Runner) runScenario(ctx context.Context, workerID int, sc Scenario) {
	sess := r.manager.Acquire(workerID)
	log := r.logger.With(
		zap.String("scenario", sc.Name),
		zap.Int("worker_id", workerID))
	scCtx := newScenarioContext(r.cfg, sess, workerID, log)

	start := r.now()
	log.Info("Scenario started")

	// A failed scenario is re-run from its first step up to suite.retries
	// times. Each run is a fresh pass; only the last one is reported.
	maxRuns := r.cfg.Suite.Retries + 1
	runs := 0
	var failedStep string
	var stepErr error
	for run := 1; run <= maxRuns; run++ {
		runs = run
		failedStep, stepErr = r.runSteps(ctx, scCtx, sc, log)
		if stepErr == nil || ctx.Err() != nil {
			break
		}
		if run < maxRuns {
			log.Warn("Scenario failed; retrying",
				zap.Int("run", run),
				zap.Int("max_runs", maxRuns),
				zap.String("step", failedStep),
				zap.Error(stepErr))
		}
	}

	entry := report.Entry{
		Test:      sc.Name,
		Duration:  r.now().Sub(start),
		Timestamp: start,
	}
	if stepErr == nil {
		entry.Status = report.StatusPass
		if runs > 1 {
			entry.Message = fmt.Sprintf("passed on attempt %d", runs)
		}
		log.Info("Scenario passed",
			zap.Int("runs", runs),
			zap.Duration("duration", entry.Duration))
	} else {
		entry.Status = report.StatusFail
		entry.Message = stepErr.Error()
		if failedStep != "" {
			entry.Message = fmt.Sprintf("step %q: %v", failedStep, stepErr)
		}
		entry.Screenshot = r.captureFailure(ctx, sess, sc.Name)
		log.Error("Scenario failed",
			zap.String("step", failedStep),
			zap.Duration("duration", entry.Duration),
			zap.Error(stepErr))
	}
	r.record(entry)
}

// runSteps executes one full pass over the scenario's steps, stopping at the
// first failure. It returns the failing step's name and error, both zero on a
// clean pass.
func (r *Runner) runSteps(ctx context.Context, scCtx *ScenarioContext, sc Scenario, log *zap.Logger) (string, error) {
	for _, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		log.Debug("Step started", zap.String("step", step.Name))
		if err := step.Run(ctx, scCtx); err != nil {
			return step.Name, err
		}
	}
	return "", nil
}

func (r *Runner) record(e report.Entry) {
	r.mu.Lock()
	switch e.Status {
	case report.StatusPass:
		r.summary.Total++
		r.summary.Passed++
	case report.StatusFail:
		r.summary.Total++
		r.summary.Failed++
	case report.StatusSkip:
		r.summary.Total++
		r.summary.Skipped++
	}
	r.mu.Unlock()
	r.sink.Record(e)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// captureFailure saves a screenshot for a failed scenario and returns its
// path. Capture problems are logged, never fatal; the empty return means no
// artifact.
func (r *Runner) captureFailure(ctx context.Context, sess *session.Session, name string) string {
	png, err := r.capture(ctx, sess)
	if err != nil {
		r.logger.Warn("Failed to capture failure screenshot",
			zap.String("scenario", name),
			zap.Error(err))
		return ""
	}

	dir := r.cfg.Screenshot.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.logger.Warn("Failed to create screenshot directory", zap.Error(err))
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png",
		unsafeFileChars.ReplaceAllString(name, "_"),
		r.now().Format("20060102_150405")))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		r.logger.Warn("Failed to write failure screenshot",
			zap.String("path", path),
			zap.Error(err))
		return ""
	}
	return path
}
