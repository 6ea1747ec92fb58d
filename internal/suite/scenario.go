// Package suite schedules scenarios across a bounded worker pool, pairs each
// worker with its own browser session, and feeds results to the report sinks.
package suite

import (
	"context"

	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/api"
	"github.com/verityqa/verity/internal/browser/interact"
	"github.com/verityqa/verity/internal/browser/session"
	"github.com/verityqa/verity/internal/config"
)

// Step is one named action within a scenario. Returning an error fails the
// scenario; later steps do not run.
type Step struct {
	Name string
	Run  func(ctx context.Context, sc *ScenarioContext) error
}

// Scenario is an independently schedulable test case. Scenarios must not
// share mutable state; each one receives its worker's context.
type Scenario struct {
	Name  string
	Tags  []string
	Steps []Step
}

// HasAnyTag reports whether the scenario carries at least one of the given
// tags. An empty filter matches everything.
func (s Scenario) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range s.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ScenarioContext is the per-scenario toolbox handed to every step. It wires
// the worker's session to the interaction layer so steps never manage browser
// plumbing themselves.
type ScenarioContext struct {
	Config   *config.Config
	Session  *session.Session
	Browser  *interact.Interactor
	API      *api.Client
	Logger   *zap.Logger
	WorkerID int
}

// newScenarioContext builds the toolbox around one worker's session.
func newScenarioContext(cfg *config.Config, sess *session.Session, workerID int, logger *zap.Logger) *ScenarioContext {
	resolver := session.NewResolver(sess, logger, cfg.Explicit.Wait)
	return &ScenarioContext{
		Config:   cfg,
		Session:  sess,
		Browser:  interact.New(sess, resolver, cfg, logger),
		API:      api.NewClient(cfg, logger),
		Logger:   logger,
		WorkerID: workerID,
	}
}
