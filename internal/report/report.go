// Package report collects test results and renders them to HTML and Excel
// files. Sinks are single-writer: a mutex serializes Record calls from the
// worker pool, and rendering happens once at Close after the pool drains.
package report

import (
	"time"

	"go.uber.org/zap"
)

// Status classifies a recorded entry.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
	StatusInfo Status = "INFO"
)

// Entry is one recorded result row.
type Entry struct {
	Test       string
	Status     Status
	Message    string
	Screenshot string
	Duration   time.Duration
	Timestamp  time.Time
}

// Sink receives result entries. Record must never fail the calling test:
// implementations log write problems and keep going. Close flushes the
// report; it must only be called after all Record callers have finished.
type Sink interface {
	Record(e Entry)
	Close() error
}

// Multi fans every entry out to all underlying sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks into one. Nil entries are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, s := range m.sinks {
		s.Record(e)
	}
}

// Close closes every sink and returns the first error, after attempting all.
func (m *Multi) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Discard is a sink that drops everything. Useful in tests and dry runs.
type Discard struct{}

func (Discard) Record(Entry) {}
func (Discard) Close() error { return nil }

// Summary aggregates entry counts by status.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func summarize(entries []Entry) Summary {
	s := Summary{}
	for _, e := range entries {
		switch e.Status {
		case StatusPass:
			s.Total++
			s.Passed++
		case StatusFail:
			s.Total++
			s.Failed++
		case StatusSkip:
			s.Total++
			s.Skipped++
		}
	}
	return s
}

// timestampSuffix names report files so consecutive runs never collide.
func timestampSuffix(t time.Time) string {
	return t.Format("20060102_150405")
}

func logWriteFailure(logger *zap.Logger, format, path string, err error) {
	logger.Error("Failed to write report; test results are unaffected",
		zap.String("format", format),
		zap.String("path", path),
		zap.Error(err))
}
