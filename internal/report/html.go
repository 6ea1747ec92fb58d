package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTMLSink renders recorded entries to a standalone HTML report at Close.
type HTMLSink struct {
	dir    string
	path   string
	title  string
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
	closed  bool
}

// NewHTMLSink writes report_<timestamp>.html under dir at Close. The
// timestamp is fixed at construction so the path is known up front.
func NewHTMLSink(dir, title string, logger *zap.Logger) *HTMLSink {
	return &HTMLSink{
		dir:    dir,
		path:   filepath.Join(dir, fmt.Sprintf("report_%s.html", timestampSuffix(time.Now()))),
		title:  title,
		logger: logger.Named("report_html"),
		now:    time.Now,
	}
}

// Record appends an entry. It never fails.
func (s *HTMLSink) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("Entry recorded after close; dropping", zap.String("test", e.Test))
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.entries = append(s.entries, e)
}

// Path returns the file the report will be (or was) written to.
func (s *HTMLSink) Path() string { return s.path }

// Close renders the report. An empty run still produces a file so the
// artifact is always present for CI collection.
func (s *HTMLSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := s.entries
	s.mu.Unlock()

	path := s.path
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		logWriteFailure(s.logger, "html", path, err)
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		logWriteFailure(s.logger, "html", path, err)
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	data := htmlReport{
		Title:       s.title,
		GeneratedAt: s.now().Format(time.RFC1123),
		Summary:     summarize(entries),
		Entries:     entries,
	}
	if err := htmlTemplate.Execute(f, data); err != nil {
		logWriteFailure(s.logger, "html", path, err)
		return fmt.Errorf("failed to render report: %w", err)
	}
	s.logger.Info("Report written", zap.String("path", path))
	return nil
}

type htmlReport struct {
	Title       string
	GeneratedAt string
	Summary     Summary
	Entries     []Entry
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"clock": func(t time.Time) string { return t.Format("15:04:05") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { margin-bottom: 0; }
.generated { color: #777; margin-top: 0.2em; }
.summary span { display: inline-block; margin-right: 1.5em; font-weight: bold; }
table { border-collapse: collapse; width: 100%; margin-top: 1em; }
th, td { border: 1px solid #ccc; padding: 0.5em 0.8em; text-align: left; }
th { background: #f0f0f0; }
tr.pass td.status { color: #1a7f37; font-weight: bold; }
tr.fail td.status { color: #cf222e; font-weight: bold; }
tr.skip td.status { color: #9a6700; font-weight: bold; }
tr.info td.status { color: #57606a; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="generated">Generated {{.GeneratedAt}}</p>
<div class="summary">
<span>Total: {{.Summary.Total}}</span>
<span>Passed: {{.Summary.Passed}}</span>
<span>Failed: {{.Summary.Failed}}</span>
<span>Skipped: {{.Summary.Skipped}}</span>
</div>
<table>
<tr><th>Time</th><th>Test</th><th>Status</th><th>Duration</th><th>Message</th><th>Screenshot</th></tr>
{{range .Entries}}
<tr class="{{lower (printf "%s" .Status)}}">
<td>{{clock .Timestamp}}</td>
<td>{{.Test}}</td>
<td class="status">{{.Status}}</td>
<td>{{.Duration}}</td>
<td>{{.Message}}</td>
<td>{{if .Screenshot}}<a href="{{.Screenshot}}">view</a>{{end}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))
