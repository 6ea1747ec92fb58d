package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// ExcelSink renders recorded entries to an xlsx workbook at Close, with a
// Results sheet holding one row per entry and a Summary sheet with totals.
type ExcelSink struct {
	dir    string
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
	closed  bool
}

// NewExcelSink writes report_<timestamp>.xlsx under dir at Close.
func NewExcelSink(dir string, logger *zap.Logger) *ExcelSink {
	return &ExcelSink{
		dir:    dir,
		path:   filepath.Join(dir, fmt.Sprintf("report_%s.xlsx", timestampSuffix(time.Now()))),
		logger: logger.Named("report_excel"),
		now:    time.Now,
	}
}

// Record appends an entry. It never fails.
func (s *ExcelSink) Record(e Entry) {
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
func (s *ExcelSink) Path() string { return s.path }

// Close builds and saves the workbook.
func (s *ExcelSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := s.entries
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		logWriteFailure(s.logger, "excel", s.path, err)
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeResults(f, entries); err != nil {
		logWriteFailure(s.logger, "excel", s.path, err)
		return err
	}
	if err := s.writeSummary(f, summarize(entries)); err != nil {
		logWriteFailure(s.logger, "excel", s.path, err)
		return err
	}

	if err := f.SaveAs(s.path); err != nil {
		logWriteFailure(s.logger, "excel", s.path, err)
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	s.logger.Info("Report written", zap.String("path", s.path))
	return nil
}

func (s *ExcelSink) writeResults(f *excelize.File, entries []Entry) error {
	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("failed to name results sheet: %w", err)
	}

	header := []interface{}{"Timestamp", "Test", "Status", "Duration", "Message", "Screenshot"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(resultsSheet, "A1", "F1", boldStyle)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []interface{}{
			e.Timestamp.Format(time.RFC3339),
			e.Test,
			string(e.Status),
			e.Duration.String(),
			e.Message,
			e.Screenshot,
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 22)
	_ = f.SetColWidth(resultsSheet, "B", "B", 40)
	_ = f.SetColWidth(resultsSheet, "E", "F", 50)
	return nil
}

func (s *ExcelSink) writeSummary(f *excelize.File, sum Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Generated", s.now().Format(time.RFC3339)},
		{"Total", sum.Total},
		{"Passed", sum.Passed},
		{"Failed", sum.Failed},
		{"Skipped", sum.Skipped},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address summary row %d: %w", i+1, err)
		}
		r := row
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	return nil
}
