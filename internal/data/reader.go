// Package data provides uniform access to test data regardless of where it
// lives. Every reader yields the same shape, ordered records of named string
// fields, so test steps never care whether a row came from a workbook, a
// JSON file, or a database.
package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Record is one row of test data. Values are strings regardless of the
// source's native types.
type Record map[string]string

// Get returns the value of a field by case-insensitive name.
func (r Record) Get(field string) (string, bool) {
	if v, ok := r[field]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, field) {
			return v, true
		}
	}
	return "", false
}

var (
	// ErrSourceUnavailable indicates the data source could not be opened or
	// reached.
	ErrSourceUnavailable = errors.New("data source unavailable")

	// ErrSchemaMismatch indicates the source was readable but its shape does
	// not match what was asked for, e.g. a missing sheet, section or column.
	ErrSchemaMismatch = errors.New("data source schema mismatch")
)

// Reader yields ordered records from a data source. The selector's meaning is
// source-specific: a sheet name for workbooks, a section name for JSON files,
// a SQL query for databases.
type Reader interface {
	ReadRows(ctx context.Context, selector string) ([]Record, error)
}

// RequireColumns verifies every record carries the named fields, so a suite
// can fail fast on malformed fixtures instead of mid-scenario.
func RequireColumns(records []Record, columns ...string) error {
	for i, rec := range records {
		for _, col := range columns {
			if _, ok := rec.Get(col); !ok {
				return fmt.Errorf("record %d is missing column %q: %w", i, col, ErrSchemaMismatch)
			}
		}
	}
	return nil
}
