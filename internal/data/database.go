package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the slice of a connection pool the reader needs. Satisfied by
// pgxpool.Pool and by mocks in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// DatabaseReader reads test data from a PostgreSQL database. The selector is
// the SQL query; column names become record field names.
type DatabaseReader struct {
	pool Querier
}

// NewDatabaseReader wraps an existing pool or mock.
func NewDatabaseReader(pool Querier) *DatabaseReader {
	return &DatabaseReader{pool: pool}
}

// Open connects to the database at url and returns a reader plus the pool for
// the caller to close.
func Open(ctx context.Context, url string) (*DatabaseReader, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure database pool: %w", ErrSourceUnavailable)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to reach database: %w", ErrSourceUnavailable)
	}
	return NewDatabaseReader(pool), pool, nil
}

// ReadRows executes the query and returns one record per result row, in
// result order.
func (r *DatabaseReader) ReadRows(ctx context.Context, query string) ([]Record, error) {
	if query == "" {
		return nil, fmt.Errorf("a SQL query is required: %w", ErrSchemaMismatch)
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %v: %w", err, ErrSourceUnavailable)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var records []Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records), err)
		}
		if len(values) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values for %d columns: %w",
				len(records), len(values), len(columns), ErrSchemaMismatch)
		}
		rec := make(Record, len(columns))
		for i, col := range columns {
			rec[col] = stringifySQL(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("result iteration failed: %v: %w", err, ErrSourceUnavailable)
	}
	return records, nil
}

func stringifySQL(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
