package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFixtureWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logins.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "LoginData"))

	rows := [][]interface{}{
		{"Username", "Password", "ExpectedResult"},
		{"standard_user", "secret_sauce", "success"},
		{"", "", ""},
		{"locked_out_user", "secret_sauce", "locked"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("LoginData", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelReaderReadsRowsInOrder(t *testing.T) {
	r := NewExcelReader(writeFixtureWorkbook(t))

	records, err := r.ReadRows(context.Background(), "LoginData")
	require.NoError(t, err)
	require.Len(t, records, 2, "blank rows are skipped")

	assert.Equal(t, "standard_user", records[0]["Username"])
	assert.Equal(t, "success", records[0]["ExpectedResult"])
	assert.Equal(t, "locked_out_user", records[1]["Username"])

	require.NoError(t, RequireColumns(records, "Username", "Password", "ExpectedResult"))
}

func TestExcelReaderDefaultsToFirstSheet(t *testing.T) {
	r := NewExcelReader(writeFixtureWorkbook(t))

	records, err := r.ReadRows(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestExcelReaderMissingFile(t *testing.T) {
	r := NewExcelReader(filepath.Join(t.TempDir(), "nope.xlsx"))

	_, err := r.ReadRows(context.Background(), "LoginData")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestExcelReaderMissingSheet(t *testing.T) {
	r := NewExcelReader(writeFixtureWorkbook(t))

	_, err := r.ReadRows(context.Background(), "NoSuchSheet")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRequireColumnsReportsMissingField(t *testing.T) {
	records := []Record{{"Username": "u"}}
	err := RequireColumns(records, "Username", "Password")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), `"Password"`)
}

func TestRecordGetIsCaseInsensitive(t *testing.T) {
	rec := Record{"Username": "u"}
	v, ok := rec.Get("username")
	assert.True(t, ok)
	assert.Equal(t, "u", v)

	_, ok = rec.Get("missing")
	assert.False(t, ok)
}
