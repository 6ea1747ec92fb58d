package data

import (
	"context"
	"fmt"
	"os"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReader reads test data from a JSON file holding either a top-level
// array of flat objects, or an object whose keys name sections that each hold
// such an array.
type JSONReader struct {
	path string
}

// NewJSONReader reads from the JSON file at path.
func NewJSONReader(path string) *JSONReader {
	return &JSONReader{path: path}
}

// ReadRows returns the records of the named section, in file order. An empty
// selector requires a top-level array.
func (r *JSONReader) ReadRows(ctx context.Context, section string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, ErrSourceUnavailable)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", r.path, ErrSchemaMismatch)
	}

	var rows []interface{}
	switch v := doc.(type) {
	case []interface{}:
		if section != "" {
			return nil, fmt.Errorf("%s is a flat array but section %q was requested: %w",
				r.path, section, ErrSchemaMismatch)
		}
		rows = v
	case map[string]interface{}:
		if section == "" {
			return nil, fmt.Errorf("%s holds named sections; a section name is required: %w",
				r.path, ErrSchemaMismatch)
		}
		sec, ok := v[section]
		if !ok {
			return nil, fmt.Errorf("section %q not found in %s: %w", section, r.path, ErrSchemaMismatch)
		}
		rows, ok = sec.([]interface{})
		if !ok {
			return nil, fmt.Errorf("section %q in %s is not an array: %w", section, r.path, ErrSchemaMismatch)
		}
	default:
		return nil, fmt.Errorf("%s must hold an array or an object of sections: %w", r.path, ErrSchemaMismatch)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d is not an object: %w", i, ErrSchemaMismatch)
		}
		rec := make(Record, len(obj))
		for k, v := range obj {
			rec[k] = stringify(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

// stringify flattens a JSON scalar to the uniform string representation.
// Nested structures keep their JSON encoding.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		encoded, err := json.MarshalToString(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return encoded
	}
}
