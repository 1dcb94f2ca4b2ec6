package tablestore

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrColumnNotFound     = errors.New("column not found in row")
	ErrColumnTypeMismatch = errors.New("column value has an unexpected type")
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Row is a generic column to value payload, used for writes and for materialised reads.
type Row map[ColumnString]any

// Columns returns the column names sorted.
func (r Row) Columns() []ColumnString {
	return slices.Sorted(maps.Keys(r))
}

// Copy returns a shallow copy of the row.
func (r Row) Copy() Row {
	return maps.Clone(r)
}

// IsNull reports whether the column is missing or holds nil.
func (r Row) IsNull(column ColumnString) bool {
	v, ok := r[column]

	return !ok || v == nil
}

// String returns the column value as string. []byte values, which most drivers return for text columns,
// are converted.
func (r Row) String(column ColumnString) (string, error) {
	v, ok := r[column]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case []byte:
		return string(value), nil
	case fmt.Stringer:
		return value.String(), nil
	default:
		return fmt.Sprint(value), nil
	}
}

// Int64 returns the column value as int64.
func (r Row) Int64(column ColumnString) (int64, error) {
	v, ok := r[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	switch value := v.(type) {
	case int64:
		return value, nil
	case int:
		return int64(value), nil
	case int32:
		return int64(value), nil
	case int16:
		return int64(value), nil
	case int8:
		return int64(value), nil
	case uint32:
		return int64(value), nil
	case float64:
		return int64(value), nil
	case []byte:
		return strconv.ParseInt(string(value), 10, 64)
	case string:
		return strconv.ParseInt(value, 10, 64)
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrColumnTypeMismatch, column, v)
	}
}

// Bool returns the column value as bool. Integer columns (SQLite) are true when non-zero.
func (r Row) Bool(column ColumnString) (bool, error) {
	v, ok := r[column]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	switch value := v.(type) {
	case bool:
		return value, nil
	case int64:
		return value != 0, nil
	case int:
		return value != 0, nil
	case []byte:
		return strconv.ParseBool(string(value))
	case string:
		return strconv.ParseBool(value)
	default:
		return false, fmt.Errorf("%w: %s is %T", ErrColumnTypeMismatch, column, v)
	}
}

// Time returns the column value as time.Time. Text columns must hold RFC 3339 timestamps.
func (r Row) Time(column ColumnString) (time.Time, error) {
	v, ok := r[column]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	switch value := v.(type) {
	case time.Time:
		return value, nil
	case []byte:
		return time.Parse(time.RFC3339Nano, string(value))
	case string:
		return time.Parse(time.RFC3339Nano, value)
	default:
		return time.Time{}, fmt.Errorf("%w: %s is %T", ErrColumnTypeMismatch, column, v)
	}
}

// DecodeJSON unmarshals a JSON column (written with JSONValue) into dst.
func (r Row) DecodeJSON(column ColumnString, dst any) error {
	v, ok := r[column]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	switch value := v.(type) {
	case []byte:
		return jsonAPI.Unmarshal(value, dst)
	case string:
		return jsonAPI.UnmarshalFromString(value, dst)
	case nil:
		return nil
	default:
		// pgx decodes json/jsonb columns itself
		raw, err := jsonAPI.Marshal(value)
		if err != nil {
			return err
		}

		return jsonAPI.Unmarshal(raw, dst)
	}
}

// JSONValue encodes a nested value as JSON text to be stored in a Row.
func JSONValue(v any) (string, error) {
	return jsonAPI.MarshalToString(v)
}
