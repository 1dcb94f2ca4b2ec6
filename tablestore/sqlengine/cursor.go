package sqlengine

import (
	"errors"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/sqlengine/internal/adapters"
)

// cursor adapts database rows to tablestore.Cursor.
type cursor struct {
	rows    adapters.DBRows
	columns []string
}

func newCursor(rows adapters.DBRows) *cursor {
	return &cursor{rows: rows}
}

func (c *cursor) Next() bool {
	return c.rows.Next()
}

// Row materializes the current row. Rows of the sqlx adapter map-scan themselves.
func (c *cursor) Row() (tablestore.Row, error) {
	if mapScanner, ok := c.rows.(adapters.MapScanner); ok {
		values := make(map[string]any)
		if err := mapScanner.MapScan(values); err != nil {
			return nil, errors.Join(tablestore.ErrScanningRowFailed, err)
		}

		return values, nil
	}

	columns, err := c.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	targets := make([]any, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	if err = c.rows.Scan(targets...); err != nil {
		return nil, errors.Join(tablestore.ErrScanningRowFailed, err)
	}

	row := make(tablestore.Row, len(columns))
	for i, column := range columns {
		row[column] = values[i]
	}

	return row, nil
}

func (c *cursor) Scan(dest ...any) error {
	if err := c.rows.Scan(dest...); err != nil {
		return errors.Join(tablestore.ErrScanningRowFailed, err)
	}

	return nil
}

func (c *cursor) Columns() ([]tablestore.ColumnString, error) {
	if c.columns != nil {
		return c.columns, nil
	}

	columns, err := c.rows.Columns()
	if err != nil {
		return nil, errors.Join(tablestore.ErrScanningRowFailed, err)
	}

	c.columns = columns

	return columns, nil
}

func (c *cursor) Err() error {
	if err := c.rows.Err(); err != nil {
		return errors.Join(tablestore.ErrQueryingFailed, classify(err))
	}

	return nil
}

func (c *cursor) Close() error {
	return c.rows.Close()
}
