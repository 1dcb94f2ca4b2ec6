package storagestub

import (
	"errors"
	"fmt"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

var ErrCursorNotPositioned = errors.New("cursor is not positioned on a row")

// SliceCursor is a tablestore.Cursor over rows held in memory.
type SliceCursor struct {
	rows   []tablestore.Row
	pos    int
	closed bool
	err    error
}

// NewSliceCursor creates a SliceCursor positioned before the first row.
func NewSliceCursor(rows ...tablestore.Row) *SliceCursor {
	return &SliceCursor{rows: rows, pos: -1}
}

// FailingCursor creates a cursor whose Err reports err after all rows were iterated.
func FailingCursor(err error, rows ...tablestore.Row) *SliceCursor {
	return &SliceCursor{rows: rows, pos: -1, err: err}
}

func (c *SliceCursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.rows) {
		c.pos = len(c.rows)
		return false
	}

	c.pos++

	return true
}

func (c *SliceCursor) Row() (tablestore.Row, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, ErrCursorNotPositioned
	}

	return c.rows[c.pos].Copy(), nil
}

// Scan assigns the values of the current row in the order of Columns.
func (c *SliceCursor) Scan(dest ...any) error {
	row, err := c.Row()
	if err != nil {
		return err
	}

	columns := row.Columns()
	if len(dest) != len(columns) {
		return fmt.Errorf("expected %d destinations, got %d", len(columns), len(dest))
	}

	for i, column := range columns {
		target, ok := dest[i].(*any)
		if !ok {
			return fmt.Errorf("destination %d must be *any, got %T", i, dest[i])
		}

		*target = row[column]
	}

	return nil
}

func (c *SliceCursor) Columns() ([]tablestore.ColumnString, error) {
	if len(c.rows) == 0 {
		return nil, nil
	}

	return c.rows[0].Columns(), nil
}

func (c *SliceCursor) Err() error {
	if c.pos >= len(c.rows) {
		return c.err
	}

	return nil
}

func (c *SliceCursor) Close() error {
	c.closed = true

	return nil
}

// IsClosed reports whether Close was called.
func (c *SliceCursor) IsClosed() bool {
	return c.closed
}
