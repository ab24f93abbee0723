// Package table holds the column-oriented report table model and its
// serializations: plain-text grid, CSV, HTML fragment and XLSX.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrRaggedTable is returned when columns have unequal lengths.
var ErrRaggedTable = errors.New("table columns have unequal lengths")

// ErrUnknownColumn is returned when a row references a column not in
// the header.
var ErrUnknownColumn = errors.New("unknown table column")

// Table is a column-oriented table. Header order defines render order;
// every column must hold the same number of values.
type Table struct {
	Header  []string
	Columns map[string][]any
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	cols := make(map[string][]any, len(header))
	for _, h := range header {
		cols[h] = nil
	}
	return &Table{Header: header, Columns: cols}
}

// AppendRow appends one value per header column, in header order.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.Header) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrRaggedTable, len(values), len(t.Header))
	}
	for i, h := range t.Header {
		t.Columns[h] = append(t.Columns[h], values[i])
	}
	return nil
}

// AppendMapRow appends a row given as a column-keyed map. Every header
// column must be present.
func (t *Table) AppendMapRow(row map[string]any) error {
	values := make([]any, 0, len(t.Header))
	for _, h := range t.Header {
		v, ok := row[h]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, h)
		}
		values = append(values, v)
	}
	return t.AppendRow(values...)
}

// NumRows returns the row count, or an error if columns are ragged.
func (t *Table) NumRows() (int, error) {
	n := -1
	for _, h := range t.Header {
		l := len(t.Columns[h])
		if n == -1 {
			n = l
		} else if l != n {
			return 0, ErrRaggedTable
		}
	}
	if n == -1 {
		n = 0
	}
	return n, nil
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	n, err := t.NumRows()
	return err == nil && n == 0
}

// cell returns the value at (column, row).
func (t *Table) cell(col string, row int) any {
	return t.Columns[col][row]
}

// rawString renders a cell value without display formatting, so CSV and
// XLSX output preserve the input precision.
func rawString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", x)
	}
}

// isNumeric reports whether a cell value renders as a number.
func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, float32, float64:
		return true
	}
	return false
}

// toFloat converts a numeric cell value to float64.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	}
	return 0
}
