package dataset

import (
	"fmt"
	"strings"

	"datalyst/domain/core"
)

// Cell represents one value slot in a row. Present distinguishes a recorded
// value from an absent one: an empty string or "0" with Present set is data,
// never absence.
type Cell struct {
	Raw     string `json:"raw"`
	Present bool   `json:"present"`
}

// Value creates a present cell holding raw text
func Value(raw string) Cell {
	return Cell{Raw: raw, Present: true}
}

// Absent creates an explicitly absent cell
func Absent() Cell {
	return Cell{}
}

// Dataset represents an ordered collection of rows over a fixed, named column
// set. Rows[i][j] holds the cell for Columns[j]. A Dataset is immutable after
// construction.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// New creates a dataset after validating its shape: column names must be
// non-blank and unique, and every row must carry exactly the full column set.
func New(name string, columns []string, rows [][]Cell) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", core.ErrDatasetInvalid)
	}

	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("%w: blank column name at index %d", core.ErrDatasetInvalid, i)
		}
		if seen[col] {
			return nil, fmt.Errorf("%w: duplicate column name %q", core.ErrDatasetInvalid, col)
		}
		seen[col] = true
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d",
				core.ErrDatasetInvalid, i, len(row), len(columns))
		}
	}

	return &Dataset{Name: name, Columns: columns, Rows: rows}, nil
}

// RowCount returns the number of rows
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnCount returns the number of columns
func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// ColumnIndex returns the position of a named column
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, col := range d.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns the cells of column j in row order
func (d *Dataset) Column(j int) []Cell {
	cells := make([]Cell, len(d.Rows))
	for i, row := range d.Rows {
		cells[i] = row[j]
	}
	return cells
}
