// Package dataset provides the in-memory tabular representation used by the
// training and prediction pipelines: a named-column table of string cells,
// CSV load/store, and the seeded train/test split.
//
// Cells are kept as strings until preprocessing decides, per column, whether
// they are numeric or categorical. Whole tables are materialized in memory;
// streaming is out of scope.
package dataset

import (
	"strings"

	"github.com/mlinsights/tabular/pkg/errors"
)

// Table is a row-aligned set of named columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given column names.
func New(columns []string) *Table {
	return &Table{Columns: columns}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, errors.NewDataValidationError("Table.Column", "column "+name+" not found")
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Select returns a new table containing exactly the named columns, in the
// given order. Absent names are reported together in a DataValidationError.
func (t *Table) Select(names []string) (*Table, error) {
	indices := make([]int, 0, len(names))
	var missing []string
	for _, name := range names {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		indices = append(indices, idx)
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingColumnsError("Table.Select", missing)
	}

	out := &Table{Columns: append([]string{}, names...), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		cells := make([]string, len(indices))
		for j, idx := range indices {
			cells[j] = row[idx]
		}
		out.Rows[i] = cells
	}
	return out, nil
}

// SplitTarget separates the target column from the feature columns. A missing
// target is a configuration error.
func (t *Table) SplitTarget(target string) (*Table, []string, error) {
	idx := t.ColumnIndex(target)
	if idx < 0 {
		return nil, nil, errors.NewConfigurationError("target_column", "not found in dataset", target)
	}

	features := &Table{Rows: make([][]string, len(t.Rows))}
	for i, c := range t.Columns {
		if i != idx {
			features.Columns = append(features.Columns, c)
		}
	}
	y := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, 0, len(row)-1)
		for j, cell := range row {
			if j == idx {
				y[i] = cell
				continue
			}
			cells = append(cells, cell)
		}
		features.Rows[i] = cells
	}
	return features, y, nil
}

// AddColumn appends a column to the table. The value count must match the row
// count.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return errors.NewDimensionError("Table.AddColumn", len(t.Rows), len(values), 0)
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// subset returns a new table containing the rows at the given indices.
func (t *Table) subset(indices []int) *Table {
	out := &Table{Columns: t.Columns, Rows: make([][]string, len(indices))}
	for i, idx := range indices {
		out.Rows[i] = t.Rows[idx]
	}
	return out
}

// IsMissing reports whether a cell is a missing value. Empty cells and the
// usual CSV spellings of NaN are missing, matching what pandas-produced files
// contain.
func IsMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}
