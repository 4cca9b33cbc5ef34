package datagrid

import "strconv"

// Column describes one column of a loaded result set.
// Columns are immutable for the lifetime of a loaded page
// and replaced wholesale when a new page loads.
type Column struct {
	Name         string
	DeclaredType string
	IsPrimaryKey bool
	Comment      string
}

// Row maps column names to cell values.
type Row map[string]CellValue

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for name, val := range r {
		clone[name] = val
	}
	return clone
}

// CellCoord addresses a single cell by visible row index and column name.
// It is comparable and used as a set/map key throughout.
type CellCoord struct {
	Row int
	Col string
}

func (c CellCoord) String() string {
	return strconv.Itoa(c.Row) + "-" + c.Col
}

// columnIndex returns the position of name within order, or -1.
func columnIndex(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

// primaryKeyColumn picks the column used as row identity for writes:
// the first declared primary key, falling back to the first column.
// Returns an error when the column set is empty.
func primaryKeyColumn(columns []Column) (string, error) {
	for _, col := range columns {
		if col.IsPrimaryKey {
			return col.Name, nil
		}
	}
	if len(columns) > 0 {
		return columns[0].Name, nil
	}
	return "", ErrNoPrimaryKey
}
