package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one row of a delimited table, keyed by column name.
type Record map[string]string

// Table holds a delimited dataset: the header row (column order) plus
// one Record per data row. Column order matters for round-tripping back
// to a delimited file; cell access goes through the Record map.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// HasColumn reports whether the header contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns returns a ConfigError naming the first missing column.
// Column presence is a precondition for every core operation, checked
// before any row work.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return &ConfigError{
				Table:  t.Name,
				Column: n,
				Reason: fmt.Sprintf("column not found, available: %s", strings.Join(t.Columns, ", ")),
			}
		}
	}
	return nil
}

// Float parses the named cell of row i as a float64. A missing or
// unparseable cell is a ParseError carrying table, column, and the
// row's identifier when idColumn is known.
func (t *Table) Float(i int, column, idColumn string) (float64, error) {
	row := t.Rows[i]
	raw, ok := row[column]
	if !ok {
		return 0, &ParseError{Table: t.Name, Column: column, RowID: rowID(row, idColumn), Value: ""}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ParseError{Table: t.Name, Column: column, RowID: rowID(row, idColumn), Value: raw}
	}
	return v, nil
}

func rowID(row Record, idColumn string) string {
	if idColumn == "" {
		return ""
	}
	return row[idColumn]
}

// Clone returns a deep copy. Core operations are pure; callers that
// re-order or annotate work on a clone, never the input.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		nr := make(Record, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }
