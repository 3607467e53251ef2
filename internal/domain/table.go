package domain

// Row is a Record positioned inside a Table.
type Row struct {
	// Index is the zero-based position of the row in its table.
	Index int `json:"index"`
	// SourceIndex is the row's position inside its source file.
	SourceIndex int    `json:"source_index"`
	Source      string `json:"source,omitempty"`
	Record
}

// Table is an ordered set of hourly records with the fixed 24-column schema.
// The zero value is an empty table.
type Table struct {
	Rows []Row
}

// Columns returns the schema of the table. It is the same for empty tables.
func (t *Table) Columns() []string {
	return Columns()
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Records returns the records in row order.
func (t *Table) Records() []Record {
	out := make([]Record, t.Len())
	for i := range out {
		out[i] = t.Rows[i].Record
	}
	return out
}

// Append adds a record read from source at position sourceIndex.
func (t *Table) Append(rec Record, source string, sourceIndex int) {
	t.Rows = append(t.Rows, Row{
		Index:       len(t.Rows),
		SourceIndex: sourceIndex,
		Source:      source,
		Record:      rec,
	})
}

// Concat stacks tables vertically in argument order and assigns a fresh
// zero-based Index to every row. SourceIndex and Source are kept.
func Concat(tables ...*Table) *Table {
	n := 0
	for _, t := range tables {
		n += t.Len()
	}
	out := &Table{Rows: make([]Row, 0, n)}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			r.Index = len(out.Rows)
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
