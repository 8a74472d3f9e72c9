package dispensingparser

import "strings"

// Table is the untyped result of reading a delimited file: a header and rows
// of raw cells. An empty cell stands for a missing value.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of a column or -1 when it is absent.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists in the schema.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Cell returns the value of a column for a row, or "" when the column is absent.
func (t *Table) Cell(row []string, name string) string {
	idx := t.Index(name)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// TrimSpace trims every column name and every cell in place.
func (t *Table) TrimSpace() {
	for i := range t.Header {
		t.Header[i] = strings.TrimSpace(t.Header[i])
	}
	for _, row := range t.Rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
}

// Filter keeps the rows for which keep returns true and reports how many were removed.
func (t *Table) Filter(keep func(row []string) bool) int {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if keep(row) {
			kept = append(kept, row)
		}
	}
	removed := len(t.Rows) - len(kept)
	t.Rows = kept
	return removed
}

// MapColumn rewrites every cell of a column. Missing columns are ignored.
func (t *Table) MapColumn(name string, fn func(string) string) {
	idx := t.Index(name)
	if idx < 0 {
		return
	}
	for _, row := range t.Rows {
		row[idx] = fn(row[idx])
	}
}

// Rename applies historical column-name variants. When both a variant and its
// target are present the target keeps its values and borrows the variant's
// cell wherever its own is empty; the variant column is then dropped.
func (t *Table) Rename(variants map[string]string) {
	for from, to := range variants {
		src := t.Index(from)
		if src < 0 {
			continue
		}
		dst := t.Index(to)
		if dst < 0 {
			t.Header[src] = to
			continue
		}
		for _, row := range t.Rows {
			if row[dst] == "" {
				row[dst] = row[src]
			}
		}
		t.dropColumn(src)
	}
}

func (t *Table) dropColumn(idx int) {
	t.Header = append(t.Header[:idx:idx], t.Header[idx+1:]...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:idx:idx], row[idx+1:]...)
	}
}

// Project keeps the requested columns that exist, in the requested order.
func (t *Table) Project(columns []string) *Table {
	var header []string
	var idx []int
	for _, c := range columns {
		if i := t.Index(c); i >= 0 {
			header = append(header, c)
			idx = append(idx, i)
		}
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(idx))
		for j, i := range idx {
			out[j] = row[i]
		}
		rows[r] = out
	}
	return &Table{Header: header, Rows: rows}
}

// Concat stacks tables by column name. The result header is the union of all
// headers in first-seen order; cells of columns a table lacks are empty.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	pos := make(map[string]int)
	for _, t := range tables {
		for _, h := range t.Header {
			if _, ok := pos[h]; !ok {
				pos[h] = len(out.Header)
				out.Header = append(out.Header, h)
			}
		}
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			merged := make([]string, len(out.Header))
			for i, h := range t.Header {
				if i < len(row) {
					merged[pos[h]] = row[i]
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
