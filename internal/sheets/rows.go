package sheets

import (
	"fmt"
	"sort"
	"strings"
)

// DataStartRow is the first physical row below the header of an output sheet.
const DataStartRow = 2

// Row is one sheet row as returned by the Values API, cells in column order.
type Row []interface{}

// ToRows converts a Values API response into rows.
func ToRows(values [][]interface{}) []Row {
	rows := make([]Row, len(values))
	for i, v := range values {
		rows[i] = Row(v)
	}
	return rows
}

// Cell returns the trimmed string value at index, or "" when absent.
func (r Row) Cell(index int) string {
	if index < 0 || len(r) <= index || r[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", r[index]))
}

// Key is the identifying value of an output row (column A).
func (r Row) Key() string {
	return r.Cell(0)
}

// Classify returns the physical row numbers to delete, highest first.
//
// rows are scanned top to bottom; rows[0] sits at physical row firstRow. A
// row is deleted when its key was already seen above it or when the key is
// not in valid. A blank key is never valid. The first occurrence of a valid
// key is always kept.
func Classify(rows []Row, valid map[string]struct{}, firstRow int) []int {
	seen := make(map[string]struct{}, len(rows))
	var doomed []int
	for i, row := range rows {
		key := row.Key()
		if _, dup := seen[key]; dup {
			doomed = append(doomed, firstRow+i)
			continue
		}
		if _, ok := valid[key]; !ok || key == "" {
			doomed = append(doomed, firstRow+i)
			continue
		}
		seen[key] = struct{}{}
	}
	return SortDescending(doomed)
}

// SortDescending orders row numbers bottom-up and removes repeats, so that
// deleting them one after another never shifts a row still to be deleted.
func SortDescending(rows []int) []int {
	out := make([]int, 0, len(rows))
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Upsert finds the 1-based row holding key in column A. When there is none,
// the row after the last existing row is returned and wasUpdate is false.
func Upsert(existing []Row, key string) (row int, wasUpdate bool) {
	key = strings.TrimSpace(key)
	for i, r := range existing {
		if len(r) > 0 && r.Key() == key {
			return i + 1, true
		}
	}
	return len(existing) + 1, false
}

// Table is an in-memory copy of a sheet read from row 1. Upserts are applied
// to the copy so later lookups in the same pass see earlier appends.
type Table struct {
	Sheet string
	rows  []Row
}

// NewTable wraps the values of sheet read from A1.
func NewTable(sheet string, values [][]interface{}) *Table {
	return &Table{Sheet: sheet, rows: ToRows(values)}
}

// Rows returns the current contents.
func (t *Table) Rows() []Row {
	return t.rows
}

// Locate returns the row key lives in, or the append position.
func (t *Table) Locate(key string) (row int, wasUpdate bool) {
	return Upsert(t.rows, key)
}

// Put stores values at a 1-based row, growing the table with empty rows
// when row lies past the end.
func (t *Table) Put(row int, values Row) {
	if row < 1 {
		return
	}
	for len(t.rows) < row {
		t.rows = append(t.rows, Row{})
	}
	t.rows[row-1] = values
}

// Reserve grows the table with empty rows until it holds at least rows rows,
// so that appends never land above a header area.
func (t *Table) Reserve(rows int) {
	for len(t.rows) < rows {
		t.rows = append(t.rows, Row{})
	}
}

// Upsert records values under key and returns the row to write them to.
func (t *Table) Upsert(key string, values Row) (row int, wasUpdate bool) {
	row, wasUpdate = t.Locate(key)
	t.Put(row, values)
	return row, wasUpdate
}
