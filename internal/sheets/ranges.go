package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a zero-based column index to its A1 letters (0 → A, 26 → AA).
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// RowRange is the A1 range covering columns [fromCol, fromCol+width) of one row.
func RowRange(sheet string, row, fromCol, width int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", quote(sheet), ColumnLetter(fromCol), row, ColumnLetter(fromCol+width-1), row)
}

// BlockRange is the A1 range from (firstRow, fromCol) to (lastRow, toCol), inclusive.
func BlockRange(sheet string, firstRow, lastRow, fromCol, toCol int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", quote(sheet), ColumnLetter(fromCol), firstRow, ColumnLetter(toCol), lastRow)
}

// ColumnsRange is an open-ended range of whole columns, e.g. 'Output'!A:E.
func ColumnsRange(sheet string, fromCol, toCol int) string {
	return fmt.Sprintf("%s!%s:%s", quote(sheet), ColumnLetter(fromCol), ColumnLetter(toCol))
}

// quote wraps sheet titles containing anything but letters and digits.
func quote(sheet string) string {
	simple := sheet != ""
	for _, r := range sheet {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			simple = false
			break
		}
	}
	if simple {
		return sheet
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// OpenRange runs from (firstRow, fromCol) to the last row of toCol, e.g. Output!A2:E.
func OpenRange(sheet string, firstRow, fromCol, toCol int) string {
	return fmt.Sprintf("%s!%s%d:%s", quote(sheet), ColumnLetter(fromCol), firstRow, ColumnLetter(toCol))
}
