package loader

import (
	"fmt"
	"strings"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Columns removed on load when present
var droppedColumns = []string{
	"country of he provider",
	"region of he provider",
	"financial year end",
}

const (
	yearEndMonthColumn = "year end month"
	yearEndMonthAll    = "All"
	utf8BOM            = "\ufeff"
)

// RawTable is one source table after schema normalization.
// Column names are lower-cased and the value column is named "value".
type RawTable struct {
	TableID int
	Source  string
	Kind    domain.SourceKind
	Columns []string
	Rows    [][]string
	// Segments holds the member tables of an archive whose yearly headers
	// differ. Columns and Rows are empty when it is set.
	Segments []*RawTable
}

// Parts returns the tables carrying rows: the segments of a drifting
// archive, or the table itself.
func (t *RawTable) Parts() []*RawTable {
	if len(t.Segments) > 0 {
		return t.Segments
	}
	return []*RawTable{t}
}

// RowCount counts rows across all parts
func (t *RawTable) RowCount() int {
	n := 0
	for _, part := range t.Parts() {
		n += len(part.Rows)
	}
	return n
}

// Index returns the position of a column, or -1
func (t *RawTable) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// MetadataIndexes returns the positions of every column that is not a key
// column or the value column, in source order.
func (t *RawTable) MetadataIndexes() []int {
	var idx []int
	for i, c := range t.Columns {
		switch c {
		case domain.ColumnUKPRN, domain.ColumnProvider, domain.ColumnAcademicYear, domain.ColumnValue:
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// DropColumns returns a copy of the table without the given column positions
func (t *RawTable) DropColumns(positions ...int) *RawTable {
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		drop[p] = true
	}
	out := &RawTable{TableID: t.TableID, Source: t.Source, Kind: t.Kind}
	for i, c := range t.Columns {
		if !drop[i] {
			out.Columns = append(out.Columns, c)
		}
	}
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		kept := make([]string, 0, len(out.Columns))
		for i, cell := range row {
			if !drop[i] {
				kept = append(kept, cell)
			}
		}
		out.Rows[r] = kept
	}
	return out
}

// normalizeHeader lower-cases names and strips a UTF-8 byte order mark
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// fitRow pads short rows with blanks. Rows longer than the header are
// accepted only when the surplus cells are blank.
func fitRow(row []string, width int) ([]string, bool) {
	if len(row) == width {
		return row, true
	}
	if len(row) < width {
		padded := make([]string, width)
		copy(padded, row)
		return padded, true
	}
	for _, extra := range row[width:] {
		if strings.TrimSpace(extra) != "" {
			return nil, false
		}
	}
	return row[:width], true
}

// normalize applies the load-time schema rules to a header and its data rows:
// geography and year-end columns are removed, sector totals, excluded years and
// partial-year rows are dropped, the value column is renamed and blank values
// are discarded. Drop counts are recorded on report.
func normalize(tableID int, source string, header []string, rows [][]string,
	isExcluded func(string) bool, report *domain.TableReport) (*RawTable, error) {

	t := &RawTable{TableID: tableID, Source: source, Columns: normalizeHeader(header)}
	for i, row := range rows {
		fitted, ok := fitRow(row, len(t.Columns))
		if !ok {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("table %d: %s: data row %d has %d fields, header has %d",
					tableID, source, i+1, len(row), len(t.Columns)), nil).
				WithContext("table_id", tableID).
				WithContext("file", source)
		}
		t.Rows = append(t.Rows, fitted)
	}

	var drop []int
	for _, name := range droppedColumns {
		if i := t.Index(name); i >= 0 {
			drop = append(drop, i)
		}
	}
	if len(drop) > 0 {
		t = t.DropColumns(drop...)
	}

	for _, required := range domain.KeyColumns {
		if t.Index(required) < 0 {
			return nil, apperrors.NewMissingColumnError(tableID, required).WithContext("file", source)
		}
	}

	valueIdx := -1
	for i, c := range t.Columns {
		if strings.Contains(c, domain.ColumnValue) {
			valueIdx = i
			break
		}
	}
	if valueIdx < 0 {
		return nil, apperrors.NewMissingColumnError(tableID, domain.ColumnValue).WithContext("file", source)
	}
	t.Columns[valueIdx] = domain.ColumnValue

	ukprnIdx := t.Index(domain.ColumnUKPRN)
	yearIdx := t.Index(domain.ColumnAcademicYear)
	monthIdx := t.Index(yearEndMonthColumn)

	kept := t.Rows[:0]
	for _, row := range t.Rows {
		switch {
		case strings.TrimSpace(row[ukprnIdx]) == "":
			report.AddDropped(domain.DropSectorTotal, 1)
		case isExcluded != nil && isExcluded(strings.TrimSpace(row[yearIdx])):
			report.AddDropped(domain.DropExcludedYear, 1)
		case monthIdx >= 0 && strings.TrimSpace(row[monthIdx]) != yearEndMonthAll:
			report.AddDropped(domain.DropPartialYear, 1)
		case strings.TrimSpace(row[valueIdx]) == "":
			report.AddDropped(domain.DropBlankValue, 1)
		default:
			kept = append(kept, row)
		}
	}
	t.Rows = kept

	if monthIdx >= 0 {
		t = t.DropColumns(monthIdx)
	}
	return t, nil
}
