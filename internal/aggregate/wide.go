package aggregate

import (
	"github.com/mtwest2718/ukhe-finances/internal/config"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Cell is one pivoted value. Filled cells had no contributing record and
// hold the fill value.
type Cell struct {
	Value  float64
	Filled bool
}

// WideRow holds one institution-year's cells, aligned with WideTable.Categories
type WideRow struct {
	Key   domain.RowKey
	Cells []Cell
}

// WideTable is the pivoted long data: one row per (ukprn, provider, year)
// and one column per category, both sorted.
type WideTable struct {
	Categories []string
	FillPolicy string
	Rows       []WideRow

	index map[string]int
}

// Column returns the position of a category, or -1 when absent
func (w *WideTable) Column(category string) int {
	if w.index == nil {
		w.buildIndex()
	}
	if i, ok := w.index[category]; ok {
		return i
	}
	return -1
}

func (w *WideTable) buildIndex() {
	w.index = make(map[string]int, len(w.Categories))
	for i, c := range w.Categories {
		w.index[c] = i
	}
}

// Lookup returns the cell for category in row. ok is false when the category
// is not a column of the table.
func (w *WideTable) Lookup(row *WideRow, category string) (Cell, bool) {
	i := w.Column(category)
	if i < 0 {
		return Cell{}, false
	}
	return row.Cells[i], true
}

// Undefined reports whether a cell should be treated as having no value
// under the table's fill policy.
func (w *WideTable) Undefined(c Cell) bool {
	return c.Filled && w.FillPolicy == config.FillUndefined
}
