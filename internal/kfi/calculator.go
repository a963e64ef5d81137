package kfi

import (
	"log/slog"

	"github.com/mtwest2718/ukhe-finances/internal/aggregate"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// DefaultPlaces is the number of decimal places every ratio is rounded to
const DefaultPlaces = 3

// Options configure a Calculator
type Options struct {
	// Places overrides DefaultPlaces when positive
	Places int32
	// PeerGroup lists ukprns flagged in the peer-group column. No column is
	// produced when empty.
	PeerGroup []int64
	// PeerGroupColumn names the flag column
	PeerGroupColumn string
}

// Row is one institution-year of indicators, aligned with Table.Columns
type Row struct {
	Key       domain.RowKey
	Values    []Value
	PeerGroup bool
}

// Table is the full indicator output
type Table struct {
	Columns         []string
	PeerGroupColumn string
	Rows            []Row
}

// HasPeerGroup reports whether rows carry the peer-group flag
func (t *Table) HasPeerGroup() bool { return t.PeerGroupColumn != "" }

// UndefinedCounts returns, per indicator, how many rows had no value
func (t *Table) UndefinedCounts() map[string]int {
	counts := make(map[string]int, len(t.Columns))
	for _, r := range t.Rows {
		for i, v := range r.Values {
			if !v.IsDefined() {
				counts[t.Columns[i]]++
			}
		}
	}
	return counts
}

// Calculator derives indicators from a wide table
type Calculator struct {
	places    int32
	peerGroup map[int64]bool
	peerName  string
	logger    *slog.Logger
}

// New creates a Calculator
func New(opts Options, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Calculator{
		places: DefaultPlaces,
		logger: logger.With(slog.String("component", "kfi")),
	}
	if opts.Places > 0 {
		c.places = opts.Places
	}
	if len(opts.PeerGroup) > 0 {
		c.peerName = opts.PeerGroupColumn
		c.peerGroup = make(map[int64]bool, len(opts.PeerGroup))
		for _, id := range opts.PeerGroup {
			c.peerGroup[id] = true
		}
	}
	return c
}

// Columns returns the indicator names in output order
func Columns() []string {
	out := make([]string, len(indicators))
	for i, ind := range indicators {
		out[i] = ind.name
	}
	return out
}

// Compute evaluates every indicator for every wide row. Indicators never
// fail: missing inputs and zero denominators give Undefined.
func (c *Calculator) Compute(wide *aggregate.WideTable) *Table {
	out := &Table{
		Columns:         Columns(),
		PeerGroupColumn: c.peerName,
		Rows:            make([]Row, len(wide.Rows)),
	}

	for i := range wide.Rows {
		out.Rows[i] = c.Row(wide, &wide.Rows[i])
	}

	for _, col := range missingInputs(wide) {
		c.logger.Warn("Indicator input category absent from wide table",
			slog.String("category", col))
	}
	c.logger.Info("Indicators computed",
		slog.Int("rows", len(out.Rows)),
		slog.Int("indicators", len(out.Columns)))
	return out
}

// Row evaluates the indicators for one wide row
func (c *Calculator) Row(wide *aggregate.WideTable, row *aggregate.WideRow) Row {
	in := newInputs(wide, row)
	values := make([]Value, len(indicators))
	for i, ind := range indicators {
		values[i] = ind.eval(in).Round(c.places)
	}
	return Row{
		Key:       row.Key,
		Values:    values,
		PeerGroup: c.peerGroup[row.Key.UKPRN],
	}
}

// missingInputs lists every category the indicators read that the wide
// table does not have
func missingInputs(wide *aggregate.WideTable) []string {
	var missing []string
	for _, c := range inputCategories {
		if wide.Column(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}
