package aggregate

import (
	"log/slog"
	"sort"

	"github.com/mtwest2718/ukhe-finances/internal/config"
	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Aggregator concatenates per-table long records and pivots them wide
type Aggregator struct {
	fillPolicy string
	logger     *slog.Logger
}

// New creates an Aggregator. An empty fill policy means zero fill.
func New(fillPolicy string, logger *slog.Logger) *Aggregator {
	if fillPolicy == "" {
		fillPolicy = config.FillZero
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		fillPolicy: fillPolicy,
		logger:     logger.With(slog.String("component", "aggregator")),
	}
}

// Concat joins record sets vertically
func Concat(sets ...[]domain.LongRecord) []domain.LongRecord {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make([]domain.LongRecord, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

type institutionYear struct {
	ukprn int64
	year  string
}

// Pivot builds the wide table. Two records for the same ukprn, year and
// category are a duplicate-key error naming both source tables. Input order
// does not affect the result.
func (a *Aggregator) Pivot(records []domain.LongRecord) (*WideTable, error) {
	owner := make(map[domain.CollisionKey]int, len(records))
	cells := make(map[domain.RowKey]map[string]float64)
	categorySet := make(map[string]struct{})
	providers := make(map[institutionYear]map[string]struct{})

	for _, r := range records {
		ck := r.CollisionKey()
		if first, dup := owner[ck]; dup {
			return nil, apperrors.NewDuplicateKeyError(ck, first, r.TableID)
		}
		owner[ck] = r.TableID

		row, ok := cells[r.RowKey]
		if !ok {
			row = make(map[string]float64)
			cells[r.RowKey] = row
		}
		row[r.Category] = r.Value
		categorySet[r.Category] = struct{}{}

		iy := institutionYear{r.UKPRN, r.AcademicYear}
		if providers[iy] == nil {
			providers[iy] = make(map[string]struct{})
		}
		providers[iy][r.Provider] = struct{}{}
	}

	a.warnProviderNames(providers)

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	keys := make([]domain.RowKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	wide := &WideTable{
		Categories: categories,
		FillPolicy: a.fillPolicy,
		Rows:       make([]WideRow, len(keys)),
	}
	filled := 0
	for i, k := range keys {
		row := WideRow{Key: k, Cells: make([]Cell, len(categories))}
		values := cells[k]
		for j, c := range categories {
			if v, ok := values[c]; ok {
				row.Cells[j] = Cell{Value: v}
				continue
			}
			row.Cells[j] = Cell{Filled: true}
			filled++
		}
		wide.Rows[i] = row
	}
	wide.buildIndex()

	a.logger.Info("Pivot complete",
		slog.Int("records", len(records)),
		slog.Int("rows", len(wide.Rows)),
		slog.Int("categories", len(categories)),
		slog.Int("filled_cells", filled),
		slog.String("fill_policy", a.fillPolicy))
	return wide, nil
}

func (a *Aggregator) warnProviderNames(providers map[institutionYear]map[string]struct{}) {
	for iy, names := range providers {
		if len(names) < 2 {
			continue
		}
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		a.logger.Warn("Institution reported under several provider names",
			slog.Int64("ukprn", iy.ukprn),
			slog.String("academic_year", iy.year),
			slog.Any("providers", list))
	}
}
