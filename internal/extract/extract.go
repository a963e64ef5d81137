package extract

import (
	"fmt"
	"log/slog"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/internal/loader"
	"github.com/mtwest2718/ukhe-finances/internal/rules"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Row is one whitelisted category cell with its identifiers, before value parsing
type Row struct {
	UKPRN        string
	Provider     string
	AcademicYear string
	Category     string
	Value        string
}

// Extractor narrows loaded tables down to one canonical category per row
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With(slog.String("component", "extractor"))}
}

// Extract applies rule to table: row filters, column drops, category
// selection, whitelist and relabels. Each part of a drifting archive is
// narrowed against its own columns. Filtered and non-whitelisted rows are
// counted on report.
func (e *Extractor) Extract(rule *rules.TableRule, table *loader.RawTable, report *domain.TableReport) ([]Row, error) {
	seen := make(map[string]bool, len(rule.Categories))
	var (
		out    []Row
		column string
	)
	for _, part := range table.Parts() {
		rows, catColumn, err := extractPart(rule, part, seen, report)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		column = catColumn
	}

	for _, c := range rule.Categories {
		if !seen[c] {
			e.logger.Warn("Whitelisted category not present in table",
				slog.Int("table_id", rule.ID),
				slog.String("category", c),
				slog.String("column", column))
		}
	}

	e.logger.Debug("Categories extracted",
		slog.Int("table_id", rule.ID),
		slog.String("column", column),
		slog.Int("parts", len(table.Parts())),
		slog.Int("rows", len(out)))
	return out, nil
}

// extractPart returns the whitelisted rows of one part and the name of the
// column categories were read from.
func extractPart(rule *rules.TableRule, table *loader.RawTable, seen map[string]bool, report *domain.TableReport) ([]Row, string, error) {
	filtered, err := applyFilters(rule, table, report)
	if err != nil {
		return nil, "", err
	}

	narrowed, err := dropColumns(rule, filtered)
	if err != nil {
		return nil, "", err
	}

	metadata := narrowed.MetadataIndexes()
	pos, ok := resolve(rule.CategoryPosition(), len(metadata))
	if !ok {
		return nil, "", apperrors.NewSchemaError(rule.ID,
			fmt.Sprintf("category index %d out of range for metadata columns %v",
				rule.CategoryPosition(), names(narrowed, metadata)))
	}
	catIdx := metadata[pos]

	ukprnIdx := narrowed.Index(domain.ColumnUKPRN)
	providerIdx := narrowed.Index(domain.ColumnProvider)
	yearIdx := narrowed.Index(domain.ColumnAcademicYear)
	valueIdx := narrowed.Index(domain.ColumnValue)

	out := make([]Row, 0, len(narrowed.Rows))
	for _, row := range narrowed.Rows {
		label := row[catIdx]
		category, ok := rule.Canonical(label)
		if !ok {
			report.AddDropped(domain.DropNotWhitelisted, 1)
			continue
		}
		seen[label] = true
		out = append(out, Row{
			UKPRN:        row[ukprnIdx],
			Provider:     row[providerIdx],
			AcademicYear: row[yearIdx],
			Category:     category,
			Value:        row[valueIdx],
		})
	}
	return out, narrowed.Columns[catIdx], nil
}

func applyFilters(rule *rules.TableRule, table *loader.RawTable, report *domain.TableReport) (*loader.RawTable, error) {
	if len(rule.Filters) == 0 {
		return table, nil
	}

	idx := make([]int, len(rule.Filters))
	for i, f := range rule.Filters {
		idx[i] = table.Index(f.Column)
		if idx[i] < 0 {
			return nil, apperrors.NewMissingColumnError(rule.ID, f.Column)
		}
	}

	out := &loader.RawTable{
		TableID: table.TableID,
		Source:  table.Source,
		Kind:    table.Kind,
		Columns: table.Columns,
	}
	for _, row := range table.Rows {
		keep := true
		for i, f := range rule.Filters {
			if row[idx[i]] != f.Value {
				keep = false
				break
			}
		}
		if !keep {
			report.AddDropped(domain.DropFiltered, 1)
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// dropColumns removes named columns first, then metadata positions counted
// against what remains.
func dropColumns(rule *rules.TableRule, table *loader.RawTable) (*loader.RawTable, error) {
	var byName []int
	for _, name := range rule.DropColumns {
		i := table.Index(name)
		if i < 0 {
			return nil, apperrors.NewMissingColumnError(rule.ID, name)
		}
		byName = append(byName, i)
	}
	if len(byName) > 0 {
		table = table.DropColumns(byName...)
	}

	if len(rule.DropPositions) == 0 {
		return table, nil
	}

	metadata := table.MetadataIndexes()
	byPos := make([]int, 0, len(rule.DropPositions))
	for _, p := range rule.DropPositions {
		pos, ok := resolve(p, len(metadata))
		if !ok {
			return nil, apperrors.NewSchemaError(rule.ID,
				fmt.Sprintf("drop position %d out of range for metadata columns %v", p, names(table, metadata)))
		}
		byPos = append(byPos, metadata[pos])
	}
	return table.DropColumns(byPos...), nil
}

// resolve maps a possibly negative position onto [0, n)
func resolve(pos, n int) (int, bool) {
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos >= n {
		return 0, false
	}
	return pos, true
}

func names(table *loader.RawTable, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = table.Columns[j]
	}
	return out
}
