package normalize

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtwest2718/ukhe-finances/internal/extract"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// ParseValue converts a raw value cell to a number. Accounting negatives
// written in parentheses become negative: "(123)" is -123. Thousands
// separators and surrounding whitespace are ignored. ok is false for blank,
// non-numeric or non-finite cells.
func ParseValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	negative := false
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
		if s != "" && (s[0] == '-' || s[0] == '+') {
			return 0, false
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if negative {
		d = d.Neg()
	}

	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseUKPRN parses an institution id. Integral float renderings such as
// "10007783.0" are accepted.
func ParseUKPRN(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return 0, false
		}
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Normalizer turns extracted rows into typed long records
type Normalizer struct {
	logger *slog.Logger
}

// New creates a Normalizer
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize parses ids and values. Rows that fail either parse are dropped
// and counted on report, never defaulted.
func (n *Normalizer) Normalize(tableID int, rows []extract.Row, report *domain.TableReport) []domain.LongRecord {
	out := make([]domain.LongRecord, 0, len(rows))
	for _, row := range rows {
		ukprn, ok := ParseUKPRN(row.UKPRN)
		if !ok {
			report.AddDropped(domain.DropInvalidUKPRN, 1)
			n.logger.Debug("Dropping row with invalid ukprn",
				slog.Int("table_id", tableID),
				slog.String("ukprn", row.UKPRN))
			continue
		}

		value, ok := ParseValue(row.Value)
		if !ok {
			report.AddDropped(domain.DropUnparseable, 1)
			n.logger.Debug("Dropping unparseable value",
				slog.Int("table_id", tableID),
				slog.Int64("ukprn", ukprn),
				slog.String("category", row.Category),
				slog.String("value", row.Value))
			continue
		}

		out = append(out, domain.LongRecord{
			RowKey: domain.RowKey{
				UKPRN:        ukprn,
				Provider:     strings.TrimSpace(row.Provider),
				AcademicYear: strings.TrimSpace(row.AcademicYear),
			},
			Category: row.Category,
			Value:    value,
			TableID:  tableID,
		})
	}

	if dropped := len(rows) - len(out); dropped > 0 {
		n.logger.Info("Rows dropped during value normalization",
			slog.Int("table_id", tableID),
			slog.Int("dropped", dropped))
	}
	return out
}
