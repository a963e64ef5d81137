package domain

import "fmt"

// Canonical column names shared by every stage once a table has been loaded.
const (
	ColumnUKPRN        = "ukprn"
	ColumnProvider     = "he provider"
	ColumnAcademicYear = "academic year"
	ColumnCategory     = "category"
	ColumnValue        = "value"
)

// KeyColumns are the identifier columns every normalized table must carry, in output order.
var KeyColumns = []string{ColumnUKPRN, ColumnProvider, ColumnAcademicYear}

// RowKey identifies one institution in one academic year
type RowKey struct {
	UKPRN        int64  `json:"ukprn"`
	Provider     string `json:"he_provider"`
	AcademicYear string `json:"academic_year"`
}

// Less orders keys by ukprn, then provider name, then academic year
func (k RowKey) Less(o RowKey) bool {
	if k.UKPRN != o.UKPRN {
		return k.UKPRN < o.UKPRN
	}
	if k.Provider != o.Provider {
		return k.Provider < o.Provider
	}
	return k.AcademicYear < o.AcademicYear
}

// LongRecord is one normalized metric value for an institution and year.
// TableID records which source table produced it.
type LongRecord struct {
	RowKey
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	TableID  int     `json:"table_id"`
}

// CollisionKey is the identity the pivot must keep unique.
// The provider name is deliberately excluded: a renamed institution is still one institution.
type CollisionKey struct {
	UKPRN        int64
	AcademicYear string
	Category     string
}

// CollisionKey returns the uniqueness key of the record
func (r LongRecord) CollisionKey() CollisionKey {
	return CollisionKey{UKPRN: r.UKPRN, AcademicYear: r.AcademicYear, Category: r.Category}
}

func (k CollisionKey) String() string {
	return fmt.Sprintf("ukprn=%d year=%s category=%q", k.UKPRN, k.AcademicYear, k.Category)
}
