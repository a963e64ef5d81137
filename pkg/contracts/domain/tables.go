package domain

// SourceKind names the container format of a raw table
type SourceKind string

const (
	SourceAuto SourceKind = "auto"
	SourceCSV  SourceKind = "csv"
	SourceZip  SourceKind = "zip"
	SourceXLSX SourceKind = "xlsx"
)

// TableStatus is the outcome of processing one table id
type TableStatus string

const (
	TableStatusOK      TableStatus = "ok"
	TableStatusFailed  TableStatus = "failed"
	TableStatusSkipped TableStatus = "skipped"
)

// Drop reasons recorded while narrowing a table down to long records.
const (
	DropSectorTotal    = "sector_total"
	DropExcludedYear   = "excluded_year"
	DropPartialYear    = "partial_year"
	DropBlankValue     = "blank_value"
	DropFiltered       = "filtered"
	DropNotWhitelisted = "not_whitelisted"
	DropUnparseable    = "unparseable_value"
	DropInvalidUKPRN   = "invalid_ukprn"
)

// TableReport summarises what happened to one table id during a run
type TableReport struct {
	TableID  int            `json:"table_id"`
	Source   string         `json:"source,omitempty"`
	Kind     SourceKind     `json:"kind,omitempty"`
	RowsRead int            `json:"rows_read"`
	Records  int            `json:"records"`
	Dropped  map[string]int `json:"dropped,omitempty"`
	Status   TableStatus    `json:"status"`
	Error    string         `json:"error,omitempty"`
}

// AddDropped increments the drop counter for reason by n
func (r *TableReport) AddDropped(reason string, n int) {
	if n == 0 {
		return
	}
	if r.Dropped == nil {
		r.Dropped = make(map[string]int)
	}
	r.Dropped[reason] += n
}

// TotalDropped returns the number of rows dropped for any reason
func (r *TableReport) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}
