package exporter

import (
	"github.com/mtwest2718/ukhe-finances/internal/aggregate"
	"github.com/mtwest2718/ukhe-finances/internal/kfi"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

func keyCells(k domain.RowKey) []string {
	return []string{formatInt(k.UKPRN), k.Provider, k.AcademicYear}
}

// WideRecords renders the wide table as CSV headers and records. Filled cells
// are written as zero, or as undefinedToken under the undefined fill policy.
func WideRecords(wide *aggregate.WideTable, undefinedToken string) ([]string, [][]string) {
	headers := append(append([]string{}, domain.KeyColumns...), wide.Categories...)
	records := make([][]string, len(wide.Rows))
	for i, row := range wide.Rows {
		record := keyCells(row.Key)
		for _, cell := range row.Cells {
			if wide.Undefined(cell) {
				record = append(record, undefinedToken)
				continue
			}
			record = append(record, formatFloat(cell.Value))
		}
		records[i] = record
	}
	return headers, records
}

// KFIRecords renders the indicator table as CSV headers and records
func KFIRecords(table *kfi.Table, undefinedToken string) ([]string, [][]string) {
	headers := append(append([]string{}, domain.KeyColumns...), table.Columns...)
	if table.HasPeerGroup() {
		headers = append(headers, table.PeerGroupColumn)
	}
	records := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		record := keyCells(row.Key)
		for _, v := range row.Values {
			record = append(record, v.Format(undefinedToken))
		}
		if table.HasPeerGroup() {
			record = append(record, formatBool(row.PeerGroup))
		}
		records[i] = record
	}
	return headers, records
}

// WriteWide writes the wide table CSV
func (w *CSVWriter) WriteWide(filePath string, wide *aggregate.WideTable, undefinedToken string) error {
	headers, records := WideRecords(wide, undefinedToken)
	return w.WriteCSV(filePath, WriteOptions{Headers: headers, Records: records})
}

// WriteKFI writes the indicator CSV
func (w *CSVWriter) WriteKFI(filePath string, table *kfi.Table, undefinedToken string) error {
	headers, records := KFIRecords(table, undefinedToken)
	return w.WriteCSV(filePath, WriteOptions{Headers: headers, Records: records})
}
