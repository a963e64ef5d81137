package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readWorkbook reads the first sheet of an xlsx file. Sheet rows map one to
// one onto CSV lines, so the same preamble skip applies.
func readWorkbook(path string, headerRows int) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= headerRows {
		return nil, nil, errNoHeader
	}

	header := rows[headerRows]
	var data [][]string
	for _, row := range rows[headerRows+1:] {
		if isBlankRecord(row) {
			continue
		}
		data = append(data, row)
	}
	return header, data, nil
}
