package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// errNoHeader means the input ended before a column header row was found
var errNoHeader = errors.New("no header row after skipped preamble")

// readCSV skips headerRows physical lines of preamble and returns the column
// header and the data records that follow.
func readCSV(r io.Reader, headerRows int) ([]string, [][]string, error) {
	br := bufio.NewReader(r)
	for i := 0; i < headerRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, nil, errNoHeader
			}
			return nil, nil, fmt.Errorf("skip preamble line %d: %w", i+1, err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read record: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}

// readCSVFile opens path and reads it with readCSV
func readCSVFile(path string, headerRows int) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return readCSV(f, headerRows)
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}
