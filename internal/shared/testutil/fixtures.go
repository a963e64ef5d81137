package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// HESAHeaderRows is the number of title lines above the column header in
// published finance tables
const HESAHeaderRows = 12

// HESACSV renders a table the way it is published: HESAHeaderRows lines of
// preamble, the column header, then the data rows.
func HESACSV(header string, rows ...string) string {
	var b strings.Builder
	for i := 0; i < HESAHeaderRows; i++ {
		b.WriteString("Title: HE Provider finance table, line\n")
	}
	b.WriteString(header + "\n")
	for _, r := range rows {
		b.WriteString(r + "\n")
	}
	return b.String()
}

// WriteFile writes content to dir/name and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteZip writes an archive with one member per map entry, in name order,
// and returns its path
func WriteZip(t *testing.T, dir, name string, members map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(members))
	for member := range members {
		names = append(names, member)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, member := range names {
		w, err := zw.Create(member)
		if err != nil {
			t.Fatalf("create member %s: %v", member, err)
		}
		if _, err := w.Write([]byte(members[member])); err != nil {
			t.Fatalf("write member %s: %v", member, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}

// WriteWorkbook writes lines to the first sheet of a new workbook, one cell
// per field, below HESAHeaderRows title rows. It returns the path.
func WriteWorkbook(t *testing.T, dir, name string, lines [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i := 1; i <= HESAHeaderRows; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i)
		if err := f.SetCellValue(sheet, cell, "Title"); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	for i, line := range lines {
		cell, _ := excelize.CoordinatesToCellName(1, HESAHeaderRows+1+i)
		row := make([]interface{}, len(line))
		for j, v := range line {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %s: %v", cell, err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}
