package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mtwest2718/ukhe-finances/internal/aggregate"
	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/internal/kfi"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetKFI  = "kfi"
	SheetWide = "wide"
)

// WriteWorkbook saves the indicator and wide tables as two sheets of one
// xlsx file. Numbers are stored as numeric cells; undefined values as
// undefinedToken text.
func WriteWorkbook(path string, table *kfi.Table, wide *aggregate.WideTable, undefinedToken string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetKFI); err != nil {
		return apperrors.NewStorageError("rename workbook sheet", err)
	}
	if _, err := f.NewSheet(SheetWide); err != nil {
		return apperrors.NewStorageError("add workbook sheet", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return apperrors.NewStorageError("create header style", err)
	}

	kfiHeaders := append(append([]string{}, domain.KeyColumns...), table.Columns...)
	if table.HasPeerGroup() {
		kfiHeaders = append(kfiHeaders, table.PeerGroupColumn)
	}
	kfiRows := make([][]interface{}, len(table.Rows))
	for i, row := range table.Rows {
		cells := keyValues(row.Key)
		for _, v := range row.Values {
			cells = append(cells, numberOrToken(v, undefinedToken))
		}
		if table.HasPeerGroup() {
			cells = append(cells, row.PeerGroup)
		}
		kfiRows[i] = cells
	}

	wideHeaders := append(append([]string{}, domain.KeyColumns...), wide.Categories...)
	wideRows := make([][]interface{}, len(wide.Rows))
	for i, row := range wide.Rows {
		cells := keyValues(row.Key)
		for _, c := range row.Cells {
			if wide.Undefined(c) {
				cells = append(cells, undefinedToken)
				continue
			}
			cells = append(cells, c.Value)
		}
		wideRows[i] = cells
	}

	for _, sheet := range []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{SheetKFI, kfiHeaders, kfiRows},
		{SheetWide, wideHeaders, wideRows},
	} {
		if err := writeSheet(f, sheet.name, sheet.headers, sheet.rows, headerStyle); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write sheet %s", sheet.name), err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("save workbook %s", path), err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return err
	}
	// Keep identifiers and headers visible while scrolling
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      len(domain.KeyColumns),
		YSplit:      1,
		TopLeftCell: "D2",
		ActivePane:  "bottomRight",
	})
}

func keyValues(k domain.RowKey) []interface{} {
	return []interface{}{k.UKPRN, k.Provider, k.AcademicYear}
}

func numberOrToken(v kfi.Value, token string) interface{} {
	if f, ok := v.Float(); ok {
		return f
	}
	return token
}
