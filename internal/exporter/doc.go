// Package exporter writes run outputs: the wide table CSV, the indicator CSV
// and an optional xlsx workbook holding both.
//
// CSV files are written to a temporary sibling and renamed into place, so a
// failed run never leaves a truncated output behind.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	if err := w.WriteWide(paths.WideCSV, wide, "undefined"); err != nil {
//		return err
//	}
//	err := w.WriteKFI(paths.KFICSV, table, "undefined")
package exporter
