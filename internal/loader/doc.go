// Package loader reads raw HESA table sources (a CSV file, a zip archive with
// one CSV per reporting year, or an xlsx workbook) and normalizes their schema:
// preamble skipped, lower-case column names, geography columns removed, sector
// totals and excluded years dropped, and the value column renamed to "value".
package loader
