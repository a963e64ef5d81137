// Package testutil provides shared test helpers: an in-memory slog handler
// for asserting on log output, and builders for published-format table
// fixtures (preamble CSVs, zip archives of yearly CSVs, xlsx workbooks).
package testutil
