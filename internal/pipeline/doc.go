// Package pipeline runs a full reshape of the finance tables.
//
// A run validates the input directory, then loads, extracts and normalizes
// each table id selected by the rule set, either one after another or on a
// bounded errgroup. The surviving long records are pivoted into the wide
// table, indicators are computed from it and both are written to the output
// directory.
//
// Table failures (missing source, schema mismatch, malformed file) are kept
// on the table's report and the run continues, producing partial outputs.
// In strict mode the first failure aborts the run before anything is
// written. Duplicate pivot keys and output failures always abort.
//
// Every run leaves a Manifest (run id, settings, per-table counts, stage
// timings, written files) and can write its Metrics as a Prometheus
// textfile.
package pipeline
