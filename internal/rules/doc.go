// Package rules holds the per-table configuration that turns each HESA
// finance table into long records: row filters, columns to drop, where the
// category label lives, the category whitelist and any relabels.
//
// The default rule set is embedded from tables.yaml. Supporting a new table
// id means adding an entry there (or to a -rules file), not code.
package rules
