// Package extract converts each table's own category encoding into a single
// canonical category per row, keeping only whitelisted labels.
package extract
