// Package aggregate pivots long records into the wide institution-by-category
// table. Output order is fully sorted so repeated runs are byte-identical.
package aggregate
