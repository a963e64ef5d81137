// Package normalize parses raw value and institution id cells into typed
// long records.
package normalize
