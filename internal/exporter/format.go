package exporter

import "strconv"

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatFloat formats a value in its shortest exact form, no exponent
func formatFloat(f float64) string {
	if f == 0 {
		f = 0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatBool uses the capitalised spelling pandas reads back as a boolean
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
