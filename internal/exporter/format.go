package exporter

import (
	"strconv"
)

// DefaultPrecision is the number of decimals written for analysis values
const DefaultPrecision = 6

// formatFloat formats a float64 value with a fixed number of decimals.
// Negative zero is written as zero.
func formatFloat(f float64, precision int) string {
	if f == 0 {
		f = 0
	}
	return strconv.FormatFloat(f, 'f', precision, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
