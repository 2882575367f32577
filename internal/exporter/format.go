package exporter

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat writes the shortest exact decimal form; NaN becomes an empty
// cell and infinities are spelled out.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an integer value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

// formatInts joins integers with a semicolon, e.g. "2020;2021".
func formatInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = formatInt(x)
	}
	return strings.Join(parts, ";")
}
