package macro

import (
	"math"
	"strconv"
	"strings"
)

// Observation is one monthly value.
type Observation struct {
	Month Month
	Value float64
}

// Layout describes where a workbook keeps its dates and values.
type Layout struct {
	// ValueRow is the zero-based row holding the series.
	ValueRow int
	// Stride is the number of columns per month; only the first is read.
	Stride int
}

var (
	// LevelLayout: row 0 dates, row 1 values, one column per month.
	LevelLayout = Layout{ValueRow: 1, Stride: 1}
	// MoMLayout: row 0 dates repeated per metric, row 1 metric names,
	// row 2 values. Each month spans three columns and the first is the
	// month-over-month change.
	MoMLayout = Layout{ValueRow: 2, Stride: 3}
)

// ParseResult holds the observations of one sheet and the date labels
// that could not be parsed.
type ParseResult struct {
	Observations []Observation
	Malformed    []string
}

// ParseSheet extracts monthly observations from sheet rows laid out as l.
// Column 0 holds row labels and is skipped. Cells that are not numbers are
// dropped silently; unparseable date labels are reported in Malformed.
func ParseSheet(rows [][]string, l Layout) ParseResult {
	var res ParseResult
	if len(rows) <= l.ValueRow {
		return res
	}
	header := rows[0]
	values := rows[l.ValueRow]

	width := 0
	for r := 0; r <= l.ValueRow; r++ {
		if len(rows[r])-1 > width {
			width = len(rows[r]) - 1
		}
	}

	for i := 0; i+l.Stride-1 < width; i += l.Stride {
		col := i + 1
		label := cell(header, col)
		if strings.TrimSpace(label) == "" {
			continue
		}
		m, err := ParseDateLabel(label)
		if err != nil {
			res.Malformed = append(res.Malformed, label)
			continue
		}
		v, ok := parseNumber(cell(values, col))
		if !ok {
			continue
		}
		res.Observations = append(res.Observations, Observation{Month: m, Value: v})
	}
	return res
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
