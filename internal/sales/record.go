package sales

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dessertcpi/internal/frame"
)

// Record is one raw (district, quarter, category) sales row.
type Record struct {
	Entity      string
	Period      frame.Period
	Category    string
	SalesAmount float64
	SalesCount  float64
	SourceFile  string
}

// ParsePeriodCode splits a YYYYQ code such as "20211" into year and
// quarter. Spreadsheet renderings like "20211.0" are accepted.
func ParsePeriodCode(code string) (frame.Period, error) {
	code = strings.TrimSpace(code)
	if i := strings.IndexByte(code, '.'); i >= 0 {
		if strings.Trim(code[i+1:], "0") != "" {
			return frame.Period{}, fmt.Errorf("period code %q is not an integer", code)
		}
		code = code[:i]
	}
	if len(code) != 5 {
		return frame.Period{}, fmt.Errorf("period code %q is not YYYYQ", code)
	}
	year, err := strconv.Atoi(code[:4])
	if err != nil {
		return frame.Period{}, fmt.Errorf("period code %q: %w", code, err)
	}
	q := int(code[4] - '0')
	p := frame.Period{Year: year, Quarter: q}
	if !p.IsValid() {
		return frame.Period{}, fmt.Errorf("period code %q has quarter %d", code, q)
	}
	return p, nil
}

// ParseOptions names the raw columns. Zero values use the canonical names.
type ParseOptions struct {
	CategoryColumn string
	SourceFile     string
}

// ParseResult holds the parsed records of one table.
type ParseResult struct {
	Records        []Record
	CategoryColumn string
	Skipped        int
}

// ParseRecords maps a header and data rows to records. Missing period,
// district or amount columns and an unresolvable category column are
// errors; individual rows with a bad period code are skipped and counted.
func ParseRecords(header []string, rows [][]string, opts ParseOptions) (ParseResult, error) {
	var res ParseResult

	categoryName := opts.CategoryColumn
	if categoryName == "" {
		categoryName = ColCategory
	}
	catIdx, err := ResolveColumn(header, categoryName, CategoryCandidates)
	if err != nil {
		return res, err
	}
	res.CategoryColumn = header[catIdx]

	required := map[string]int{}
	for _, name := range []string{ColPeriodCode, ColEntity, ColSalesAmount} {
		i, err := ResolveColumn(header, name, nil)
		if err != nil {
			return res, err
		}
		required[name] = i
	}
	countIdx, err := ResolveColumn(header, ColSalesCount, nil)
	if err != nil {
		countIdx = -1
	}

	for _, row := range rows {
		p, err := ParsePeriodCode(field(row, required[ColPeriodCode]))
		if err != nil {
			res.Skipped++
			continue
		}
		entity := strings.TrimSpace(field(row, required[ColEntity]))
		if entity == "" {
			res.Skipped++
			continue
		}
		rec := Record{
			Entity:      entity,
			Period:      p,
			Category:    strings.TrimSpace(field(row, catIdx)),
			SalesAmount: parseAmount(field(row, required[ColSalesAmount])),
			SalesCount:  math.NaN(),
			SourceFile:  opts.SourceFile,
		}
		if countIdx >= 0 {
			rec.SalesCount = parseAmount(field(row, countIdx))
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// IsDessert reports whether the category is one of the dessert labels.
func IsDessert(category string) bool {
	for _, c := range DessertCategories {
		if category == c {
			return true
		}
	}
	return false
}

func field(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
