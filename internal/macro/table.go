package macro

import (
	"math"
	"sort"

	"dessertcpi/internal/frame"
)

// Quarterly column names.
const (
	ColCPI          = "cpi"
	ColCPIQoQ       = "cpi_qoq"
	ColCPIYoY       = "cpi_yoy"
	ColInflationMoM = "inflation_mom"
	ColExpected     = "expected_inflation"
)

// National is the entity of every macro row; the series are nationwide.
const National = ""

// Table is the quarterly macro table, one row per calendar quarter.
type Table struct {
	f *frame.Frame
}

// EmptyTable returns a table with no rows that declares the level columns.
func EmptyTable() *Table {
	return &Table{f: frame.Empty(ColCPI, ColInflationMoM, ColExpected)}
}

// NewTable outer-joins quarterly series on the quarter. Columns follow
// order; names in order without a series are skipped. When the price
// level is present its QoQ and YoY relative changes are added.
func NewTable(series map[string][]QuarterValue, order []string) (*Table, error) {
	present := make([]string, 0, len(order))
	for _, name := range order {
		if len(series[name]) > 0 {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return EmptyTable(), nil
	}

	periodSet := make(map[frame.Period]struct{})
	for _, name := range present {
		for _, qv := range series[name] {
			periodSet[qv.Period] = struct{}{}
		}
	}
	periods := make([]frame.Period, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	keys := make([]frame.Key, len(periods))
	for i, p := range periods {
		keys[i] = frame.Key{Entity: National, Period: p}
	}
	f, err := frame.New(keys)
	if err != nil {
		return nil, err
	}

	for _, name := range present {
		col := make([]float64, len(keys))
		for i := range col {
			col[i] = math.NaN()
		}
		for _, qv := range series[name] {
			i, _ := f.Lookup(frame.Key{Entity: National, Period: qv.Period})
			col[i] = qv.Value
		}
		if f, err = f.WithColumn(name, col); err != nil {
			return nil, err
		}
	}

	if f.Has(ColCPI) {
		qoq, err := relativeChange(f, ColCPI, 1)
		if err != nil {
			return nil, err
		}
		yoy, err := relativeChange(f, ColCPI, 4)
		if err != nil {
			return nil, err
		}
		if f, err = f.WithColumns([]string{ColCPIQoQ, ColCPIYoY}, [][]float64{qoq, yoy}); err != nil {
			return nil, err
		}
	}

	return &Table{f: f}, nil
}

// relativeChange computes x[t]/x[t-k] - 1 using the quarter exactly k back.
func relativeChange(f *frame.Frame, col string, k int) ([]float64, error) {
	cur := f.MustColumn(col)
	prev, err := f.Lag(col, k)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cur))
	for i := range cur {
		if !frame.IsFinite(prev[i]) || prev[i] == 0 || !frame.IsFinite(cur[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = cur[i]/prev[i] - 1
	}
	return out, nil
}

// Len returns the number of quarters.
func (t *Table) Len() int { return t.f.Len() }

// Has reports whether the column is present.
func (t *Table) Has(col string) bool { return t.f.Has(col) }

// Columns returns the column names.
func (t *Table) Columns() []string { return t.f.Columns() }

// Periods returns the quarters in chronological order.
func (t *Table) Periods() []frame.Period { return t.f.Periods() }

// Value returns the column's value for quarter p, NaN when either is absent.
func (t *Table) Value(col string, p frame.Period) float64 {
	i, ok := t.f.Lookup(frame.Key{Entity: National, Period: p})
	if !ok {
		return math.NaN()
	}
	return t.f.Value(col, i)
}

// Frame exposes the underlying frame for export.
func (t *Table) Frame() *frame.Frame { return t.f }
