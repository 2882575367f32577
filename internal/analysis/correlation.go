package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"dessertcpi/internal/features"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/macro"
)

// Quarterly aggregate columns.
const (
	ColTotalDessertSales = "total_dessert_sales"
	ColMeanDessertSales  = "mean_dessert_sales"
	ColDistrictCount     = "district_count"
	ColMeanDessertRatio  = "mean_dessert_ratio"
)

// DessertColumns are the aggregate columns compared against macro series.
var DessertColumns = []string{ColTotalDessertSales, ColMeanDessertSales, ColMeanDessertRatio}

// MacroColumns are the macro series compared against the aggregates.
var MacroColumns = []string{macro.ColCPI, macro.ColInflationMoM, macro.ColExpected, macro.ColCPIQoQ, macro.ColCPIYoY}

// QuarterlyAggregate collapses the panel to one nationwide row per
// quarter: total and mean dessert sales over districts with a value,
// the number of such districts and, when present, the mean dessert ratio.
func QuarterlyAggregate(panel *frame.Frame) (*frame.Frame, error) {
	periods := panel.Periods()
	pos := make(map[frame.Period]int, len(periods))
	keys := make([]frame.Key, len(periods))
	for i, p := range periods {
		pos[p] = i
		keys[i] = frame.Key{Entity: macro.National, Period: p}
	}
	out, err := frame.New(keys)
	if err != nil {
		return nil, err
	}

	total := make([]float64, len(periods))
	count := make([]float64, len(periods))
	ratioSum := make([]float64, len(periods))
	ratioN := make([]float64, len(periods))
	for i := 0; i < panel.Len(); i++ {
		j := pos[panel.Key(i).Period]
		if v := panel.Value(features.ColSalesAmount, i); frame.IsFinite(v) {
			total[j] += v
			count[j]++
		}
		if r := panel.Value(features.ColDessertRatio, i); frame.IsFinite(r) {
			ratioSum[j] += r
			ratioN[j]++
		}
	}

	mean := make([]float64, len(periods))
	ratio := make([]float64, len(periods))
	for j := range periods {
		mean[j], ratio[j] = math.NaN(), math.NaN()
		if count[j] > 0 {
			mean[j] = total[j] / count[j]
		}
		if ratioN[j] > 0 {
			ratio[j] = ratioSum[j] / ratioN[j]
		}
	}

	names := []string{ColTotalDessertSales, ColMeanDessertSales, ColDistrictCount}
	cols := [][]float64{total, mean, count}
	if panel.Has(features.ColDessertRatio) {
		names = append(names, ColMeanDessertRatio)
		cols = append(cols, ratio)
	}
	return out.WithColumns(names, cols)
}

// MergeMacro inner-joins the quarterly aggregate with the macro table on
// the quarter.
func MergeMacro(agg *frame.Frame, t *macro.Table) (*frame.Frame, error) {
	merged := agg.Filter(func(_ int, k frame.Key) bool {
		_, ok := t.Frame().Lookup(frame.Key{Entity: macro.National, Period: k.Period})
		return ok
	})
	out := merged
	for _, c := range frame.Available(frame.NewSchema(t.Columns()...), MacroColumns) {
		v := make([]float64, merged.Len())
		for i := range v {
			v[i] = t.Value(c, merged.Key(i).Period)
		}
		var err error
		if out, err = out.WithColumn(c, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Matrix is a symmetric correlation matrix.
type Matrix struct {
	Names  []string
	Values [][]float64
}

// At returns the correlation of two named columns.
func (m Matrix) At(a, b string) float64 {
	ia, ib := -1, -1
	for i, n := range m.Names {
		if n == a {
			ia = i
		}
		if n == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN()
	}
	return m.Values[ia][ib]
}

// Correlate computes Pearson correlations of the available cols using, for
// each pair, the rows where both values are finite. Pairs with fewer than
// two such rows are NaN.
func Correlate(f *frame.Frame, cols []string) Matrix {
	names := frame.Available(f.Schema(), cols)
	data := make([][]float64, len(names))
	for i, c := range names {
		data[i] = f.MustColumn(c)
	}

	m := Matrix{Names: names, Values: make([][]float64, len(names))}
	for i := range names {
		m.Values[i] = make([]float64, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			r := pairwise(data[i], data[j])
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func pairwise(x, y []float64) float64 {
	var xs, ys []float64
	for k := range x {
		if frame.IsFinite(x[k]) && frame.IsFinite(y[k]) {
			xs = append(xs, x[k])
			ys = append(ys, y[k])
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
