package features

import (
	"math"

	"dessertcpi/internal/frame"
)

// DessertRatio returns dessert/total clamped to [0, 1]. A zero, negative or
// missing total means no measured activity and yields 0.
func DessertRatio(dessert, total float64) float64 {
	if !frame.IsFinite(total) || total <= 0 || !frame.IsFinite(dessert) {
		return 0
	}
	return math.Min(1, math.Max(0, dessert/total))
}

// AddDessertRatio adds dessert_ratio from the dessert and total sales columns.
func AddDessertRatio(f *frame.Frame) (*frame.Frame, error) {
	dessert, ok := f.Column(ColSalesAmount)
	if !ok {
		return nil, missingColumn(ColSalesAmount)
	}
	total, ok := f.Column(ColTotalSales)
	if !ok {
		return nil, missingColumn(ColTotalSales)
	}
	ratio := make([]float64, f.Len())
	for i := range ratio {
		ratio[i] = DessertRatio(dessert[i], total[i])
	}
	return f.WithColumn(ColDessertRatio, ratio)
}
