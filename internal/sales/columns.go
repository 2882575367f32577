package sales

import (
	"strings"

	apperrors "dessertcpi/internal/errors"
)

// Raw column names of the commercial-district sales tables.
const (
	ColPeriodCode  = "기준_년분기_코드"
	ColEntity      = "행정동_코드"
	ColCategory    = "서비스_업종_코드_명"
	ColSalesAmount = "당월_매출_금액"
	ColSalesCount  = "당월_매출_건수"
)

// Panel column names produced by BuildPanel.
const (
	SalesAmount      = "sales_amount"
	SalesCount       = "sales_count"
	TotalSalesAmount = "total_sales_amount"
)

// DessertCategories are the category labels counted as dessert retail.
var DessertCategories = []string{"제과점", "커피-음료"}

// CategoryCandidates are the substrings searched when the category column
// is not present under its canonical name.
var CategoryCandidates = []string{"업종", "업태"}

// ResolveColumn returns the index of preferred in header, else the first
// header containing one of candidates. Among candidates, names ending in
// "명" (a label rather than a code) win.
func ResolveColumn(header []string, preferred string, candidates []string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == preferred {
			return i, nil
		}
	}

	first := -1
	for i, h := range header {
		for _, c := range candidates {
			if !strings.Contains(h, c) {
				continue
			}
			if strings.HasSuffix(strings.TrimSpace(h), "명") {
				return i, nil
			}
			if first < 0 {
				first = i
			}
		}
	}
	if first >= 0 {
		return first, nil
	}
	return -1, apperrors.NewUnresolvableColumnError(preferred, candidates, header)
}
