package macro

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	apperrors "dessertcpi/internal/errors"
)

// Month is a calendar month.
type Month struct {
	Year  int
	Month int
}

// Quarter returns the calendar quarter containing the month.
func (m Month) Quarter() int {
	return (m.Month-1)/3 + 1
}

// Before reports whether m precedes o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d.%02d", m.Year, m.Month)
}

// ParseDateLabel reads labels such as "2017.01", "2017.010" or "2017. 07"
// by keeping only digits and using the first six as YYYYMM.
func ParseDateLabel(label string) (Month, error) {
	var digits strings.Builder
	for _, r := range label {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 6 {
		return Month{}, apperrors.NewMalformedDateError(label)
	}

	year, _ := strconv.Atoi(d[:4])
	month, _ := strconv.Atoi(d[4:6])
	if month < 1 || month > 12 {
		return Month{}, apperrors.NewMalformedDateError(label)
	}
	return Month{Year: year, Month: month}, nil
}
