package fixedeffects

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/regression"
)

// layout maps panel rows to design-matrix columns.
type layout struct {
	regressors []string
	entities   []string // sorted; entities[0] is the reference
	periods    []frame.Period
	entityCol  map[string]int
	periodCol  map[frame.Period]int
	names      []string
}

// EntityDummyName labels the indicator column of a district.
func EntityDummyName(entity string) string { return fmt.Sprintf("C(entity)[T.%s]", entity) }

// TimeDummyName labels the indicator column of a quarter.
func TimeDummyName(p frame.Period) string { return fmt.Sprintf("C(t)[T.%s]", p) }

func newLayout(d *frame.Frame, regressors []string, timeEffects bool) *layout {
	l := &layout{
		regressors: regressors,
		entities:   d.Entities(),
		entityCol:  map[string]int{},
		periodCol:  map[frame.Period]int{},
	}
	l.names = append([]string{regression.InterceptName}, regressors...)
	for _, e := range l.entities[1:] {
		l.entityCol[e] = len(l.names)
		l.names = append(l.names, EntityDummyName(e))
	}
	if timeEffects {
		l.periods = d.Periods()
		for _, p := range l.periods[1:] {
			l.periodCol[p] = len(l.names)
			l.names = append(l.names, TimeDummyName(p))
		}
	}
	return l
}

func (l *layout) width() int { return len(l.names) }

// hasEntity reports whether the district was present at fit time.
func (l *layout) hasEntity(e string) bool {
	if len(l.entities) > 0 && l.entities[0] == e {
		return true
	}
	_, ok := l.entityCol[e]
	return ok
}

func (l *layout) hasPeriod(p frame.Period) bool {
	if l.periods == nil {
		return true
	}
	if l.periods[0] == p {
		return true
	}
	_, ok := l.periodCol[p]
	return ok
}

// row fills dst with the design row of panel row i. ok is false when a
// regressor is missing.
func (l *layout) row(dst []float64, f *frame.Frame, i int) (ok bool) {
	clear(dst)
	dst[0] = 1
	for j, c := range l.regressors {
		v := f.Value(c, i)
		if !frame.IsFinite(v) {
			return false
		}
		dst[1+j] = v
	}
	k := f.Key(i)
	if col, found := l.entityCol[k.Entity]; found {
		dst[col] = 1
	}
	if col, found := l.periodCol[k.Period]; found {
		dst[col] = 1
	}
	return true
}

func (l *layout) matrix(f *frame.Frame) *mat.Dense {
	x := mat.NewDense(f.Len(), l.width(), nil)
	buf := make([]float64, l.width())
	for i := 0; i < f.Len(); i++ {
		l.row(buf, f, i)
		x.SetRow(i, buf)
	}
	return x
}
