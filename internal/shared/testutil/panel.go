package testutil

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"dessertcpi/internal/frame"
)

// Row holds the column values of one synthetic panel row.
type Row map[string]float64

// PanelSpec describes a synthetic panel of consecutive quarters.
type PanelSpec struct {
	Entities []string
	Start    frame.Period
	Quarters int
	// Fill returns the row values; i is the quarter offset from Start.
	Fill func(entity string, i int, p frame.Period) Row
}

// BuildPanel materialises a PanelSpec.
func BuildPanel(t *testing.T, spec PanelSpec) *frame.Frame {
	t.Helper()

	var keys []frame.Key
	var rows []Row
	for _, e := range spec.Entities {
		for i := 0; i < spec.Quarters; i++ {
			p := spec.Start.Add(i)
			keys = append(keys, frame.Key{Entity: e, Period: p})
			row := Row{}
			if spec.Fill != nil {
				row = spec.Fill(e, i, p)
			}
			rows = append(rows, row)
		}
	}
	return FromRows(t, keys, rows)
}

// FromRows builds a frame from explicit keys and rows. Every column named
// by any row is present, sorted by name; rows that omit it get NaN.
func FromRows(t *testing.T, keys []frame.Key, rows []Row) *frame.Frame {
	t.Helper()
	require.Len(t, rows, len(keys))

	f, err := frame.New(keys)
	require.NoError(t, err)

	seen := map[string]bool{}
	var names []string
	for _, r := range rows {
		for n := range r {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)

	for _, n := range names {
		v := make([]float64, len(rows))
		for i, r := range rows {
			x, ok := r[n]
			if !ok {
				x = math.NaN()
			}
			v[i] = x
		}
		f, err = f.WithColumn(n, v)
		require.NoError(t, err)
	}
	return f
}
