package sales

import (
	"fmt"
	"sort"

	"dessertcpi/internal/frame"
)

type cellKey struct {
	key      frame.Key
	category string
}

type mean struct {
	amount  float64
	amountN float64
	count   float64
	countN  float64
}

func (m *mean) add(amount, count float64) {
	if frame.IsFinite(amount) {
		m.amount += amount
		m.amountN++
	}
	if frame.IsFinite(count) {
		m.count += count
		m.countN++
	}
}

func (m *mean) values() (float64, float64) {
	var a, c float64
	if m.amountN > 0 {
		a = m.amount / m.amountN
	}
	if m.countN > 0 {
		c = m.count / m.countN
	}
	return a, c
}

// BuildPanel collapses records into one row per (district, year, quarter).
// Rows repeating the same district, quarter and category (for instance the
// same quarter shipped in two files) are averaged first. Only cells with at
// least one dessert-category record become panel rows.
func BuildPanel(records []Record) (*frame.Frame, error) {
	cells := make(map[cellKey]*mean)
	var order []cellKey
	for _, r := range records {
		ck := cellKey{key: frame.Key{Entity: r.Entity, Period: r.Period}, category: r.Category}
		m, ok := cells[ck]
		if !ok {
			m = &mean{}
			cells[ck] = m
			order = append(order, ck)
		}
		m.add(r.SalesAmount, r.SalesCount)
	}

	type totals struct {
		dessertAmount float64
		dessertCount  float64
		all           float64
		hasDessert    bool
	}
	byKey := make(map[frame.Key]*totals)
	for _, ck := range order {
		amount, count := cells[ck].values()
		t, ok := byKey[ck.key]
		if !ok {
			t = &totals{}
			byKey[ck.key] = t
		}
		t.all += amount
		if IsDessert(ck.category) {
			t.hasDessert = true
			t.dessertAmount += amount
			t.dessertCount += count
		}
	}

	keys := make([]frame.Key, 0, len(byKey))
	for k, t := range byKey {
		if t.hasDessert {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	f, err := frame.New(keys)
	if err != nil {
		return nil, fmt.Errorf("build panel: %w", err)
	}
	amount := make([]float64, len(keys))
	count := make([]float64, len(keys))
	total := make([]float64, len(keys))
	for i, k := range keys {
		t := byKey[k]
		amount[i] = t.dessertAmount
		count[i] = t.dessertCount
		total[i] = t.all
	}
	return f.WithColumns(
		[]string{SalesAmount, SalesCount, TotalSalesAmount},
		[][]float64{amount, count, total},
	)
}
