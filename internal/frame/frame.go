package frame

import (
	"fmt"
	"math"
	"sort"
)

// Frame is an immutable panel table.
type Frame struct {
	keys  []Key
	index map[Key]int
	names []string
	cols  map[string][]float64
}

// New creates a frame with the given row keys and no columns.
// Duplicate keys are rejected: lag lookups require at most one row per key.
func New(keys []Key) (*Frame, error) {
	f := &Frame{
		keys:  make([]Key, len(keys)),
		index: make(map[Key]int, len(keys)),
		cols:  make(map[string][]float64),
	}
	copy(f.keys, keys)
	for i, k := range f.keys {
		if !k.IsValid() {
			return nil, fmt.Errorf("row %d: invalid quarter %d", i, k.Quarter)
		}
		if j, dup := f.index[k]; dup {
			return nil, fmt.Errorf("duplicate key %s at rows %d and %d", k, j, i)
		}
		f.index[k] = i
	}
	return f, nil
}

// Empty returns a frame with no rows that still declares the given columns.
func Empty(columns ...string) *Frame {
	f, _ := New(nil)
	for _, c := range columns {
		f.names = append(f.names, c)
		f.cols[c] = []float64{}
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.keys) }

// Key returns the key of row i.
func (f *Frame) Key(i int) Key { return f.keys[i] }

// Keys returns a copy of the row keys.
func (f *Frame) Keys() []Key {
	out := make([]Key, len(f.keys))
	copy(out, f.keys)
	return out
}

// Lookup returns the row index of k.
func (f *Frame) Lookup(k Key) (int, bool) {
	i, ok := f.index[k]
	return i, ok
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Schema returns the set of column names.
func (f *Frame) Schema() Schema {
	s := make(Schema, len(f.names))
	for _, n := range f.names {
		s[n] = struct{}{}
	}
	return s
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(c))
	copy(out, c)
	return out, true
}

// MustColumn is Column for names the caller has already checked.
func (f *Frame) MustColumn(name string) []float64 {
	c, ok := f.Column(name)
	if !ok {
		panic(fmt.Sprintf("frame: no column %q", name))
	}
	return c
}

// Value returns a single cell, NaN if the column is absent.
func (f *Frame) Value(name string, i int) float64 {
	c, ok := f.cols[name]
	if !ok {
		return math.NaN()
	}
	return c[i]
}

// WithColumn returns a new frame with the column added or replaced.
func (f *Frame) WithColumn(name string, values []float64) (*Frame, error) {
	if len(values) != len(f.keys) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(f.keys))
	}
	out := f.shallow()
	v := make([]float64, len(values))
	copy(v, values)
	if _, exists := out.cols[name]; !exists {
		out.names = append(out.names, name)
	}
	out.cols[name] = v
	return out, nil
}

// WithColumns adds several columns in the given order.
func (f *Frame) WithColumns(names []string, values [][]float64) (*Frame, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%d names for %d columns", len(names), len(values))
	}
	out := f
	for i, n := range names {
		var err error
		out, err = out.WithColumn(n, values[i])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) *Frame {
	out := f.shallow()
	for _, n := range names {
		delete(out.cols, n)
	}
	kept := out.names[:0:0]
	for _, n := range out.names {
		if _, ok := out.cols[n]; ok {
			kept = append(kept, n)
		}
	}
	out.names = kept
	return out
}

// Select returns the rows at the given indices, in that order.
func (f *Frame) Select(rows []int) *Frame {
	keys := make([]Key, len(rows))
	for j, i := range rows {
		keys[j] = f.keys[i]
	}
	out := &Frame{
		keys:  keys,
		index: make(map[Key]int, len(rows)),
		names: append([]string(nil), f.names...),
		cols:  make(map[string][]float64, len(f.cols)),
	}
	for j, k := range keys {
		out.index[k] = j
	}
	for _, n := range f.names {
		src := f.cols[n]
		dst := make([]float64, len(rows))
		for j, i := range rows {
			dst[j] = src[i]
		}
		out.cols[n] = dst
	}
	return out
}

// Filter keeps rows for which keep returns true.
func (f *Frame) Filter(keep func(i int, k Key) bool) *Frame {
	rows := make([]int, 0, len(f.keys))
	for i, k := range f.keys {
		if keep(i, k) {
			rows = append(rows, i)
		}
	}
	return f.Select(rows)
}

// SortByEntityTime orders rows by entity then (year, quarter) ascending.
func (f *Frame) SortByEntityTime() *Frame {
	rows := make([]int, len(f.keys))
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return f.keys[rows[a]].Less(f.keys[rows[b]])
	})
	return f.Select(rows)
}

// DropMissing keeps rows where every named column is finite. Missing column
// names make every row missing.
func (f *Frame) DropMissing(cols []string) *Frame {
	return f.Filter(func(i int, _ Key) bool {
		for _, c := range cols {
			v, ok := f.cols[c]
			if !ok || !IsFinite(v[i]) {
				return false
			}
		}
		return true
	})
}

// Entities returns the distinct entities, sorted.
func (f *Frame) Entities() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, k := range f.keys {
		if _, ok := seen[k.Entity]; !ok {
			seen[k.Entity] = struct{}{}
			out = append(out, k.Entity)
		}
	}
	sort.Strings(out)
	return out
}

// Years returns the distinct years, sorted.
func (f *Frame) Years() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, k := range f.keys {
		if _, ok := seen[k.Year]; !ok {
			seen[k.Year] = struct{}{}
			out = append(out, k.Year)
		}
	}
	sort.Ints(out)
	return out
}

// Periods returns the distinct quarters, sorted chronologically.
func (f *Frame) Periods() []Period {
	seen := make(map[Period]struct{})
	var out []Period
	for _, k := range f.keys {
		if _, ok := seen[k.Period]; !ok {
			seen[k.Period] = struct{}{}
			out = append(out, k.Period)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Lag returns, for each row, the column value of the same entity k quarters
// earlier. Negative k looks forward. Absent quarters yield NaN.
func (f *Frame) Lag(name string, k int) ([]float64, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("lag %d: no column %q", k, name)
	}
	out := make([]float64, len(f.keys))
	for i, key := range f.keys {
		j, ok := f.index[key.Shift(-k)]
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = c[j]
	}
	return out, nil
}

// Lead is Lag with the direction reversed.
func (f *Frame) Lead(name string, k int) ([]float64, error) {
	return f.Lag(name, -k)
}

func (f *Frame) shallow() *Frame {
	out := &Frame{
		keys:  f.keys,
		index: f.index,
		names: append([]string(nil), f.names...),
		cols:  make(map[string][]float64, len(f.cols)+1),
	}
	for n, c := range f.cols {
		out.cols[n] = c
	}
	return out
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
