package frame

import "fmt"

// Period is a calendar quarter.
type Period struct {
	Year    int
	Quarter int
}

// Index returns a monotone integer for the quarter, consecutive quarters
// differing by one.
func (p Period) Index() int {
	return p.Year*4 + p.Quarter - 1
}

// Add shifts the period by k quarters.
func (p Period) Add(k int) Period {
	return PeriodFromIndex(p.Index() + k)
}

// Before reports whether p precedes o.
func (p Period) Before(o Period) bool {
	return p.Index() < o.Index()
}

// IsValid reports whether the quarter is in 1..4.
func (p Period) IsValid() bool {
	return p.Quarter >= 1 && p.Quarter <= 4
}

func (p Period) String() string {
	return fmt.Sprintf("%dQ%d", p.Year, p.Quarter)
}

// PeriodFromIndex inverts Period.Index.
func PeriodFromIndex(i int) Period {
	y, r := i/4, i%4
	if r < 0 {
		y, r = y-1, r+4
	}
	return Period{Year: y, Quarter: r + 1}
}

// Key identifies a panel row.
type Key struct {
	Entity string
	Period
}

// NewKey builds a key from its parts.
func NewKey(entity string, year, quarter int) Key {
	return Key{Entity: entity, Period: Period{Year: year, Quarter: quarter}}
}

// Shift returns the key of the same entity k quarters later.
func (k Key) Shift(n int) Key {
	return Key{Entity: k.Entity, Period: k.Period.Add(n)}
}

func (k Key) String() string {
	return k.Entity + "@" + k.Period.String()
}

// Less orders keys by entity, then chronologically.
func (k Key) Less(o Key) bool {
	if k.Entity != o.Entity {
		return k.Entity < o.Entity
	}
	return k.Index() < o.Index()
}
