package split

import (
	"dessertcpi/internal/frame"
)

// Split holds a chronological train/test partition.
type Split struct {
	Cutoff int
	Train  *frame.Frame
	Test   *frame.Frame
}

// TimeSplit puts rows with year < cutoff in Train and the rest in Test.
func TimeSplit(f *frame.Frame, cutoff int) Split {
	return Split{
		Cutoff: cutoff,
		Train:  f.Filter(func(_ int, k frame.Key) bool { return k.Year < cutoff }),
		Test:   f.Filter(func(_ int, k frame.Key) bool { return k.Year >= cutoff }),
	}
}

// Years keeps the rows whose year is in years.
func Years(f *frame.Frame, years ...int) *frame.Frame {
	set := make(map[int]struct{}, len(years))
	for _, y := range years {
		set[y] = struct{}{}
	}
	return f.Filter(func(_ int, k frame.Key) bool {
		_, ok := set[k.Year]
		return ok
	})
}

// Fold is one step of an expanding-window evaluation.
type Fold struct {
	TrainYears []int
	TestYear   int
}

// ExpandingFolds returns, for each distinct year after the first, a fold
// training on every earlier year and testing on that year.
func ExpandingFolds(years []int) []Fold {
	folds := make([]Fold, 0, len(years))
	for i := 1; i < len(years); i++ {
		folds = append(folds, Fold{
			TrainYears: append([]int(nil), years[:i]...),
			TestYear:   years[i],
		})
	}
	return folds
}

// Apply materialises the fold over f.
func (fd Fold) Apply(f *frame.Frame) Split {
	return Split{
		Cutoff: fd.TestYear,
		Train:  Years(f, fd.TrainYears...),
		Test:   Years(f, fd.TestYear),
	}
}
