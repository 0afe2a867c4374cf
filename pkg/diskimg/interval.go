// file: pkg/diskimg/interval.go

package diskimg

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Interval is a closed range [Start, End] of allocation units or sectors.
type Interval[T constraints.Integer] struct {
	Start T
	End   T
}

// Span returns the interval of n units starting at start.
func Span[T constraints.Integer](start, n T) Interval[T] {
	return Interval[T]{Start: start, End: start + n - 1}
}

func (iv Interval[T]) Len() T {
	return iv.End - iv.Start + 1
}

func (iv Interval[T]) Contains(x T) bool {
	return x >= iv.Start && x <= iv.End
}

func (iv Interval[T]) Overlaps(o Interval[T]) bool {
	return iv.Start <= o.End && o.Start <= iv.End
}

// Intersect returns the common part of two intervals.
func (iv Interval[T]) Intersect(o Interval[T]) (Interval[T], bool) {
	r := Interval[T]{Start: max(iv.Start, o.Start), End: min(iv.End, o.End)}
	return r, r.Start <= r.End
}

func (iv Interval[T]) String() string {
	if iv.Start == iv.End {
		return fmt.Sprint(iv.Start)
	}
	return fmt.Sprintf("%v-%v", iv.Start, iv.End)
}

// IntervalList is an ordered list of intervals. The order is the logical
// order of a file's extents, not necessarily ascending.
type IntervalList[T constraints.Integer] []Interval[T]

// Add appends iv, merging it into the last interval when they touch.
func (l IntervalList[T]) Add(iv Interval[T]) IntervalList[T] {
	if n := len(l); n > 0 && l[n-1].End+1 == iv.Start {
		l[n-1].End = iv.End
		return l
	}
	return append(l, iv)
}

// Total returns the number of units covered.
func (l IntervalList[T]) Total() T {
	var n T
	for _, iv := range l {
		n += iv.Len()
	}
	return n
}

// Overlaps reports whether any interval of l intersects one of o.
func (l IntervalList[T]) Overlaps(o IntervalList[T]) bool {
	for _, a := range l {
		for _, b := range o {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

// Sorted returns a copy ordered by start.
func (l IntervalList[T]) Sorted() IntervalList[T] {
	out := slices.Clone(l)
	slices.SortFunc(out, func(a, b Interval[T]) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	return out
}

// Units lists every unit of the list in order.
func (l IntervalList[T]) Units() []T {
	out := make([]T, 0, int(l.Total()))
	for _, iv := range l {
		for x := iv.Start; x <= iv.End; x++ {
			out = append(out, x)
		}
	}
	return out
}
