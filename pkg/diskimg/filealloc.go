// file: pkg/diskimg/filealloc.go

package diskimg

import (
	"fmt"

	"go.uber.org/zap"
)

// fileLayout is the set of AUs a file will own once an operation succeeds.
// Operations build a new layout and only assign it to the file at the end,
// so a failure leaves the file untouched.
type fileLayout struct {
	fibs    []int
	extents IntervalList[int]
}

func layoutOf(f *TFile) fileLayout {
	return fileLayout{
		fibs:    append([]int(nil), f.fibs...),
		extents: append(IntervalList[int](nil), f.extents...),
	}
}

func (l fileLayout) apply(f *TFile) {
	f.fibs, f.extents = l.fibs, l.extents
}

// allocateDescriptor reserves a single AU for a descriptor record.
func (v *Volume) allocateDescriptor() (int, error) {
	runs, err := v.alloc.Allocate(1, v.reservedAUs)
	if err != nil {
		return 0, err
	}
	return runs[0].Start, nil
}

// grow adds aus data AUs to the end of the layout.
func (v *Volume) grow(l *fileLayout, aus int) error {
	if aus <= 0 {
		return nil
	}
	hint := v.reservedAUs
	if n := len(l.extents); n > 0 {
		hint = l.extents[n-1].End + 1
	}
	runs, err := v.alloc.Allocate(aus, hint)
	if err != nil && hint != v.reservedAUs {
		runs, err = v.alloc.Allocate(aus, v.reservedAUs)
	}
	if err != nil {
		return err
	}
	for _, r := range runs {
		l.extents = l.extents.Add(r)
	}
	return nil
}

// shrink releases data AUs from the end of the layout until aus remain.
func (v *Volume) shrink(l *fileLayout, aus int) error {
	for l.extents.Total() > aus {
		last := &l.extents[len(l.extents)-1]
		drop := min(l.extents.Total()-aus, last.Len())
		if err := v.alloc.ReleaseRange(Interval[int]{Start: last.End - drop + 1, End: last.End}); err != nil {
			return err
		}
		if drop == last.Len() {
			l.extents = l.extents[:len(l.extents)-1]
		} else {
			last.End -= drop
		}
	}
	return nil
}

// fitDescriptors makes sure the descriptor records can describe the
// extents: a floppy descriptor has a fixed number of chain entries, a hard
// disk file gets as many index blocks as its extents need.
func (v *Volume) fitDescriptors(l *fileLayout) error {
	switch v.kind {
	case Floppy:
		if len(l.extents) > FloppyMaxExtents {
			return fmt.Errorf("%w: %d extents, at most %d", ErrFragmented, len(l.extents), FloppyMaxExtents)
		}
	case HardDisk:
		need := fibsNeeded(len(l.extents))
		for len(l.fibs) < need {
			au, err := v.allocateDescriptor()
			if err != nil {
				return err
			}
			l.fibs = append(l.fibs, au)
		}
		for len(l.fibs) > need {
			if _, err := v.alloc.Release(l.fibs[len(l.fibs)-1]); err != nil {
				return err
			}
			l.fibs = l.fibs[:len(l.fibs)-1]
		}
	}
	return nil
}

// releaseFile frees every AU of f. A bit that was already clear is logged
// since it means the bitmap and the descriptors disagreed.
func (v *Volume) releaseFile(f *TFile) error {
	for _, au := range f.UsedAUs() {
		changed, err := v.alloc.Release(au)
		if err != nil {
			return err
		}
		if !changed {
			v.log.Warn("released unallocated AU", zap.String("file", f.Path()), zap.Int("au", au))
		}
	}
	return nil
}

// checkFree fails early with a CapacityError when aus cannot be satisfied.
func (v *Volume) checkFree(aus int) error {
	if free := v.alloc.Free(); aus > free {
		return &CapacityError{What: "allocation units", Need: aus, Have: free}
	}
	return nil
}
