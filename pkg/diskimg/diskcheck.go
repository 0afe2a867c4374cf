// file: pkg/diskimg/diskcheck.go

package diskimg

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrStaleReport is returned when a report is applied to a volume that has
// changed since the report was made.
var ErrStaleReport = errors.New("allocation report is out of date")

// FaultKind classifies an allocation fault.
type FaultKind int

const (
	// FaultOrphaned is an AU marked in use that nothing claims.
	FaultOrphaned FaultKind = iota
	// FaultCrossAllocated is an AU claimed by more than one owner.
	FaultCrossAllocated
	// FaultUnallocated is an AU claimed by an owner but marked free.
	FaultUnallocated
	// FaultOutOfRange is a claimed AU beyond the end of the volume.
	FaultOutOfRange
)

func (k FaultKind) String() string {
	switch k {
	case FaultOrphaned:
		return "orphaned"
	case FaultCrossAllocated:
		return "cross-allocated"
	case FaultUnallocated:
		return "unallocated"
	case FaultOutOfRange:
		return "out of range"
	}
	return fmt.Sprintf("FaultKind(%d)", int(k))
}

// AllocationFault is one inconsistency between the bitmap and the
// descriptors. Claimants are paths such as "DSK.SUB.FILE".
type AllocationFault struct {
	Kind      FaultKind
	AU        int
	Claimants []string
}

func (f AllocationFault) String() string {
	if len(f.Claimants) == 0 {
		return fmt.Sprintf("AU %d: %s", f.AU, f.Kind)
	}
	return fmt.Sprintf("AU %d: %s (%s)", f.AU, f.Kind, strings.Join(f.Claimants, ", "))
}

// AllocationReport collects the faults found by FindAllocationFaults.
type AllocationReport struct {
	Faults     []AllocationFault
	Checked    int
	Generation uint64
}

// OK reports whether no faults were found.
func (r *AllocationReport) OK() bool {
	return len(r.Faults) == 0
}

// Count returns the number of faults of one kind.
func (r *AllocationReport) Count(kind FaultKind) int {
	n := 0
	for _, f := range r.Faults {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// FindAllocationFaults compares the allocation bitmap with the AUs claimed
// by directories and files. Faults are reported, not returned as errors; the
// error is set only when the directory tree cannot be read.
func (v *Volume) FindAllocationFaults() (*AllocationReport, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	claims, err := v.collectClaims()
	if err != nil {
		return nil, err
	}
	owners := make(map[int][]string)
	for _, c := range claims {
		for _, au := range c.aus.Units() {
			owners[au] = append(owners[au], c.owner)
		}
	}
	report := &AllocationReport{Checked: v.alloc.Len(), Generation: v.generation}

	for au := 0; au < v.alloc.Len(); au++ {
		switch n := len(owners[au]); {
		case n > 1:
			report.Faults = append(report.Faults, AllocationFault{Kind: FaultCrossAllocated, AU: au, Claimants: owners[au]})
		case n == 0 && v.alloc.get(au) && au >= v.reservedAUs:
			report.Faults = append(report.Faults, AllocationFault{Kind: FaultOrphaned, AU: au})
		}
	}

	seen := make(map[int]bool)
	for _, c := range claims {
		for _, iv := range c.aus {
			for _, au := range v.alloc.GetUnallocatedLocations(iv) {
				if seen[au] {
					continue
				}
				seen[au] = true
				kind := FaultUnallocated
				if au < 0 || au >= v.alloc.Len() {
					kind = FaultOutOfRange
				}
				report.Faults = append(report.Faults, AllocationFault{Kind: kind, AU: au, Claimants: owners[au]})
			}
		}
	}
	sort.SliceStable(report.Faults, func(i, j int) bool { return report.Faults[i].AU < report.Faults[j].AU })

	v.log.Debug("allocation audit",
		zap.String("name", v.name),
		zap.Int("faults", len(report.Faults)),
		zap.Uint64("generation", v.generation))
	return report, nil
}

// claim is the set of AUs one owner holds: the reserved area for the
// volume, the descriptors for a directory, descriptors and data for a file.
type claim struct {
	owner string
	aus   IntervalList[int]
}

func (v *Volume) collectClaims() ([]claim, error) {
	claims := []claim{{owner: v.name, aus: IntervalList[int]{Span(0, v.reservedAUs)}}}
	err := v.root.walk(func(d *Directory) error {
		dirPath := v.name
		if p := d.Path(); p != "" {
			dirPath += "." + p
		}
		claims = append(claims, claim{owner: dirPath, aus: unitList(d.DescriptorAUs())})
		for _, f := range d.files {
			aus := unitList(f.fibs)
			aus = append(aus, f.extents...)
			claims = append(claims, claim{owner: joinPath(dirPath, f.name), aus: aus})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func unitList(aus []int) IntervalList[int] {
	var l IntervalList[int]
	for _, au := range aus {
		l = l.Add(Span(au, 1))
	}
	return l
}

// Repair releases orphaned AUs and reserves unallocated ones. Cross
// allocations and out of range claims need a decision about which owner
// to keep and are left alone. Either every fix is applied or none is.
func (v *Volume) Repair(report *AllocationReport) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if report.Generation != v.generation {
		return 0, ErrStaleReport
	}
	next := v.alloc.Clone()
	fixed := 0
	for _, f := range report.Faults {
		var err error
		switch f.Kind {
		case FaultOrphaned:
			_, err = next.Release(f.AU)
		case FaultUnallocated:
			_, err = next.Reserve(f.AU)
		default:
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to repair AU %d: %w", f.AU, err)
		}
		fixed++
	}
	if fixed == 0 {
		return 0, nil
	}
	v.alloc = next
	v.touch("repair allocation", zap.Int("fixed", fixed))
	return fixed, nil
}
