// file: pkg/diskimg/allocation.go

package diskimg

import (
	"math/bits"
)

// AllocationMap tracks which allocation units (AUs) are in use. Bit i of the
// map is set when AU i holds a volume structure or file data.
type AllocationMap struct {
	// LSB first within each byte, as floppy VIBs store it on the medium.
	// Hard disk bitmaps are MSB first; ToBitfield and FromBitfield convert.
	bits         []byte
	total        int
	sectorsPerAU int
}

// NewAllocationMap creates an empty map for totalAUs units of sectorsPerAU
// sectors each.
func NewAllocationMap(totalAUs, sectorsPerAU int) *AllocationMap {
	return &AllocationMap{
		bits:         make([]byte, (totalAUs+7)/8),
		total:        totalAUs,
		sectorsPerAU: sectorsPerAU,
	}
}

// Len returns the number of AUs on the volume.
func (am *AllocationMap) Len() int {
	return am.total
}

func (am *AllocationMap) SectorsPerAU() int {
	return am.sectorsPerAU
}

// Clone returns an independent copy, used to roll back failed operations.
func (am *AllocationMap) Clone() *AllocationMap {
	c := *am
	c.bits = append([]byte(nil), am.bits...)
	return &c
}

func (am *AllocationMap) check(au int) error {
	if au < 0 || au >= am.total {
		return &BoundsError{AU: au, Limit: am.total}
	}
	return nil
}

func (am *AllocationMap) get(au int) bool {
	return am.bits[au>>3]&(1<<uint(au&7)) != 0
}

func (am *AllocationMap) set(au int, v bool) bool {
	was := am.get(au)
	if v {
		am.bits[au>>3] |= 1 << uint(au&7)
	} else {
		am.bits[au>>3] &^= 1 << uint(au&7)
	}
	return was != v
}

// HasAllocated reports whether au is marked in use.
func (am *AllocationMap) HasAllocated(au int) (bool, error) {
	if err := am.check(au); err != nil {
		return false, err
	}
	return am.get(au), nil
}

// Reserve marks au in use. It reports whether the bit changed; reserving an
// AU twice is not an error but usually points at a cross allocation.
func (am *AllocationMap) Reserve(au int) (bool, error) {
	if err := am.check(au); err != nil {
		return false, err
	}
	return am.set(au, true), nil
}

// Release marks au free and reports whether the bit changed.
func (am *AllocationMap) Release(au int) (bool, error) {
	if err := am.check(au); err != nil {
		return false, err
	}
	return am.set(au, false), nil
}

// ReserveRange marks every AU of iv in use.
func (am *AllocationMap) ReserveRange(iv Interval[int]) error {
	if err := am.checkRange(iv); err != nil {
		return err
	}
	for au := iv.Start; au <= iv.End; au++ {
		am.set(au, true)
	}
	return nil
}

// ReleaseRange marks every AU of iv free.
func (am *AllocationMap) ReleaseRange(iv Interval[int]) error {
	if err := am.checkRange(iv); err != nil {
		return err
	}
	for au := iv.Start; au <= iv.End; au++ {
		am.set(au, false)
	}
	return nil
}

func (am *AllocationMap) checkRange(iv Interval[int]) error {
	if err := am.check(iv.Start); err != nil {
		return err
	}
	return am.check(iv.End)
}

// GetUnallocatedLocations lists the AUs of iv that are not marked in use.
// AUs beyond the end of the volume are reported as well.
func (am *AllocationMap) GetUnallocatedLocations(iv Interval[int]) []int {
	var out []int
	for au := iv.Start; au <= iv.End; au++ {
		if au < 0 || au >= am.total || !am.get(au) {
			out = append(out, au)
		}
	}
	return out
}

// Count returns the number of AUs in use.
func (am *AllocationMap) Count() int {
	n := 0
	for i, b := range am.bits {
		if rest := am.total - i*8; rest < 8 {
			b &= byte(1<<uint(rest)) - 1
		}
		n += bits.OnesCount8(b)
	}
	return n
}

// Free returns the number of unused AUs.
func (am *AllocationMap) Free() int {
	return am.total - am.Count()
}

// FindFree looks for count free AUs at or after start. A single contiguous
// run is preferred; otherwise the first free runs are returned in order.
// The map is not changed.
func (am *AllocationMap) FindFree(count, start int) ([]Interval[int], error) {
	if count <= 0 {
		return nil, nil
	}
	if free := am.freeFrom(start); free < count {
		return nil, &CapacityError{What: "allocation units", Need: count, Have: free}
	}

	run := 0
	for au := start; au < am.total; au++ {
		if am.get(au) {
			run = 0
			continue
		}
		run++
		if run == count {
			return []Interval[int]{Span(au-count+1, count)}, nil
		}
	}

	// Fall back to fragmented allocation
	var out IntervalList[int]
	need := count
	for au := start; au < am.total && need > 0; au++ {
		if !am.get(au) {
			out = out.Add(Span(au, 1))
			need--
		}
	}
	return out, nil
}

func (am *AllocationMap) freeFrom(start int) int {
	n := 0
	for au := max(start, 0); au < am.total; au++ {
		if !am.get(au) {
			n++
		}
	}
	return n
}

// Allocate finds and reserves count AUs at or after start. On failure the
// map is left unchanged.
func (am *AllocationMap) Allocate(count, start int) ([]Interval[int], error) {
	runs, err := am.FindFree(count, start)
	if err != nil {
		return nil, err
	}
	for i, iv := range runs {
		if err := am.ReserveRange(iv); err != nil {
			for _, done := range runs[:i] {
				am.ReleaseRange(done) // Rollback
			}
			return nil, err
		}
	}
	return runs, nil
}

// ToBitfield stores the map in buf starting at off. Bits past the end of
// the volume up to the end of buf are set, the way a formatter marks
// nonexistent units as unavailable.
func (am *AllocationMap) ToBitfield(buf []byte, off int, msbFirst bool) {
	for i := 0; off+i/8 < len(buf); i++ {
		v := i >= am.total || am.get(i)
		putBit(buf, off, i, msbFirst, v)
	}
}

// FromBitfield loads the map from buf starting at off.
func (am *AllocationMap) FromBitfield(buf []byte, off int, msbFirst bool) {
	for i := 0; i < am.total && off+i/8 < len(buf); i++ {
		am.set(i, getBit(buf, off, i, msbFirst))
	}
}

func bitMask(i int, msbFirst bool) byte {
	if msbFirst {
		return 0x80 >> uint(i&7)
	}
	return 1 << uint(i&7)
}

func getBit(buf []byte, off, i int, msbFirst bool) bool {
	return buf[off+i/8]&bitMask(i, msbFirst) != 0
}

func putBit(buf []byte, off, i int, msbFirst, v bool) {
	if v {
		buf[off+i/8] |= bitMask(i, msbFirst)
	} else {
		buf[off+i/8] &^= bitMask(i, msbFirst)
	}
}
