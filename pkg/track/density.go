// file: pkg/track/density.go

// Package track turns logical sectors into the flux cell stream of one
// physical track and back. Single density tracks are FM encoded with nine
// sectors, double density tracks are MFM encoded with eighteen.
package track

import "fmt"

// Density selects the recording method of a track. The numeric values are
// the density byte of a floppy volume header.
type Density int

const (
	SingleDensity Density = 1
	DoubleDensity Density = 2
)

// SectorSize is the data field length of every sector written by the
// encoder (size code 1).
const SectorSize = 256

// SizeCode is the N byte written into each ID field.
const SizeCode = 1

// Positions within a GapTable.
const (
	Gap0 = iota
	Sync
	Gap2
	Gap3
	Gap4
)

// GapTable holds the byte counts of GAP0, SYNC, GAP2, GAP3 and GAP4.
type GapTable [5]int

var (
	// SingleDensityGaps gives 16 + 9*334 + 104 = 3126 bytes per track.
	SingleDensityGaps = GapTable{16, 6, 11, 45, 104}
	// DoubleDensityGaps gives 40 + 18*342 + 60 = 6256 bytes per track.
	DoubleDensityGaps = GapTable{40, 12, 22, 24, 60}
)

// Gap and sync filler bytes.
const (
	fmGapByte  = 0xFF
	mfmGapByte = 0x4E
	syncByte   = 0x00
	fillByte   = 0xE5
)

// Address marks. FM marks are written as complete cell words with clock
// 0xC7; MFM marks follow three 0xA1 bytes with a missing clock (0x4489).
const (
	FMIDMark     uint16 = 0xF57E
	FMDataMark   uint16 = 0xF56F
	MFMSync      uint16 = 0x4489
	IDMarkByte   byte   = 0xFE
	DataMarkByte byte   = 0xFB
)

// ParseDensity maps a volume header density byte to a Density.
func ParseDensity(b byte) (Density, error) {
	switch Density(b) {
	case SingleDensity, DoubleDensity:
		return Density(b), nil
	}
	return 0, fmt.Errorf("unsupported density %d", b)
}

func (d Density) String() string {
	switch d {
	case SingleDensity:
		return "SD"
	case DoubleDensity:
		return "DD"
	}
	return fmt.Sprintf("Density(%d)", int(d))
}

// SectorsPerTrack returns the number of 256-byte sectors on one track.
func (d Density) SectorsPerTrack() int {
	switch d {
	case SingleDensity:
		return 9
	case DoubleDensity:
		return 18
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

// Gaps returns the gap table for the density.
func (d Density) Gaps() GapTable {
	switch d {
	case SingleDensity:
		return SingleDensityGaps
	case DoubleDensity:
		return DoubleDensityGaps
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

// TrackBytes is the number of encoded bytes on one track side.
func (d Density) TrackBytes() int {
	g := d.Gaps()
	perSector := g[Sync] + d.markLen() + 4 + 2 + g[Gap2] + g[Sync] + d.markLen() + SectorSize + 2 + g[Gap3]
	return g[Gap0] + d.SectorsPerTrack()*perSector + g[Gap4]
}

// markLen is the number of byte times occupied by an address mark.
func (d Density) markLen() int {
	switch d {
	case SingleDensity:
		return 1
	case DoubleDensity:
		return 4
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

// CellBytes is the size of one encoded side in bytes of cells. FM cells are
// doubled so both densities fill a 100,000 cell revolution.
func (d Density) CellBytes() int {
	switch d {
	case SingleDensity:
		return d.TrackBytes() * 4
	case DoubleDensity:
		return d.TrackBytes() * 2
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

// Interleave returns the first physical sector of a freshly formatted
// track and the step between consecutive physical slots.
func (d Density) Interleave(cylinder int) (start, step int) {
	switch d {
	case SingleDensity:
		return (cylinder * 6) % 9, 7
	case DoubleDensity:
		return 0, 11
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

// SectorOrder lists the sector numbers in the order they pass the head.
func SectorOrder(d Density, cylinder int) []int {
	n := d.SectorsPerTrack()
	start, step := d.Interleave(cylinder)
	order := make([]int, n)
	s := start
	for i := range order {
		order[i] = s
		s = (s + step) % n
	}
	return order
}
