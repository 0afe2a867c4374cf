// file: pkg/diskimg/file.go

package diskimg

import (
	"fmt"
	"time"
)

// TFile is a file as described by its descriptor record(s).
type TFile struct {
	dir  *Directory
	name string

	attrs            FileAttributes
	recordLength     int
	recordsPerSector int
	eofOffset        int
	l3Records        int
	sectors          int
	created          time.Time
	updated          time.Time

	// extents are in logical order; fibs lists the descriptor AUs, a single
	// one on floppies and a linked chain on hard disks.
	extents IntervalList[int]
	fibs    []int

	dirty bool
}

// FileSpec describes a file to be created.
type FileSpec struct {
	Name             string
	Type             FileType
	Internal         bool
	Protected        bool
	RecordLength     int
	RecordsPerSector int
	EOFOffset        int
	L3Records        int
	Created          time.Time
	Updated          time.Time
}

func (f *TFile) Name() string {
	return f.name
}

// Path returns the dotted path from the root directory.
func (f *TFile) Path() string {
	if f.dir == nil || f.dir.parent == nil {
		return f.name
	}
	return f.dir.Path() + "." + f.name
}

func (f *TFile) Directory() *Directory {
	return f.dir
}

func (f *TFile) Attributes() FileAttributes {
	return f.attrs
}

func (f *TFile) Type() FileType {
	return f.attrs.Type
}

func (f *TFile) Protected() bool {
	return f.attrs.Protected
}

func (f *TFile) RecordLength() int {
	return f.recordLength
}

func (f *TFile) RecordsPerSector() int {
	return f.recordsPerSector
}

// EOFOffset is the number of bytes used in the last sector; zero means the
// whole sector.
func (f *TFile) EOFOffset() int {
	return f.eofOffset
}

// L3Records is the record count of fixed files or the used sector count of
// variable files.
func (f *TFile) L3Records() int {
	return f.l3Records
}

func (f *TFile) Created() time.Time {
	return f.created
}

func (f *TFile) Updated() time.Time {
	return f.updated
}

// TypeString renders the file type as a catalog column.
func (f *TFile) TypeString() string {
	return f.attrs.TypeString(f.recordLength)
}

// AllocatedSectors returns the number of data sectors of the file, not
// counting its descriptor.
func (f *TFile) AllocatedSectors() int {
	return f.sectors
}

// Size returns the content length in bytes. Only program files end inside
// a sector; data files always occupy whole sectors.
func (f *TFile) Size() int {
	if f.attrs.Type != Program || f.sectors == 0 || f.eofOffset == 0 {
		return f.sectors * BytesPerSector
	}
	return (f.sectors-1)*BytesPerSector + f.eofOffset
}

// Extents returns a copy of the data extents in logical order.
func (f *TFile) Extents() []Interval[int] {
	return append([]Interval[int](nil), f.extents...)
}

// DescriptorAUs returns the AUs of the file's descriptor records.
func (f *TFile) DescriptorAUs() []int {
	return append([]int(nil), f.fibs...)
}

// UsedAUs lists every AU the file claims, descriptors first.
func (f *TFile) UsedAUs() []int {
	out := append([]int(nil), f.fibs...)
	return append(out, f.extents.Units()...)
}

// ClaimedAUs returns the number of AUs the file holds in the bitmap.
func (f *TFile) ClaimedAUs() int {
	return len(f.fibs) + f.extents.Total()
}

// PhysicalSector maps a logical sector of the file to a volume sector.
func (f *TFile) PhysicalSector(logical int) (int, error) {
	if logical < 0 || logical >= f.sectors {
		return 0, fmt.Errorf("%s: logical sector %d out of range (file has %d)", f.name, logical, f.sectors)
	}
	spAU := f.dir.vol.sectorsPerAU
	au := logical / spAU
	for _, iv := range f.extents {
		if au < iv.Len() {
			return (iv.Start+au)*spAU + logical%spAU, nil
		}
		au -= iv.Len()
	}
	return 0, fmt.Errorf("%s: logical sector %d beyond the extents", f.name, logical)
}

// String returns a one line catalog entry.
func (f *TFile) String() string {
	return fmt.Sprintf("%-10s %5d %-12s", f.name, f.sectors+len(f.fibs), f.TypeString())
}

func (f *TFile) spec() FileSpec {
	return FileSpec{
		Name:             f.name,
		Type:             f.attrs.Type,
		Internal:         f.attrs.Internal,
		Protected:        f.attrs.Protected,
		RecordLength:     f.recordLength,
		RecordsPerSector: f.recordsPerSector,
		EOFOffset:        f.eofOffset,
		L3Records:        f.l3Records,
		Created:          f.created,
		Updated:          f.updated,
	}
}
