// file: pkg/diskimg/diskimg.go

// Package diskimg interprets the sectors of a TI floppy or hard disk image
// as a volume: allocation bitmap, directories and files. Changes are made
// in memory and written back with Volume.Commit.
package diskimg

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/pkg/disk"
	"github.com/ha1tch/tidisk/pkg/track"
)

const (
	BytesPerSector = disk.SectorSize

	// Floppy layout
	FloppyVIBSector     = 0
	FloppyRootFDIR      = 1
	FloppyBitmapOffset  = 0x38
	FloppyMaxAUs        = 1600
	FloppyMaxSubdirs    = 3
	FloppyMaxExtents    = 76
	FloppyChainOffset   = 0x1C
	FloppySubdirOffset  = 0x14
	FloppySubdirEntries = 3

	// Hard disk layout
	HardDiskBitmapFirst = 1
	HardDiskBitmapLast  = 31
	HardDiskReservedAUs = 32
	HardDiskMaxAUs      = (HardDiskBitmapLast - HardDiskBitmapFirst + 1) * BytesPerSector * 8
	HardDiskMaxSubdirs  = 114
	DDRMaxSubdirs       = 113
	FIBMaxExtents       = 54

	// MaxFilesPerDirectory is the number of pointers in a file index.
	MaxFilesPerDirectory = 127
)

// Kind tells floppy and hard disk volumes apart.
type Kind int

const (
	Floppy Kind = iota
	HardDisk
)

func (k Kind) String() string {
	switch k {
	case Floppy:
		return "floppy"
	case HardDisk:
		return "hard disk"
	}
	return "unknown"
}

// Volume is one file system on an image. All exported methods are safe for
// concurrent use; mutations take the write lock.
type Volume struct {
	mu  sync.RWMutex
	log *zap.Logger

	store disk.SectorStore
	kind  Kind

	name         string
	totalSectors int
	sectorsPerAU int
	reservedAUs  int
	geometry     disk.Geometry
	protected    bool
	created      time.Time

	alloc *AllocationMap
	root  *Directory

	generation uint64
	dirty      bool
}

func (v *Volume) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.name
}

func (v *Volume) Kind() Kind {
	return v.kind
}

func (v *Volume) Geometry() disk.Geometry {
	return v.geometry
}

// Density is zero for hard disks.
func (v *Volume) Density() track.Density {
	return v.geometry.Density
}

func (v *Volume) TotalSectors() int {
	return v.totalSectors
}

func (v *Volume) TotalAUs() int {
	return v.alloc.Len()
}

func (v *Volume) SectorsPerAU() int {
	return v.sectorsPerAU
}

// ReservedAUs is the number of AUs at the start of the volume holding the
// volume header and, on hard disks, the allocation bitmap.
func (v *Volume) ReservedAUs() int {
	return v.reservedAUs
}

func (v *Volume) Protected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.protected
}

func (v *Volume) Created() time.Time {
	return v.created
}

// Generation increases with every mutation.
func (v *Volume) Generation() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.generation
}

// Dirty reports whether there are uncommitted changes.
func (v *Volume) Dirty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dirty
}

// Store returns the sector container of the volume.
func (v *Volume) Store() disk.SectorStore {
	return v.store
}

// Root returns the root directory.
func (v *Volume) Root() *Directory {
	return v.root
}

// AllocatedAUs returns the number of AUs marked in use.
func (v *Volume) AllocatedAUs() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.alloc.Count()
}

// FreeSectors returns the free space in sectors.
func (v *Volume) FreeSectors() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.alloc.Free() * v.sectorsPerAU
}

// AllocationMap returns a copy of the allocation bitmap.
func (v *Volume) AllocationMap() *AllocationMap {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.alloc.Clone()
}

// touch records a completed mutation. Callers hold the write lock.
func (v *Volume) touch(op string, fields ...zap.Field) {
	v.generation++
	v.dirty = true
	v.log.Debug(op, append(fields, zap.Uint64("generation", v.generation))...)
}

// readAU returns the first sector of an AU.
func (v *Volume) readAU(au int) ([]byte, error) {
	return v.store.ReadSector(au * v.sectorsPerAU)
}

func (v *Volume) writeAU(au int, data []byte) error {
	return v.store.WriteSector(au*v.sectorsPerAU, data)
}

// auCount converts a sector count to the number of AUs holding it.
func (v *Volume) auCount(sectors int) int {
	return (sectors + v.sectorsPerAU - 1) / v.sectorsPerAU
}

// floppySectorsPerAU returns the smallest power of two keeping the number
// of AUs within the floppy bitmap.
func floppySectorsPerAU(totalSectors int) int {
	spAU := 1
	for (totalSectors+spAU-1)/spAU > FloppyMaxAUs {
		spAU <<= 1
	}
	return spAU
}

// hardDiskSectorsPerAU does the same for the hard disk bitmap.
func hardDiskSectorsPerAU(totalSectors int) int {
	spAU := 1
	for (totalSectors+spAU-1)/spAU > HardDiskMaxAUs && spAU < 16 {
		spAU <<= 1
	}
	return spAU
}
