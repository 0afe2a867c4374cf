// file: pkg/diskimg/reader.go

package diskimg

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/internal/logging"
	"github.com/ha1tch/tidisk/pkg/codec"
	"github.com/ha1tch/tidisk/pkg/disk"
)

// Volume header offsets
const (
	vibName          = 0x00
	vibTotal         = 0x0A
	vibSPT           = 0x0C
	vibSignature     = 0x0D
	vibProtection    = 0x10
	vibTracks        = 0x11
	vibSides         = 0x12
	vibDensity       = 0x13
	vibHDLayout      = 0x10
	vibHDCylinders   = 0x11
	vibHDReserved    = 0x13
	vibHDCreated     = 0x14
	vibHDFileCount   = 0x18
	vibHDDirCount    = 0x19
	vibHDRootFDIR    = 0x1A
	vibHDSubdirs     = 0x1C
	floppySubdirSize = 12
)

// Load opens the image at path and mounts its volume. Failures are
// returned as *OpenError.
func Load(fs afero.Fs, path string, logger *zap.Logger) (*Volume, disk.Format, error) {
	img, format, err := disk.Open(fs, path)
	if err != nil {
		return nil, format, &OpenError{Path: path, Err: err}
	}
	v, err := OpenVolume(img, logger)
	if err != nil {
		return nil, format, &OpenError{Path: path, Err: err}
	}
	return v, format, nil
}

// OpenVolume reads the volume header and allocation bitmap from store. The
// directory tree is read lazily.
func OpenVolume(store disk.SectorStore, logger *zap.Logger) (*Volume, error) {
	vib, err := store.ReadSector(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume header: %w", err)
	}
	v := &Volume{store: store, log: logging.OrNop(logger), geometry: store.Geometry()}
	switch string(vib[vibSignature : vibSignature+3]) {
	case "DSK":
		err = v.readFloppyHeader(vib)
	case "WIN":
		err = v.readHardDiskHeader(vib)
	default:
		return nil, &FormatError{Sector: 0, Field: "volume signature", Err: ErrNotRecognized}
	}
	if err != nil {
		return nil, err
	}
	v.log.Debug("opened volume",
		zap.String("name", v.name),
		zap.Stringer("kind", v.kind),
		zap.Int("aus", v.alloc.Len()),
		zap.Int("sectorsPerAU", v.sectorsPerAU))
	return v, nil
}

func (v *Volume) readFloppyHeader(vib []byte) error {
	v.kind = Floppy
	v.name = decodeName(vib, vibName)
	v.totalSectors = codec.GetInt16(vib, vibTotal)
	v.protected = vib[vibProtection] == 'P'
	if v.totalSectors < 2 {
		return &FormatError{Sector: 0, Field: "total sectors", Err: ErrInvalidHeader}
	}
	if v.totalSectors > v.store.SectorCount() {
		return &FormatError{Sector: 0, Field: "total sectors",
			Err: fmt.Errorf("%w: header gives %d sectors, image holds %d", ErrInvalidHeader, v.totalSectors, v.store.SectorCount())}
	}
	v.sectorsPerAU = floppySectorsPerAU(v.totalSectors)
	v.reservedAUs = v.auCount(FloppyRootFDIR + 1)
	v.alloc = NewAllocationMap(v.totalSectors/v.sectorsPerAU, v.sectorsPerAU)
	v.alloc.FromBitfield(vib, FloppyBitmapOffset, false)

	v.root = &Directory{vol: v}
	for i := 0; i < FloppySubdirEntries; i++ {
		off := FloppySubdirOffset + i*floppySubdirSize
		sector := codec.GetInt16(vib, off+MaxNameLength)
		if sector == 0 {
			continue
		}
		name := decodeName(vib, off)
		if err := ValidateName(name); err != nil {
			return &FormatError{Sector: 0, Field: "subdirectory name", Err: err}
		}
		if sector%v.sectorsPerAU != 0 || sector/v.sectorsPerAU >= v.alloc.Len() {
			return &FormatError{Sector: 0, Field: "subdirectory pointer", Err: &BoundsError{AU: sector / v.sectorsPerAU, Limit: v.alloc.Len()}}
		}
		v.root.pending = append(v.root.pending, subdirRef{name: name, au: sector / v.sectorsPerAU})
	}
	return nil
}

func (v *Volume) readHardDiskHeader(vib []byte) error {
	v.kind = HardDisk
	v.name = decodeName(vib, vibName)
	total := codec.GetInt16(vib, vibTotal)
	v.sectorsPerAU = int(vib[vibHDLayout]>>4) + 1
	v.reservedAUs = int(vib[vibHDReserved])
	v.created = codec.GetTime(vib, vibHDCreated)
	if v.reservedAUs == 0 {
		v.reservedAUs = HardDiskReservedAUs
	}
	if total == 0 || total*v.sectorsPerAU > v.store.SectorCount() {
		return &FormatError{Sector: 0, Field: "total AUs",
			Err: fmt.Errorf("%w: %d AUs of %d sectors on a %d sector image", ErrInvalidHeader, total, v.sectorsPerAU, v.store.SectorCount())}
	}
	v.totalSectors = total * v.sectorsPerAU

	bitmap := make([]byte, 0, (HardDiskBitmapLast-HardDiskBitmapFirst+1)*BytesPerSector)
	for s := HardDiskBitmapFirst; s <= HardDiskBitmapLast; s++ {
		buf, err := v.store.ReadSector(s)
		if err != nil {
			return fmt.Errorf("failed to read allocation bitmap: %w", err)
		}
		bitmap = append(bitmap, buf...)
	}
	v.alloc = NewAllocationMap(total, v.sectorsPerAU)
	v.alloc.FromBitfield(bitmap, 0, true)

	rootFDIR := codec.GetInt16(vib, vibHDRootFDIR)
	if rootFDIR < v.reservedAUs || rootFDIR >= total {
		return &FormatError{Sector: 0, Field: "root file index", Err: &BoundsError{AU: rootFDIR, Limit: total}}
	}
	v.root = &Directory{vol: v, fdirAU: rootFDIR, created: v.created}
	n := int(vib[vibHDDirCount])
	for i := 0; i < HardDiskMaxSubdirs && i < n; i++ {
		ptr := codec.GetInt16(vib, vibHDSubdirs+2*i)
		if ptr == 0 {
			break
		}
		v.root.pending = append(v.root.pending, subdirRef{au: ptr})
	}
	return nil
}
