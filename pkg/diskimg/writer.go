// file: pkg/diskimg/writer.go

package diskimg

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/pkg/codec"
	"github.com/ha1tch/tidisk/pkg/disk"
)

// Commit writes the volume header, the allocation bitmap and every changed
// directory and file descriptor to the sector store.
func (v *Volume) Commit() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.commit()
}

func (v *Volume) commit() error {
	if err := v.root.ensureLoaded(); err != nil {
		return err
	}
	if err := v.writeHeader(); err != nil {
		return err
	}
	written := 0
	err := v.root.walkLoaded(func(d *Directory) error {
		if d.dirty {
			if err := v.writeDirectory(d); err != nil {
				return err
			}
			d.dirty = false
			written++
		}
		for _, f := range d.files {
			if !f.dirty {
				continue
			}
			if err := v.writeFile(f); err != nil {
				return err
			}
			f.dirty = false
			written++
		}
		return nil
	})
	if err != nil {
		return err
	}
	v.dirty = false
	v.log.Debug("committed volume", zap.String("name", v.name), zap.Int("records", written), zap.Uint64("generation", v.generation))
	return nil
}

// Save commits pending changes and writes the image to path.
func (v *Volume) Save(fs afero.Fs, path string, format disk.Format) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.commit(); err != nil {
		return err
	}
	return disk.Save(fs, path, v.store, format)
}

func (v *Volume) writeHeader() error {
	switch v.kind {
	case Floppy:
		return v.store.WriteSector(FloppyVIBSector, v.encodeFloppyHeader())
	case HardDisk:
		vib, bitmap := v.encodeHardDiskHeader()
		if err := v.store.WriteSector(0, vib); err != nil {
			return err
		}
		for s := HardDiskBitmapFirst; s <= HardDiskBitmapLast; s++ {
			off := (s - HardDiskBitmapFirst) * BytesPerSector
			if err := v.store.WriteSector(s, bitmap[off:off+BytesPerSector]); err != nil {
				return fmt.Errorf("failed to write allocation bitmap: %w", err)
			}
		}
	}
	return nil
}

func (v *Volume) encodeFloppyHeader() []byte {
	vib := make([]byte, BytesPerSector)
	encodeName(vib, vibName, v.name)
	codec.SetInt16(vib, vibTotal, v.totalSectors)
	vib[vibSPT] = byte(v.geometry.SectorsPerTrack)
	copy(vib[vibSignature:], "DSK")
	vib[vibProtection] = ' '
	if v.protected {
		vib[vibProtection] = 'P'
	}
	vib[vibTracks] = byte(v.geometry.Cylinders)
	vib[vibSides] = byte(v.geometry.Heads)
	vib[vibDensity] = byte(v.geometry.Density)
	for i, s := range v.root.subdirs {
		off := FloppySubdirOffset + i*floppySubdirSize
		encodeName(vib, off, s.name)
		codec.SetInt16(vib, off+MaxNameLength, s.fdirAU*v.sectorsPerAU)
	}
	v.alloc.ToBitfield(vib, FloppyBitmapOffset, false)
	return vib
}

func (v *Volume) encodeHardDiskHeader() (vib, bitmap []byte) {
	vib = make([]byte, BytesPerSector)
	encodeName(vib, vibName, v.name)
	codec.SetInt16(vib, vibTotal, v.alloc.Len())
	vib[vibSPT] = byte(v.geometry.SectorsPerTrack)
	copy(vib[vibSignature:], "WIN")
	vib[vibHDLayout] = byte(v.sectorsPerAU-1)<<4 | byte(v.geometry.Heads-1)&0x0F
	codec.SetInt16(vib, vibHDCylinders, v.geometry.Cylinders)
	vib[vibHDReserved] = byte(v.reservedAUs)
	codec.PutTime(vib, vibHDCreated, v.created)
	subs := v.root.subdirs
	vib[vibHDFileCount] = byte(len(v.root.files))
	vib[vibHDDirCount] = byte(len(subs))
	codec.SetInt16(vib, vibHDRootFDIR, v.root.fdirAU)
	for i, s := range subs {
		codec.SetInt16(vib, vibHDSubdirs+2*i, s.ddrAU)
	}

	bitmap = make([]byte, (HardDiskBitmapLast-HardDiskBitmapFirst+1)*BytesPerSector)
	v.alloc.ToBitfield(bitmap, 0, true)
	return vib, bitmap
}

func (v *Volume) writeDirectory(d *Directory) error {
	if err := v.store.WriteSector(d.fdirSector(), v.encodeFDIR(d)); err != nil {
		return fmt.Errorf("failed to write file index of %q: %w", d.Path(), err)
	}
	if v.kind == HardDisk && d.parent != nil {
		if err := v.writeAU(d.ddrAU, v.encodeDDR(d)); err != nil {
			return fmt.Errorf("failed to write descriptor of %q: %w", d.Path(), err)
		}
	}
	return nil
}

func (v *Volume) writeFile(f *TFile) error {
	switch v.kind {
	case Floppy:
		buf, err := v.encodeFloppyFile(f)
		if err != nil {
			return err
		}
		return v.writeAU(f.fibs[0], buf)
	case HardDisk:
		blocks, err := v.encodeHardDiskFile(f)
		if err != nil {
			return err
		}
		for i, buf := range blocks {
			if err := v.writeAU(f.fibs[i], buf); err != nil {
				return err
			}
		}
	}
	return nil
}
