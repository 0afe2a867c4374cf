// file: pkg/diskimg/fdr.go

package diskimg

import (
	"errors"
	"fmt"

	"github.com/ha1tch/tidisk/pkg/codec"
)

// File descriptor record offsets shared by floppy and hard disk volumes.
const (
	fdrName         = 0x00
	fdrExtRecLen    = 0x0A
	fdrFlags        = 0x0C
	fdrRecsPerSec   = 0x0D
	fdrSectors      = 0x0E
	fdrEOFOffset    = 0x10
	fdrRecordLength = 0x11
	fdrL3Records    = 0x12
	fdrCreated      = 0x14
	fdrUpdated      = 0x18

	// hard disk file index block
	fibSignature  = 0x1C
	fibPrevious   = 0x1E
	fibNext       = 0x20
	fibFirstAU    = 0x22
	fibParentFDIR = 0x24
	fibSectorsHi  = 0x26
	fibExtents    = 0x28
)

var errBadChain = errors.New("inconsistent data chain")

func decodeFDRPrefix(f *TFile, buf []byte) {
	f.name = decodeName(buf, fdrName)
	f.attrs = ParseFlags(buf[fdrFlags])
	f.recordsPerSector = int(buf[fdrRecsPerSec])
	f.sectors = codec.GetInt16(buf, fdrSectors)
	f.eofOffset = int(buf[fdrEOFOffset])
	f.recordLength = int(buf[fdrRecordLength])
	f.l3Records = codec.GetInt16Rev(buf, fdrL3Records)
	f.created = codec.GetTime(buf, fdrCreated)
	f.updated = codec.GetTime(buf, fdrUpdated)
}

func encodeFDRPrefix(f *TFile, buf []byte) {
	encodeName(buf, fdrName, f.name)
	codec.SetInt16(buf, fdrExtRecLen, 0)
	buf[fdrFlags] = f.attrs.Flags()
	buf[fdrRecsPerSec] = byte(f.recordsPerSector)
	codec.SetInt16(buf, fdrSectors, f.sectors&0xFFFF)
	buf[fdrEOFOffset] = byte(f.eofOffset)
	buf[fdrRecordLength] = byte(f.recordLength)
	codec.SetInt16Rev(buf, fdrL3Records, f.l3Records)
	codec.PutTime(buf, fdrCreated, f.created)
	codec.PutTime(buf, fdrUpdated, f.updated)
}

// readFloppyFile parses the descriptor record at AU fdrAU of a floppy.
func (v *Volume) readFloppyFile(dir *Directory, fdrAU int) (*TFile, error) {
	sector := fdrAU * v.sectorsPerAU
	buf, err := v.store.ReadSector(sector)
	if err != nil {
		return nil, err
	}
	f := &TFile{dir: dir, fibs: []int{fdrAU}}
	decodeFDRPrefix(f, buf)
	if err := ValidateName(f.name); err != nil {
		return nil, &FormatError{Sector: sector, Field: "file name", Err: err}
	}

	prev := -1
	for i := 0; i < FloppyMaxExtents && prev+1 < f.sectors; i++ {
		start, off := codec.GetChainEntry(buf, FloppyChainOffset+3*i)
		if start == 0 && off == 0 {
			break
		}
		if off <= prev {
			return nil, &FormatError{Sector: sector, Field: "data chain", Err: errBadChain}
		}
		f.extents = f.extents.Add(Span(start, v.auCount(off-prev)))
		prev = off
	}
	if prev+1 < f.sectors {
		return nil, &FormatError{Sector: sector, Field: "data chain",
			Err: fmt.Errorf("%w: covers %d of %d sectors", errBadChain, prev+1, f.sectors)}
	}
	return f, nil
}

func (v *Volume) encodeFloppyFile(f *TFile) ([]byte, error) {
	if len(f.extents) > FloppyMaxExtents {
		return nil, fmt.Errorf("%s: %w (%d extents)", f.name, ErrFragmented, len(f.extents))
	}
	buf := make([]byte, BytesPerSector)
	encodeFDRPrefix(f, buf)
	covered := 0
	for i, iv := range f.extents {
		covered += iv.Len() * v.sectorsPerAU
		off := min(covered, f.sectors) - 1
		codec.SetChainEntry(buf, FloppyChainOffset+3*i, iv.Start, off)
	}
	return buf, nil
}

// readHardDiskFile follows the file index block chain starting at fibAU.
func (v *Volume) readHardDiskFile(dir *Directory, fibAU int) (*TFile, error) {
	f := &TFile{dir: dir}
	seen := make(map[int]bool)
	for au, prev := fibAU, 0; au != 0; {
		if seen[au] || au >= v.alloc.Len() {
			return nil, &FormatError{Sector: au * v.sectorsPerAU, Field: "file index chain", Err: errBadChain}
		}
		seen[au] = true
		buf, err := v.readAU(au)
		if err != nil {
			return nil, err
		}
		sector := au * v.sectorsPerAU
		if string(buf[fibSignature:fibSignature+2]) != "FI" {
			return nil, &FormatError{Sector: sector, Field: "file index signature", Err: ErrInvalidHeader}
		}
		if codec.GetInt16(buf, fibPrevious) != prev {
			return nil, &FormatError{Sector: sector, Field: "file index back link", Err: errBadChain}
		}
		if len(f.fibs) == 0 {
			decodeFDRPrefix(f, buf)
			f.sectors |= int(buf[fibSectorsHi]&0x0F) << 16
			if err := ValidateName(f.name); err != nil {
				return nil, &FormatError{Sector: sector, Field: "file name", Err: err}
			}
		}
		if first := codec.GetInt16(buf, fibFirstAU); first != f.extents.Total() {
			return nil, &FormatError{Sector: sector, Field: "file index offset", Err: errBadChain}
		}
		f.fibs = append(f.fibs, au)
		for i := 0; i < FIBMaxExtents; i++ {
			start := codec.GetInt16(buf, fibExtents+4*i)
			end := codec.GetInt16(buf, fibExtents+4*i+2)
			if start == 0 {
				break
			}
			if end < start {
				return nil, &FormatError{Sector: sector, Field: "extent", Err: errBadChain}
			}
			f.extents = f.extents.Add(Interval[int]{Start: start, End: end})
		}
		prev, au = au, codec.GetInt16(buf, fibNext)
	}
	if f.extents.Total()*v.sectorsPerAU < f.sectors {
		return nil, &FormatError{Sector: fibAU * v.sectorsPerAU, Field: "extents",
			Err: fmt.Errorf("%w: %d AUs for %d sectors", errBadChain, f.extents.Total(), f.sectors)}
	}
	return f, nil
}

// fibsNeeded returns how many file index blocks the extents require.
func fibsNeeded(extents int) int {
	if extents == 0 {
		return 1
	}
	return (extents + FIBMaxExtents - 1) / FIBMaxExtents
}

// encodeHardDiskFile returns one block per entry of f.fibs.
func (v *Volume) encodeHardDiskFile(f *TFile) ([][]byte, error) {
	if need := fibsNeeded(len(f.extents)); need != len(f.fibs) {
		return nil, fmt.Errorf("%s: %w (%d index blocks for %d extents)", f.name, ErrFragmented, len(f.fibs), len(f.extents))
	}
	out := make([][]byte, len(f.fibs))
	logical := 0
	for i := range f.fibs {
		buf := make([]byte, BytesPerSector)
		encodeFDRPrefix(f, buf)
		copy(buf[fibSignature:], "FI")
		if i > 0 {
			codec.SetInt16(buf, fibPrevious, f.fibs[i-1])
		}
		if i+1 < len(f.fibs) {
			codec.SetInt16(buf, fibNext, f.fibs[i+1])
		}
		codec.SetInt16(buf, fibFirstAU, logical)
		codec.SetInt16(buf, fibParentFDIR, f.dir.fdirAU)
		buf[fibSectorsHi] = byte(f.sectors>>16) & 0x0F

		lo := i * FIBMaxExtents
		hi := min(lo+FIBMaxExtents, len(f.extents))
		for j, iv := range f.extents[lo:hi] {
			codec.SetInt16(buf, fibExtents+4*j, iv.Start)
			codec.SetInt16(buf, fibExtents+4*j+2, iv.End)
			logical += iv.Len()
		}
		out[i] = buf
	}
	return out, nil
}
