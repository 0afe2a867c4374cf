package disk

import (
	"fmt"

	"github.com/ha1tch/tidisk/pkg/codec"
	"github.com/ha1tch/tidisk/pkg/track"
)

// Format identifies an image container.
type Format int

const (
	FormatUnknown Format = iota
	FormatSectorDump
	FormatHFE
	FormatHardDisk
)

func (f Format) String() string {
	switch f {
	case FormatSectorDump:
		return "sector dump"
	case FormatHFE:
		return "HFE"
	case FormatHardDisk:
		return "hard disk"
	}
	return "unknown"
}

// Volume header offsets used to recognise an image.
const (
	vibSignature     = 0x0D
	vibSectorsPerTrk = 0x0C
	vibTotalSectors  = 0x0A
	vibTracks        = 0x11
	vibSides         = 0x12
	vibDensity       = 0x13
	vibHDHeads       = 0x10
	vibHDCylinders   = 0x11
)

// Sniff classifies data without decoding it. An unusable image is reported
// through the returned fault rather than an error.
func Sniff(data []byte) (Format, *FormatFault) {
	if len(data) >= len(hfeSignature) && string(data[:len(hfeSignature)]) == hfeSignature {
		if len(data) < hfePrefixSize {
			return FormatUnknown, &FormatFault{Offset: len(data), Reason: "HFE image shorter than its header"}
		}
		return FormatHFE, nil
	}
	if len(data) < SectorSize {
		return FormatUnknown, &FormatFault{Offset: len(data), Reason: "image shorter than one sector"}
	}
	if len(data)%SectorSize != 0 {
		return FormatUnknown, &FormatFault{Offset: len(data), Reason: "image size is not a multiple of 256"}
	}
	switch string(data[vibSignature : vibSignature+3]) {
	case "DSK":
		if codec.GetInt16(data, vibTotalSectors) == 0 {
			return FormatUnknown, &FormatFault{Offset: vibTotalSectors, Reason: "volume header gives zero sectors"}
		}
		return FormatSectorDump, nil
	case "WIN":
		return FormatHardDisk, nil
	}
	return FormatUnknown, &FormatFault{Offset: vibSignature, Reason: "no volume header signature"}
}

// floppyGeometry derives the geometry from a floppy volume header. Older
// images leave the density byte zero, in which case it follows from the
// sector count per track.
func floppyGeometry(vib []byte) (Geometry, error) {
	g := Geometry{
		Cylinders:       int(vib[vibTracks]),
		Heads:           int(vib[vibSides]),
		SectorsPerTrack: int(vib[vibSectorsPerTrk]),
	}
	d, err := track.ParseDensity(vib[vibDensity])
	if err != nil {
		switch {
		case g.SectorsPerTrack <= 9:
			d = track.SingleDensity
		default:
			d = track.DoubleDensity
		}
	}
	g.Density = d
	if g.Cylinders == 0 || g.Heads == 0 || g.SectorsPerTrack == 0 {
		return g, &FormatFault{Offset: vibSectorsPerTrk, Reason: fmt.Sprintf("implausible geometry %v", g)}
	}
	return g, nil
}

func hardDiskGeometry(vib []byte) Geometry {
	return Geometry{
		Cylinders:       codec.GetInt16(vib, vibHDCylinders),
		Heads:           int(vib[vibHDHeads]&0x0F) + 1,
		SectorsPerTrack: int(vib[vibSectorsPerTrk]),
	}
}
