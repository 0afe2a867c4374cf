// file: pkg/diskimg/track.go

package diskimg

import (
	"bytes"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/internal/logging"
	"github.com/ha1tch/tidisk/pkg/disk"
	"github.com/ha1tch/tidisk/pkg/track"
)

// formatFill is written to every data sector of a freshly formatted volume.
const formatFill = 0xE5

// FloppyOptions describes a floppy volume to format.
type FloppyOptions struct {
	Name      string
	Density   track.Density
	Sides     int
	Tracks    int
	Protected bool
}

// Validate checks the options against the supported floppy layouts.
func (o *FloppyOptions) Validate() error {
	if err := ValidateName(o.Name); err != nil {
		return err
	}
	switch o.Density {
	case track.SingleDensity, track.DoubleDensity:
	default:
		return &ValidationError{Field: "Density", Message: fmt.Sprintf("unsupported density %d", int(o.Density))}
	}
	if o.Sides != 1 && o.Sides != 2 {
		return &ValidationError{Field: "Sides", Message: fmt.Sprintf("must be 1 or 2, got %d", o.Sides)}
	}
	if o.Tracks < 1 || o.Tracks > 99 {
		return &ValidationError{Field: "Tracks", Message: fmt.Sprintf("must be between 1 and 99, got %d", o.Tracks)}
	}
	return nil
}

func (o *FloppyOptions) geometry() disk.Geometry {
	return disk.Geometry{
		Cylinders:       o.Tracks,
		Heads:           o.Sides,
		SectorsPerTrack: o.Density.SectorsPerTrack(),
		Density:         o.Density,
	}
}

// HardDiskOptions describes a hard disk volume to format.
type HardDiskOptions struct {
	Name            string
	Cylinders       int
	Heads           int
	SectorsPerTrack int
}

// Validate checks the name and the controller limits.
func (o *HardDiskOptions) Validate() error {
	if err := ValidateName(o.Name); err != nil {
		return err
	}
	return ValidateGeometry(o.Cylinders, o.Heads, o.SectorsPerTrack)
}

// FormatFloppy creates an empty floppy volume on a new sector image.
func FormatFloppy(opts FloppyOptions, logger *zap.Logger) (*Volume, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	geom := opts.geometry()
	img := disk.NewSectorImage(geom)
	fillSectors(img, formatFill)
	if err := img.WriteSector(FloppyRootFDIR, nil); err != nil {
		return nil, err
	}

	total := geom.Sectors()
	spAU := floppySectorsPerAU(total)
	v := &Volume{
		log:          logging.OrNop(logger),
		store:        img,
		kind:         Floppy,
		name:         opts.Name,
		totalSectors: total,
		sectorsPerAU: spAU,
		geometry:     geom,
		protected:    opts.Protected,
		alloc:        NewAllocationMap(total/spAU, spAU),
	}
	v.reservedAUs = v.auCount(FloppyRootFDIR + 1)
	if err := v.alloc.ReserveRange(Span(0, v.reservedAUs)); err != nil {
		return nil, err
	}
	v.root = &Directory{vol: v, loaded: true, dirty: true}
	if err := v.commit(); err != nil {
		return nil, err
	}
	v.log.Debug("formatted floppy", zap.String("name", v.name), zap.Stringer("geometry", geom))
	return v, nil
}

// FormatHardDisk creates an empty hard disk volume on a new sector image.
func FormatHardDisk(opts HardDiskOptions, logger *zap.Logger) (*Volume, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	geom := disk.Geometry{Cylinders: opts.Cylinders, Heads: opts.Heads, SectorsPerTrack: opts.SectorsPerTrack}
	total := geom.Sectors()
	spAU := hardDiskSectorsPerAU(total)
	aus := min(total/spAU, HardDiskMaxAUs)
	if aus <= HardDiskReservedAUs {
		return nil, &CapacityError{What: "allocation units", Need: HardDiskReservedAUs + 1, Have: aus}
	}

	img := disk.NewSectorImage(geom)
	v := &Volume{
		log:          logging.OrNop(logger),
		store:        img,
		kind:         HardDisk,
		name:         opts.Name,
		totalSectors: aus * spAU,
		sectorsPerAU: spAU,
		reservedAUs:  HardDiskReservedAUs,
		geometry:     geom,
		created:      time.Now(),
		alloc:        NewAllocationMap(aus, spAU),
	}
	if err := v.alloc.ReserveRange(Span(0, v.reservedAUs)); err != nil {
		return nil, err
	}
	runs, err := v.alloc.Allocate(1, v.reservedAUs)
	if err != nil {
		return nil, err
	}
	v.root = &Directory{vol: v, fdirAU: runs[0].Start, created: v.created, loaded: true, dirty: true}
	if err := v.commit(); err != nil {
		return nil, err
	}
	v.log.Debug("formatted hard disk", zap.String("name", v.name), zap.Stringer("geometry", geom), zap.Int("sectorsPerAU", spAU))
	return v, nil
}

func fillSectors(img *disk.SectorImage, b byte) {
	fill := bytes.Repeat([]byte{b}, BytesPerSector)
	for n := 0; n < img.SectorCount(); n++ {
		img.WriteSector(n, fill)
	}
}
