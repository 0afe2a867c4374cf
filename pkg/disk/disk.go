// Package disk holds the image containers a volume is read from and written
// to. Every container is exposed as a flat array of 256-byte logical sectors.
package disk

import (
	"fmt"

	"github.com/ha1tch/tidisk/internal"
	"github.com/ha1tch/tidisk/pkg/track"
)

// SectorSize is the size of a logical sector in bytes.
const SectorSize = 256

// Geometry describes the physical layout behind the logical sectors.
// Density is zero for hard disks.
type Geometry struct {
	Cylinders       int
	Heads           int
	SectorsPerTrack int
	Density         track.Density
}

// Sectors returns the number of sectors the geometry addresses.
func (g Geometry) Sectors() int {
	return g.Cylinders * g.Heads * g.SectorsPerTrack
}

// Locate maps a logical sector to its cylinder, head and sector on the
// medium.
func (g Geometry) Locate(logical int) (cylinder, head, sector int) {
	return internal.SectorToTrack(logical, g.Cylinders, g.SectorsPerTrack)
}

func (g Geometry) String() string {
	if g.Density == 0 {
		return fmt.Sprintf("%d cylinders, %d heads, %d sectors/track", g.Cylinders, g.Heads, g.SectorsPerTrack)
	}
	return fmt.Sprintf("%d tracks, %d sides, %d sectors/track, %v", g.Cylinders, g.Heads, g.SectorsPerTrack, g.Density)
}

// SectorStore is the sector level access a volume needs from its container.
// Generated mock using mockgen:
//  mockgen -source=disk.go -destination=mock_disk/mock_disk.go
type SectorStore interface {
	ReadSector(n int) ([]byte, error)
	WriteSector(n int, data []byte) error
	SectorCount() int
	Geometry() Geometry
}

// SectorImage is an in-memory sector dump.
type SectorImage struct {
	geom Geometry
	data []byte
}

// NewSectorImage returns a zero filled image for the geometry.
func NewSectorImage(geom Geometry) *SectorImage {
	return &SectorImage{geom: geom, data: make([]byte, geom.Sectors()*SectorSize)}
}

// NewSectorImageFromBytes wraps existing sector data. A trailing partial
// sector is dropped.
func NewSectorImageFromBytes(geom Geometry, data []byte) *SectorImage {
	n := len(data) / SectorSize * SectorSize
	return &SectorImage{geom: geom, data: data[:n]}
}

// ReadSector returns a copy of sector n.
func (img *SectorImage) ReadSector(n int) ([]byte, error) {
	if n < 0 || n >= img.SectorCount() {
		return nil, fmt.Errorf("%w: %d (image has %d)", ErrInvalidSector, n, img.SectorCount())
	}
	out := make([]byte, SectorSize)
	copy(out, img.data[n*SectorSize:])
	return out, nil
}

// WriteSector replaces sector n. Short data is zero padded.
func (img *SectorImage) WriteSector(n int, data []byte) error {
	if n < 0 || n >= img.SectorCount() {
		return fmt.Errorf("%w: %d (image has %d)", ErrInvalidSector, n, img.SectorCount())
	}
	if len(data) > SectorSize {
		return fmt.Errorf("sector data is %d bytes, want at most %d", len(data), SectorSize)
	}
	dst := img.data[n*SectorSize : (n+1)*SectorSize]
	copy(dst, data)
	for i := len(data); i < SectorSize; i++ {
		dst[i] = 0
	}
	return nil
}

func (img *SectorImage) SectorCount() int {
	return len(img.data) / SectorSize
}

func (img *SectorImage) Geometry() Geometry {
	return img.geom
}

// Bytes returns the sector dump backing the image.
func (img *SectorImage) Bytes() []byte {
	return img.data
}
