package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ha1tch/tidisk/internal"
	"github.com/ha1tch/tidisk/pkg/codec"
	"github.com/ha1tch/tidisk/pkg/track"
)

const (
	hfeSignature  = "HXCPICFE"
	hfeBlockSize  = 0x200
	hfeHeaderSize = 0x200
	// hfePrefixSize covers the header block and the track lookup table.
	hfePrefixSize = 0x400

	hfeEncodingMFM = 0x00
	hfeEncodingFM  = 0x02

	hfeBitRate       = 250
	hfeRPM           = 300
	hfeInterfaceMode = 7 // generic Shugart DD
)

// HFEHeader is the fixed part of the 512-byte HFE header block. The rest of
// the block is 0xFF.
type HFEHeader struct {
	Signature      [8]byte
	Revision       uint8
	Tracks         uint8
	Sides          uint8
	Encoding       uint8
	BitRate        uint16
	RPM            uint16
	InterfaceMode  uint8
	Unused         uint8
	TrackListBlock uint16
	WriteAllowed   uint8
	SingleStep     uint8
	AltEncoding0   uint8
	Encoding0      uint8
	AltEncoding1   uint8
	Encoding1      uint8
}

// hfeTrackEntry is one lookup table entry. Offset is in 512-byte blocks,
// Length is the byte count of both interleaved sides. The table itself sits
// in the block after the header, which is how HxC tools lay out the file.
type hfeTrackEntry struct {
	Offset uint16
	Length uint16
}

func newHFEHeader(g Geometry) HFEHeader {
	h := HFEHeader{
		Tracks:         uint8(g.Cylinders),
		Sides:          uint8(g.Heads),
		Encoding:       hfeEncodingMFM,
		BitRate:        hfeBitRate,
		RPM:            hfeRPM,
		InterfaceMode:  hfeInterfaceMode,
		Unused:         1,
		TrackListBlock: 1,
		WriteAllowed:   0xFF,
		SingleStep:     0xFF,
		AltEncoding0:   0xFF,
		Encoding0:      0xFF,
		AltEncoding1:   0xFF,
		Encoding1:      0xFF,
	}
	copy(h.Signature[:], hfeSignature)
	if g.Density == track.SingleDensity {
		h.Encoding = hfeEncodingFM
	}
	return h
}

func (h *HFEHeader) density() (track.Density, error) {
	switch h.Encoding {
	case hfeEncodingMFM:
		return track.DoubleDensity, nil
	case hfeEncodingFM:
		return track.SingleDensity, nil
	}
	return 0, fmt.Errorf("%w: HFE track encoding %d", ErrUnsupported, h.Encoding)
}

func blocksFor(n int) int {
	return (n + hfeBlockSize - 1) / hfeBlockSize
}

// WriteHFE encodes every track of a floppy image and writes it as HFE.
func WriteHFE(w io.Writer, img SectorStore) error {
	g := img.Geometry()
	switch g.Density {
	case track.SingleDensity, track.DoubleDensity:
	default:
		return fmt.Errorf("%w: HFE needs a floppy geometry, got %v", ErrUnsupported, g)
	}
	if g.SectorsPerTrack != g.Density.SectorsPerTrack() {
		return fmt.Errorf("%w: %d sectors per track cannot be encoded as %v", ErrUnsupported, g.SectorsPerTrack, g.Density)
	}
	if g.Heads < 1 || g.Heads > 2 || g.Cylinders < 1 || g.Cylinders > 255 {
		return fmt.Errorf("%w: %v", ErrUnsupported, g)
	}

	var out bytes.Buffer
	hdr := newHFEHeader(g)
	if err := binary.Write(&out, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("failed to write HFE header: %w", err)
	}
	pad(&out, hfeHeaderSize)

	sideLen := g.Density.CellBytes()
	trackLen := 2 * sideLen
	blocks := blocksFor(trackLen)
	for c := 0; c < g.Cylinders; c++ {
		e := hfeTrackEntry{Offset: uint16(hfePrefixSize/hfeBlockSize + c*blocks), Length: uint16(trackLen)}
		if err := binary.Write(&out, binary.LittleEndian, &e); err != nil {
			return fmt.Errorf("failed to write HFE track table: %w", err)
		}
	}
	pad(&out, hfePrefixSize)

	for c := 0; c < g.Cylinders; c++ {
		var sides [2][]byte
		for head := 0; head < 2; head++ {
			spec := track.TrackSpec{Cylinder: c, Head: head, Density: g.Density}
			if head >= g.Heads {
				sides[head] = track.FormatTrack(spec)
				continue
			}
			sectors := make([][]byte, g.SectorsPerTrack)
			for s := range sectors {
				data, err := img.ReadSector(internal.TrackToSector(c, head, s, g.Cylinders, g.SectorsPerTrack))
				if err != nil {
					return fmt.Errorf("failed to read cylinder %d head %d sector %d: %w", c, head, s, err)
				}
				sectors[s] = data
			}
			sides[head] = track.EncodeTrack(spec, sectors)
		}
		for b := 0; b < blocks; b++ {
			for head := 0; head < 2; head++ {
				chunk := make([]byte, hfeBlockSize/2)
				if lo := b * len(chunk); lo < sideLen {
					copy(chunk, sides[head][lo:])
				}
				codec.ReverseBits(chunk)
				out.Write(chunk)
			}
		}
	}

	_, err := w.Write(out.Bytes())
	return err
}

func pad(buf *bytes.Buffer, size int) {
	for buf.Len() < size {
		buf.WriteByte(0xFF)
	}
}

// ReadHFE decodes an HFE image into logical sectors.
func ReadHFE(data []byte) (*SectorImage, error) {
	if len(data) < hfePrefixSize || string(data[:len(hfeSignature)]) != hfeSignature {
		return nil, &FormatFault{Reason: "missing HFE signature"}
	}
	var hdr HFEHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read HFE header: %w", err)
	}
	d, err := hdr.density()
	if err != nil {
		return nil, err
	}
	if hdr.Sides < 1 || hdr.Sides > 2 || hdr.Tracks == 0 {
		return nil, &FormatFault{Offset: 0x09, Reason: fmt.Sprintf("%d tracks, %d sides", hdr.Tracks, hdr.Sides)}
	}

	g := Geometry{Cylinders: int(hdr.Tracks), Heads: int(hdr.Sides), SectorsPerTrack: d.SectorsPerTrack(), Density: d}
	img := NewSectorImage(g)
	lut := int(hdr.TrackListBlock) * hfeBlockSize
	for c := 0; c < g.Cylinders; c++ {
		at := lut + c*4
		if at+4 > len(data) {
			return nil, &FormatFault{Offset: at, Reason: "truncated track table"}
		}
		e := hfeTrackEntry{
			Offset: uint16(codec.GetInt16Rev(data, at)),
			Length: uint16(codec.GetInt16Rev(data, at+2)),
		}
		start := int(e.Offset) * hfeBlockSize
		end := start + blocksFor(int(e.Length))*hfeBlockSize
		if end > len(data) {
			return nil, &FormatFault{Offset: at, Reason: fmt.Sprintf("track %d extends past end of image", c)}
		}
		sideLen := int(e.Length) / 2
		for head := 0; head < g.Heads; head++ {
			cells := make([]byte, 0, sideLen)
			for b := start; b < end && len(cells) < sideLen; b += hfeBlockSize {
				off := b + head*hfeBlockSize/2
				cells = append(cells, data[off:off+hfeBlockSize/2]...)
			}
			cells = cells[:sideLen]
			codec.ReverseBits(cells)

			sectors, err := track.DecodeTrack(cells, d)
			if err != nil {
				return nil, fmt.Errorf("cylinder %d head %d: %w", c, head, err)
			}
			found := make([]bool, g.SectorsPerTrack)
			for _, s := range sectors {
				if s.Sector < 0 || s.Sector >= g.SectorsPerTrack || s.Cylinder != c || len(s.Data) != SectorSize {
					continue
				}
				found[s.Sector] = true
				n := internal.TrackToSector(c, head, s.Sector, g.Cylinders, g.SectorsPerTrack)
				if err := img.WriteSector(n, s.Data); err != nil {
					return nil, err
				}
			}
			for s, ok := range found {
				if !ok {
					return nil, fmt.Errorf("%w: cylinder %d head %d sector %d", ErrMissingSector, c, head, s)
				}
			}
		}
	}
	return img, nil
}
