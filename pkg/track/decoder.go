package track

import (
	"fmt"

	"github.com/ha1tch/tidisk/pkg/codec"
)

// DecodedSector is one sector recovered from a cell stream.
type DecodedSector struct {
	Cylinder int
	Head     int
	Sector   int
	SizeCode int
	Data     []byte
}

// CRCError reports a CRC mismatch in an ID or data field.
type CRCError struct {
	Cylinder int
	Head     int
	Sector   int
	Field    string // "id" or "data"
	Want     uint16
	Got      uint16
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("crc mismatch in %s field of cylinder %d head %d sector %d: stored %04X, computed %04X",
		e.Field, e.Cylinder, e.Head, e.Sector, e.Want, e.Got)
}

// maxDataGap bounds how far (in byte times) a data mark may follow its ID
// field before the ID is considered orphaned.
const maxDataGap = 64

type scanner struct {
	cells []byte
	total int
}

// byteAt decodes the byte whose first (clock) cell is at pos. Data cells
// sit at the odd positions for both FM and MFM.
func (s *scanner) byteAt(pos int) (byte, bool) {
	if pos+16 > s.total {
		return 0, false
	}
	var b byte
	for k := 0; k < 8; k++ {
		b <<= 1
		if codec.Cell(s.cells, pos+2*k+1) {
			b |= 1
		}
	}
	return b, true
}

func (s *scanner) bytesAt(pos, n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := range out {
		b, ok := s.byteAt(pos + 16*i)
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

type markKind int

const (
	noMark markKind = iota
	idMark
	dataMark
)

// DecodeTrack recovers the sectors of one side of a track. Sectors are
// returned in the order found on the medium. A CRC mismatch aborts decoding
// with a *CRCError.
func DecodeTrack(cells []byte, d Density) ([]DecodedSector, error) {
	switch d {
	case SingleDensity:
		var firstErr error
		for phase := 0; phase < 2; phase++ {
			sectors, err := decode(codec.Undouble(cells, phase), d)
			if err == nil && len(sectors) > 0 {
				return sectors, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, firstErr
	case DoubleDensity:
		return decode(cells, d)
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

func decode(cells []byte, d Density) ([]DecodedSector, error) {
	s := &scanner{cells: cells, total: len(cells) * 8}
	var (
		sectors []DecodedSector
		pending *DecodedSector
		pendAt  int
		reg     uint16
		syncs   int
	)
	lastSync := -100

	for i := 0; i < s.total; i++ {
		reg <<= 1
		if codec.Cell(cells, i) {
			reg |= 1
		}
		if i < 15 {
			continue
		}

		kind := noMark
		next := i + 1 // first cell after the mark
		seed := uint16(0)
		switch d {
		case SingleDensity:
			switch reg {
			case FMIDMark:
				kind, seed = idMark, codec.CRCSeedFMID
			case FMDataMark:
				kind, seed = dataMark, codec.CRCSeedFMData
			}
		case DoubleDensity:
			if reg != MFMSync {
				continue
			}
			if i-lastSync == 16 {
				syncs++
			} else {
				syncs = 1
			}
			lastSync = i
			if syncs < 3 {
				continue
			}
			m, ok := s.byteAt(next)
			if !ok {
				continue
			}
			switch m {
			case IDMarkByte:
				kind, seed = idMark, codec.CRCSeedMFMID
			case DataMarkByte, 0xF8:
				kind, seed = dataMark, codec.CRCSeedMFMData
				if m == 0xF8 {
					seed = codec.CRC16Update(codec.CRC16([]byte{0xA1, 0xA1, 0xA1}, 0, 3, codec.CRCInit), 0xF8)
				}
			}
			next += 16
		}

		switch kind {
		case idMark:
			hdr, ok := s.bytesAt(next, 6)
			if !ok {
				return sectors, nil
			}
			got := codec.CRC16(hdr, 0, 4, seed)
			want := uint16(hdr[4])<<8 | uint16(hdr[5])
			if got != want {
				return nil, &CRCError{Cylinder: int(hdr[0]), Head: int(hdr[1]), Sector: int(hdr[2]), Field: "id", Want: want, Got: got}
			}
			pending = &DecodedSector{Cylinder: int(hdr[0]), Head: int(hdr[1]), Sector: int(hdr[2]), SizeCode: int(hdr[3])}
			pendAt = next + 6*16
			i = pendAt - 1
			reg = 0
			syncs = 0
		case dataMark:
			if pending == nil || next-pendAt > maxDataGap*16 {
				pending = nil
				continue
			}
			if pending.SizeCode > 3 {
				return nil, fmt.Errorf("track: sector %d has unsupported size code %d", pending.Sector, pending.SizeCode)
			}
			size := 128 << uint(pending.SizeCode)
			field, ok := s.bytesAt(next, size+2)
			if !ok {
				return sectors, nil
			}
			got := codec.CRC16(field, 0, size, seed)
			want := uint16(field[size])<<8 | uint16(field[size+1])
			if got != want {
				return nil, &CRCError{Cylinder: pending.Cylinder, Head: pending.Head, Sector: pending.Sector, Field: "data", Want: want, Got: got}
			}
			pending.Data = field[:size]
			sectors = append(sectors, *pending)
			pending = nil
			i = next + (size+2)*16 - 1
			reg = 0
			syncs = 0
		}
	}
	return sectors, nil
}
