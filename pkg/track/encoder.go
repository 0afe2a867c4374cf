package track

import (
	"fmt"

	"github.com/ha1tch/tidisk/pkg/codec"
)

// TrackSpec identifies the physical track being written.
type TrackSpec struct {
	Cylinder int
	Head     int
	Density  Density
}

// encoder writes bytes in the track's recording method.
type encoder struct {
	w       *codec.CellWriter
	density Density
}

func newEncoder(d Density) *encoder {
	switch d {
	case SingleDensity:
		return &encoder{w: codec.NewCellWriter(d.CellBytes(), true), density: d}
	case DoubleDensity:
		return &encoder{w: codec.NewCellWriter(d.CellBytes(), false), density: d}
	}
	panic(fmt.Sprintf("track: invalid density %d", int(d)))
}

func (e *encoder) byte(b byte) {
	switch e.density {
	case SingleDensity:
		e.w.WriteFM(b, 0xFF)
	case DoubleDensity:
		e.w.WriteMFM(b)
	}
}

func (e *encoder) bytes(data []byte) {
	for _, b := range data {
		e.byte(b)
	}
}

func (e *encoder) repeat(b byte, n int) {
	for i := 0; i < n; i++ {
		e.byte(b)
	}
}

func (e *encoder) gap(n int) {
	switch e.density {
	case SingleDensity:
		e.repeat(fmGapByte, n)
	case DoubleDensity:
		e.repeat(mfmGapByte, n)
	}
}

// mark writes the address mark and returns the CRC after it.
func (e *encoder) mark(data bool) uint16 {
	switch e.density {
	case SingleDensity:
		if data {
			e.w.WriteRaw(FMDataMark)
			return codec.CRCSeedFMData
		}
		e.w.WriteRaw(FMIDMark)
		return codec.CRCSeedFMID
	case DoubleDensity:
		e.w.WriteRaw(MFMSync)
		e.w.WriteRaw(MFMSync)
		e.w.WriteRaw(MFMSync)
		if data {
			e.byte(DataMarkByte)
			return codec.CRCSeedMFMData
		}
		e.byte(IDMarkByte)
		return codec.CRCSeedMFMID
	}
	panic(fmt.Sprintf("track: invalid density %d", int(e.density)))
}

func (e *encoder) field(seed uint16, data []byte) {
	e.bytes(data)
	crc := codec.CRC16(data, 0, len(data), seed)
	e.byte(byte(crc >> 8))
	e.byte(byte(crc))
}

// EncodeTrack produces the cell stream of one side of one track. sectors is
// indexed by sector number; a missing or nil entry is written as a freshly
// formatted sector (0xE5 fill). The result is exactly Density.CellBytes long.
func EncodeTrack(spec TrackSpec, sectors [][]byte) []byte {
	d := spec.Density
	g := d.Gaps()
	e := newEncoder(d)

	e.gap(g[Gap0])
	for _, s := range SectorOrder(d, spec.Cylinder) {
		e.repeat(syncByte, g[Sync])
		seed := e.mark(false)
		e.field(seed, []byte{byte(spec.Cylinder), byte(spec.Head), byte(s), SizeCode})
		e.gap(g[Gap2])

		e.repeat(syncByte, g[Sync])
		seed = e.mark(true)
		e.field(seed, sectorData(sectors, s))
		e.gap(g[Gap3])
	}
	e.gap(g[Gap4])

	out := e.w.Bytes()
	if len(out) < d.CellBytes() {
		out = append(out, make([]byte, d.CellBytes()-len(out))...)
	}
	return out[:d.CellBytes()]
}

// FormatTrack encodes a blank track.
func FormatTrack(spec TrackSpec) []byte {
	return EncodeTrack(spec, nil)
}

func sectorData(sectors [][]byte, s int) []byte {
	buf := make([]byte, SectorSize)
	if s < len(sectors) && sectors[s] != nil {
		copy(buf, sectors[s])
		return buf
	}
	for i := range buf {
		buf[i] = fillByte
	}
	return buf
}
