package track

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/tidisk/pkg/codec"
)

// fmReader walks an undoubled FM cell stream byte by byte.
type fmReader struct {
	cells []byte
	pos   int
}

func (r *fmReader) word() uint16 {
	var w uint16
	for i := 0; i < 16; i++ {
		w <<= 1
		if codec.Cell(r.cells, r.pos+i) {
			w |= 1
		}
	}
	r.pos += 16
	return w
}

func (r *fmReader) byte() byte {
	w := r.word()
	var b byte
	for k := 0; k < 8; k++ {
		b <<= 1
		if w&(1<<uint(14-2*k)) != 0 {
			b |= 1
		}
	}
	return b
}

func (r *fmReader) expectRun(t *testing.T, value byte, n int, what string) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.Equal(t, value, r.byte(), "%s byte %d", what, i)
	}
}

func TestSectorOrderPermutation(t *testing.T) {
	for _, d := range []Density{SingleDensity, DoubleDensity} {
		for cyl := 0; cyl < 80; cyl++ {
			order := SectorOrder(d, cyl)
			require.Len(t, order, d.SectorsPerTrack())
			seen := make(map[int]bool)
			for _, s := range order {
				assert.False(t, seen[s], "%v cylinder %d repeats sector %d", d, cyl, s)
				seen[s] = true
			}
		}
	}
}

func TestSectorOrderSkew(t *testing.T) {
	assert.Equal(t, []int{0, 7, 5, 3, 1, 8, 6, 4, 2}, SectorOrder(SingleDensity, 0))
	assert.Equal(t, []int{6, 4, 2, 0, 7, 5, 3, 1, 8}, SectorOrder(SingleDensity, 1))
	assert.Equal(t, 11, SectorOrder(DoubleDensity, 3)[1])
}

func TestTrackLengths(t *testing.T) {
	assert.Equal(t, 3126, SingleDensity.TrackBytes())
	assert.Equal(t, 6256, DoubleDensity.TrackBytes())

	sd := FormatTrack(TrackSpec{Density: SingleDensity})
	dd := FormatTrack(TrackSpec{Density: DoubleDensity})
	assert.Len(t, sd, SingleDensity.CellBytes())
	assert.Len(t, dd, DoubleDensity.CellBytes())
	assert.Equal(t, 0x61B0, 2*len(sd), "two sides of a single density HFE track")
	assert.Equal(t, 0x61C0, 2*len(dd), "two sides of a double density HFE track")
}

func TestSingleDensityTrackLayout(t *testing.T) {
	cells := codec.Undouble(FormatTrack(TrackSpec{Cylinder: 0, Head: 0, Density: SingleDensity}), 0)
	r := &fmReader{cells: cells}
	g := SingleDensityGaps

	r.expectRun(t, 0xFF, g[Gap0], "gap0")
	want := 0
	for i := 0; i < 9; i++ {
		r.expectRun(t, 0x00, g[Sync], "id sync")
		require.Equal(t, FMIDMark, r.word(), "id mark of slot %d", i)

		header := []byte{r.byte(), r.byte(), r.byte(), r.byte()}
		assert.Equal(t, []byte{0, 0, byte(want), 1}, header)
		crc := uint16(r.byte())<<8 | uint16(r.byte())
		assert.Equal(t, codec.CRC16(header, 0, 4, codec.CRCSeedFMID), crc)
		if i == 0 {
			assert.Equal(t, uint16(0xF1D3), crc)
		}

		r.expectRun(t, 0xFF, g[Gap2], "gap2")
		r.expectRun(t, 0x00, g[Sync], "data sync")
		require.Equal(t, FMDataMark, r.word(), "data mark of slot %d", i)
		r.expectRun(t, 0xE5, SectorSize, "fill")
		crc = uint16(r.byte())<<8 | uint16(r.byte())
		assert.Equal(t, uint16(0xA40C), crc)
		r.expectRun(t, 0xFF, g[Gap3], "gap3")

		want = (want + 7) % 9
	}
	r.expectRun(t, 0xFF, g[Gap4], "gap4")
	assert.Equal(t, len(cells)*8, r.pos)
}

func pattern(n int, seed byte) [][]byte {
	sectors := make([][]byte, n)
	for s := range sectors {
		sectors[s] = make([]byte, SectorSize)
		for i := range sectors[s] {
			sectors[s][i] = byte(i*7+s*13) ^ seed
		}
	}
	return sectors
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, d := range []Density{SingleDensity, DoubleDensity} {
		t.Run(d.String(), func(t *testing.T) {
			spec := TrackSpec{Cylinder: 12, Head: 1, Density: d}
			sectors := pattern(d.SectorsPerTrack(), 0x5A)

			decoded, err := DecodeTrack(EncodeTrack(spec, sectors), d)
			require.NoError(t, err)
			require.Len(t, decoded, d.SectorsPerTrack())

			order := SectorOrder(d, spec.Cylinder)
			for i, ds := range decoded {
				assert.Equal(t, order[i], ds.Sector)
				assert.Equal(t, 12, ds.Cylinder)
				assert.Equal(t, 1, ds.Head)
				assert.Equal(t, SizeCode, ds.SizeCode)
				assert.Equal(t, sectors[ds.Sector], ds.Data)
			}
		})
	}
}

func TestDecodeDetectsDataCRC(t *testing.T) {
	cells := FormatTrack(TrackSpec{Density: DoubleDensity})
	g := DoubleDensityGaps
	dataStart := g[Gap0] + g[Sync] + 4 + 4 + 2 + g[Gap2] + g[Sync] + 4
	cell := dataStart*16 + 1
	cells[cell>>3] ^= 0x80 >> uint(cell&7)

	_, err := DecodeTrack(cells, DoubleDensity)
	var crcErr *CRCError
	require.True(t, errors.As(err, &crcErr), "got %v", err)
	assert.Equal(t, "data", crcErr.Field)
	assert.Equal(t, 0, crcErr.Sector)
	assert.Equal(t, uint16(0x7827), crcErr.Want)
}

func TestDecodeDetectsIDCRCSingleDensity(t *testing.T) {
	cells := FormatTrack(TrackSpec{Cylinder: 3, Density: SingleDensity})
	g := SingleDensityGaps
	// third header byte (sector number) of the first slot, both copies of
	// its lowest data cell
	hdr := g[Gap0] + g[Sync] + 1 + 2
	cell := (hdr*16 + 15) * 2
	cells[cell>>3] ^= 0x80 >> uint(cell&7)
	cells[(cell+1)>>3] ^= 0x80 >> uint((cell+1)&7)

	_, err := DecodeTrack(cells, SingleDensity)
	var crcErr *CRCError
	require.True(t, errors.As(err, &crcErr), "got %v", err)
	assert.Equal(t, "id", crcErr.Field)
}

func TestParseDensity(t *testing.T) {
	d, err := ParseDensity(2)
	require.NoError(t, err)
	assert.Equal(t, DoubleDensity, d)
	_, err = ParseDensity(3)
	assert.Error(t, err)
	assert.Panics(t, func() { Density(7).SectorsPerTrack() })
}
