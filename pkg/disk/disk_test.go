package disk

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/tidisk/pkg/codec"
	"github.com/ha1tch/tidisk/pkg/track"
)

func floppyImage(t *testing.T, d track.Density, tracks, sides int) *SectorImage {
	t.Helper()
	g := Geometry{Cylinders: tracks, Heads: sides, SectorsPerTrack: d.SectorsPerTrack(), Density: d}
	img := NewSectorImage(g)
	for n := 0; n < img.SectorCount(); n++ {
		data := bytes.Repeat([]byte{byte(n), byte(n >> 8)}, SectorSize/2)
		require.NoError(t, img.WriteSector(n, data))
	}
	vib := make([]byte, SectorSize)
	copy(vib, "TESTDISK  ")
	codec.SetInt16(vib, vibTotalSectors, img.SectorCount())
	vib[vibSectorsPerTrk] = byte(g.SectorsPerTrack)
	copy(vib[vibSignature:], "DSK")
	vib[vibTracks] = byte(tracks)
	vib[vibSides] = byte(sides)
	vib[vibDensity] = byte(d)
	require.NoError(t, img.WriteSector(0, vib))
	return img
}

func TestSectorImageBounds(t *testing.T) {
	img := NewSectorImage(Geometry{Cylinders: 1, Heads: 1, SectorsPerTrack: 9, Density: track.SingleDensity})
	assert.Equal(t, 9, img.SectorCount())

	_, err := img.ReadSector(9)
	assert.True(t, errors.Is(err, ErrInvalidSector))
	assert.True(t, errors.Is(img.WriteSector(-1, nil), ErrInvalidSector))
	assert.Error(t, img.WriteSector(0, make([]byte, SectorSize+1)))

	require.NoError(t, img.WriteSector(3, []byte{1, 2, 3}))
	got, err := img.ReadSector(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0}, got[:4])

	got[0] = 99
	again, _ := img.ReadSector(3)
	assert.Equal(t, byte(1), again[0], "ReadSector must return a copy")
}

func TestHFEHeaderLayout(t *testing.T) {
	img := floppyImage(t, track.SingleDensity, 40, 2)
	var buf bytes.Buffer
	require.NoError(t, WriteHFE(&buf, img))
	data := buf.Bytes()

	assert.Equal(t, "HXCPICFE", string(data[:8]))
	assert.Equal(t, byte(0), data[8])
	assert.Equal(t, byte(40), data[9])
	assert.Equal(t, byte(2), data[10])
	assert.Equal(t, byte(hfeEncodingFM), data[11])
	assert.Equal(t, 250, codec.GetInt16Rev(data, 0x0C))
	assert.Equal(t, 300, codec.GetInt16Rev(data, 0x0E))
	assert.Equal(t, byte(7), data[0x10])
	assert.Equal(t, 1, codec.GetInt16Rev(data, 0x12))
	assert.Equal(t, byte(0xFF), data[0x1FF])

	assert.Equal(t, 2, codec.GetInt16Rev(data, 0x200))
	assert.Equal(t, 0x61B0, codec.GetInt16Rev(data, 0x202))
	assert.Equal(t, 2+49, codec.GetInt16Rev(data, 0x204))
	assert.Equal(t, hfePrefixSize+40*49*hfeBlockSize, len(data))
}

func TestHFERoundTrip(t *testing.T) {
	for _, tc := range []struct {
		d      track.Density
		tracks int
		sides  int
	}{
		{track.SingleDensity, 40, 1},
		{track.SingleDensity, 40, 2},
		{track.DoubleDensity, 40, 2},
	} {
		t.Run(tc.d.String(), func(t *testing.T) {
			img := floppyImage(t, tc.d, tc.tracks, tc.sides)
			var buf bytes.Buffer
			require.NoError(t, WriteHFE(&buf, img))

			format, fault := Sniff(buf.Bytes())
			require.Nil(t, fault)
			assert.Equal(t, FormatHFE, format)

			back, err := ReadHFE(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, img.Geometry(), back.Geometry())
			assert.Equal(t, img.Bytes(), back.Bytes())
		})
	}
}

func TestWriteHFERejectsHardDisk(t *testing.T) {
	img := NewSectorImage(Geometry{Cylinders: 10, Heads: 2, SectorsPerTrack: 32})
	err := WriteHFE(&bytes.Buffer{}, img)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestReadHFEDetectsDamage(t *testing.T) {
	img := floppyImage(t, track.DoubleDensity, 2, 1)
	var buf bytes.Buffer
	require.NoError(t, WriteHFE(&buf, img))
	data := buf.Bytes()

	// first data byte of the first sector, side 0 of cylinder 0
	data[hfePrefixSize+100*2] ^= 0x02
	_, err := ReadHFE(data)
	var crcErr *track.CRCError
	assert.True(t, errors.As(err, &crcErr), "got %v", err)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  Format
		fault bool
	}{
		{"empty", nil, FormatUnknown, true},
		{"odd size", make([]byte, 300), FormatUnknown, true},
		{"no signature", make([]byte, 512), FormatUnknown, true},
		{"short hfe", []byte("HXCPICFE"), FormatUnknown, true},
		{"floppy", floppyImage(t, track.SingleDensity, 40, 1).Bytes(), FormatSectorDump, false},
		{"hard disk", func() []byte {
			b := make([]byte, 1024)
			copy(b[vibSignature:], "WIN")
			return b
		}(), FormatHardDisk, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fault := Sniff(tt.data)
			assert.Equal(t, tt.want, got)
			if tt.fault {
				require.NotNil(t, fault)
				assert.True(t, errors.Is(fault, ErrNotRecognized))
			} else {
				assert.Nil(t, fault)
			}
		})
	}
}

func TestOpenSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	img := floppyImage(t, track.DoubleDensity, 40, 2)

	require.NoError(t, Save(fs, "/disks/work.dsk", img, FormatForPath("/disks/work.dsk")))
	require.NoError(t, Save(fs, "/disks/work.hfe", img, FormatForPath("/disks/work.HFE")))

	for _, path := range []string{"/disks/work.dsk", "/disks/work.hfe"} {
		back, format, err := Open(fs, path)
		require.NoError(t, err, path)
		assert.Equal(t, FormatForPath(path), format)
		assert.Equal(t, img.Bytes(), back.Bytes())
		assert.Equal(t, 2, back.Geometry().Heads)
	}

	_, _, err := Open(fs, "/disks/missing.dsk")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotRecognized))

	require.NoError(t, afero.WriteFile(fs, "/junk.dsk", make([]byte, 512), 0644))
	_, _, err = Open(fs, "/junk.dsk")
	assert.True(t, errors.Is(err, ErrNotRecognized))
}

func TestGeometryLocate(t *testing.T) {
	g := Geometry{Cylinders: 40, Heads: 2, SectorsPerTrack: 9, Density: track.SingleDensity}
	c, h, s := g.Locate(360)
	assert.Equal(t, []int{39, 1, 0}, []int{c, h, s})
	assert.Equal(t, 720, g.Sectors())
}
