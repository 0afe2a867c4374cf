package diskimg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/tidisk/pkg/disk"
	"github.com/ha1tch/tidisk/pkg/disk/mock_disk"
	"github.com/ha1tch/tidisk/pkg/track"
)

func newFloppy(t *testing.T, d track.Density, sides, tracks int) *Volume {
	t.Helper()
	v, err := FormatFloppy(FloppyOptions{Name: "TESTDISK", Density: d, Sides: sides, Tracks: tracks}, nil)
	if err != nil {
		t.Fatalf("Failed to format floppy: %v", err)
	}
	return v
}

func newHardDisk(t *testing.T) *Volume {
	t.Helper()
	v, err := FormatHardDisk(HardDiskOptions{Name: "HARDDISK", Cylinders: 20, Heads: 2, SectorsPerTrack: 32}, nil)
	if err != nil {
		t.Fatalf("Failed to format hard disk: %v", err)
	}
	return v
}

// pattern returns n bytes that differ between seeds and sector positions.
func pattern(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i) + byte(i>>8)*7
	}
	return out
}

func program(name string) FileSpec {
	return FileSpec{Name: name, Type: Program}
}

// assertAllocationInvariant checks that the bitmap holds exactly the
// reserved area plus every descriptor and extent, with no AU claimed twice.
func assertAllocationInvariant(t *testing.T, v *Volume) {
	t.Helper()
	want := v.ReservedAUs()
	var all IntervalList[int]
	claim := func(aus ...int) {
		for _, au := range aus {
			iv := Span(au, 1)
			assert.False(t, all.Overlaps(IntervalList[int]{iv}), "AU %d claimed twice", au)
			all = append(all, iv)
		}
	}
	err := v.Root().Walk(func(d *Directory) error {
		want += len(d.DescriptorAUs())
		claim(d.DescriptorAUs()...)
		for _, f := range d.files {
			want += f.ClaimedAUs()
			claim(f.UsedAUs()...)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, v.AllocatedAUs(), "allocation bitmap popcount")
}

func reopen(t *testing.T, v *Volume) *Volume {
	t.Helper()
	require.NoError(t, v.Commit())
	again, err := OpenVolume(v.Store(), nil)
	if err != nil {
		t.Fatalf("Failed to reopen volume: %v", err)
	}
	return again
}

func TestFormatFloppy(t *testing.T) {
	tests := []struct {
		density      track.Density
		sides        int
		tracks       int
		aus          int
		sectorsPerAU int
		reserved     int
	}{
		{track.SingleDensity, 1, 40, 360, 1, 2},
		{track.SingleDensity, 2, 40, 720, 1, 2},
		{track.DoubleDensity, 2, 40, 1440, 1, 2},
		{track.DoubleDensity, 2, 80, 1440, 2, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v %dx%d", tt.density, tt.sides, tt.tracks), func(t *testing.T) {
			v := newFloppy(t, tt.density, tt.sides, tt.tracks)
			assert.Equal(t, Floppy, v.Kind())
			assert.Equal(t, tt.aus, v.TotalAUs())
			assert.Equal(t, tt.sectorsPerAU, v.SectorsPerAU())
			assert.Equal(t, tt.reserved, v.ReservedAUs())
			assert.Equal(t, tt.reserved, v.AllocatedAUs())
			assert.False(t, v.Dirty())
			assertAllocationInvariant(t, v)

			vib, err := v.Store().ReadSector(0)
			require.NoError(t, err)
			assert.Equal(t, "TESTDISK  ", string(vib[:10]))
			assert.Equal(t, "DSK", string(vib[0x0D:0x10]))
			assert.Equal(t, byte(tt.density), vib[0x13])
			assert.Equal(t, byte(tt.reserved*2-1)&0x03, vib[0x38]&0x03)
			assert.Equal(t, byte(0xFF), vib[0xFF], "bits past the volume are set")

			fdir, _ := v.Store().ReadSector(1)
			assert.Equal(t, make([]byte, BytesPerSector), fdir)
			data, _ := v.Store().ReadSector(2)
			assert.Equal(t, bytes.Repeat([]byte{0xE5}, BytesPerSector), data)
		})
	}
}

func TestFormatFloppyValidation(t *testing.T) {
	_, err := FormatFloppy(FloppyOptions{Name: "BAD NAME", Density: track.SingleDensity, Sides: 1, Tracks: 40}, nil)
	var ne *NameError
	assert.True(t, errors.As(err, &ne))

	_, err = FormatFloppy(FloppyOptions{Name: "OK", Density: track.SingleDensity, Sides: 3, Tracks: 40}, nil)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Sides", ve.Field)
}

func TestInsertAndReadBack(t *testing.T) {
	v := newFloppy(t, track.DoubleDensity, 2, 40)
	content := pattern(600, 1)

	f, err := v.InsertFile(v.Root(), program("HELLO"), content)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, f.DescriptorAUs())
	assert.Equal(t, []Interval[int]{{3, 5}}, f.Extents())
	assert.Equal(t, 3, f.AllocatedSectors())
	assert.Equal(t, 600-512, f.EOFOffset())
	assert.Equal(t, 600, f.Size())
	assert.True(t, v.Dirty())
	assert.Equal(t, uint64(1), v.Generation())
	assertAllocationInvariant(t, v)

	got, err := v.ReadContent(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	again := reopen(t, v)
	g, err := again.File("HELLO")
	require.NoError(t, err)
	assert.Equal(t, "PROGRAM", g.TypeString())
	assert.Equal(t, f.Extents(), g.Extents())
	got, err = again.ReadContent(g)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assertAllocationInvariant(t, again)
}

func TestFragmentedInsert(t *testing.T) {
	v := newFloppy(t, track.SingleDensity, 1, 40)
	root := v.Root()
	for _, name := range []string{"A", "B", "C"} {
		_, err := v.InsertFile(root, program(name), pattern(BytesPerSector, name[0]))
		require.NoError(t, err)
	}
	_, err := v.InsertFile(root, program("FILL"), pattern(351*BytesPerSector, 9))
	require.NoError(t, err)
	assert.Equal(t, 0, v.FreeSectors())

	require.NoError(t, v.DeleteFile(root, "A"))
	require.NoError(t, v.DeleteFile(root, "C"))
	assert.Equal(t, 4, v.FreeSectors())

	content := pattern(3*BytesPerSector, 42)
	f, err := v.InsertFile(root, program("E"), content)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, f.DescriptorAUs())
	assert.Equal(t, []Interval[int]{{3, 3}, {6, 7}}, f.Extents())
	for logical, want := range []int{3, 6, 7} {
		got, err := f.PhysicalSector(logical)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = f.PhysicalSector(3)
	assert.Error(t, err)
	assertAllocationInvariant(t, v)

	again := reopen(t, v)
	g, err := again.File("E")
	require.NoError(t, err)
	assert.Equal(t, f.Extents(), g.Extents())
	got, err := again.ReadContent(g)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = v.InsertFile(root, program("FULL"), nil)
	assert.True(t, errors.Is(err, ErrDiskFull))
}

func TestInsertErrors(t *testing.T) {
	v := newFloppy(t, track.DoubleDensity, 2, 40)
	root := v.Root()
	_, err := v.InsertFile(root, program("DUP"), []byte{1})
	require.NoError(t, err)

	t.Run("duplicate", func(t *testing.T) {
		_, err := v.InsertFile(root, program("DUP"), []byte{1})
		assert.True(t, errors.Is(err, ErrFileExists))
	})
	t.Run("bad name", func(t *testing.T) {
		_, err := v.InsertFile(root, program("TOOLONGNAME1"), nil)
		var ne *NameError
		assert.True(t, errors.As(err, &ne))
	})
	t.Run("missing record length", func(t *testing.T) {
		_, err := v.InsertFile(root, FileSpec{Name: "DATA", Type: DataFixed}, nil)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})
	t.Run("too large", func(t *testing.T) {
		before := v.AllocatedAUs()
		_, err := v.InsertFile(root, program("HUGE"), make([]byte, 1440*BytesPerSector))
		var ce *CapacityError
		assert.True(t, errors.As(err, &ce))
		assert.Equal(t, before, v.AllocatedAUs())
	})
	t.Run("directory full", func(t *testing.T) {
		for i := 1; i < MaxFilesPerDirectory; i++ {
			_, err := v.InsertFile(root, program(fmt.Sprintf("F%03d", i)), nil)
			require.NoError(t, err)
		}
		_, err := v.InsertFile(root, program("ONEMORE"), nil)
		assert.True(t, errors.Is(err, ErrDirectoryFull))
		assertAllocationInvariant(t, v)
	})
	assert.Equal(t, uint64(MaxFilesPerDirectory), v.Generation())
}

func TestDeleteFile(t *testing.T) {
	v := newFloppy(t, track.DoubleDensity, 2, 40)
	root := v.Root()
	free := v.FreeSectors()
	_, err := v.InsertFile(root, program("GONE"), pattern(1000, 3))
	require.NoError(t, err)
	locked, err := v.InsertFile(root, FileSpec{Name: "LOCKED", Type: Program, Protected: true}, []byte{1})
	require.NoError(t, err)

	require.NoError(t, v.DeleteFile(root, "GONE"))
	assert.Equal(t, free-2, v.FreeSectors())
	_, err = root.File("GONE")
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.True(t, errors.Is(v.DeleteFile(root, "GONE"), ErrFileNotFound))

	assert.True(t, errors.Is(v.DeleteFile(root, "LOCKED"), ErrReadOnly))
	v.SetFileProtection(locked, false)
	require.NoError(t, v.DeleteFile(root, "LOCKED"))
	assert.Equal(t, free, v.FreeSectors())
	assertAllocationInvariant(t, v)

	again := reopen(t, v)
	files, err := again.Root().Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResizeFile(t *testing.T) {
	v := newFloppy(t, track.DoubleDensity, 2, 40)
	root := v.Root()
	f, err := v.InsertFile(root, program("GROW"), pattern(300, 5))
	require.NoError(t, err)
	_, err = v.InsertFile(root, program("BLOCK"), []byte{7})
	require.NoError(t, err)

	bigger := pattern(5*BytesPerSector+10, 6)
	require.NoError(t, v.WriteFileContent(f, bigger))
	assert.Equal(t, 6, f.AllocatedSectors())
	assert.Equal(t, 10, f.EOFOffset())
	assert.True(t, f.Attributes().Modified)
	got, err := v.ReadContent(f)
	require.NoError(t, err)
	assert.Equal(t, bigger, got)
	assertAllocationInvariant(t, v)

	smaller := pattern(100, 8)
	require.NoError(t, v.WriteFileContent(f, smaller))
	assert.Equal(t, 1, f.AllocatedSectors())
	assert.Equal(t, 1, f.Extents()[0].Len())
	got, _ = v.ReadContent(f)
	assert.Equal(t, smaller, got)
	assertAllocationInvariant(t, v)

	require.NoError(t, v.ExtendFile(f, 4))
	assert.Equal(t, 5, f.AllocatedSectors())
	assertAllocationInvariant(t, v)

	again := reopen(t, v)
	g, err := again.File("GROW")
	require.NoError(t, err)
	assert.Equal(t, 5, g.AllocatedSectors())
	assert.Equal(t, f.Extents(), g.Extents())
}

func TestRenameFile(t *testing.T) {
	v := newFloppy(t, track.SingleDensity, 1, 40)
	root := v.Root()
	for _, name := range []string{"ALPHA", "BETA"} {
		_, err := v.InsertFile(root, program(name), []byte(name))
		require.NoError(t, err)
	}
	assert.True(t, errors.Is(v.RenameFile(root, "ALPHA", "BETA"), ErrFileExists))
	assert.True(t, errors.Is(v.RenameFile(root, "NONE", "X"), ErrFileNotFound))
	require.NoError(t, v.RenameFile(root, "ALPHA", "ZULU"))

	again := reopen(t, v)
	files, err := again.Root().Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "BETA", files[0].Name())
	assert.Equal(t, "ZULU", files[1].Name())
	got, _ := again.ReadContent(files[1])
	assert.Equal(t, []byte("ALPHA"), got)
}

func TestFloppyDirectories(t *testing.T) {
	v := newFloppy(t, track.DoubleDensity, 2, 40)
	root := v.Root()
	var subs []*Directory
	for _, name := range []string{"SUB1", "SUB2", "SUB3"} {
		d, err := v.CreateDirectory(root, name)
		require.NoError(t, err)
		subs = append(subs, d)
	}
	_, err := v.CreateDirectory(root, "SUB4")
	assert.True(t, errors.Is(err, ErrDirectoryFull))
	_, err = v.CreateDirectory(subs[0], "DEEP")
	assert.True(t, errors.Is(err, ErrNotSupported))
	_, err = v.CreateDirectory(root, "SUB1")
	assert.True(t, errors.Is(err, ErrFileExists))

	content := pattern(700, 11)
	_, err = v.InsertFile(subs[1], program("INSIDE"), content)
	require.NoError(t, err)
	assertAllocationInvariant(t, v)

	again := reopen(t, v)
	f, err := again.File("SUB2.INSIDE")
	require.NoError(t, err)
	assert.Equal(t, "SUB2.INSIDE", f.Path())
	got, _ := again.ReadContent(f)
	assert.Equal(t, content, got)
	assertAllocationInvariant(t, again)

	sub2, err := again.Directory("SUB2")
	require.NoError(t, err)
	assert.True(t, errors.Is(again.RemoveDirectory(again.Root(), "SUB2"), ErrDirectoryNotEmpty))
	require.NoError(t, again.DeleteFile(sub2, "INSIDE"))
	require.NoError(t, again.RemoveDirectory(again.Root(), "SUB2"))
	require.NoError(t, again.RenameDirectory(again.Root(), "SUB3", "OTHER"))
	assertAllocationInvariant(t, again)

	third := reopen(t, again)
	dirs, err := third.Root().Subdirectories()
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "OTHER", dirs[0].Name())
	assert.Equal(t, "SUB1", dirs[1].Name())
	assertAllocationInvariant(t, third)
}

func TestHardDiskVolume(t *testing.T) {
	v := newHardDisk(t)
	assert.Equal(t, HardDisk, v.Kind())
	assert.Equal(t, 1280, v.TotalAUs())
	assert.Equal(t, HardDiskReservedAUs, v.ReservedAUs())
	assert.Equal(t, []int{32}, v.Root().DescriptorAUs())
	assert.Equal(t, 33, v.AllocatedAUs())

	sub, err := v.CreateDirectory(v.Root(), "SUB")
	require.NoError(t, err)
	assert.Equal(t, []int{33, 34}, sub.DescriptorAUs())
	deep, err := v.CreateDirectory(sub, "DEEP")
	require.NoError(t, err)
	content := pattern(2000, 13)
	_, err = v.InsertFile(deep, program("DATA"), content)
	require.NoError(t, err)
	assertAllocationInvariant(t, v)

	again := reopen(t, v)
	assert.Equal(t, "HARDDISK", again.Name())
	assert.False(t, again.Created().IsZero())
	f, err := again.File("SUB.DEEP.DATA")
	require.NoError(t, err)
	got, err := again.ReadContent(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assertAllocationInvariant(t, again)

	d, file, err := again.Lookup("SUB.DEEP")
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.Equal(t, "SUB.DEEP", d.Path())
	d, file, err = again.Lookup("SUB.DEEP.DATA")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, "DATA", file.Name())
	_, _, err = again.Lookup("SUB.NOPE.DATA")
	assert.True(t, errors.Is(err, ErrDirectoryNotFound))
}

func TestHardDiskIndexChain(t *testing.T) {
	v := newHardDisk(t)
	root := v.Root()
	for i := 0; i < 120; i++ {
		_, err := v.InsertFile(root, program(fmt.Sprintf("E%03d", i)), nil)
		require.NoError(t, err)
	}
	_, err := v.InsertFile(root, program("FILL"), pattern(1126*BytesPerSector, 1))
	require.NoError(t, err)
	for i := 0; i < 120; i += 2 {
		require.NoError(t, v.DeleteFile(root, fmt.Sprintf("E%03d", i)))
	}

	content := pattern(57*BytesPerSector, 77)
	f, err := v.InsertFile(root, program("BIG"), content)
	require.NoError(t, err)
	assert.Len(t, f.Extents(), 57)
	assert.Equal(t, []int{33, 149}, f.DescriptorAUs())
	assert.Equal(t, 1, v.AllocationMap().Free())
	assertAllocationInvariant(t, v)

	again := reopen(t, v)
	first, err := again.Store().ReadSector(33)
	require.NoError(t, err)
	assert.Equal(t, "FI", string(first[0x1C:0x1E]))
	assert.Equal(t, []byte{0, 149}, first[0x20:0x22], "next index block")
	second, _ := again.Store().ReadSector(149)
	assert.Equal(t, []byte{0, 33}, second[0x1E:0x20], "previous index block")
	assert.Equal(t, []byte{0, 54}, second[0x22:0x24], "first AU covered")

	g, err := again.File("BIG")
	require.NoError(t, err)
	assert.Equal(t, f.Extents(), g.Extents())
	got, err := again.ReadContent(g)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assertAllocationInvariant(t, again)
}

func TestFloppyExtentLimit(t *testing.T) {
	v := newFloppy(t, track.DoubleDensity, 2, 40)
	var l fileLayout
	for i := 0; i <= FloppyMaxExtents; i++ {
		l.extents = append(l.extents, Span(100+2*i, 1))
	}
	assert.True(t, errors.Is(v.fitDescriptors(&l), ErrFragmented))
	l.extents = l.extents[:FloppyMaxExtents]
	assert.NoError(t, v.fitDescriptors(&l))
}

func TestOpenVolumeErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("read error", func(t *testing.T) {
		store := mock_disk.NewMockSectorStore(ctrl)
		store.EXPECT().ReadSector(0).Return(nil, io.ErrUnexpectedEOF)
		_, err := OpenVolume(store, nil)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})
	t.Run("no signature", func(t *testing.T) {
		store := mock_disk.NewMockSectorStore(ctrl)
		store.EXPECT().ReadSector(0).Return(make([]byte, BytesPerSector), nil)
		store.EXPECT().Geometry().Return(disk.Geometry{}).AnyTimes()
		_, err := OpenVolume(store, nil)
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.True(t, errors.Is(err, ErrNotRecognized))
	})
	t.Run("header larger than image", func(t *testing.T) {
		vib := make([]byte, BytesPerSector)
		copy(vib[0x0D:], "DSK")
		vib[0x0A], vib[0x0B] = 0x05, 0xA0
		store := mock_disk.NewMockSectorStore(ctrl)
		store.EXPECT().ReadSector(0).Return(vib, nil)
		store.EXPECT().Geometry().Return(disk.Geometry{Cylinders: 40, Heads: 1, SectorsPerTrack: 9}).AnyTimes()
		store.EXPECT().SectorCount().Return(360).AnyTimes()
		_, err := OpenVolume(store, nil)
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})
}
