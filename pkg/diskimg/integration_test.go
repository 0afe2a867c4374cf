// file: pkg/diskimg/integration_test.go

package diskimg

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/tidisk/pkg/disk"
	"github.com/ha1tch/tidisk/pkg/track"
)

func TestFullDiskOperations(t *testing.T) {
	for _, d := range []track.Density{track.SingleDensity, track.DoubleDensity} {
		t.Run(d.String(), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			v := newFloppy(t, d, 2, 40)

			files := []struct {
				name    string
				content []byte
			}{
				{"HELLO", []byte("10 PRINT \"HELLO\"")},
				{"DATA", pattern(3000, 7)},
				{"EMPTY", nil},
			}
			for _, f := range files {
				if _, err := v.InsertFile(v.Root(), program(f.name), f.content); err != nil {
					t.Fatalf("Failed to insert %s: %v", f.name, err)
				}
			}
			sub, err := v.CreateDirectory(v.Root(), "SUB")
			require.NoError(t, err)
			_, err = v.InsertFile(sub, program("NESTED"), pattern(512, 3))
			require.NoError(t, err)

			if err := v.Save(fs, "/disk.hfe", disk.FormatHFE); err != nil {
				t.Fatalf("Failed to save HFE image: %v", err)
			}
			loaded, format, err := Load(fs, "/disk.hfe", nil)
			if err != nil {
				t.Fatalf("Failed to reload HFE image: %v", err)
			}
			assert.Equal(t, disk.FormatHFE, format)
			assert.Equal(t, d, loaded.Density())

			for _, f := range files {
				tf, err := loaded.File(f.name)
				require.NoError(t, err)
				got, err := loaded.ReadContent(tf)
				require.NoError(t, err)
				assert.Equal(t, len(f.content), len(got), f.name)
				if len(f.content) > 0 {
					assert.Equal(t, f.content, got, f.name)
				}
			}
			nested, err := loaded.File("SUB.NESTED")
			require.NoError(t, err)
			assert.Equal(t, 2, nested.AllocatedSectors())
			assertAllocationInvariant(t, loaded)

			report, err := loaded.FindAllocationFaults()
			require.NoError(t, err)
			assert.True(t, report.OK())

			require.NoError(t, ConvertImage(fs, "/disk.hfe", "/disk.dsk", disk.FormatSectorDump, nil))
			flat, format, err := Load(fs, "/disk.dsk", nil)
			require.NoError(t, err)
			assert.Equal(t, disk.FormatSectorDump, format)
			assert.Equal(t, loaded.AllocatedAUs(), flat.AllocatedAUs())
		})
	}
}

func TestConvertRejectsMismatchedContainers(t *testing.T) {
	fs := afero.NewMemMapFs()
	hd := newHardDisk(t)
	require.NoError(t, hd.Save(fs, "/hd.hdd", disk.FormatHardDisk))
	err := ConvertImage(fs, "/hd.hdd", "/hd.hfe", disk.FormatHFE, nil)
	assert.True(t, errors.Is(err, ErrNotSupported))

	reloaded, format, err := Load(fs, "/hd.hdd", nil)
	require.NoError(t, err)
	assert.Equal(t, disk.FormatHardDisk, format)
	assert.Equal(t, HardDisk, reloaded.Kind())

	fl := newFloppy(t, track.SingleDensity, 1, 40)
	require.NoError(t, fl.Save(fs, "/fl.dsk", disk.FormatSectorDump))
	err = ConvertImage(fs, "/fl.dsk", "/fl.hdd", disk.FormatHardDisk, nil)
	assert.True(t, errors.Is(err, ErrNotSupported))
}
