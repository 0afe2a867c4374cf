package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/tidisk/cmd/check"
	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/internal/config"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// helloProgram is `10 PRINT "HI"` as saved by the console.
var helloProgram = []byte{
	0x00, 0x03, 0x30, 0x03, 0x30, 0x00, 0x30, 0x0B,
	0x00, 0x0A, 0x30, 0x05,
	0x06, 0x9C, 0xC7, 0x02, 'H', 'I', 0x00,
}

type harness struct {
	t   *testing.T
	fs  afero.Fs
	env *cli.Env
	out *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	fs := afero.NewMemMapFs()
	out := &bytes.Buffer{}
	return &harness{t: t, fs: fs, out: out, env: cli.NewEnv(fs, config.Default(), nil, out)}
}

// run executes one command line and returns its output.
func (h *harness) run(args ...string) (string, error) {
	h.out.Reset()
	root := newRootCommand(h.env, "/cfg/tidisk.yaml")
	root.SetArgs(args)
	err := root.Execute()
	return h.out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "tidisk %s", strings.Join(args, " "))
	return out
}

func TestCommandSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/host/hello.prg", helloProgram, 0644))
	require.NoError(t, afero.WriteFile(h.fs, "/host/notes.txt", []byte("FIRST LINE\nSECOND\x01\n"), 0644))

	h.mustRun("create", "--name", "WORK", "/img/work.dsk")
	h.mustRun("add", "--name", "HELLO", "/img/work.dsk", "/host/hello.prg")
	h.mustRun("add", "--type", "dis/var", "/img/work.dsk", "/host/notes.txt")

	out := h.mustRun("dir", "/img/work.dsk")
	assert.Contains(t, out, "Directory of WORK")
	assert.Contains(t, out, "HELLO")
	assert.Contains(t, out, "NOTES")
	assert.Contains(t, out, "DIS/VAR 80")

	out = h.mustRun("ls", "--short", "/img/work.dsk")
	assert.Equal(t, "HELLO\nNOTES\n", out)

	out = h.mustRun("lsf", "/img/work.dsk")
	assert.Contains(t, out, "extents")

	out = h.mustRun("list", "/img/work.dsk", "HELLO")
	assert.Equal(t, "10 PRINT \"HI\"\n", out)

	out = h.mustRun("type", "/img/work.dsk", "NOTES")
	assert.Equal(t, "FIRST LINE\nSECOND\\01\n", out)

	out = h.mustRun("--escape", "^", "type", "/img/work.dsk", "NOTES")
	assert.Equal(t, "FIRST LINE\nSECOND^01\n", out)

	out = h.mustRun("type", "/img/work.dsk", "HELLO")
	assert.True(t, strings.HasPrefix(out, "000000  00 03 30 03"), out)

	h.mustRun("extract", "--dir", "/out", "/img/work.dsk", "HELLO")
	data, err := afero.ReadFile(h.fs, "/out/HELLO.tfi")
	require.NoError(t, err)
	hdr, content, err := diskimg.ParseTfi(data)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", hdr.FileName())
	require.Len(t, content, diskimg.BytesPerSector)
	assert.Equal(t, helloProgram, content[:len(helloProgram)])

	out = h.mustRun("check", "/img/work.dsk")
	assert.Contains(t, out, "No faults found")

	out = h.mustRun("info", "/img/work.dsk")
	assert.Contains(t, out, "Volume:     WORK")
	assert.Contains(t, out, "Files:      2 in 1 directories")

	h.mustRun("delete", "/img/work.dsk", "HELLO")
	out = h.mustRun("ls", "-1", "/img/work.dsk")
	assert.Equal(t, "NOTES\n", out)
}

func TestCommandAddTfiRoundTrip(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/host/hello.prg", helloProgram, 0644))
	h.mustRun("create", "-d", "SD", "-s", "1", "/img/a.dsk")
	h.mustRun("create", "/img/b.hfe")

	h.mustRun("add", "--name", "HELLO", "/img/a.dsk", "/host/hello.prg")
	h.mustRun("extract", "-o", "/host/hello.tfi", "/img/a.dsk", "HELLO")
	h.mustRun("add", "/img/b.hfe", "/host/hello.tfi")

	out := h.mustRun("list", "/img/b.hfe", "HELLO")
	assert.Equal(t, "10 PRINT \"HI\"\n", out)

	_, err := h.run("add", "/img/b.hfe", "/host/hello.tfi")
	assert.ErrorIs(t, err, diskimg.ErrFileExists)
	h.mustRun("add", "--force", "/img/b.hfe", "/host/hello.tfi")
}

func TestCommandConvert(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "--name", "CONV", "/img/c.dsk")
	h.mustRun("convert", "/img/c.dsk", "/img/c.hfe")

	v, format, err := diskimg.Load(h.fs, "/img/c.hfe", nil)
	require.NoError(t, err)
	assert.Equal(t, "HFE", format.String())
	assert.Equal(t, "CONV", v.Name())
}

func TestCommandCheckReportsFaults(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "/img/f.dsk")

	v, _, err := diskimg.Load(h.fs, "/img/f.dsk", nil)
	require.NoError(t, err)
	au := v.TotalAUs() - 1

	// Set the bit of an AU nobody claims in the saved bitmap.
	data, err := afero.ReadFile(h.fs, "/img/f.dsk")
	require.NoError(t, err)
	data[diskimg.FloppyBitmapOffset+au/8] |= 1 << (au % 8)
	require.NoError(t, afero.WriteFile(h.fs, "/img/f.dsk", data, 0644))

	out, err := h.run("check", "/img/f.dsk")
	assert.ErrorIs(t, err, check.ErrFaultsFound)
	assert.Contains(t, out, fmt.Sprintf("AU %d: orphaned", au))

	h.mustRun("check", "--repair", "/img/f.dsk")
	out = h.mustRun("check", "/img/f.dsk")
	assert.Contains(t, out, "No faults found")
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/cfg/tidisk.yaml", []byte("list_format: short\ndensity: SD\nsides: 1\n"), 0644))
	h.mustRun("create", "/img/s.dsk")
	require.NoError(t, afero.WriteFile(h.fs, "/host/hello.prg", helloProgram, 0644))
	h.mustRun("add", "--name", "HELLO", "/img/s.dsk", "/host/hello.prg")

	out := h.mustRun("dir", "/img/s.dsk")
	assert.Equal(t, "HELLO\n", out)

	out = h.mustRun("info", "--verbose", "/img/s.dsk")
	assert.Contains(t, out, "Density:    SD")
}

func TestReport(t *testing.T) {
	var w bytes.Buffer
	assert.Equal(t, 0, report(&w, nil))
	assert.Empty(t, w.String())

	h := newHarness(t)
	_, err := h.run("dir", "/img/missing.dsk")
	require.Error(t, err)
	assert.Equal(t, 0, report(&w, err))
	assert.True(t, strings.HasPrefix(w.String(), "tidisk: "))

	h.mustRun("create", "/img/x.dsk")
	_, err = h.run("type", "/img/x.dsk", "NOPE")
	assert.Equal(t, 0, report(&w, err))
	_, err = h.run("delete", "/img/x.dsk", "NOPE")
	assert.Equal(t, 0, report(&w, err))
	_, err = h.run("convert", "/img/missing.dsk", "/img/y.hfe")
	require.Error(t, err)
	assert.Equal(t, 0, report(&w, err))

	assert.Equal(t, 1, report(&w, errors.New("boom")))
	assert.Equal(t, 1, report(&w, check.ErrFaultsFound))

	// Structural errors met while changing a volume are failures.
	corrupt := fmt.Errorf("failed to delete HELLO: %w",
		&diskimg.FormatError{Sector: 34, Field: "data chain", Err: diskimg.ErrInvalidHeader})
	assert.Equal(t, 1, report(&w, corrupt))
	assert.Equal(t, 1, report(&w, fmt.Errorf("rename: %w", diskimg.ErrFileNotFound)))

	_, err = h.run("add", "/img/x.dsk", "/host/missing.prg")
	require.Error(t, err)
	assert.Equal(t, 1, report(&w, err))
	_, err = h.run("convert", "--format", "hdd", "/img/x.dsk", "/img/x.hdd")
	assert.ErrorIs(t, err, diskimg.ErrNotSupported)
	assert.Equal(t, 1, report(&w, err))
}
