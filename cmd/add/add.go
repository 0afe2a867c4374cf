// file: cmd/add/add.go

package add

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// Mode selects how the host file is interpreted
type Mode int

const (
	// ModeAuto imports TIFILES files as such and everything else as raw
	ModeAuto Mode = iota
	// ModeTfi requires a TIFILES header
	ModeTfi
	// ModeRaw takes the host file as headerless content
	ModeRaw
)

// AddOptions configures the Add operation
type AddOptions struct {
	Mode         Mode
	Name         string // Name on the volume, derived from the host name if empty
	Dir          string // Dotted path of the target directory
	Type         diskimg.FileType
	Internal     bool
	RecordLength int
	Force        bool // Replace an existing file
	Quiet        bool // Suppress non-error output
}

// DefaultAddOptions returns default options for Add
func DefaultAddOptions() *AddOptions {
	return &AddOptions{
		Mode:         ModeAuto,
		Type:         diskimg.Program,
		RecordLength: 80,
	}
}

// Add imports a host file into the disk image
func Add(env *cli.Env, diskPath string, filePath string, opts *AddOptions) error {
	if opts == nil {
		opts = DefaultAddOptions()
	}

	tfi, err := isTfi(env, filePath)
	if err != nil {
		return fmt.Errorf("input file: %w", err)
	}
	mode := opts.Mode
	if mode == ModeAuto {
		mode = ModeRaw
		if tfi {
			mode = ModeTfi
		}
	}
	if mode == ModeTfi && !tfi {
		return fmt.Errorf("%s: %w: missing TIFILES signature", filePath, diskimg.ErrInvalidHeader)
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)
	v := h.Volume

	dir, err := env.Directory(v, opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to find directory %q: %w", opts.Dir, err)
	}

	iopts := &diskimg.ImportOptions{
		Name:         opts.Name,
		Type:         opts.Type,
		Internal:     opts.Internal,
		RecordLength: opts.RecordLength,
		Replace:      opts.Force,
	}
	var f *diskimg.TFile
	if mode == ModeTfi {
		f, err = v.ImportTfi(env.Fs, filePath, dir, iopts)
	} else {
		f, err = v.ImportRaw(env.Fs, filePath, dir, iopts)
	}
	if err != nil {
		return fmt.Errorf("failed to import file: %w", err)
	}

	if err := env.Save(h); err != nil {
		return err
	}
	if !opts.Quiet {
		env.Printf("Added %s as %s (%s, %d sectors)\n", filepath.Base(filePath), f.Path(), f.TypeString(), f.AllocatedSectors())
	}
	return nil
}

// isTfi reports whether the host file starts with the TIFILES signature.
func isTfi(env *cli.Env, path string) (bool, error) {
	fh, err := env.Fs.Open(path)
	if err != nil {
		return false, err
	}
	defer fh.Close()
	sig := make([]byte, len(diskimg.TfiSignature))
	if _, err := io.ReadFull(fh, sig); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(sig, []byte(diskimg.TfiSignature)), nil
}

// NewCommand returns the add subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultAddOptions()
	var mode, fileType string
	cmd := &cobra.Command{
		Use:   "add <image> <host-file>",
		Short: "Import a TIFILES or plain host file into an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Mode, err = parseMode(mode); err != nil {
				return err
			}
			if opts.Type, opts.Internal, err = parseType(fileType); err != nil {
				return err
			}
			return Add(env, args[0], args[1], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&mode, "mode", "auto", "input format: auto, tfi or raw")
	f.StringVarP(&opts.Name, "name", "n", "", "file name on the volume")
	f.StringVar(&opts.Dir, "dir", "", "target directory (dotted path)")
	f.StringVarP(&fileType, "type", "t", "program", "raw file type: program, dis/fix, dis/var, int/fix, int/var")
	f.IntVarP(&opts.RecordLength, "reclen", "r", opts.RecordLength, "record length of raw data files")
	f.BoolVarP(&opts.Force, "force", "f", false, "replace an existing file")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress non-error output")
	return cmd
}

func parseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return ModeAuto, nil
	case "tfi", "tifiles":
		return ModeTfi, nil
	case "raw":
		return ModeRaw, nil
	}
	return ModeAuto, fmt.Errorf("unknown mode %q", s)
}

func parseType(s string) (diskimg.FileType, bool, error) {
	switch strings.ToLower(s) {
	case "program", "prog":
		return diskimg.Program, false, nil
	case "dis/fix", "fix":
		return diskimg.DataFixed, false, nil
	case "dis/var", "var":
		return diskimg.DataVariable, false, nil
	case "int/fix":
		return diskimg.DataFixed, true, nil
	case "int/var":
		return diskimg.DataVariable, true, nil
	}
	return 0, false, fmt.Errorf("unknown file type %q", s)
}
