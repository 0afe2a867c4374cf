// file: cmd/create/create.go

package create

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/disk"
	"github.com/ha1tch/tidisk/pkg/diskimg"
	"github.com/ha1tch/tidisk/pkg/track"
)

// CreateOptions configures the disk creation
type CreateOptions struct {
	Name      string        // Volume name
	Density   track.Density // Floppy density
	Sides     int
	Tracks    int
	Protected bool // Set the volume protection flag

	HardDisk        bool // Create a hard disk volume instead of a floppy
	Cylinders       int
	Heads           int
	SectorsPerTrack int

	Format disk.Format // Container format; derived from the extension if unknown
	Force  bool        // Overwrite existing file
	Quiet  bool        // Suppress non-error output
}

// DefaultCreateOptions returns default options for Create
func DefaultCreateOptions() *CreateOptions {
	return &CreateOptions{
		Name:            "BLANK",
		Density:         track.DoubleDensity,
		Sides:           2,
		Tracks:          40,
		Cylinders:       306,
		Heads:           4,
		SectorsPerTrack: 32,
	}
}

// Create formats a new volume and writes it to outPath
func Create(env *cli.Env, outPath string, opts *CreateOptions) error {
	if opts == nil {
		opts = DefaultCreateOptions()
	}

	outPath = filepath.Clean(outPath)
	if !opts.Force {
		exists, err := afero.Exists(env.Fs, outPath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", outPath)
		}
	}

	format := opts.Format
	if format == disk.FormatUnknown {
		format = disk.FormatForPath(outPath)
		if opts.HardDisk && format == disk.FormatSectorDump {
			format = disk.FormatHardDisk
		}
	}

	var (
		v   *diskimg.Volume
		err error
	)
	if opts.HardDisk {
		v, err = diskimg.FormatHardDisk(diskimg.HardDiskOptions{
			Name:            opts.Name,
			Cylinders:       opts.Cylinders,
			Heads:           opts.Heads,
			SectorsPerTrack: opts.SectorsPerTrack,
		}, env.Log)
	} else {
		v, err = diskimg.FormatFloppy(diskimg.FloppyOptions{
			Name:      opts.Name,
			Density:   opts.Density,
			Sides:     opts.Sides,
			Tracks:    opts.Tracks,
			Protected: opts.Protected,
		}, env.Log)
	}
	if err != nil {
		return fmt.Errorf("failed to format volume: %w", err)
	}

	if v.Kind() == diskimg.HardDisk && format == disk.FormatHFE {
		return fmt.Errorf("%s: %w: HFE holds floppy images only", outPath, diskimg.ErrNotSupported)
	}
	if v.Kind() == diskimg.Floppy && format == disk.FormatHardDisk {
		return fmt.Errorf("%s: %w: use --hard-disk for hard disk images", outPath, diskimg.ErrNotSupported)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := env.Fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := v.Save(env.Fs, outPath, format); err != nil {
		env.Fs.Remove(outPath)
		return fmt.Errorf("failed to save disk image: %w", err)
	}

	if !opts.Quiet {
		env.Printf("Created %s %s image: %s\n", v.Kind(), format, outPath)
		env.Printf("Volume %s, %d sectors, %d free\n", v.Name(), v.TotalSectors(), v.FreeSectors())
	}
	return nil
}

// NewCommand returns the create subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultCreateOptions()
	var density, format string
	cmd := &cobra.Command{
		Use:   "create <image>",
		Short: "Create an empty floppy or hard disk image",
		Long: "Create an empty volume. The container is chosen from the file extension\n" +
			"(.hfe for HFE, .hdd or .raw for hard disks, anything else for a sector dump).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("density") {
				density = env.Settings.Density
			}
			if !cmd.Flags().Changed("sides") {
				opts.Sides = env.Settings.Sides
			}
			if !cmd.Flags().Changed("tracks") {
				opts.Tracks = env.Settings.Tracks
			}
			d, err := parseDensity(density)
			if err != nil {
				return err
			}
			opts.Density = d
			if opts.Format, err = parseFormat(format); err != nil {
				return err
			}
			opts.Name = strings.ToUpper(opts.Name)
			return Create(env, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Name, "name", "n", opts.Name, "volume name")
	f.StringVarP(&density, "density", "d", "DD", "floppy density (SD or DD)")
	f.IntVarP(&opts.Sides, "sides", "s", opts.Sides, "floppy sides (1 or 2)")
	f.IntVarP(&opts.Tracks, "tracks", "t", opts.Tracks, "floppy tracks per side")
	f.BoolVar(&opts.Protected, "protected", false, "set the volume protection flag")
	f.BoolVar(&opts.HardDisk, "hard-disk", false, "create a hard disk volume")
	f.IntVar(&opts.Cylinders, "cylinders", opts.Cylinders, "hard disk cylinders")
	f.IntVar(&opts.Heads, "heads", opts.Heads, "hard disk heads")
	f.IntVar(&opts.SectorsPerTrack, "spt", opts.SectorsPerTrack, "hard disk sectors per track")
	f.StringVar(&format, "format", "", "container format (dsk, hfe, hdd); default from extension")
	f.BoolVarP(&opts.Force, "force", "f", false, "overwrite an existing file")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress non-error output")
	return cmd
}

func parseDensity(s string) (track.Density, error) {
	switch strings.ToUpper(s) {
	case "SD", "SINGLE", "1":
		return track.SingleDensity, nil
	case "DD", "DOUBLE", "2":
		return track.DoubleDensity, nil
	}
	return 0, fmt.Errorf("unknown density %q (use SD or DD)", s)
}

func parseFormat(s string) (disk.Format, error) {
	switch strings.ToLower(s) {
	case "":
		return disk.FormatUnknown, nil
	case "dsk", "dump", "sector":
		return disk.FormatSectorDump, nil
	case "hfe":
		return disk.FormatHFE, nil
	case "hdd", "raw", "hd":
		return disk.FormatHardDisk, nil
	}
	return disk.FormatUnknown, fmt.Errorf("unknown container format %q", s)
}
