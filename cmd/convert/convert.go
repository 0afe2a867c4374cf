// file: cmd/convert/convert.go

package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/disk"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// ConvertOptions configures the container conversion
type ConvertOptions struct {
	Format    disk.Format // Target container; derived from the extension if unknown
	Overwrite bool
	Quiet     bool
}

// DefaultConvertOptions returns default options for Convert
func DefaultConvertOptions() *ConvertOptions {
	return &ConvertOptions{}
}

// Convert rewrites an image in another container format, for example a
// sector dump as HFE.
func Convert(env *cli.Env, srcPath, dstPath string, opts *ConvertOptions) error {
	if opts == nil {
		opts = DefaultConvertOptions()
	}
	if !opts.Overwrite {
		exists, err := afero.Exists(env.Fs, dstPath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("output file already exists: %s (use --overwrite to replace)", dstPath)
		}
	}
	format := opts.Format
	if format == disk.FormatUnknown {
		format = disk.FormatForPath(dstPath)
	}
	if err := diskimg.ConvertImage(env.Fs, srcPath, dstPath, format, env.Log); err != nil {
		err = fmt.Errorf("failed to convert %s: %w", srcPath, err)
		var oerr *diskimg.OpenError
		if errors.As(err, &oerr) {
			return &cli.ResolveError{Err: err}
		}
		return err
	}
	if !opts.Quiet {
		env.Printf("Wrote %s as %s\n", dstPath, format)
	}
	return nil
}

// NewCommand returns the convert subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultConvertOptions()
	var format string
	cmd := &cobra.Command{
		Use:   "convert <image> <output>",
		Short: "Convert an image between sector dump, HFE and hard disk containers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(format) {
			case "":
				opts.Format = disk.FormatUnknown
			case "dsk":
				opts.Format = disk.FormatSectorDump
			case "hfe":
				opts.Format = disk.FormatHFE
			case "hdd":
				opts.Format = disk.FormatHardDisk
			default:
				return fmt.Errorf("unknown container format %q", format)
			}
			return Convert(env, args[0], args[1], opts)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "container format (dsk, hfe, hdd); default from extension")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing output file")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress non-error output")
	return cmd
}
