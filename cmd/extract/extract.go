// file: cmd/extract/extract.go

package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// ExtractOptions configures the file extraction operation
type ExtractOptions struct {
	Raw       bool   // Write the content without a TIFILES header
	OutputDir string // Directory to extract files to
	Output    string // Output file name, derived from the volume name if empty
	Overwrite bool   // Allow overwriting existing files
	Quiet     bool   // Suppress non-error output
}

// DefaultExtractOptions returns default options for Extract
func DefaultExtractOptions() *ExtractOptions {
	return &ExtractOptions{}
}

// Extract copies a file from the disk image to the host filesystem
func Extract(env *cli.Env, diskPath string, path string, opts *ExtractOptions) error {
	if opts == nil {
		opts = DefaultExtractOptions()
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)

	f, err := env.File(h.Volume, path)
	if err != nil {
		return err
	}
	return extractFile(env, h.Volume, f, opts)
}

func extractFile(env *cli.Env, v *diskimg.Volume, f *diskimg.TFile, opts *ExtractOptions) error {
	outPath := opts.Output
	if outPath == "" {
		outPath = f.Name()
		if opts.Raw && f.Type() == diskimg.DataVariable {
			outPath += ".txt"
		} else if !opts.Raw {
			outPath += ".tfi"
		}
	}
	if opts.OutputDir != "" {
		if err := env.Fs.MkdirAll(opts.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		outPath = filepath.Join(opts.OutputDir, outPath)
	}

	if !opts.Overwrite {
		exists, err := afero.Exists(env.Fs, outPath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("output file already exists: %s (use --overwrite to replace)", outPath)
		}
	}

	var err error
	if opts.Raw {
		err = v.ExportRaw(env.Fs, f, outPath)
	} else {
		err = v.ExportTfi(env.Fs, f, outPath)
	}
	if err != nil {
		env.Fs.Remove(outPath)
		return fmt.Errorf("failed to extract %s: %w", f.Path(), err)
	}

	if !opts.Quiet {
		env.Printf("Extracted %s to %s\n", f.Path(), outPath)
	}
	return nil
}

// ExtractAll extracts every file of a directory from the disk image
func ExtractAll(env *cli.Env, diskPath string, dirPath string, opts *ExtractOptions) error {
	if opts == nil {
		opts = DefaultExtractOptions()
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)

	dir, err := env.Directory(h.Volume, dirPath)
	if err != nil {
		return err
	}
	files, err := dir.Files()
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	each := *opts
	each.Output = ""
	for _, f := range files {
		if err := extractFile(env, h.Volume, f, &each); err != nil {
			return err
		}
	}

	if !opts.Quiet {
		env.Printf("Extracted %d files from disk image\n", len(files))
	}
	return nil
}

// NewCommand returns the extract subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultExtractOptions()
	var all bool
	cmd := &cobra.Command{
		Use:   "extract <image> [path]",
		Short: "Export files as TIFILES or plain host files",
		Long: "Export one file, or with --all every file of a directory. Files are\n" +
			"written as TIFILES unless --raw is given; raw variable files become text.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			if all {
				return ExtractAll(env, args[0], path, opts)
			}
			if path == "" {
				return fmt.Errorf("no file given (use --all to extract a directory)")
			}
			return Extract(env, args[0], path, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&all, "all", "a", false, "extract every file of the directory")
	f.BoolVar(&opts.Raw, "raw", false, "write content without a TIFILES header")
	f.StringVarP(&opts.OutputDir, "dir", "d", "", "output directory")
	f.StringVarP(&opts.Output, "output", "o", "", "output file name")
	f.BoolVar(&opts.Overwrite, "overwrite", false, "replace existing host files")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress non-error output")
	return cmd
}
