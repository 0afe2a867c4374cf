// file: cmd/delete/delete.go

package delete

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
)

// DeleteOptions configures the deletion operation
type DeleteOptions struct {
	Force bool // Remove the protection flag first
	Quiet bool // Suppress non-error output
}

// DefaultDeleteOptions returns default options for Delete
func DefaultDeleteOptions() *DeleteOptions {
	return &DeleteOptions{}
}

// Delete removes a file or an empty directory from the disk image
func Delete(env *cli.Env, diskPath string, path string, opts *DeleteOptions) error {
	if opts == nil {
		opts = DefaultDeleteOptions()
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
	v := h.Volume

	dir, f, err := env.Lookup(v, path)
	if err != nil {
		return err
	}
	switch {
	case f != nil:
		if f.Protected() {
			if !opts.Force {
				return fmt.Errorf("file is protected: %s (use --force to delete)", f.Path())
			}
			v.SetFileProtection(f, false)
		}
		if err := v.DeleteFile(f.Directory(), f.Name()); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	case dir.IsRoot():
		return fmt.Errorf("cannot delete the root directory")
	default:
		if err := v.RemoveDirectory(dir.Parent(), dir.Name()); err != nil {
			return fmt.Errorf("failed to delete directory: %w", err)
		}
	}

	if err := env.Save(h); err != nil {
		return err
	}
	if !opts.Quiet {
		env.Printf("Deleted %s\n", path)
	}
	return nil
}

// NewCommand returns the delete subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultDeleteOptions()
	cmd := &cobra.Command{
		Use:     "delete <image> <path>",
		Aliases: []string{"rm", "del"},
		Short:   "Delete a file or an empty directory",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Delete(env, args[0], args[1], opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "delete protected files")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress non-error output")
	return cmd
}
