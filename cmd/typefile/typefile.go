// file: cmd/typefile/typefile.go

package typefile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/codec"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// TypeOptions configures the type operation
type TypeOptions struct {
	Hex    bool   // Always print a hex dump
	Escape string // Prefix for non-printable bytes; the settings value if empty
}

// DefaultTypeOptions returns default options for Type
func DefaultTypeOptions() *TypeOptions {
	return &TypeOptions{}
}

// Type prints the content of a file. DISPLAY records are printed one per
// line; INTERNAL and program files are hex dumped.
func Type(env *cli.Env, diskPath string, path string, opts *TypeOptions) error {
	if opts == nil {
		opts = DefaultTypeOptions()
	}
	esc := opts.Escape
	if esc == "" {
		esc = env.Settings.EscapeChar
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)
	v := h.Volume

	f, err := env.File(v, path)
	if err != nil {
		return err
	}

	if opts.Hex || f.Type() == diskimg.Program || f.Attributes().Internal {
		content, err := v.ReadContent(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Path(), err)
		}
		env.Printf("%s", codec.HexDump(content, 0))
		return nil
	}

	records, err := v.ReadRecords(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Path(), err)
	}
	for _, rec := range records {
		env.Printf("%s\n", codec.Escape(rec, esc))
	}
	return nil
}

// NewCommand returns the type subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultTypeOptions()
	cmd := &cobra.Command{
		Use:     "type <image> <file>",
		Aliases: []string{"cat"},
		Short:   "Print the content of a file",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Type(env, args[0], args[1], opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Hex, "hex", "x", false, "print a hex dump")
	return cmd
}
