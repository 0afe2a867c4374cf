// file: cmd/list/list.go

package list

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/basic"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// ListOptions configures the program listing
type ListOptions struct {
	Escape string // Prefix for non-printable bytes; the settings value if empty
	From   int    // First line number to print
	To     int    // Last line number to print, 0 for no limit
}

// DefaultListOptions returns default options for List
func DefaultListOptions() *ListOptions {
	return &ListOptions{}
}

// List prints a BASIC program file as text
func List(env *cli.Env, diskPath string, path string, opts *ListOptions) error {
	if opts == nil {
		opts = DefaultListOptions()
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
	if f.Type() != diskimg.Program {
		return fmt.Errorf("%s is %s, not a program", f.Path(), f.TypeString())
	}
	content, err := v.ReadContent(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Path(), err)
	}

	prog, err := basic.Parse(content, basic.Options{Escape: esc})
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path(), err)
	}
	for _, line := range prog.Lines {
		if line.Number < opts.From || (opts.To > 0 && line.Number > opts.To) {
			continue
		}
		env.Printf("%s\n", line)
	}
	return nil
}

// NewCommand returns the list subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultListOptions()
	cmd := &cobra.Command{
		Use:   "list <image> <file>",
		Short: "List a BASIC program",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return List(env, args[0], args[1], opts)
		},
	}
	cmd.Flags().IntVar(&opts.From, "from", 0, "first line number")
	cmd.Flags().IntVar(&opts.To, "to", 0, "last line number")
	return cmd
}
