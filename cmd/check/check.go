// file: cmd/check/check.go

package check

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
)

// ErrFaultsFound is returned when the audit finds problems that were not
// repaired.
var ErrFaultsFound = errors.New("allocation faults found")

// CheckOptions configures the allocation audit
type CheckOptions struct {
	Repair bool // Fix the bitmap and save the image
	Quiet  bool // Only print faults
}

// DefaultCheckOptions returns default options for Check
func DefaultCheckOptions() *CheckOptions {
	return &CheckOptions{}
}

// Check audits the allocation bitmap of a disk image against the AUs that
// directories and files claim.
func Check(env *cli.Env, diskPath string, opts *CheckOptions) error {
	if opts == nil {
		opts = DefaultCheckOptions()
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)
	v := h.Volume

	report, err := v.FindAllocationFaults()
	if err != nil {
		return err
	}
	if !opts.Quiet {
		env.Printf("Checked %d allocation units of %s\n", report.Checked, v.Name())
	}
	for _, f := range report.Faults {
		env.Printf("%s\n", f)
	}
	if report.OK() {
		if !opts.Quiet {
			env.Printf("No faults found\n")
		}
		return nil
	}

	if !opts.Repair {
		return ErrFaultsFound
	}
	fixed, err := v.Repair(report)
	if err != nil {
		return err
	}
	if fixed > 0 {
		if err := env.Save(h); err != nil {
			return err
		}
	}
	if !opts.Quiet {
		env.Printf("Repaired %d allocation units\n", fixed)
	}
	if fixed < len(report.Faults) {
		return ErrFaultsFound
	}
	return nil
}

// NewCommand returns the check subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultCheckOptions()
	cmd := &cobra.Command{
		Use:   "check <image>",
		Short: "Audit the allocation bitmap",
		Long: "Compare the allocation bitmap with the allocation units claimed by\n" +
			"directories and files. Orphaned and unallocated units can be repaired;\n" +
			"cross-allocated and out of range units are only reported.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Check(env, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Repair, "repair", false, "fix orphaned and unallocated units")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "only print faults")
	return cmd
}
