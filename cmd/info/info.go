// file: cmd/info/info.go

package info

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// DiskInfo represents disk information in a structured format
type DiskInfo struct {
	Path         string    `json:"path"`
	Format       string    `json:"format"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name"`
	Geometry     string    `json:"geometry"`
	Density      string    `json:"density,omitempty"`
	TotalSectors int       `json:"total_sectors"`
	SectorsPerAU int       `json:"sectors_per_au"`
	UsedSectors  int       `json:"used_sectors"`
	FreeSectors  int       `json:"free_sectors"`
	Files        int       `json:"files"`
	Directories  int       `json:"directories"`
	Protected    bool      `json:"protected"`
	Created      time.Time `json:"created,omitempty"`
	Validation   []string  `json:"validation_issues,omitempty"`
}

// InfoOptions configures the information display
type InfoOptions struct {
	JSON     bool // Output in JSON format
	Verbose  bool // Show additional details
	Validate bool // Run the allocation audit
	Quiet    bool // Suppress output unless there are issues
}

// DefaultInfoOptions returns default options for Info
func DefaultInfoOptions() *InfoOptions {
	return &InfoOptions{
		Validate: true,
	}
}

// Info displays information about a disk image
func Info(env *cli.Env, diskPath string, opts *InfoOptions) error {
	if opts == nil {
		opts = DefaultInfoOptions()
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)

	info, err := Collect(h, opts.Validate)
	if err != nil {
		return err
	}
	if opts.JSON {
		encoder := json.NewEncoder(env.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}
	outputText(env, info, h.Volume, opts)
	return nil
}

// Collect gathers the summary of an open image.
func Collect(h *diskimg.Handle, validate bool) (*DiskInfo, error) {
	v := h.Volume
	info := &DiskInfo{
		Path:         h.Path,
		Format:       h.Format.String(),
		Kind:         v.Kind().String(),
		Name:         v.Name(),
		Geometry:     v.Geometry().String(),
		TotalSectors: v.TotalSectors(),
		SectorsPerAU: v.SectorsPerAU(),
		FreeSectors:  v.FreeSectors(),
		Protected:    v.Protected(),
		Created:      v.Created(),
	}
	if v.Kind() == diskimg.Floppy {
		info.Density = v.Density().String()
	}
	info.UsedSectors = v.AllocatedAUs() * v.SectorsPerAU()

	err := v.Root().Walk(func(d *diskimg.Directory) error {
		if !d.IsRoot() {
			info.Directories++
		}
		files, err := d.Files()
		if err != nil {
			return err
		}
		info.Files += len(files)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	if validate {
		report, err := v.FindAllocationFaults()
		if err != nil {
			return nil, err
		}
		for _, f := range report.Faults {
			info.Validation = append(info.Validation, f.String())
		}
	}
	return info, nil
}

// outputText writes disk information in human-readable format
func outputText(env *cli.Env, info *DiskInfo, v *diskimg.Volume, opts *InfoOptions) {
	if opts.Quiet && len(info.Validation) == 0 {
		return
	}

	env.Printf("Disk Image: %s\n\n", info.Path)
	env.Printf("Volume:     %s\n", info.Name)
	env.Printf("Format:     %s (%s)\n", info.Kind, info.Format)
	env.Printf("Files:      %d in %d directories\n", info.Files, info.Directories+1)
	env.Printf("Used:       %d sectors\n", info.UsedSectors)
	env.Printf("Free:       %d sectors\n", info.FreeSectors)
	env.Printf("Total:      %d sectors\n", info.TotalSectors)
	if info.Protected {
		env.Printf("Protected:  yes\n")
	}
	if !info.Created.IsZero() {
		env.Printf("Created:    %s\n", info.Created.Format(time.RFC1123))
	}

	if opts.Verbose {
		env.Printf("\nDisk Parameters:\n")
		env.Printf("Geometry:   %s\n", info.Geometry)
		if info.Density != "" {
			env.Printf("Density:    %s\n", info.Density)
		}
		env.Printf("AU size:    %d sectors\n", info.SectorsPerAU)
		env.Printf("AUs:        %d (%d reserved)\n", v.TotalAUs(), v.ReservedAUs())
		env.Printf("Sector Size: %d bytes\n", diskimg.BytesPerSector)
	}

	if len(info.Validation) > 0 {
		env.Printf("\nWarnings:\n")
		for _, warning := range info.Validation {
			env.Printf("- %s\n", warning)
		}
	}
}

// NewCommand returns the info subcommand.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultInfoOptions()
	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Show a volume summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Info(env, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.JSON, "json", false, "output in JSON format")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "show disk parameters")
	f.BoolVar(&opts.Validate, "validate", opts.Validate, "run the allocation audit")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "only print when there are issues")
	return cmd
}
