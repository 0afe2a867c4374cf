// file: cmd/dir/dir.go

package dir

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/pkg/diskimg"
)

// FileEntry represents a file or subdirectory in the directory listing
type FileEntry struct {
	Name       string    `json:"name"`
	Sectors    int       `json:"sectors"`
	Size       int       `json:"size"`
	Type       string    `json:"type"`
	Protected  bool      `json:"protected,omitempty"`
	Directory  bool      `json:"directory,omitempty"`
	Created    time.Time `json:"created,omitempty"`
	Updated    time.Time `json:"updated,omitempty"`
	Extents    int       `json:"extents,omitempty"`
	FirstAU    int       `json:"first_au,omitempty"`
	Descriptor []int     `json:"descriptor_aus,omitempty"`
}

// Format defines the listing output format
type Format int

const (
	FormatLong  Format = iota // Catalog with sizes, types and dates
	FormatShort               // Names only
	FormatFull                // Catalog plus allocation details
)

// DirOptions configures the directory listing
type DirOptions struct {
	Format  Format
	JSON    bool   // Output in JSON format
	Sort    string // Sort order: name, size, type
	Reverse bool   // Reverse sort order
	Pattern string // Filter by filename pattern
}

// DefaultDirOptions returns default options for Dir
func DefaultDirOptions() *DirOptions {
	return &DirOptions{
		Format:  FormatLong,
		Sort:    "name",
		Pattern: "*",
	}
}

// Dir lists a directory of a disk image
func Dir(env *cli.Env, diskPath string, dirPath string, opts *DirOptions) error {
	if opts == nil {
		opts = DefaultDirOptions()
	}

	h, err := env.Open(diskPath)
	if err != nil {
		return err
	}
	defer env.Close(h)

	d, err := env.Directory(h.Volume, dirPath)
	if err != nil {
		return err
	}
	view := diskimg.NewDirectoryView(d)
	entries, err := Entries(view, opts)
	if err != nil {
		return err
	}

	if opts.JSON {
		encoder := json.NewEncoder(env.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	switch opts.Format {
	case FormatShort:
		outputShort(env, entries)
	case FormatFull:
		outputLong(env, h.Volume, d, entries, true)
	default:
		outputLong(env, h.Volume, d, entries, false)
	}
	return nil
}

// Entries builds the filtered and sorted listing of a view.
func Entries(view *diskimg.DirectoryView, opts *DirOptions) ([]FileEntry, error) {
	files, subdirs, err := view.Entries()
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var entries []FileEntry
	for _, s := range subdirs {
		if matchesPattern(s.Name(), opts.Pattern) {
			entries = append(entries, FileEntry{
				Name:       s.Name(),
				Type:       "DIR",
				Directory:  true,
				Created:    s.Created(),
				Descriptor: s.DescriptorAUs(),
			})
		}
	}
	for _, f := range files {
		if matchesPattern(f.Name(), opts.Pattern) {
			entries = append(entries, fileEntry(f))
		}
	}
	sortEntries(entries, opts)
	return entries, nil
}

func fileEntry(f *diskimg.TFile) FileEntry {
	e := FileEntry{
		Name:       f.Name(),
		Sectors:    f.AllocatedSectors() + len(f.DescriptorAUs()),
		Size:       f.Size(),
		Type:       f.TypeString(),
		Protected:  f.Protected(),
		Created:    f.Created(),
		Updated:    f.Updated(),
		Extents:    len(f.Extents()),
		Descriptor: f.DescriptorAUs(),
	}
	if ext := f.Extents(); len(ext) > 0 {
		e.FirstAU = ext[0].Start
	}
	return e
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	matched, err := filepath.Match(strings.ToUpper(pattern), strings.ToUpper(name))
	return err == nil && matched
}

// sortEntries keeps directories ahead of files.
func sortEntries(entries []FileEntry, opts *DirOptions) {
	less := func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Directory != b.Directory {
			return a.Directory
		}
		var result bool
		switch strings.ToLower(opts.Sort) {
		case "size":
			result = a.Sectors < b.Sectors
		case "type":
			result = a.Type < b.Type
		default: // "name"
			result = a.Name < b.Name
		}
		if opts.Reverse {
			return !result
		}
		return result
	}
	sort.SliceStable(entries, less)
}

func outputShort(env *cli.Env, entries []FileEntry) {
	for _, e := range entries {
		if e.Directory {
			env.Printf("%s.\n", e.Name)
			continue
		}
		env.Printf("%s\n", e.Name)
	}
}

func outputLong(env *cli.Env, v *diskimg.Volume, d *diskimg.Directory, entries []FileEntry, full bool) {
	where := v.Name()
	if !d.IsRoot() {
		where += "." + d.Path()
	}
	env.Printf("Directory of %s\n\n", where)
	if len(entries) == 0 {
		env.Printf("No files found\n")
	}

	used := 0
	for _, e := range entries {
		if e.Directory {
			env.Printf("%-10s %5s  %-12s\n", e.Name, "", "<DIR>")
			continue
		}
		prot := " "
		if e.Protected {
			prot = "P"
		}
		date := ""
		if !e.Updated.IsZero() {
			date = e.Updated.Format("2006-01-02 15:04")
		} else if !e.Created.IsZero() {
			date = e.Created.Format("2006-01-02 15:04")
		}
		env.Printf("%-10s %5d  %-12s %s %7d  %s\n", e.Name, e.Sectors, e.Type, prot, e.Size, date)
		if full {
			env.Printf("%10s fdr %v, %d extents, first AU %d\n", "", e.Descriptor, e.Extents, e.FirstAU)
		}
		used += e.Sectors
	}

	env.Printf("\n%d used + %d free = %d sectors\n", v.TotalSectors()-v.FreeSectors(), v.FreeSectors(), v.TotalSectors())
	if full {
		env.Printf("Listed files use %d sectors\n", used)
	}
}

// NewCommand returns the dir subcommand with its ls and lsf aliases. The
// lsf alias selects the full format.
func NewCommand(env *cli.Env) *cobra.Command {
	opts := DefaultDirOptions()
	var short, full bool
	cmd := &cobra.Command{
		Use:     "dir <image> [directory]",
		Aliases: []string{"ls", "lsf"},
		Short:   "List the files of a directory",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Format = FormatLong
			if env.Settings.ListFormat == "short" {
				opts.Format = FormatShort
			}
			switch {
			case full || cmd.CalledAs() == "lsf":
				opts.Format = FormatFull
			case short:
				opts.Format = FormatShort
			}
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			return Dir(env, args[0], path, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&short, "short", "1", false, "names only")
	f.BoolVarP(&full, "full", "l", false, "show allocation details")
	f.BoolVar(&opts.JSON, "json", false, "output in JSON format")
	f.StringVar(&opts.Sort, "sort", opts.Sort, "sort order: name, size, type")
	f.BoolVarP(&opts.Reverse, "reverse", "r", false, "reverse sort order")
	f.StringVarP(&opts.Pattern, "pattern", "p", opts.Pattern, "filter by name pattern")
	return cmd
}
