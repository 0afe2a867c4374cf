// file: pkg/diskimg/directory.go

package diskimg

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ha1tch/tidisk/pkg/codec"
)

// Hard disk directory descriptor record offsets
const (
	ddrName      = 0x00
	ddrTotalAUs  = 0x0A
	ddrSPT       = 0x0C
	ddrSignature = 0x0D
	ddrCreated   = 0x10
	ddrFileCount = 0x18
	ddrDirCount  = 0x19
	ddrFDIR      = 0x1A
	ddrParent    = 0x1C
	ddrSubdirs   = 0x1E
	fdirOwnerDDR = 0xFE
	fdirPointers = MaxFilesPerDirectory
)

// subdirRef is a subdirectory known by its descriptor but not read yet.
type subdirRef struct {
	name string
	au   int
}

// Directory is a node of the volume tree. Its children are read from the
// medium on first access.
type Directory struct {
	vol    *Volume
	name   string
	parent *Directory

	// ddrAU is the directory descriptor of a hard disk subdirectory.
	// fdirAU is the file index; it is unused for the floppy root, whose
	// index is always sector 1.
	ddrAU   int
	fdirAU  int
	created time.Time

	loadMu  sync.Mutex
	loaded  bool
	pending []subdirRef
	files   []*TFile
	subdirs []*Directory

	dirty bool
}

func (d *Directory) Name() string {
	return d.name
}

func (d *Directory) Parent() *Directory {
	return d.parent
}

func (d *Directory) IsRoot() bool {
	return d.parent == nil
}

func (d *Directory) Volume() *Volume {
	return d.vol
}

func (d *Directory) Created() time.Time {
	return d.created
}

// Path returns the dotted path from the root; the root itself is "".
func (d *Directory) Path() string {
	if d.parent == nil {
		return ""
	}
	if d.parent.parent == nil {
		return d.name
	}
	return d.parent.Path() + "." + d.name
}

// DescriptorAUs lists the AUs this directory's own records occupy outside
// the reserved area.
func (d *Directory) DescriptorAUs() []int {
	switch {
	case d.vol.kind == Floppy && d.parent == nil:
		return nil
	case d.vol.kind == Floppy, d.parent == nil:
		return []int{d.fdirAU}
	}
	return []int{d.ddrAU, d.fdirAU}
}

func (d *Directory) fdirSector() int {
	if d.vol.kind == Floppy && d.parent == nil {
		return FloppyRootFDIR
	}
	return d.fdirAU * d.vol.sectorsPerAU
}

// Files returns the files of the directory in catalog order.
func (d *Directory) Files() ([]*TFile, error) {
	d.vol.mu.RLock()
	defer d.vol.mu.RUnlock()
	if err := d.ensureLoaded(); err != nil {
		return nil, err
	}
	return append([]*TFile(nil), d.files...), nil
}

// Subdirectories returns the child directories in catalog order.
func (d *Directory) Subdirectories() ([]*Directory, error) {
	d.vol.mu.RLock()
	defer d.vol.mu.RUnlock()
	if err := d.ensureLoaded(); err != nil {
		return nil, err
	}
	return append([]*Directory(nil), d.subdirs...), nil
}

// File returns the file called name.
func (d *Directory) File(name string) (*TFile, error) {
	d.vol.mu.RLock()
	defer d.vol.mu.RUnlock()
	if err := d.ensureLoaded(); err != nil {
		return nil, err
	}
	if f := d.findFile(name); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%s: %w", joinPath(d.Path(), name), ErrFileNotFound)
}

// Subdirectory returns the child directory called name.
func (d *Directory) Subdirectory(name string) (*Directory, error) {
	d.vol.mu.RLock()
	defer d.vol.mu.RUnlock()
	if err := d.ensureLoaded(); err != nil {
		return nil, err
	}
	if s := d.findSubdir(name); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%s: %w", joinPath(d.Path(), name), ErrDirectoryNotFound)
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "." + name
}

func (d *Directory) findFile(name string) *TFile {
	for _, f := range d.files {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (d *Directory) findSubdir(name string) *Directory {
	for _, s := range d.subdirs {
		if s.name == name {
			return s
		}
	}
	return nil
}

// nameTaken reports whether a file or subdirectory already uses name.
func (d *Directory) nameTaken(name string) bool {
	return d.findFile(name) != nil || d.findSubdir(name) != nil
}

func (d *Directory) removeFile(f *TFile) {
	for i, g := range d.files {
		if g == f {
			d.files = append(d.files[:i], d.files[i+1:]...)
			break
		}
	}
	d.dirty = true
}

func (d *Directory) sortFiles() {
	sort.Slice(d.files, func(i, j int) bool { return d.files[i].name < d.files[j].name })
}

func (d *Directory) sortSubdirs() {
	sort.Slice(d.subdirs, func(i, j int) bool { return d.subdirs[i].name < d.subdirs[j].name })
}

// ensureLoaded reads the file index and subdirectory descriptors once.
func (d *Directory) ensureLoaded() error {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()
	if d.loaded {
		return nil
	}
	v := d.vol

	var files []*TFile
	buf, err := v.store.ReadSector(d.fdirSector())
	if err != nil {
		return fmt.Errorf("failed to read file index of %q: %w", d.Path(), err)
	}
	for i := 0; i < fdirPointers; i++ {
		ptr := codec.GetInt16(buf, 2*i)
		if ptr == 0 {
			break
		}
		var f *TFile
		switch v.kind {
		case Floppy:
			if ptr%v.sectorsPerAU != 0 || ptr/v.sectorsPerAU >= v.alloc.Len() {
				return &FormatError{Sector: d.fdirSector(), Field: "file index", Err: errBadChain}
			}
			f, err = v.readFloppyFile(d, ptr/v.sectorsPerAU)
		case HardDisk:
			f, err = v.readHardDiskFile(d, ptr)
		}
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	var subdirs []*Directory
	for _, ref := range d.pending {
		var sub *Directory
		switch v.kind {
		case Floppy:
			sub = &Directory{vol: v, name: ref.name, parent: d, fdirAU: ref.au}
		case HardDisk:
			sub, err = v.readDDR(d, ref.au)
			if err != nil {
				return err
			}
		}
		subdirs = append(subdirs, sub)
	}

	d.files, d.subdirs, d.pending = files, subdirs, nil
	d.sortFiles()
	d.sortSubdirs()
	d.loaded = true
	return nil
}

// readDDR parses a hard disk directory descriptor record.
func (v *Volume) readDDR(parent *Directory, au int) (*Directory, error) {
	if au <= 0 || au >= v.alloc.Len() {
		return nil, &BoundsError{AU: au, Limit: v.alloc.Len()}
	}
	buf, err := v.readAU(au)
	if err != nil {
		return nil, err
	}
	sector := au * v.sectorsPerAU
	if string(buf[ddrSignature:ddrSignature+3]) != "DIR" {
		return nil, &FormatError{Sector: sector, Field: "directory signature", Err: ErrInvalidHeader}
	}
	d := &Directory{
		vol:     v,
		name:    decodeName(buf, ddrName),
		parent:  parent,
		ddrAU:   au,
		fdirAU:  codec.GetInt16(buf, ddrFDIR),
		created: codec.GetTime(buf, ddrCreated),
	}
	if err := ValidateName(d.name); err != nil {
		return nil, &FormatError{Sector: sector, Field: "directory name", Err: err}
	}
	n := int(buf[ddrDirCount])
	for i := 0; i < DDRMaxSubdirs && i < n; i++ {
		ptr := codec.GetInt16(buf, ddrSubdirs+2*i)
		if ptr == 0 {
			break
		}
		d.pending = append(d.pending, subdirRef{au: ptr})
	}
	return d, nil
}

// encodeFDIR serialises the file index of d.
func (v *Volume) encodeFDIR(d *Directory) []byte {
	buf := make([]byte, BytesPerSector)
	for i, f := range d.files {
		ptr := f.fibs[0]
		if v.kind == Floppy {
			ptr *= v.sectorsPerAU
		}
		codec.SetInt16(buf, 2*i, ptr)
	}
	if v.kind == HardDisk {
		codec.SetInt16(buf, fdirOwnerDDR, d.ddrAU)
	}
	return buf
}

func (v *Volume) encodeDDR(d *Directory) []byte {
	buf := make([]byte, BytesPerSector)
	encodeName(buf, ddrName, d.name)
	codec.SetInt16(buf, ddrTotalAUs, v.alloc.Len())
	buf[ddrSPT] = byte(v.geometry.SectorsPerTrack)
	copy(buf[ddrSignature:], "DIR")
	codec.PutTime(buf, ddrCreated, d.created)
	buf[ddrFileCount] = byte(len(d.files))
	buf[ddrDirCount] = byte(len(d.subdirs))
	codec.SetInt16(buf, ddrFDIR, d.fdirAU)
	if d.parent != nil {
		codec.SetInt16(buf, ddrParent, d.parent.ddrAU)
	}
	for i, s := range d.subdirs {
		codec.SetInt16(buf, ddrSubdirs+2*i, s.ddrAU)
	}
	return buf
}

// Directory resolves a dotted path such as "GAMES.OLD" from the root.
func (v *Volume) Directory(path string) (*Directory, error) {
	d := v.root
	for _, part := range splitPath(path) {
		sub, err := d.Subdirectory(part)
		if err != nil {
			return nil, err
		}
		d = sub
	}
	return d, nil
}

// File resolves a dotted path whose last component is a file.
func (v *Volume) File(path string) (*TFile, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%q: %w", path, ErrFileNotFound)
	}
	d, err := v.Directory(strings.Join(parts[:len(parts)-1], "."))
	if err != nil {
		return nil, err
	}
	return d.File(parts[len(parts)-1])
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Walk visits d and every directory below it, parents first. The tree is
// collected under the read lock and fn runs without it, so fn may call
// other Volume methods.
func (d *Directory) Walk(fn func(*Directory) error) error {
	var dirs []*Directory
	d.vol.mu.RLock()
	err := d.walk(func(s *Directory) error {
		dirs = append(dirs, s)
		return nil
	})
	d.vol.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, s := range dirs {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// walk is Walk for callers already holding the volume lock.
func (d *Directory) walk(fn func(*Directory) error) error {
	if err := d.ensureLoaded(); err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	for _, s := range d.subdirs {
		if err := s.walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// walkLoaded visits the directories already read from the medium. Changed
// directories are always among them.
func (d *Directory) walkLoaded(fn func(*Directory) error) error {
	if !d.loaded {
		return nil
	}
	if err := fn(d); err != nil {
		return err
	}
	for _, s := range d.subdirs {
		if err := s.walkLoaded(fn); err != nil {
			return err
		}
	}
	return nil
}
