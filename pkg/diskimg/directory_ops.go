// file: pkg/diskimg/directory_ops.go

package diskimg

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// maxSubdirs returns how many subdirectories d may hold.
func (d *Directory) maxSubdirs() int {
	switch {
	case d.vol.kind == Floppy && d.parent == nil:
		return FloppyMaxSubdirs
	case d.vol.kind == Floppy:
		return 0
	case d.parent == nil:
		return HardDiskMaxSubdirs
	}
	return DDRMaxSubdirs
}

// CreateDirectory adds an empty subdirectory to parent. Floppy volumes only
// have subdirectories below the root.
func (v *Volume) CreateDirectory(parent *Directory, name string) (*Directory, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := parent.ensureLoaded(); err != nil {
		return nil, err
	}
	path := joinPath(parent.Path(), name)
	limit := parent.maxSubdirs()
	if limit == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNotSupported)
	}
	if parent.nameTaken(name) {
		return nil, fmt.Errorf("%s: %w", path, ErrFileExists)
	}
	if len(parent.subdirs) >= limit {
		return nil, fmt.Errorf("%s: %w", parent.Path(), ErrDirectoryFull)
	}

	d := &Directory{vol: v, name: name, parent: parent, created: time.Now(), loaded: true, dirty: true}
	descriptors := 1
	if v.kind == HardDisk {
		descriptors = 2
	}
	if err := v.checkFree(descriptors); err != nil {
		return nil, err
	}
	saved := v.alloc.Clone()
	aus := make([]int, descriptors)
	for i := range aus {
		au, err := v.allocateDescriptor()
		if err != nil {
			v.alloc = saved
			return nil, err
		}
		aus[i] = au
	}
	if v.kind == HardDisk {
		d.ddrAU, d.fdirAU = aus[0], aus[1]
	} else {
		d.fdirAU = aus[0]
	}

	parent.subdirs = append(parent.subdirs, d)
	parent.sortSubdirs()
	parent.dirty = true
	v.touch("create directory", zap.String("path", d.Path()), zap.Ints("aus", aus))
	return d, nil
}

// RemoveDirectory deletes an empty subdirectory of parent.
func (v *Volume) RemoveDirectory(parent *Directory, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := parent.ensureLoaded(); err != nil {
		return err
	}
	d := parent.findSubdir(name)
	if d == nil {
		return fmt.Errorf("%s: %w", joinPath(parent.Path(), name), ErrDirectoryNotFound)
	}
	if err := d.ensureLoaded(); err != nil {
		return err
	}
	if len(d.files) > 0 || len(d.subdirs) > 0 {
		return fmt.Errorf("%s: %w", d.Path(), ErrDirectoryNotEmpty)
	}
	saved := v.alloc.Clone()
	for _, au := range d.DescriptorAUs() {
		if _, err := v.alloc.Release(au); err != nil {
			v.alloc = saved
			return err
		}
	}
	for i, s := range parent.subdirs {
		if s == d {
			parent.subdirs = append(parent.subdirs[:i], parent.subdirs[i+1:]...)
			break
		}
	}
	parent.dirty = true
	v.touch("remove directory", zap.String("path", d.Path()))
	return nil
}

// RenameDirectory changes the name of a subdirectory of parent.
func (v *Volume) RenameDirectory(parent *Directory, oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := parent.ensureLoaded(); err != nil {
		return err
	}
	d := parent.findSubdir(oldName)
	if d == nil {
		return fmt.Errorf("%s: %w", joinPath(parent.Path(), oldName), ErrDirectoryNotFound)
	}
	if oldName == newName {
		return nil
	}
	if parent.nameTaken(newName) {
		return fmt.Errorf("%s: %w", joinPath(parent.Path(), newName), ErrFileExists)
	}
	d.name = newName
	d.dirty = true
	parent.sortSubdirs()
	parent.dirty = true
	v.touch("rename directory", zap.String("from", oldName), zap.String("to", d.Path()))
	return nil
}

// Lookup resolves a dotted path to a directory or a file. Exactly one of
// the results is set when err is nil.
func (v *Volume) Lookup(path string) (*Directory, *TFile, error) {
	parts := splitPath(path)
	d := v.root
	for i, part := range parts {
		sub, err := d.Subdirectory(part)
		if err == nil {
			d = sub
			continue
		}
		if i < len(parts)-1 {
			return nil, nil, err
		}
		f, ferr := d.File(part)
		if ferr != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, f, nil
	}
	return d, nil, nil
}
