// file: pkg/diskimg/file_ops.go

package diskimg

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Validate checks the descriptor fields of a new file.
func (s *FileSpec) Validate() error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	switch s.Type {
	case Program:
	case DataFixed, DataVariable:
		if s.RecordLength < 1 || s.RecordLength > 255 {
			return &ValidationError{Field: "RecordLength", Message: fmt.Sprintf("must be between 1 and 255, got %d", s.RecordLength)}
		}
	default:
		return &ValidationError{Field: "Type", Message: fmt.Sprintf("unknown file type %d", int(s.Type))}
	}
	if s.EOFOffset < 0 || s.EOFOffset > 255 {
		return &ValidationError{Field: "EOFOffset", Message: fmt.Sprintf("must be between 0 and 255, got %d", s.EOFOffset)}
	}
	return nil
}

// InsertFile creates a file in dir holding content. Program files end at
// the last content byte unless spec gives an end of file offset.
func (v *Volume) InsertFile(dir *Directory, spec FileSpec, content []byte) (*TFile, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := dir.ensureLoaded(); err != nil {
		return nil, err
	}
	f, err := v.insertFile(dir, spec, content)
	if err != nil {
		return nil, err
	}
	v.touch("insert file", zap.String("path", f.Path()), zap.Int("sectors", f.sectors), zap.Stringer("extents", extentList(f.extents)))
	return f, nil
}

// ReplaceFile is InsertFile for a name that may already be in use by a
// file. The old file is removed and the new one inserted as one change;
// when the insert fails the old file stays as it was.
func (v *Volume) ReplaceFile(dir *Directory, spec FileSpec, content []byte) (*TFile, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := dir.ensureLoaded(); err != nil {
		return nil, err
	}
	old := dir.findFile(spec.Name)
	if old == nil {
		f, err := v.insertFile(dir, spec, content)
		if err != nil {
			return nil, err
		}
		v.touch("insert file", zap.String("path", f.Path()), zap.Int("sectors", f.sectors))
		return f, nil
	}
	if old.attrs.Protected {
		return nil, fmt.Errorf("%s: %w", old.Path(), ErrReadOnly)
	}

	saved := v.alloc.Clone()
	files := append([]*TFile(nil), dir.files...)
	wasDirty := dir.dirty
	if err := v.releaseFile(old); err != nil {
		v.alloc = saved
		return nil, err
	}
	dir.removeFile(old)
	f, err := v.insertFile(dir, spec, content)
	if err != nil {
		v.alloc = saved
		dir.files = files
		dir.dirty = wasDirty
		return nil, err
	}
	v.touch("replace file", zap.String("path", f.Path()), zap.Int("sectors", f.sectors), zap.Stringer("extents", extentList(f.extents)))
	return f, nil
}

// insertFile does the work of InsertFile without touching the volume. The
// caller holds the write lock and has loaded dir.
func (v *Volume) insertFile(dir *Directory, spec FileSpec, content []byte) (*TFile, error) {
	path := joinPath(dir.Path(), spec.Name)
	if dir.nameTaken(spec.Name) {
		return nil, fmt.Errorf("%s: %w", path, ErrFileExists)
	}
	if len(dir.files) >= MaxFilesPerDirectory {
		return nil, fmt.Errorf("%s: %w", dir.Path(), ErrDirectoryFull)
	}

	sectors := (len(content) + BytesPerSector - 1) / BytesPerSector
	if err := v.checkFree(v.auCount(sectors) + 1); err != nil {
		return nil, err
	}

	now := time.Now()
	f := &TFile{
		dir:              dir,
		name:             spec.Name,
		attrs:            FileAttributes{Type: spec.Type, Internal: spec.Internal, Protected: spec.Protected},
		recordLength:     spec.RecordLength,
		recordsPerSector: spec.RecordsPerSector,
		eofOffset:        spec.EOFOffset,
		l3Records:        spec.L3Records,
		sectors:          sectors,
		created:          spec.Created,
		updated:          spec.Updated,
		dirty:            true,
	}
	if f.recordsPerSector == 0 {
		f.recordsPerSector = RecordsPerSector(spec.Type, spec.RecordLength)
	}
	if spec.Type == Program && spec.EOFOffset == 0 {
		f.eofOffset = len(content) % BytesPerSector
	}
	if f.created.IsZero() {
		f.created = now
	}
	if f.updated.IsZero() {
		f.updated = now
	}

	saved := v.alloc.Clone()
	if err := v.layoutNewFile(f, sectors); err != nil {
		v.alloc = saved
		return nil, err
	}
	if err := v.writeContent(f, content); err != nil {
		v.alloc = saved
		return nil, err
	}

	dir.files = append(dir.files, f)
	dir.sortFiles()
	dir.dirty = true
	return f, nil
}

// layoutNewFile allocates the descriptor and the data AUs of f. The floppy
// descriptor comes first so it sits in front of the data.
func (v *Volume) layoutNewFile(f *TFile, sectors int) error {
	fib, err := v.allocateDescriptor()
	if err != nil {
		return err
	}
	l := fileLayout{fibs: []int{fib}}
	if err := v.grow(&l, v.auCount(sectors)); err != nil {
		return err
	}
	if err := v.fitDescriptors(&l); err != nil {
		return err
	}
	l.apply(f)
	return nil
}

// DeleteFile removes a file and frees its AUs.
func (v *Volume) DeleteFile(dir *Directory, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := dir.ensureLoaded(); err != nil {
		return err
	}
	f := dir.findFile(name)
	if f == nil {
		return fmt.Errorf("%s: %w", joinPath(dir.Path(), name), ErrFileNotFound)
	}
	if f.attrs.Protected {
		return fmt.Errorf("%s: %w", f.Path(), ErrReadOnly)
	}
	saved := v.alloc.Clone()
	if err := v.releaseFile(f); err != nil {
		v.alloc = saved
		return err
	}
	dir.removeFile(f)
	v.touch("delete file", zap.String("path", f.Path()))
	return nil
}

// ExtendFile appends additional sectors to f. The new sectors keep
// whatever the medium held before.
func (v *Volume) ExtendFile(f *TFile, additionalSectors int) error {
	if additionalSectors < 0 {
		return &ValidationError{Field: "additionalSectors", Message: "must not be negative"}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if f.attrs.Protected {
		return fmt.Errorf("%s: %w", f.Path(), ErrReadOnly)
	}
	saved := v.alloc.Clone()
	if err := v.resize(f, f.sectors+additionalSectors); err != nil {
		v.alloc = saved
		return err
	}
	f.updated = time.Now()
	v.touch("extend file", zap.String("path", f.Path()), zap.Int("sectors", f.sectors))
	return nil
}

// WriteFileContent replaces the content of f, growing or shrinking its
// allocation to fit.
func (v *Volume) WriteFileContent(f *TFile, content []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f.attrs.Protected {
		return fmt.Errorf("%s: %w", f.Path(), ErrReadOnly)
	}
	saved := v.alloc.Clone()
	old := layoutOf(f)
	oldSectors := f.sectors
	sectors := (len(content) + BytesPerSector - 1) / BytesPerSector
	if err := v.resize(f, sectors); err != nil {
		v.alloc = saved
		return err
	}
	if err := v.writeContent(f, content); err != nil {
		v.alloc = saved
		old.apply(f)
		f.sectors = oldSectors
		return err
	}
	if f.attrs.Type == Program {
		f.eofOffset = len(content) % BytesPerSector
	}
	f.attrs.Modified = true
	f.updated = time.Now()
	v.touch("write file", zap.String("path", f.Path()), zap.Int("bytes", len(content)))
	return nil
}

// resize changes the number of data sectors of f. The layout of f only
// changes when every allocation succeeded.
func (v *Volume) resize(f *TFile, sectors int) error {
	l := layoutOf(f)
	need := v.auCount(sectors)
	have := l.extents.Total()
	switch {
	case need > have:
		if err := v.checkFree(need - have); err != nil {
			return err
		}
		if err := v.grow(&l, need-have); err != nil {
			return err
		}
	case need < have:
		if err := v.shrink(&l, need); err != nil {
			return err
		}
	}
	if err := v.fitDescriptors(&l); err != nil {
		return err
	}
	l.apply(f)
	f.sectors = sectors
	f.dirty = true
	return nil
}

// RenameFile changes the name of a file.
func (v *Volume) RenameFile(dir *Directory, oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := dir.ensureLoaded(); err != nil {
		return err
	}
	f := dir.findFile(oldName)
	if f == nil {
		return fmt.Errorf("%s: %w", joinPath(dir.Path(), oldName), ErrFileNotFound)
	}
	if f.attrs.Protected {
		return fmt.Errorf("%s: %w", f.Path(), ErrReadOnly)
	}
	if oldName == newName {
		return nil
	}
	if dir.nameTaken(newName) {
		return fmt.Errorf("%s: %w", joinPath(dir.Path(), newName), ErrFileExists)
	}
	f.name = newName
	f.dirty = true
	dir.sortFiles()
	dir.dirty = true
	v.touch("rename file", zap.String("from", oldName), zap.String("to", f.Path()))
	return nil
}

// SetFileProtection sets or clears the protected flag of f.
func (v *Volume) SetFileProtection(f *TFile, protected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f.attrs.Protected == protected {
		return
	}
	f.attrs.Protected = protected
	f.dirty = true
	v.touch("protect file", zap.String("path", f.Path()), zap.Bool("protected", protected))
}

// extentList renders extents for log fields.
type extentList IntervalList[int]

func (l extentList) String() string {
	s := ""
	for i, iv := range l {
		if i > 0 {
			s += ","
		}
		s += iv.String()
	}
	return s
}
