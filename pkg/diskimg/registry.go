// file: pkg/diskimg/registry.go

package diskimg

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/internal/logging"
	"github.com/ha1tch/tidisk/pkg/disk"
)

// Handle is an open image in a Registry.
type Handle struct {
	ID     uuid.UUID
	Path   string
	Format disk.Format
	Volume *Volume

	refs int
}

// Registry keeps one Volume per image path, so two opens of the same image
// share their in-memory state.
type Registry struct {
	mu     sync.Mutex
	fs     afero.Fs
	log    *zap.Logger
	byPath map[string]*Handle
	byID   map[uuid.UUID]*Handle
}

func NewRegistry(fs afero.Fs, logger *zap.Logger) *Registry {
	return &Registry{
		fs:     fs,
		log:    logging.OrNop(logger),
		byPath: make(map[string]*Handle),
		byID:   make(map[uuid.UUID]*Handle),
	}
}

// Open returns the handle of the image at path, loading it on first use.
func (r *Registry) Open(path string) (*Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.byPath[abs]; ok {
		h.refs++
		return h, nil
	}
	id := uuid.New()
	v, format, err := Load(r.fs, abs, r.log.With(zap.Stringer("handle", id)))
	if err != nil {
		return nil, err
	}
	h := &Handle{ID: id, Path: abs, Format: format, Volume: v, refs: 1}
	r.byPath[abs] = h
	r.byID[id] = h
	r.log.Debug("registered image", zap.String("image", abs), zap.Stringer("handle", id), zap.Stringer("format", format))
	return h, nil
}

// Add registers a volume that was created in memory, such as a freshly
// formatted one, under path. It fails if path is already open.
func (r *Registry) Add(path string, v *Volume, format disk.Format) (*Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPath[abs]; ok {
		return nil, fmt.Errorf("%s: %w", abs, ErrFileExists)
	}
	h := &Handle{ID: uuid.New(), Path: abs, Format: format, Volume: v, refs: 1}
	r.byPath[abs] = h
	r.byID[h.ID] = h
	return h, nil
}

// Get looks a handle up by ID.
func (r *Registry) Get(id uuid.UUID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	return h, ok
}

// Save writes the volume of h back to its image file.
func (r *Registry) Save(h *Handle) error {
	if err := h.Volume.Save(r.fs, h.Path, h.Format); err != nil {
		return err
	}
	r.log.Debug("saved image", zap.String("image", h.Path), zap.Stringer("handle", h.ID))
	return nil
}

// Close releases one reference to h. Uncommitted changes are dropped with
// the last reference.
func (r *Registry) Close(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.refs--
	if h.refs > 0 {
		return
	}
	delete(r.byPath, h.Path)
	delete(r.byID, h.ID)
	if h.Volume.Dirty() {
		r.log.Warn("closed image with uncommitted changes", zap.String("image", h.Path), zap.Stringer("handle", h.ID))
	}
}

// Handles lists the open images ordered by path.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.byPath))
	for _, h := range r.byPath {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// DirectoryView caches the listing of a directory and reloads it when the
// volume has changed since.
type DirectoryView struct {
	mu         sync.Mutex
	dir        *Directory
	generation uint64
	valid      bool
	files      []*TFile
	subdirs    []*Directory
}

func NewDirectoryView(dir *Directory) *DirectoryView {
	return &DirectoryView{dir: dir}
}

// Directory returns the directory shown by the view.
func (dv *DirectoryView) Directory() *Directory {
	return dv.dir
}

// Stale reports whether the next Entries call will reload.
func (dv *DirectoryView) Stale() bool {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	return !dv.valid || dv.generation != dv.dir.vol.Generation()
}

// Entries returns the files and subdirectories of the directory.
func (dv *DirectoryView) Entries() ([]*TFile, []*Directory, error) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	gen := dv.dir.vol.Generation()
	if dv.valid && gen == dv.generation {
		return dv.files, dv.subdirs, nil
	}
	files, err := dv.dir.Files()
	if err != nil {
		return nil, nil, err
	}
	subdirs, err := dv.dir.Subdirectories()
	if err != nil {
		return nil, nil, err
	}
	dv.files, dv.subdirs, dv.generation, dv.valid = files, subdirs, gen, true
	return files, subdirs, nil
}
