// file: pkg/diskimg/fileio.go

package diskimg

import (
	"errors"
	"fmt"
	"io"
)

// FileReader reads the content of a file sector by sector. It implements
// io.Reader, io.ReaderAt and io.Seeker.
type FileReader struct {
	f        *TFile
	size     int64
	position int64
}

// Open returns a reader over the content of f.
func (f *TFile) Open() *FileReader {
	return &FileReader{f: f, size: int64(f.Size())}
}

// Size returns the content length in bytes.
func (r *FileReader) Size() int64 {
	return r.size
}

// Read implements io.Reader
func (r *FileReader) Read(p []byte) (n int, err error) {
	n, err = r.ReadAt(p, r.position)
	r.position += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return
}

// ReadAt implements io.ReaderAt
func (r *FileReader) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= r.size {
		return 0, io.EOF
	}
	vol := r.f.dir.vol
	vol.mu.RLock()
	defer vol.mu.RUnlock()

	toRead := min(len(p), int(r.size-off))
	read := 0
	for read < toRead {
		pos := int(off) + read
		sector, err := r.f.PhysicalSector(pos / BytesPerSector)
		if err != nil {
			return read, err
		}
		data, err := vol.store.ReadSector(sector)
		if err != nil {
			return read, err
		}
		read += copy(p[read:toRead], data[pos%BytesPerSector:])
	}
	if read < len(p) {
		err = io.EOF
	}
	return read, err
}

// Seek implements io.Seeker
func (r *FileReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.position + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	r.position = abs
	return abs, nil
}

// ReadContent returns the content of f. Program files are cut at the end
// of file offset; data files are returned as whole sectors.
func (v *Volume) ReadContent(f *TFile) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.readContent(f)
}

func (v *Volume) readContent(f *TFile) ([]byte, error) {
	out := make([]byte, 0, f.sectors*BytesPerSector)
	for i := 0; i < f.sectors; i++ {
		sector, err := f.PhysicalSector(i)
		if err != nil {
			return nil, err
		}
		data, err := v.store.ReadSector(sector)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path(), err)
		}
		out = append(out, data...)
	}
	return out[:f.Size()], nil
}

// writeContent stores content in the data sectors of f, zero padding the
// last sector. f must already have room for it.
func (v *Volume) writeContent(f *TFile, content []byte) error {
	for i := 0; i*BytesPerSector < len(content); i++ {
		sector, err := f.PhysicalSector(i)
		if err != nil {
			return err
		}
		end := min((i+1)*BytesPerSector, len(content))
		if err := v.store.WriteSector(sector, content[i*BytesPerSector:end]); err != nil {
			return fmt.Errorf("%s: %w", f.Path(), err)
		}
	}
	return nil
}
