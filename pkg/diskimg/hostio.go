// file: pkg/diskimg/hostio.go

package diskimg

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ImportOptions configures the import of a host file.
type ImportOptions struct {
	Name         string // name on the volume, derived from the host name if empty
	Type         FileType
	Internal     bool
	RecordLength int  // data files only
	Replace      bool // delete an existing file of the same name first
}

// ImportTfi adds a TIFILES file from the host file system to dir.
func (v *Volume) ImportTfi(fs afero.Fs, hostPath string, dir *Directory, opts *ImportOptions) (*TFile, error) {
	data, err := afero.ReadFile(fs, hostPath)
	if err != nil {
		return nil, err
	}
	h, content, err := ParseTfi(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", hostPath, err)
	}
	spec := h.Spec()
	if opts != nil && opts.Name != "" {
		spec.Name = opts.Name
	}
	return v.importFile(dir, spec, content, opts)
}

// ImportRaw adds a headerless host file. Program files take the bytes as
// they are; variable data files take one record per text line and fixed
// data files are cut into records of the record length.
func (v *Volume) ImportRaw(fs afero.Fs, hostPath string, dir *Directory, opts *ImportOptions) (*TFile, error) {
	if opts == nil {
		opts = &ImportOptions{}
	}
	data, err := afero.ReadFile(fs, hostPath)
	if err != nil {
		return nil, err
	}
	spec := FileSpec{
		Name:         opts.Name,
		Type:         opts.Type,
		Internal:     opts.Internal,
		RecordLength: opts.RecordLength,
	}
	if spec.Name == "" {
		spec.Name = HostName(hostPath)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	content := data
	switch spec.Type {
	case DataVariable:
		rd, err := EncodeVariableRecords(splitLines(data), spec.RecordLength)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", hostPath, err)
		}
		rd.Apply(&spec)
		content = rd.Content
	case DataFixed:
		var records [][]byte
		for off := 0; off < len(data); off += spec.RecordLength {
			records = append(records, data[off:min(off+spec.RecordLength, len(data))])
		}
		rd, err := EncodeFixedRecords(records, spec.RecordLength)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", hostPath, err)
		}
		rd.Apply(&spec)
		content = rd.Content
	}
	return v.importFile(dir, spec, content, opts)
}

func (v *Volume) importFile(dir *Directory, spec FileSpec, content []byte, opts *ImportOptions) (*TFile, error) {
	if opts != nil && opts.Replace {
		return v.ReplaceFile(dir, spec, content)
	}
	return v.InsertFile(dir, spec, content)
}

func splitLines(data []byte) [][]byte {
	text := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	text = bytes.TrimSuffix(text, []byte("\n"))
	if len(text) == 0 {
		return nil
	}
	return bytes.Split(text, []byte("\n"))
}

// HostName turns a host file name into a volume file name: the extension
// is dropped, letters are upper cased and characters a descriptor cannot
// hold become underscores.
func HostName(hostPath string) string {
	base := filepath.Base(hostPath)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	var b strings.Builder
	for i := 0; i < len(base) && b.Len() < MaxNameLength; i++ {
		c := base[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c == '.' || c == ' ' || c < 0x21 || c > 0x7E:
			c = '_'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ExportTfi writes f to the host file system as a TIFILES file.
func (v *Volume) ExportTfi(fs afero.Fs, f *TFile, hostPath string) error {
	content, err := v.ReadContent(f)
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, hostPath, CreateTfi(f, content), 0o644)
}

// ExportRaw writes the content of f without a header. Variable data files
// are written as text, one record per line.
func (v *Volume) ExportRaw(fs afero.Fs, f *TFile, hostPath string) error {
	var out []byte
	if f.Type() == DataVariable {
		records, err := v.ReadRecords(f)
		if err != nil {
			return err
		}
		for _, rec := range records {
			out = append(out, rec...)
			out = append(out, '\n')
		}
	} else {
		content, err := v.ReadContent(f)
		if err != nil {
			return err
		}
		out = content
	}
	return afero.WriteFile(fs, hostPath, out, 0o644)
}
