package disk

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Decode builds a sector store from the bytes of an image file.
func Decode(data []byte) (*SectorImage, Format, error) {
	format, fault := Sniff(data)
	if fault != nil {
		return nil, FormatUnknown, fault
	}
	switch format {
	case FormatHFE:
		img, err := ReadHFE(data)
		if err != nil {
			return nil, format, err
		}
		return img, format, nil
	case FormatSectorDump:
		g, err := floppyGeometry(data)
		if err != nil {
			return nil, format, err
		}
		return NewSectorImageFromBytes(g, data), format, nil
	case FormatHardDisk:
		return NewSectorImageFromBytes(hardDiskGeometry(data), data), format, nil
	}
	return nil, FormatUnknown, &FormatFault{Reason: "unknown format"}
}

// Encode serialises a sector store in the given container format.
func Encode(img SectorStore, format Format) ([]byte, error) {
	switch format {
	case FormatHFE:
		var buf bytes.Buffer
		if err := WriteHFE(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatSectorDump, FormatHardDisk:
		out := make([]byte, 0, img.SectorCount()*SectorSize)
		for n := 0; n < img.SectorCount(); n++ {
			data, err := img.ReadSector(n)
			if err != nil {
				return nil, err
			}
			out = append(out, data...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: cannot write %v images", ErrUnsupported, format)
}

// Open reads and decodes the image at path.
func Open(fs afero.Fs, path string) (*SectorImage, Format, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("failed to read image: %w", err)
	}
	img, format, err := Decode(data)
	if err != nil {
		return nil, format, fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// Save writes the image to path, replacing any existing file.
func Save(fs afero.Fs, path string, img SectorStore, format Format) error {
	data, err := Encode(img, format)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, data, os.FileMode(0644)); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// FormatForPath picks the container format from a file name extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hfe":
		return FormatHFE
	case ".hdd", ".raw":
		return FormatHardDisk
	}
	return FormatSectorDump
}
