// file: pkg/diskimg/convert.go

package diskimg

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ha1tch/tidisk/internal/logging"
	"github.com/ha1tch/tidisk/pkg/disk"
)

// ConvertImage reads the image at srcPath and writes it to dstPath in the
// given container format. The volume is mounted first so a damaged image
// is refused instead of copied.
func ConvertImage(fs afero.Fs, srcPath, dstPath string, format disk.Format, logger *zap.Logger) error {
	log := logging.OrNop(logger)
	v, from, err := Load(fs, srcPath, log)
	if err != nil {
		return err
	}
	if v.Kind() == HardDisk && format == disk.FormatHFE {
		return fmt.Errorf("%s: %w: HFE holds floppy images only", srcPath, ErrNotSupported)
	}
	if v.Kind() == Floppy && format == disk.FormatHardDisk {
		return fmt.Errorf("%s: %w: a floppy volume cannot be stored as a hard disk image", srcPath, ErrNotSupported)
	}
	if err := disk.Save(fs, dstPath, v.Store(), format); err != nil {
		return err
	}
	log.Debug("converted image",
		zap.String("from", srcPath),
		zap.String("to", dstPath),
		zap.Stringer("source", from),
		zap.Stringer("target", format))
	return nil
}
