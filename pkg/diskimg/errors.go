// file: pkg/diskimg/errors.go

package diskimg

import (
	"errors"
	"fmt"

	"github.com/ha1tch/tidisk/pkg/disk"
)

var (
	ErrNotRecognized     = disk.ErrNotRecognized
	ErrInvalidHeader     = errors.New("invalid file header")
	ErrInvalidChecksum   = errors.New("invalid checksum")
	ErrReadOnly          = errors.New("volume or file is protected")
	ErrFileNotFound      = errors.New("file not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrDirectoryFull     = errors.New("directory is full")
	ErrDirectoryNotEmpty = errors.New("directory is not empty")
	ErrDiskFull          = errors.New("disk is full")
	ErrFileExists        = errors.New("file already exists")
	ErrFragmented        = errors.New("file is too fragmented for its descriptor")
	ErrNotSupported      = errors.New("operation not supported on this volume")
)

// FormatError reports a structure on the medium that cannot be interpreted.
type FormatError struct {
	Sector int
	Field  string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in sector %d (%s): %v", e.Sector, e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// OpenError reports an image that could not be read or mounted.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// NameError reports a file or directory name that cannot be stored.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

// CapacityError reports that a request exceeds what the volume can hold.
type CapacityError struct {
	What string
	Need int
	Have int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough %s: need %d, have %d", e.What, e.Need, e.Have)
}

// Is lets errors.Is(err, ErrDiskFull) match allocation failures.
func (e *CapacityError) Is(target error) bool {
	return target == ErrDiskFull && e.What == "allocation units"
}

// BoundsError reports an allocation unit outside the volume.
type BoundsError struct {
	AU    int
	Limit int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("allocation unit %d out of range (volume has %d)", e.AU, e.Limit)
}
