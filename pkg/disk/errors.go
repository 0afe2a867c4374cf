package disk

import (
	"errors"
	"fmt"
)

var (
	ErrNotRecognized = errors.New("image format not recognized")
	ErrInvalidSector = errors.New("sector number out of range")
	ErrMissingSector = errors.New("sector missing from track")
	ErrUnsupported   = errors.New("unsupported image layout")
)

// FormatFault describes why a byte array is not a usable image. It is
// returned as a value by Sniff and as an error by Open.
type FormatFault struct {
	Offset int
	Reason string
}

func (f *FormatFault) Error() string {
	return fmt.Sprintf("%v at offset 0x%X: %s", ErrNotRecognized, f.Offset, f.Reason)
}

func (f *FormatFault) Unwrap() error {
	return ErrNotRecognized
}
