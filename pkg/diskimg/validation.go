// file: pkg/diskimg/validation.go

package diskimg

import (
	"fmt"
	"strings"
)

// MaxNameLength is the length of every name field on the medium.
const MaxNameLength = 10

// Hard disk geometry limits.
const (
	MaxCylinders       = 2048
	MaxHeads           = 16
	MaxSectorsPerTrack = 256
	MaxCapacityMB      = 248
)

// ValidationError represents a rejected option or header field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error - %s: %s", e.Field, e.Message)
}

// ValidateName checks that name can be stored in a descriptor record. Names
// are case sensitive; periods separate path components and spaces pad the
// fixed width field, so neither may appear.
func ValidateName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "empty"}
	}
	if len(name) > MaxNameLength {
		return &NameError{Name: name, Reason: fmt.Sprintf("longer than %d characters", MaxNameLength)}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '.':
			return &NameError{Name: name, Reason: "contains a period"}
		case c == ' ':
			return &NameError{Name: name, Reason: "contains a space"}
		case c < 0x21 || c > 0x7E:
			return &NameError{Name: name, Reason: fmt.Sprintf("contains byte 0x%02X", c)}
		}
	}
	return nil
}

// encodeName writes a space padded name field.
func encodeName(buf []byte, off int, name string) {
	copy(buf[off:off+MaxNameLength], padRight(name, MaxNameLength))
}

// decodeName reads a name field, dropping the padding.
func decodeName(buf []byte, off int) string {
	return strings.TrimRight(string(buf[off:off+MaxNameLength]), " \x00")
}

// padRight pads a string with spaces to the specified length
func padRight(str string, length int) string {
	if len(str) >= length {
		return str[:length]
	}
	return str + strings.Repeat(" ", length-len(str))
}

// ValidateGeometry checks a hard disk layout against the controller limits.
func ValidateGeometry(cylinders, heads, sectorsPerTrack int) error {
	switch {
	case cylinders < 1 || cylinders > MaxCylinders:
		return &CapacityError{What: "cylinders", Need: cylinders, Have: MaxCylinders}
	case heads < 1 || heads > MaxHeads:
		return &CapacityError{What: "heads", Need: heads, Have: MaxHeads}
	case sectorsPerTrack < 1 || sectorsPerTrack > MaxSectorsPerTrack:
		return &CapacityError{What: "sectors per track", Need: sectorsPerTrack, Have: MaxSectorsPerTrack}
	}
	if mb := cylinders * heads * sectorsPerTrack / 4096; mb > MaxCapacityMB {
		return &CapacityError{What: "megabytes", Need: mb, Have: MaxCapacityMB}
	}
	return nil
}
