// file: pkg/diskimg/fileattr.go

package diskimg

import "fmt"

// Status flag bits of a file descriptor record
const (
	FlagProgram   = 0x01
	FlagInternal  = 0x02
	FlagProtected = 0x08
	FlagModified  = 0x10
	FlagVariable  = 0x80
)

// FileType is the record organisation of a file.
type FileType int

const (
	Program FileType = iota
	DataFixed
	DataVariable
)

func (t FileType) String() string {
	switch t {
	case Program:
		return "PROGRAM"
	case DataFixed:
		return "FIX"
	case DataVariable:
		return "VAR"
	}
	return fmt.Sprintf("FileType(%d)", int(t))
}

// FileAttributes is the decoded status byte.
type FileAttributes struct {
	Type      FileType
	Internal  bool
	Protected bool
	Modified  bool
}

// ParseFlags decodes a status byte. The program bit wins over the variable
// bit when both are set.
func ParseFlags(b byte) FileAttributes {
	fa := FileAttributes{
		Internal:  b&FlagInternal != 0,
		Protected: b&FlagProtected != 0,
		Modified:  b&FlagModified != 0,
	}
	switch {
	case b&FlagProgram != 0:
		fa.Type = Program
	case b&FlagVariable != 0:
		fa.Type = DataVariable
	default:
		fa.Type = DataFixed
	}
	return fa
}

// Flags encodes the attributes as a status byte.
func (fa FileAttributes) Flags() byte {
	var b byte
	switch fa.Type {
	case Program:
		b |= FlagProgram
	case DataVariable:
		b |= FlagVariable
	}
	if fa.Internal && fa.Type != Program {
		b |= FlagInternal
	}
	if fa.Protected {
		b |= FlagProtected
	}
	if fa.Modified {
		b |= FlagModified
	}
	return b
}

// TypeString renders the attributes the way a catalog shows them, such as
// "DIS/VAR 80" or "PROGRAM".
func (fa FileAttributes) TypeString(recordLength int) string {
	if fa.Type == Program {
		return "PROGRAM"
	}
	mode := "DIS"
	if fa.Internal {
		mode = "INT"
	}
	return fmt.Sprintf("%s/%s %d", mode, fa.Type, recordLength)
}

// RecordsPerSector returns how many records of the given length fit in one
// sector. Variable records carry a length byte and the sector ends with an
// end marker.
func RecordsPerSector(t FileType, recordLength int) int {
	switch t {
	case DataFixed:
		if recordLength <= 0 {
			return 0
		}
		return BytesPerSector / recordLength
	case DataVariable:
		return (BytesPerSector - 1) / (recordLength + 1)
	}
	return 0
}
