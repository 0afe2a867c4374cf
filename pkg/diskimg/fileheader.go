// file: pkg/diskimg/fileheader.go

package diskimg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/ha1tch/tidisk/pkg/codec"
)

const (
	// TfiSignature opens every TIFILES header.
	TfiSignature  = "\x07TIFILES"
	TfiHeaderSize = 128
)

// TfiHeader is the 128-byte TIFILES header placed in front of a file's
// sectors when it is stored on a host file system.
type TfiHeader struct {
	Signature        [8]byte
	Sectors          uint16
	Flags            byte
	RecordsPerSector byte
	EOFOffset        byte
	RecordLength     byte
	L3Records        uint16 // little-endian on the medium
	Name             [10]byte
	MXT              byte
	Reserved         byte
	Extended         uint16
	Created          [4]byte
	Updated          [4]byte
	Padding          [90]byte
}

// NewTfiHeader describes f.
func NewTfiHeader(f *TFile) *TfiHeader {
	h := &TfiHeader{
		Sectors:          uint16(f.sectors),
		Flags:            f.attrs.Flags(),
		RecordsPerSector: byte(f.recordsPerSector),
		EOFOffset:        byte(f.eofOffset),
		RecordLength:     byte(f.recordLength),
		L3Records:        bits.ReverseBytes16(uint16(f.l3Records)),
		Extended:         0xFFFF,
	}
	copy(h.Signature[:], TfiSignature)
	encodeName(h.Name[:], 0, f.name)
	codec.PutTime(h.Created[:], 0, f.created)
	codec.PutTime(h.Updated[:], 0, f.updated)
	return h
}

// Validate checks the signature and the descriptor fields.
func (h *TfiHeader) Validate() error {
	if string(h.Signature[:]) != TfiSignature {
		return fmt.Errorf("%w: missing TIFILES signature", ErrInvalidHeader)
	}
	if err := ValidateName(h.FileName()); err != nil {
		return err
	}
	if a := ParseFlags(h.Flags); a.Type != Program && h.RecordLength == 0 {
		return fmt.Errorf("%w: data file without record length", ErrInvalidHeader)
	}
	return nil
}

func (h *TfiHeader) FileName() string {
	return decodeName(h.Name[:], 0)
}

// Records returns the L3 field in host order.
func (h *TfiHeader) Records() int {
	return int(bits.ReverseBytes16(h.L3Records))
}

// Spec returns the description of the file the header carries.
func (h *TfiHeader) Spec() FileSpec {
	a := ParseFlags(h.Flags)
	return FileSpec{
		Name:             h.FileName(),
		Type:             a.Type,
		Internal:         a.Internal,
		Protected:        a.Protected,
		RecordLength:     int(h.RecordLength),
		RecordsPerSector: int(h.RecordsPerSector),
		EOFOffset:        int(h.EOFOffset),
		L3Records:        h.Records(),
		Created:          codec.GetTime(h.Created[:], 0),
		Updated:          codec.GetTime(h.Updated[:], 0),
	}
}

// Bytes serialises the header.
func (h *TfiHeader) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h)
	return buf.Bytes()
}

// FromBytes populates the header from a byte slice
func (h *TfiHeader) FromBytes(data []byte) error {
	if len(data) < TfiHeaderSize {
		return fmt.Errorf("%w: %d bytes is too short for a TIFILES header", ErrInvalidHeader, len(data))
	}
	return binary.Read(bytes.NewReader(data[:TfiHeaderSize]), binary.BigEndian, h)
}

// String returns a one line summary.
func (h *TfiHeader) String() string {
	a := ParseFlags(h.Flags)
	return fmt.Sprintf("%s %s, %d sectors", h.FileName(), a.TypeString(int(h.RecordLength)), h.Sectors)
}

// CreateTfi returns f as a TIFILES file: the header followed by content
// padded to whole sectors.
func CreateTfi(f *TFile, content []byte) []byte {
	out := NewTfiHeader(f).Bytes()
	body := make([]byte, f.sectors*BytesPerSector)
	copy(body, content)
	return append(out, body...)
}

// ParseTfi splits a TIFILES file into its header and sector content.
func ParseTfi(data []byte) (*TfiHeader, []byte, error) {
	h := &TfiHeader{}
	if err := h.FromBytes(data); err != nil {
		return nil, nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, nil, err
	}
	want := int(h.Sectors) * BytesPerSector
	body := data[TfiHeaderSize:]
	if len(body) < want {
		return nil, nil, fmt.Errorf("%w: header gives %d sectors, file holds %d bytes", ErrInvalidHeader, h.Sectors, len(body))
	}
	return h, body[:want], nil
}
