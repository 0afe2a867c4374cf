package codec

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestCRC16Seeds(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(CRCSeedFMID, CRC16([]byte{0xFE}, 0, 1, CRCInit))
	assert.Equal(CRCSeedFMData, CRC16([]byte{0xFB}, 0, 1, CRCInit))
	assert.Equal(CRCSeedMFMID, CRC16([]byte{0xA1, 0xA1, 0xA1, 0xFE}, 0, 4, CRCInit))
	assert.Equal(CRCSeedMFMData, CRC16([]byte{0xA1, 0xA1, 0xA1, 0xFB}, 0, 4, CRCInit))
}

func TestCRC16FillPattern(t *testing.T) {
	assert := assert.New(t)
	data := fill(0xE5, 256)
	assert.Equal(uint16(0xA40C), CRC16(data, 0, len(data), CRCSeedFMData), "single density data field")
	assert.Equal(uint16(0x7827), CRC16(data, 0, len(data), CRCSeedMFMData), "double density data field")
	assert.Equal(uint16(0xF1D3), CRC16([]byte{0, 0, 0, 1}, 0, 4, CRCSeedFMID), "cylinder 0 sector 0 header")
}

func TestCRC16Offset(t *testing.T) {
	data := []byte{0x11, 0x22, 0xFE, 0x33}
	assert.Equal(t, CRC16([]byte{0xFE}, 0, 1, CRCInit), CRC16(data, 2, 1, CRCInit))
	assert.Equal(t, CRC16(data, 0, 4, 0x1234), CRC16(data, 0, 4, 0x1234), "deterministic")
}

func TestIntegerPacking(t *testing.T) {
	assert := assert.New(t)
	buf := make([]byte, 4)
	SetInt16(buf, 0, 0x1234)
	SetInt16Rev(buf, 2, 0x1234)
	assert.Equal([]byte{0x12, 0x34, 0x34, 0x12}, buf)
	assert.Equal(0x1234, GetInt16(buf, 0))
	assert.Equal(0x1234, GetInt16Rev(buf, 2))
	assert.Equal(0x3412, GetInt16Rev(buf, 0))
}

func TestChainEntry(t *testing.T) {
	assert := assert.New(t)
	buf := make([]byte, 6)
	SetChainEntry(buf, 0, 0x123, 0x456)
	SetChainEntry(buf, 3, 34, 2)
	assert.Equal([]byte{0x23, 0x61, 0x45}, buf[:3])

	start, off := GetChainEntry(buf, 0)
	assert.Equal(0x123, start)
	assert.Equal(0x456, off)
	start, off = GetChainEntry(buf, 3)
	assert.Equal(34, start)
	assert.Equal(2, off)
}

func TestHex(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("0A", HexByte(0x0A))
	assert.Equal("F57E", HexWord(0xF57E))

	dump := HexDump([]byte("HELLO\x00"), 0x100)
	assert.True(strings.HasPrefix(dump, "000100  48 45 4C 4C 4F 00 "))
	assert.True(strings.HasSuffix(dump, "HELLO.\n"))

	assert.Equal("A\\0D\\FF~", Escape([]byte("A\r\xFF~"), "\\"))
	assert.Equal("A\r", Escape([]byte("A\r"), ""))
}

func TestCellWriterMarks(t *testing.T) {
	assert := assert.New(t)

	w := NewCellWriter(4, false)
	w.WriteFM(0xFE, 0xC7)
	w.WriteFM(0xFB, 0xC7)
	assert.Equal([]byte{0xF5, 0x7E, 0xF5, 0x6F}, w.Bytes())
	assert.Equal(32, w.Cells())

	w = NewCellWriter(2, false)
	w.WriteMFM(0xA1)
	assert.Equal([]byte{0x44, 0xA9}, w.Bytes(), "A1 with its regular clock")

	w = NewCellWriter(2, false)
	w.WriteRaw(0x4489)
	w.WriteMFM(0x00)
	assert.Equal([]byte{0x44, 0x89, 0x2A, 0xAA}, w.Bytes(), "clock suppressed after a trailing one")
}

func TestCellWriterDouble(t *testing.T) {
	w := NewCellWriter(4, true)
	w.WriteRaw(0xF57E)
	require.Equal(t, 32, w.Cells())
	assert.Equal(t, []byte{0xF5, 0x7E}, Undouble(w.Bytes(), 0))
	assert.Equal(t, []byte{0xF5, 0x7E}, Undouble(w.Bytes(), 1))
}

func TestReverseBits(t *testing.T) {
	buf := []byte{0x01, 0x80, 0xF0, 0x44}
	ReverseBits(buf)
	assert.Equal(t, []byte{0x80, 0x01, 0x0F, 0x22}, buf)
}

func TestCursor(t *testing.T) {
	assert := assert.New(t)
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	b, err := c.ReadByte()
	assert.NoError(err)
	assert.Equal(byte(0x01), b)

	cp := c.Checkpoint()
	w, err := c.ReadWord()
	assert.NoError(err)
	assert.Equal(0x0203, w)
	c.Restore(cp)

	p, err := c.Peek()
	assert.NoError(err)
	assert.Equal(byte(0x02), p)
	assert.Equal(4, c.Remaining())

	rest, err := c.ReadBytes(4)
	assert.NoError(err)
	assert.Equal([]byte{0x02, 0x03, 0x04, 0x05}, rest)
	assert.True(c.EOF())

	_, err = c.ReadByte()
	assert.Equal(io.EOF, err)
	_, err = c.ReadWord()
	assert.Equal(io.ErrUnexpectedEOF, err)
	assert.Error(c.Seek(6))
	assert.NoError(c.Seek(0))
	assert.Error(c.Skip(9))
}

func TestTimestamp(t *testing.T) {
	assert := assert.New(t)
	buf := make([]byte, 8)

	ts := time.Date(2026, time.October, 19, 14, 31, 58, 0, time.UTC)
	PutTime(buf, 0, ts)
	assert.Equal(ts, GetTime(buf, 0))

	old := time.Date(1987, time.March, 2, 8, 0, 0, 0, time.UTC)
	PutTime(buf, 4, old)
	assert.Equal(old, GetTime(buf, 4))

	PutTime(buf, 0, time.Time{})
	assert.True(GetTime(buf, 0).IsZero())

	// odd seconds are truncated to the two second resolution
	PutTime(buf, 0, time.Date(2001, time.January, 1, 0, 0, 3, 0, time.UTC))
	assert.Equal(2, GetTime(buf, 0).Second())
}
