package codec

import (
	"fmt"
	"io"
)

// Cursor reads sequentially from a byte slice. Parsers that need to back
// off take a Checkpoint and Restore it.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the size of the backing buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// EOF reports whether every byte has been consumed.
func (c *Cursor) EOF() bool { return c.pos >= len(c.buf) }

// Checkpoint returns a position that Restore can return to.
func (c *Cursor) Checkpoint() int { return c.pos }

// Restore rewinds (or advances) to a checkpoint.
func (c *Cursor) Restore(cp int) { c.pos = cp }

// Seek moves to an absolute offset.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return fmt.Errorf("cursor seek to %d outside [0,%d]", pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

// ReadByte implements io.ByteReader.
func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// Peek returns the next byte without consuming it.
func (c *Cursor) Peek() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	return c.buf[c.pos], nil
}

// ReadWord reads a big-endian 16-bit value.
func (c *Cursor) ReadWord() (int, error) {
	if c.pos+2 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := GetInt16(c.buf, c.pos)
	c.pos += 2
	return v, nil
}

// ReadBytes returns the next n bytes. The slice aliases the backing buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.ReadBytes(n)
	return err
}
