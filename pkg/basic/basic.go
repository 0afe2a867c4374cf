// file: pkg/basic/basic.go

// Package basic lists tokenised TI BASIC and Extended BASIC programs as
// saved in PROGRAM files.
package basic

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ha1tch/tidisk/pkg/codec"
)

// headerSize is the length of the program header; the line number table
// follows it directly.
const headerSize = 8

var (
	ErrNotProgram = errors.New("not a BASIC program")
	ErrBadLine    = errors.New("malformed program line")
)

// Line is one listed program line.
type Line struct {
	Number int
	Text   string
}

func (l Line) String() string {
	return fmt.Sprintf("%d %s", l.Number, l.Text)
}

// Program is a detokenised program.
type Program struct {
	Lines     []Line
	Protected bool
}

// String returns the listing, one line per row.
func (p *Program) String() string {
	var b strings.Builder
	for _, l := range p.Lines {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Options control how a listing is rendered.
type Options struct {
	// Escape prefixes the hex code of characters that cannot be printed.
	// An empty Escape copies them unchanged.
	Escape string
}

// Parse lists the program image data. The header holds a check word, the
// bounds of the line number table and the top of memory; memory addresses
// are converted to file offsets relative to the start of the table.
func Parse(data []byte, opts Options) (*Program, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotProgram, len(data))
	}
	c := codec.NewCursor(data)
	check, _ := c.ReadWord()
	end, _ := c.ReadWord()
	start, _ := c.ReadWord()
	if err := c.Seek(headerSize); err != nil {
		return nil, err
	}
	p := &Program{}
	switch sum := uint16(end ^ start); uint16(check) {
	case sum:
	case -sum:
		p.Protected = true
	default:
		return nil, fmt.Errorf("%w: check word %04X does not match %04X", ErrNotProgram, check, sum)
	}
	low, high := min(start, end), max(start, end)
	count := (high - low + 1) / 4
	offset := func(addr int) int { return addr - low + headerSize }
	if offset(high) >= len(data) {
		return nil, fmt.Errorf("%w: line table ends beyond the file", ErrNotProgram)
	}

	for i := 0; i < count; i++ {
		num, err := c.ReadWord()
		if err != nil {
			return nil, fmt.Errorf("%w: line table: %v", ErrNotProgram, err)
		}
		addr, err := c.ReadWord()
		if err != nil {
			return nil, fmt.Errorf("%w: line table: %v", ErrNotProgram, err)
		}
		body, err := lineBody(c, offset(addr))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d points outside the file", ErrBadLine, num)
		}
		text, err := Detokenize(body, opts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", num, err)
		}
		p.Lines = append(p.Lines, Line{Number: num, Text: text})
	}
	slices.SortFunc(p.Lines, func(a, b Line) int { return a.Number - b.Number })
	return p, nil
}

// lineBody reads the tokens at ptr, which sit behind their length byte,
// and leaves c where it was. A body cut short by the end of the file is
// returned as far as it goes.
func lineBody(c *codec.Cursor, ptr int) ([]byte, error) {
	cp := c.Checkpoint()
	defer c.Restore(cp)
	if ptr < 1 || ptr >= c.Len() {
		return nil, fmt.Errorf("offset %d outside [1,%d)", ptr, c.Len())
	}
	if err := c.Seek(ptr - 1); err != nil {
		return nil, err
	}
	n, err := c.ReadByte()
	if err != nil {
		return nil, err
	}
	return c.ReadBytes(min(int(n), c.Remaining()))
}

// Detokenize renders the tokens of one line. The line ends at a zero byte
// in token position or at the end of tokens.
func Detokenize(tokens []byte, opts Options) (string, error) {
	var b strings.Builder
	space := false
	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
	}
	c := codec.NewCursor(tokens)
	short := func(t byte) error {
		return fmt.Errorf("%w: operand of token %02X runs past the line", ErrBadLine, t)
	}

	for !c.EOF() {
		t, _ := c.ReadByte()
		switch {
		case t == 0:
			return strings.TrimRight(b.String(), " "), nil
		case t == tokenQuoted || t == tokenUnquoted:
			n, err := c.ReadByte()
			if err != nil {
				return "", short(t)
			}
			s, err := c.ReadBytes(int(n))
			if err != nil {
				return "", short(t)
			}
			if space {
				sep()
			}
			if t == tokenQuoted {
				b.WriteByte('"')
				b.WriteString(strings.ReplaceAll(escape(s, opts), `"`, `""`))
				b.WriteByte('"')
			} else {
				b.WriteString(escape(s, opts))
			}
			space = false
		case t == tokenLineNum:
			num, err := c.ReadWord()
			if err != nil {
				return "", short(t)
			}
			if space {
				sep()
			}
			fmt.Fprintf(&b, "%d", num)
			space = false
		case t >= 0x80:
			kw, ok := keywords[t]
			if !ok {
				return "", fmt.Errorf("%w: unknown token %02X", ErrBadLine, t)
			}
			switch {
			case isWord(kw), kw == "::", kw == "!":
				sep()
				b.WriteString(kw)
				space = true
			default:
				if space && kw == "(" {
					sep()
				}
				b.WriteString(kw)
				space = false
			}
		default:
			if space {
				sep()
			}
			b.WriteString(escape([]byte{t}, opts))
			space = false
		}
	}
	return strings.TrimRight(b.String(), " "), nil
}

// escape replaces unprintable characters by the escape prefix and their
// hex code.
func escape(s []byte, opts Options) string {
	return codec.Escape(s, opts.Escape)
}
