package codec

import (
	"fmt"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// HexByte formats b as two upper case hex digits.
func HexByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}

// HexWord formats w as four upper case hex digits.
func HexWord(w uint16) string {
	return HexByte(byte(w>>8)) + HexByte(byte(w))
}

// HexDump renders data as 16 bytes per line with an address column starting
// at base and a printable ASCII column.
func HexDump(data []byte, base int) string {
	var sb strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "%06X  ", base+i)
		for j := i; j < i+16; j++ {
			if j < end {
				sb.WriteString(HexByte(data[j]))
				sb.WriteByte(' ')
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteByte(' ')
		for _, b := range data[i:end] {
			if b >= 0x20 && b < 0x7F {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Escape renders bytes outside the printable ASCII range as esc followed by
// two hex digits. An empty esc returns the bytes unchanged.
func Escape(data []byte, esc string) string {
	if esc == "" {
		return string(data)
	}
	var sb strings.Builder
	for _, c := range data {
		if c < 0x20 || c > 0x7E {
			sb.WriteString(esc)
			sb.WriteString(HexByte(c))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
