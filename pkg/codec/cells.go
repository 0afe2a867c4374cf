package codec

// CellWriter accumulates flux cells MSB first. A cell is a clock or data
// position on the medium; a set bit is a flux transition.
type CellWriter struct {
	buf      []byte
	cells    int
	lastData bool
	double   bool
}

// NewCellWriter returns a writer with capacity for sizeHint bytes. When
// double is set every cell is written twice, which is how FM data is stored
// at the MFM cell rate.
func NewCellWriter(sizeHint int, double bool) *CellWriter {
	return &CellWriter{buf: make([]byte, 0, sizeHint), double: double}
}

func (w *CellWriter) put(c bool) {
	idx := w.cells >> 3
	if idx >= len(w.buf) {
		w.buf = append(w.buf, 0)
	}
	if c {
		w.buf[idx] |= 0x80 >> uint(w.cells&7)
	}
	w.cells++
}

func (w *CellWriter) cell(c bool) {
	w.put(c)
	if w.double {
		w.put(c)
	}
}

// WriteFM writes one FM byte: each data bit is preceded by the matching
// clock bit. Ordinary bytes use clock 0xFF, address marks use 0xC7.
func (w *CellWriter) WriteFM(data, clock byte) {
	for i := 7; i >= 0; i-- {
		w.cell(clock&(1<<uint(i)) != 0)
		w.cell(data&(1<<uint(i)) != 0)
	}
	w.lastData = data&1 != 0
}

// WriteMFM writes one MFM byte. A clock cell is set only between two zero
// data bits.
func (w *CellWriter) WriteMFM(data byte) {
	for i := 7; i >= 0; i-- {
		d := data&(1<<uint(i)) != 0
		w.cell(!w.lastData && !d)
		w.cell(d)
		w.lastData = d
	}
}

// WriteRaw writes a precomputed 16-cell word such as a sync or mark pattern
// with a missing clock.
func (w *CellWriter) WriteRaw(word uint16) {
	for i := 15; i >= 0; i-- {
		w.cell(word&(1<<uint(i)) != 0)
	}
	w.lastData = word&1 != 0
}

// Cells returns the number of cells written, counting doubled cells.
func (w *CellWriter) Cells() int {
	return w.cells
}

// Bytes returns the cell buffer.
func (w *CellWriter) Bytes() []byte {
	return w.buf
}

// Cell reports whether cell i of a MSB-first cell buffer is set.
func Cell(buf []byte, i int) bool {
	return buf[i>>3]&(0x80>>uint(i&7)) != 0
}

// Undouble keeps every second cell of buf starting at phase (0 or 1).
func Undouble(buf []byte, phase int) []byte {
	total := len(buf) * 8
	out := make([]byte, (total/2+7)/8)
	n := 0
	for i := phase; i < total; i += 2 {
		if Cell(buf, i) {
			out[n>>3] |= 0x80 >> uint(n&7)
		}
		n++
	}
	return out
}

// ReverseBits mirrors the bit order of every byte in place. HFE stores
// cells least significant bit first.
func ReverseBits(buf []byte) {
	for i, b := range buf {
		b = (b&0xF0)>>4 | (b&0x0F)<<4
		b = (b&0xCC)>>2 | (b&0x33)<<2
		b = (b&0xAA)>>1 | (b&0x55)<<1
		buf[i] = b
	}
}
