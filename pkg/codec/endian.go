package codec

import "encoding/binary"

// GetInt16 reads a big-endian 16-bit value at off.
func GetInt16(buf []byte, off int) int {
	return int(binary.BigEndian.Uint16(buf[off:]))
}

// SetInt16 writes v big-endian at off.
func SetInt16(buf []byte, off int, v int) {
	binary.BigEndian.PutUint16(buf[off:], uint16(v))
}

// GetInt16Rev reads a little-endian 16-bit value at off. The level-3 record
// count of a file descriptor is stored this way while its neighbours are
// big-endian.
func GetInt16Rev(buf []byte, off int) int {
	return int(binary.LittleEndian.Uint16(buf[off:]))
}

// SetInt16Rev writes v little-endian at off.
func SetInt16Rev(buf []byte, off int, v int) {
	binary.LittleEndian.PutUint16(buf[off:], uint16(v))
}

// GetChainEntry unpacks a floppy data chain triplet into the start AU and the
// highest logical sector offset covered so far (12 bits each).
func GetChainEntry(buf []byte, off int) (start, offset int) {
	b0, b1, b2 := int(buf[off]), int(buf[off+1]), int(buf[off+2])
	start = (b1&0x0F)<<8 | b0
	offset = b2<<4 | (b1 >> 4)
	return start, offset
}

// SetChainEntry packs a floppy data chain triplet.
func SetChainEntry(buf []byte, off int, start, offset int) {
	buf[off] = byte(start)
	buf[off+1] = byte((start>>8)&0x0F) | byte((offset&0x0F)<<4)
	buf[off+2] = byte(offset >> 4)
}
