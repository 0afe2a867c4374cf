// file: pkg/codec/crc16.go

// Package codec holds the byte and bit level primitives shared by the track
// encoder and the filesystem model: CRC-16, integer packing, hex output,
// flux cell writing and packed timestamps.
package codec

// CRCPolynomial is the CCITT generator used by the floppy controller.
const CRCPolynomial = 0x1021

// Seeds for the CRC after the address mark has been shifted in. The
// controller starts from 0xFFFF and includes the mark byte(s) in the CRC.
const (
	CRCInit        uint16 = 0xFFFF
	CRCSeedFMID    uint16 = 0xEF21 // 0xFE
	CRCSeedFMData  uint16 = 0xBF84 // 0xFB
	CRCSeedMFMID   uint16 = 0xB230 // 0xA1 0xA1 0xA1 0xFE
	CRCSeedMFMData uint16 = 0xE295 // 0xA1 0xA1 0xA1 0xFB
)

// CRC16Update shifts one byte into crc, MSB first.
func CRC16Update(crc uint16, b byte) uint16 {
	crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = (crc << 1) ^ CRCPolynomial
		} else {
			crc <<= 1
		}
	}
	return crc
}

// CRC16 computes the CRC over data[offset:offset+length] starting from
// initial. No complement is applied on entry or exit.
func CRC16(data []byte, offset, length int, initial uint16) uint16 {
	crc := initial
	for _, b := range data[offset : offset+length] {
		crc = CRC16Update(crc, b)
	}
	return crc
}
