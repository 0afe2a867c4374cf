package codec

import "time"

// TimestampSize is the on-disk size of a packed date/time.
const TimestampSize = 4

// PutTime packs t into buf[off:off+4]:
//
//	word 0: hour<<11 | minute<<5 | second/2
//	word 1: (year%100)<<9 | month<<5 | day
//
// A zero time is stored as four zero bytes.
func PutTime(buf []byte, off int, t time.Time) {
	if t.IsZero() {
		for i := 0; i < TimestampSize; i++ {
			buf[off+i] = 0
		}
		return
	}
	SetInt16(buf, off, t.Hour()<<11|t.Minute()<<5|t.Second()/2)
	SetInt16(buf, off+2, (t.Year()%100)<<9|int(t.Month())<<5|t.Day())
}

// GetTime unpacks a timestamp written by PutTime. Years below 70 are taken
// as 20xx. Unset or malformed fields give the zero time.
func GetTime(buf []byte, off int) time.Time {
	w0, w1 := GetInt16(buf, off), GetInt16(buf, off+2)
	if w0 == 0 && w1 == 0 {
		return time.Time{}
	}
	hour, minute, second := w0>>11, (w0>>5)&0x3F, (w0&0x1F)*2
	year, month, day := w1>>9, (w1>>5)&0x0F, w1&0x1F
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}
	}
	if year < 70 {
		year += 2000
	} else {
		year += 1900
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}
