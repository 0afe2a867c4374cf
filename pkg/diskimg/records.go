// file: pkg/diskimg/records.go

package diskimg

import (
	"fmt"
)

// variableEnd marks the end of the records in a variable length sector.
const variableEnd = 0xFF

// ReadRecords splits the content of a data file into records. Fixed
// records are returned at their full length.
func (v *Volume) ReadRecords(f *TFile) ([][]byte, error) {
	content, err := v.ReadContent(f)
	if err != nil {
		return nil, err
	}
	switch f.attrs.Type {
	case DataFixed:
		return fixedRecords(content, f.recordLength, f.recordsPerSector, f.l3Records)
	case DataVariable:
		return variableRecords(content, f.l3Records)
	}
	return nil, fmt.Errorf("%s: %w: program files have no records", f.Path(), ErrNotSupported)
}

func fixedRecords(content []byte, recordLength, perSector, count int) ([][]byte, error) {
	if recordLength <= 0 || perSector <= 0 {
		return nil, fmt.Errorf("%w: record length %d, %d per sector", ErrInvalidHeader, recordLength, perSector)
	}
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		off := (i/perSector)*BytesPerSector + (i%perSector)*recordLength
		if off+recordLength > len(content) {
			return out, fmt.Errorf("%w: record %d lies beyond the allocated sectors", ErrInvalidHeader, i)
		}
		out = append(out, content[off:off+recordLength])
	}
	return out, nil
}

// variableRecords reads the first sectors sectors. Each holds records
// prefixed by their length and ends at an 0xFF byte.
func variableRecords(content []byte, sectors int) ([][]byte, error) {
	var out [][]byte
	for s := 0; s < sectors; s++ {
		base := s * BytesPerSector
		if base+BytesPerSector > len(content) {
			return out, fmt.Errorf("%w: sector %d lies beyond the allocated sectors", ErrInvalidHeader, s)
		}
		sector := content[base : base+BytesPerSector]
		for pos := 0; pos < BytesPerSector; {
			n := int(sector[pos])
			if n == variableEnd {
				break
			}
			if pos+1+n > BytesPerSector {
				return out, fmt.Errorf("%w: record at sector %d offset %d overruns the sector", ErrInvalidHeader, s, pos)
			}
			out = append(out, sector[pos+1:pos+1+n])
			pos += 1 + n
		}
	}
	return out, nil
}

// RecordData is record content ready for InsertFile, with the descriptor
// fields that go with it.
type RecordData struct {
	Content   []byte
	L3Records int
	EOFOffset int
}

// Apply copies the record bookkeeping into spec.
func (r RecordData) Apply(spec *FileSpec) {
	spec.L3Records = r.L3Records
	spec.EOFOffset = r.EOFOffset
}

// EncodeFixedRecords packs records of recordLength bytes, padding short
// ones with zeros.
func EncodeFixedRecords(records [][]byte, recordLength int) (RecordData, error) {
	perSector := RecordsPerSector(DataFixed, recordLength)
	if perSector == 0 {
		return RecordData{}, &ValidationError{Field: "RecordLength", Message: fmt.Sprintf("%d does not fit a sector", recordLength)}
	}
	sectors := (len(records) + perSector - 1) / perSector
	content := make([]byte, sectors*BytesPerSector)
	for i, rec := range records {
		if len(rec) > recordLength {
			return RecordData{}, fmt.Errorf("record %d: %d bytes exceeds record length %d", i, len(rec), recordLength)
		}
		off := (i/perSector)*BytesPerSector + (i%perSector)*recordLength
		copy(content[off:], rec)
	}
	return RecordData{Content: content, L3Records: len(records)}, nil
}

// EncodeVariableRecords packs records with length prefixes, starting a new
// sector when the next record and the end marker do not fit.
func EncodeVariableRecords(records [][]byte, recordLength int) (RecordData, error) {
	var content []byte
	sector := make([]byte, BytesPerSector)
	pos := 0
	flush := func() {
		sector[pos] = variableEnd
		content = append(content, sector...)
		sector = make([]byte, BytesPerSector)
	}
	for i, rec := range records {
		if len(rec) > recordLength || len(rec) >= variableEnd {
			return RecordData{}, fmt.Errorf("record %d: %d bytes exceeds record length %d", i, len(rec), recordLength)
		}
		if pos+1+len(rec)+1 > BytesPerSector {
			flush()
			pos = 0
		}
		sector[pos] = byte(len(rec))
		copy(sector[pos+1:], rec)
		pos += 1 + len(rec)
	}
	flush()
	return RecordData{
		Content:   content,
		L3Records: len(content) / BytesPerSector,
		EOFOffset: pos,
	}, nil
}
