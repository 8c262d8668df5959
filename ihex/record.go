package ihex

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// RecordType is the Intel HEX record type field.
type RecordType uint8

const (
	RECORD_DATA             = RecordType(0x00) // Data bytes at an address.
	RECORD_EOF              = RecordType(0x01) // End of file.
	RECORD_EXTENDED_SEGMENT = RecordType(0x02) // Base address = value << 4.
	RECORD_START_SEGMENT    = RecordType(0x03) // CS:IP start address.
	RECORD_EXTENDED_LINEAR  = RecordType(0x04) // Base address = value << 16.
	RECORD_START_LINEAR     = RecordType(0x05) // EIP start address.
)

// Data size of the fixed size record types.
var recordSize = map[RecordType]int{
	RECORD_EOF:              0,
	RECORD_EXTENDED_SEGMENT: 2,
	RECORD_START_SEGMENT:    4,
	RECORD_EXTENDED_LINEAR:  2,
	RECORD_START_LINEAR:     4,
}

// Record is a single Intel HEX record:
//
//	:CCAAAATT[DD...]SS
//
// with a byte count, 16-bit address, type, data, and a checksum byte that
// makes the sum of all record bytes zero modulo 256.
type Record struct {
	Type    RecordType
	Address uint16
	Data    []byte
}

// Value is the big-endian value of the data of an address record.
func (rec Record) Value() (value uint32) {
	for _, b := range rec.Data {
		value = value<<8 | uint32(b)
	}
	return
}

// Checksum is the two's complement of the sum of the record bytes.
func (rec Record) Checksum() byte {
	sum := byte(len(rec.Data)) + byte(rec.Address>>8) + byte(rec.Address) + byte(rec.Type)
	for _, b := range rec.Data {
		sum += b
	}
	return -sum
}

// String returns the record as a line of Intel HEX text.
func (rec Record) String() string {
	return fmt.Sprintf(":%02X%04X%02X%s%02X",
		len(rec.Data), rec.Address, uint8(rec.Type),
		strings.ToUpper(hex.EncodeToString(rec.Data)), rec.Checksum())
}

// ParseRecord parses a line of Intel HEX text.
func ParseRecord(line string) (rec Record, err error) {
	line = strings.TrimSpace(line)

	text, ok := strings.CutPrefix(line, ":")
	if !ok {
		err = ErrRecordMarker
		return
	}

	raw, err := hex.DecodeString(text)
	if err != nil {
		err = ErrRecordHex
		return
	}

	if len(raw) < 5 || len(raw) != int(raw[0])+5 {
		err = ErrRecordLength
		return
	}

	var sum byte
	for _, b := range raw {
		sum += b
	}

	rec = Record{
		Type:    RecordType(raw[3]),
		Address: uint16(raw[1])<<8 | uint16(raw[2]),
		Data:    raw[4 : len(raw)-1],
	}

	if sum != 0 {
		err = &ErrChecksum{Expected: rec.Checksum(), Actual: raw[len(raw)-1]}
		rec = Record{}
		return
	}

	if rec.Type > RECORD_START_LINEAR {
		err = &ErrUnsupportedRecordType{Type: rec.Type}
		rec = Record{}
		return
	}

	if size, fixed := recordSize[rec.Type]; fixed && len(rec.Data) != size {
		err = ErrRecordSize
		rec = Record{}
		return
	}

	return
}
