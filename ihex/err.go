package ihex

import (
	"errors"

	"github.com/ezrec/avrsim/translate"
)

var f = translate.From

var (
	ErrRecordMarker      = errors.New(f("record start marker missing"))
	ErrRecordHex         = errors.New(f("record is not hexadecimal"))
	ErrRecordLength      = errors.New(f("record length mismatch"))
	ErrRecordSize        = errors.New(f("record data size invalid"))
	ErrRecordChecksum    = errors.New(f("record checksum mismatch"))
	ErrRecordUnsupported = errors.New(f("record type unsupported"))
	ErrMissingEOF        = errors.New(f("end of file record missing"))
	ErrEncodeSize        = errors.New(f("record size must be 1 to 255 bytes"))
)

// ErrChecksum reports a record whose bytes do not sum to zero.
type ErrChecksum struct {
	Expected byte // Checksum computed from the record.
	Actual   byte // Checksum byte found in the record.
}

func (err *ErrChecksum) Error() string {
	return f("checksum 0x%02X, expected 0x%02X", err.Actual, err.Expected)
}

func (err *ErrChecksum) Is(target error) bool {
	return target == ErrRecordChecksum
}

// ErrUnsupportedRecordType reports a record type outside of 00 to 05.
type ErrUnsupportedRecordType struct {
	Type RecordType
}

func (err *ErrUnsupportedRecordType) Error() string {
	return f("record type 0x%02X unsupported", uint8(err.Type))
}

func (err *ErrUnsupportedRecordType) Is(target error) bool {
	return target == ErrRecordUnsupported
}

// ErrSyntax gives the location of a failed record.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}
