// Package ihex loads and writes Intel HEX program images.
package ihex

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ezrec/avrsim/cpu"
)

// ProgramWriter is the program memory a HEX image is loaded into.
// *cpu.Memory implements it.
type ProgramWriter interface {
	ProgramWords() int
	SetProgramByte(addr uint32, value byte) error
}

// Image summarizes a loaded HEX file.
type Image struct {
	Records  int    // Records read, including the EOF record.
	Size     int    // Data bytes written.
	End      uint32 // One past the highest byte address written.
	Start    uint32 // Start address, from a type 03 or 05 record.
	HasStart bool   // Set if a start address record was read.
}

// Load reads Intel HEX records from r into program memory, until the EOF
// record. Each data record is written only once it has been completely
// validated; records before a failing one stay written.
func Load(r io.Reader, dst ProgramWriter) (img Image, err error) {
	scanner := bufio.NewScanner(r)

	var lineno int
	var line string
	var base uint32

	defer func() {
		if err != nil && lineno > 0 && err != ErrMissingEOF {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	limit := uint32(dst.ProgramWords()) * 2

	for scanner.Scan() {
		line = scanner.Text()
		lineno++

		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		var rec Record
		rec, err = ParseRecord(line)
		if err != nil {
			return
		}
		img.Records++

		switch rec.Type {
		case RECORD_DATA:
			addr := base + uint32(rec.Address)
			end := addr + uint32(len(rec.Data))
			if end > limit {
				err = cpu.ErrProgramRange
				return
			}
			for n, b := range rec.Data {
				err = dst.SetProgramByte(addr+uint32(n), b)
				if err != nil {
					return
				}
			}
			img.Size += len(rec.Data)
			img.End = max(img.End, end)
		case RECORD_EOF:
			return
		case RECORD_EXTENDED_SEGMENT:
			base = rec.Value() << 4
		case RECORD_EXTENDED_LINEAR:
			base = rec.Value() << 16
		case RECORD_START_SEGMENT, RECORD_START_LINEAR:
			img.Start = rec.Value()
			img.HasStart = true
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	lineno = 0
	err = ErrMissingEOF
	return
}

// Encode writes data as Intel HEX records of recordSize bytes starting at
// address 0, with extended linear address records past 64 KiB, and a
// final EOF record.
func Encode(w io.Writer, data []byte, recordSize int) (err error) {
	if recordSize < 1 || recordSize > 255 {
		err = ErrEncodeSize
		return
	}

	emit := func(rec Record) error {
		_, err := fmt.Fprintln(w, rec.String())
		return err
	}

	var segment uint32
	for addr := 0; addr < len(data); {
		if upper := uint32(addr) >> 16; upper != segment {
			segment = upper
			err = emit(Record{Type: RECORD_EXTENDED_LINEAR, Data: []byte{byte(upper >> 8), byte(upper)}})
			if err != nil {
				return
			}
		}

		// Records never straddle a 64 KiB boundary.
		end := min(addr+recordSize, len(data), int(segment+1)<<16)
		err = emit(Record{Type: RECORD_DATA, Address: uint16(addr), Data: data[addr:end]})
		if err != nil {
			return
		}
		addr = end
	}

	err = emit(Record{Type: RECORD_EOF})
	return
}

// EncodeWords writes program words, little-endian, as Intel HEX.
func EncodeWords(w io.Writer, words []uint16, recordSize int) (err error) {
	data := make([]byte, 0, len(words)*2)
	for _, word := range words {
		data = append(data, byte(word), byte(word>>8))
	}
	return Encode(w, data, recordSize)
}
