package cpu

import (
	"fmt"
	"io"
	"iter"

	"github.com/BurntSushi/toml"
)

// Index register pair base registers.
const (
	PAIR_W = uint8(24) // r25:r24
	PAIR_X = uint8(26) // r27:r26
	PAIR_Y = uint8(28) // r29:r28
	PAIR_Z = uint8(30) // r31:r30
)

// Layout describes the register and memory partition boundaries of a board.
// Data addresses are byte addresses in the unified data space.
type Layout struct {
	Name string `toml:"name"`

	Registers    int    `toml:"registers"`     // General purpose registers, mirrored at data address 0.
	IoStart      uint16 `toml:"io_start"`      // First I/O register data address.
	IoEnd        uint16 `toml:"io_end"`        // Last I/O register data address.
	SramStart    uint16 `toml:"sram_start"`    // First SRAM data address.
	SramEnd      uint16 `toml:"sram_end"`      // Last SRAM data address (RAMEND).
	ProgramWords int    `toml:"program_words"` // Program memory size, in 16-bit words.

	Sreg uint16 `toml:"sreg"` // SREG data address.
	Spl  uint16 `toml:"spl"`  // SPL data address.
	Sph  uint16 `toml:"sph"`  // SPH data address.

	PairW uint8 `toml:"pair_w"`
	PairX uint8 `toml:"pair_x"`
	PairY uint8 `toml:"pair_y"`
	PairZ uint8 `toml:"pair_z"`

	Ports map[string]uint16 `toml:"ports"` // Named I/O registers, by data address.
}

// ATmega328P is the layout of the ATmega328P: 32 KiB flash, 2 KiB SRAM.
var ATmega328P = Layout{
	Name:         "ATmega328P",
	Registers:    32,
	IoStart:      0x0020,
	IoEnd:        0x00ff,
	SramStart:    0x0100,
	SramEnd:      0x08ff,
	ProgramWords: 0x4000,
	Sreg:         0x005f,
	Spl:          0x005d,
	Sph:          0x005e,
	PairW:        PAIR_W,
	PairX:        PAIR_X,
	PairY:        PAIR_Y,
	PairZ:        PAIR_Z,
	Ports: map[string]uint16{
		"PINB":   0x0023,
		"DDRB":   0x0024,
		"PORTB":  0x0025,
		"PINC":   0x0026,
		"DDRC":   0x0027,
		"PORTC":  0x0028,
		"PIND":   0x0029,
		"DDRD":   0x002a,
		"PORTD":  0x002b,
		"GPIOR0": 0x003e,
		"SMCR":   0x0053,
		"MCUCR":  0x0055,
	},
}

// LoadLayout decodes a TOML board description. Fields missing from the
// input keep their ATmega328P values.
func LoadLayout(in io.Reader) (layout Layout, err error) {
	layout = ATmega328P
	layout.Ports = nil

	_, err = toml.NewDecoder(in).Decode(&layout)
	if err != nil {
		return
	}

	err = layout.Validate()
	return
}

// Validate checks that the partitions are ordered and non-overlapping.
func (layout Layout) Validate() (err error) {
	switch {
	case layout.Registers <= 0 || layout.Registers > 32:
		err = ErrLayoutRegisters
	case int(layout.IoStart) != layout.Registers || layout.IoEnd < layout.IoStart:
		err = ErrLayoutIo
	case layout.SramStart != layout.IoEnd+1 || layout.SramEnd < layout.SramStart:
		err = ErrLayoutSram
	case layout.ProgramWords <= 0 || layout.ProgramWords > 0x10000:
		err = ErrLayoutProgram
	case !layout.IsIo(layout.Sreg) || !layout.IsIo(layout.Spl) || !layout.IsIo(layout.Sph):
		err = ErrLayoutSpecial
	}

	for _, base := range []uint8{layout.PairW, layout.PairX, layout.PairY, layout.PairZ} {
		if err == nil && int(base)+1 >= layout.Registers {
			err = ErrLayoutRegisters
		}
	}

	return
}

// DataSize returns the size of the unified data space in bytes.
func (layout Layout) DataSize() int {
	return int(layout.SramEnd) + 1
}

// IsIo returns true if the data address is in the I/O partition.
func (layout Layout) IsIo(addr uint16) bool {
	return addr >= layout.IoStart && addr <= layout.IoEnd
}

// IsSram returns true if the data address is in the SRAM partition.
func (layout Layout) IsSram(addr uint16) bool {
	return addr >= layout.SramStart && addr <= layout.SramEnd
}

// Defines returns the layout's named addresses, as assembler equates.
// I/O registers are given as I/O addresses (data address - 0x20), with a
// _MEM suffix for the data address.
func (layout Layout) Defines() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		fixed := [][2]string{
			{"RAMSTART", fmt.Sprintf("0x%04x", layout.SramStart)},
			{"RAMEND", fmt.Sprintf("0x%04x", layout.SramEnd)},
			{"FLASHEND", fmt.Sprintf("0x%04x", layout.ProgramWords*2-1)},
			{"SREG", fmt.Sprintf("0x%02x", layout.Sreg-layout.IoStart)},
			{"SPL", fmt.Sprintf("0x%02x", layout.Spl-layout.IoStart)},
			{"SPH", fmt.Sprintf("0x%02x", layout.Sph-layout.IoStart)},
		}
		for _, kv := range fixed {
			if !yield(kv[0], kv[1]) {
				return
			}
		}
		for name, addr := range layout.Ports {
			if !yield(name, fmt.Sprintf("0x%02x", addr-layout.IoStart)) {
				return
			}
			if !yield(name+"_MEM", fmt.Sprintf("0x%04x", addr)) {
				return
			}
		}
	}
}
