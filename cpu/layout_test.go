package cpu

import (
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	assert := assert.New(t)

	layout := ATmega328P
	assert.NoError(layout.Validate())
	assert.Equal(0x0900, layout.DataSize())
	assert.True(layout.IsIo(0x005f))
	assert.False(layout.IsIo(0x0100))
	assert.True(layout.IsSram(0x0100))
	assert.True(layout.IsSram(0x08ff))
	assert.False(layout.IsSram(0x0900))

	defines := maps.Collect(layout.Defines())
	assert.Equal("0x0100", defines["RAMSTART"])
	assert.Equal("0x08ff", defines["RAMEND"])
	assert.Equal("0x7fff", defines["FLASHEND"])
	assert.Equal("0x3f", defines["SREG"])
	assert.Equal("0x3d", defines["SPL"])
	assert.Equal("0x3e", defines["SPH"])
	assert.Equal("0x05", defines["PORTB"])
	assert.Equal("0x0025", defines["PORTB_MEM"])
}

func TestLayoutValidate(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		modify func(layout *Layout)
		err    error
	}){
		{"registers", func(l *Layout) { l.Registers = 0 }, ErrLayoutRegisters},
		{"io_gap", func(l *Layout) { l.IoStart = 0x40 }, ErrLayoutIo},
		{"sram_overlap", func(l *Layout) { l.SramStart = 0x00f0 }, ErrLayoutSram},
		{"sram_backwards", func(l *Layout) { l.SramEnd = 0x00ff }, ErrLayoutSram},
		{"program", func(l *Layout) { l.ProgramWords = 0 }, ErrLayoutProgram},
		{"sreg", func(l *Layout) { l.Sreg = 0x0100 }, ErrLayoutSpecial},
		{"pair", func(l *Layout) { l.PairZ = 31 }, ErrLayoutRegisters},
	}

	for _, entry := range table {
		layout := ATmega328P
		entry.modify(&layout)
		assert.ErrorIs(layout.Validate(), entry.err, entry.name)
	}
}

func TestLoadLayout(t *testing.T) {
	assert := assert.New(t)

	text := `
name = "ATmega168"
sram_end = 0x04ff
program_words = 0x2000

[ports]
PORTB = 0x25
`

	layout, err := LoadLayout(strings.NewReader(text))
	assert.NoError(err)
	assert.Equal("ATmega168", layout.Name)
	assert.Equal(32, layout.Registers)
	assert.Equal(uint16(0x04ff), layout.SramEnd)
	assert.Equal(0x2000, layout.ProgramWords)
	assert.Equal(map[string]uint16{"PORTB": 0x25}, layout.Ports)

	regs := NewRegisters(layout)
	assert.Equal(uint16(0x04ff), regs.SP())

	_, err = LoadLayout(strings.NewReader("registers = 16\n"))
	assert.ErrorIs(err, ErrLayoutIo)

	_, err = LoadLayout(strings.NewReader("registers = \n"))
	assert.Error(err)
}
