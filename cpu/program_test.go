package cpu

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Ip: 0, Words: []string{"ldi", "r16", "0x10"}, Codes: []uint16{0xe100}},
			{LineNo: 2, Ip: 1, Words: []string{"jmp", "main"}, Codes: []uint16{0x940c, 0x0004}, LinkLabel: "main"},
			{LineNo: 4, Ip: 4, Words: []string{"ret"}, Codes: []uint16{0x9508}},
		},
	}
}

func TestProgramDebug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	table := [](struct {
		pc     uint16
		lineno int
		index  int
	}){
		{0, 1, 0},
		{1, 2, 0},
		{2, 2, 1},
		{4, 4, 0},
	}

	for _, entry := range table {
		dbg := prog.Debug(entry.pc)
		if assert.NotNil(dbg.Opcode, "pc %d", entry.pc) {
			assert.Equal(entry.lineno, dbg.LineNo, "pc %d", entry.pc)
			assert.Equal(entry.index, dbg.Index, "pc %d", entry.pc)
		}
		assert.Equal(entry.lineno, prog.LineNo(entry.pc))
	}

	// The .org gap
	dbg := prog.Debug(3)
	assert.Nil(dbg.Opcode)
	assert.Equal(0, prog.LineNo(3))
	assert.Equal(0, prog.LineNo(100))
}

func TestProgramWords(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	codes := maps.Collect(prog.Codes())
	assert.Equal(map[uint16]uint16{0: 0xe100, 1: 0x940c, 2: 0x0004, 4: 0x9508}, codes)

	assert.Equal([]uint16{0xe100, 0x940c, 0x0004, 0x0000, 0x9508}, prog.Words())

	empty := &Program{}
	assert.Empty(empty.Words())
}
