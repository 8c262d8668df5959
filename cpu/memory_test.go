package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newMemory() *Memory {
	return NewMemory(NewRegisters(ATmega328P))
}

func TestMemory(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory()
	regs := mem.Registers()

	assert.Equal(0x4000, mem.ProgramWords())

	mem.Write(0x0100, 0x11)
	mem.Write(0x08ff, 0x22)
	assert.Equal(byte(0x11), mem.Read(0x0100))
	assert.Equal(byte(0x22), mem.Read(0x08ff))
	assert.Equal([]byte{0x11, 0x00}, mem.Slice(0x0100, 2))

	// Registers are mirrored at the bottom of the data space.
	regs.Write(5, 0xaa)
	assert.Equal(byte(0xaa), mem.Read(0x0005))
	mem.Write(0x0010, 0x55)
	assert.Equal(byte(0x55), regs.Read(16))
	mem.Write(0x005f, SREG_T)
	assert.True(regs.Flag(FLAG_T))

	mem.Reset()
	assert.Equal(byte(0), mem.Read(0x0100))
	assert.Equal(byte(0xaa), regs.Read(5))

	assert.Panics(func() { mem.Read(0x0900) })
	assert.Panics(func() { mem.Write(0x0900, 0) })
	assert.Panics(func() { mem.Slice(0x08ff, 2) })
}

func TestMemoryStack(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory()
	regs := mem.Registers()

	regs.Write(3, 0x7a)
	mem.Push(regs.Read(3))
	assert.Equal(uint16(0x08fe), regs.SP())
	assert.Equal(byte(0x7a), mem.Read(0x08ff))

	assert.Equal(byte(0x7a), mem.Pop())
	assert.Equal(uint16(0x08ff), regs.SP())

	mem.PushPc(0x1234)
	assert.Equal(uint16(0x08fd), regs.SP())
	assert.Equal(byte(0x34), mem.Read(0x08ff))
	assert.Equal(byte(0x12), mem.Read(0x08fe))
	assert.Equal(uint16(0x1234), mem.PopPc())
	assert.Equal(uint16(0x08ff), regs.SP())
}

func TestMemoryStackBounds(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory()
	regs := mem.Registers()

	// Pop past RAMEND.
	err := POLICY_CHECKED.Guard(func() { mem.Pop() })
	var bounds *ErrBounds
	if assert.ErrorAs(err, &bounds) {
		assert.Equal(SPACE_STACK, bounds.Space)
		assert.Equal(0x0900, bounds.Index)
	}
	assert.Equal(uint16(0x08ff), regs.SP())

	// Push into the I/O bank.
	regs.SetSP(0x00ff)
	err = POLICY_CHECKED.Guard(func() { mem.Push(1) })
	if assert.ErrorAs(err, &bounds) {
		assert.Equal(SPACE_STACK, bounds.Space)
		assert.Equal(0x00ff, bounds.Index)
	}
	assert.Equal(uint16(0x00ff), regs.SP())

	table := [](struct {
		name  string
		sp    uint16
		push  func()
		index int
	}){
		{"push_at_sram_start", 0x0100, func() { mem.Push(0x55) }, 0x00ff},
		{"push_pc_at_sram_start", 0x0100, func() { mem.PushPc(0x1234) }, 0x00fe},
		{"push_pc_one_byte_left", 0x0101, func() { mem.PushPc(0x1234) }, 0x00ff},
	}

	for _, entry := range table {
		mem.Reset()
		regs.SetSP(entry.sp)

		// The guard recovers without undoing anything: the push itself
		// must fault before it writes.
		err := POLICY_CHECKED.Guard(entry.push)
		if assert.ErrorAs(err, &bounds, entry.name) {
			assert.Equal(SPACE_STACK, bounds.Space, entry.name)
			assert.Equal(entry.index, bounds.Index, entry.name)
		}
		assert.Equal(entry.sp, regs.SP(), entry.name)
		assert.Equal([]byte{0, 0}, mem.Slice(0x0100, 2), entry.name)
	}

	// The last SRAM byte below the stack is still usable.
	regs.SetSP(0x0101)
	mem.Push(0x55)
	assert.Equal(uint16(0x0100), regs.SP())
	assert.Equal(byte(0x55), mem.Read(0x0101))
}

func TestMemoryProgram(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory()

	assert.NoError(mem.SetProgram([]uint16{0x940c, 0x0100}))
	assert.Equal(uint16(0x940c), mem.ProgramWord(0))
	assert.Equal(uint16(0x0100), mem.ProgramWord(1))
	assert.Equal(uint16(0x0000), mem.ProgramWord(2))
	assert.Equal(uint16(0x940c), mem.ProgramWord(0x4000))

	assert.Equal(byte(0x0c), mem.ProgramByte(0))
	assert.Equal(byte(0x94), mem.ProgramByte(1))
	assert.Equal(byte(0x00), mem.ProgramByte(2))
	assert.Equal(byte(0x01), mem.ProgramByte(3))

	assert.NoError(mem.SetProgramByte(5, 0xab))
	assert.Equal(uint16(0xab00), mem.ProgramWord(2))
	assert.NoError(mem.SetProgramByte(4, 0xcd))
	assert.Equal(uint16(0xabcd), mem.ProgramWord(2))

	assert.ErrorIs(mem.SetProgramByte(0x8000, 0), ErrProgramRange)
	assert.ErrorIs(mem.SetProgram(make([]uint16, 0x4001)), ErrProgramRange)

	words := mem.Program()
	assert.Len(words, 0x4000)
	words[0] = 0
	assert.Equal(uint16(0x940c), mem.ProgramWord(0))

	mem.ClearProgram()
	assert.Equal(uint16(0), mem.ProgramWord(0))
}
