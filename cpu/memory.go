package cpu

// Memory is the Harvard memory image: word-addressed program memory and the
// byte-addressed data space. The bottom of the data space is shared with
// the register file.
type Memory struct {
	layout  Layout
	regs    *Registers
	store   *store
	program []uint16
}

// NewMemory creates a zeroed memory image sharing the register file's
// data space.
func NewMemory(regs *Registers) (mem *Memory) {
	mem = &Memory{
		layout:  regs.layout,
		regs:    regs,
		store:   regs.store,
		program: make([]uint16, regs.layout.ProgramWords),
	}
	return
}

// Registers returns the register file mirrored at the bottom of data memory.
func (mem *Memory) Registers() *Registers {
	return mem.regs
}

// Reset zeroes the SRAM partition. Program memory is untouched.
func (mem *Memory) Reset() {
	clear(mem.store.data[mem.layout.SramStart:])
}

// Read returns the data memory byte at addr.
func (mem *Memory) Read(addr uint16) byte {
	if int(addr) >= len(mem.store.data) {
		fault(SPACE_DATA, int(addr), len(mem.store.data))
	}
	return mem.store.data[addr]
}

// Write sets the data memory byte at addr.
func (mem *Memory) Write(addr uint16, value byte) {
	if int(addr) >= len(mem.store.data) {
		fault(SPACE_DATA, int(addr), len(mem.store.data))
	}
	mem.store.set(addr, value)
}

// Slice returns a copy of the data memory in [addr, addr+size).
func (mem *Memory) Slice(addr uint16, size int) (data []byte) {
	end := int(addr) + size
	if end > len(mem.store.data) {
		fault(SPACE_DATA, end-1, len(mem.store.data))
	}
	data = make([]byte, size)
	copy(data, mem.store.data[addr:end])
	return
}

// stackCheck faults if SP is outside of SRAM.
func (mem *Memory) stackCheck(sp uint16) {
	if !mem.layout.IsSram(sp) {
		fault(SPACE_STACK, int(sp), int(mem.layout.SramEnd)+1)
	}
}

// Push writes value at SP, then decrements SP. SP must stay inside SRAM.
func (mem *Memory) Push(value byte) {
	sp := mem.regs.SP()
	mem.stackCheck(sp)
	mem.stackCheck(sp - 1)
	mem.store.set(sp, value)
	mem.regs.SetSP(sp - 1)
}

// Pop increments SP, then reads the value at SP.
func (mem *Memory) Pop() (value byte) {
	sp := mem.regs.SP() + 1
	mem.stackCheck(sp)
	mem.regs.SetSP(sp)
	value = mem.store.data[sp]
	return
}

// PushPc pushes a return address, low byte first. Nothing is written
// unless both bytes fit.
func (mem *Memory) PushPc(pc uint16) {
	mem.stackCheck(mem.regs.SP() - 2)
	mem.Push(byte(pc))
	mem.Push(byte(pc >> 8))
}

// PopPc pops a return address pushed by PushPc.
func (mem *Memory) PopPc() (pc uint16) {
	hi := mem.Pop()
	lo := mem.Pop()
	pc = uint16(hi)<<8 | uint16(lo)
	return
}

// ProgramWords returns the size of program memory, in words.
func (mem *Memory) ProgramWords() int {
	return len(mem.program)
}

// ProgramWord returns the program memory word at a word index, wrapping at
// the end of program memory as the program counter does.
func (mem *Memory) ProgramWord(index uint16) uint16 {
	return mem.program[int(index)%len(mem.program)]
}

// ProgramByte returns the program memory byte at a byte address (LPM).
// Words are stored little-endian.
func (mem *Memory) ProgramByte(addr uint16) byte {
	word := mem.ProgramWord(addr >> 1)
	if addr&1 != 0 {
		return byte(word >> 8)
	}
	return byte(word)
}

// SetProgramByte sets the program memory byte at a byte address. It is
// only used while loading a program.
func (mem *Memory) SetProgramByte(addr uint32, value byte) (err error) {
	index := addr >> 1
	if index >= uint32(len(mem.program)) {
		err = ErrProgramRange
		return
	}
	word := mem.program[index]
	if addr&1 != 0 {
		word = (word & 0x00ff) | uint16(value)<<8
	} else {
		word = (word & 0xff00) | uint16(value)
	}
	mem.program[index] = word
	return
}

// SetProgram copies words into program memory starting at word 0.
func (mem *Memory) SetProgram(words []uint16) (err error) {
	if len(words) > len(mem.program) {
		err = ErrProgramRange
		return
	}
	copy(mem.program, words)
	return
}

// Program returns a copy of program memory.
func (mem *Memory) Program() (words []uint16) {
	words = make([]uint16, len(mem.program))
	copy(words, mem.program)
	return
}

// ClearProgram zeroes program memory.
func (mem *Memory) ClearProgram() {
	clear(mem.program)
}
