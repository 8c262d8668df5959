package cpu

// Flag names a status register bit.
type Flag uint8

//go:generate go tool stringer -linecomment -type=Flag
const (
	FLAG_C = Flag(0) // C
	FLAG_Z = Flag(1) // Z
	FLAG_N = Flag(2) // N
	FLAG_V = Flag(3) // V
	FLAG_S = Flag(4) // S
	FLAG_H = Flag(5) // H
	FLAG_T = Flag(6) // T
	FLAG_I = Flag(7) // I
)

// PcMode selects how the program counter is updated after an instruction.
type PcMode int

const (
	PC_NEXT     = PcMode(0) // PC += 1
	PC_SKIP     = PcMode(1) // PC += 2, past a two-word instruction
	PC_RELATIVE = PcMode(2) // PC += Value
	PC_ABSOLUTE = PcMode(3) // PC = Value
)

// PcUpdate is a program counter update request.
type PcUpdate struct {
	Mode  PcMode
	Value int
}

// store is the unified data space backing both the register file and the
// data memory. While journaling, every write records the previous value so
// a faulted instruction can be undone.
type store struct {
	data       []byte
	journaling bool
	journal    []undo
}

type undo struct {
	addr  uint16
	value byte
}

func (st *store) set(addr uint16, value byte) {
	if st.journaling {
		st.journal = append(st.journal, undo{addr: addr, value: st.data[addr]})
	}
	st.data[addr] = value
}

func (st *store) begin() {
	st.journaling = true
	st.journal = st.journal[:0]
}

func (st *store) commit() {
	st.journaling = false
	st.journal = st.journal[:0]
}

func (st *store) rollback() {
	for n := len(st.journal) - 1; n >= 0; n-- {
		entry := st.journal[n]
		st.data[entry.addr] = entry.value
	}
	st.commit()
}

// Registers is the register file: r0-r31, SREG, SP, PC, and the I/O
// register bank. General purpose and I/O registers are views onto the low
// end of the data space.
type Registers struct {
	layout Layout
	store  *store
	pc     uint16
}

// NewRegisters creates a zeroed register file for the layout, with
// SP at the top of SRAM.
func NewRegisters(layout Layout) (regs *Registers) {
	regs = &Registers{
		layout: layout,
		store:  &store{data: make([]byte, layout.DataSize())},
	}
	regs.Reset()
	return
}

// Layout returns the board layout of the register file.
func (regs *Registers) Layout() Layout {
	return regs.layout
}

// Reset zeroes the registers and I/O bank, sets PC to 0 and SP to RAMEND.
func (regs *Registers) Reset() {
	clear(regs.store.data[:regs.layout.SramStart])
	regs.pc = 0
	regs.SetSP(regs.layout.SramEnd)
}

// Read returns general purpose register Rn.
func (regs *Registers) Read(index uint8) byte {
	if int(index) >= regs.layout.Registers {
		fault(SPACE_REGISTER, int(index), regs.layout.Registers)
	}
	return regs.store.data[index]
}

// Write sets general purpose register Rn.
func (regs *Registers) Write(index uint8, value byte) {
	if int(index) >= regs.layout.Registers {
		fault(SPACE_REGISTER, int(index), regs.layout.Registers)
	}
	regs.store.set(uint16(index), value)
}

// Pair returns the 16-bit register pair R(n+1):Rn.
func (regs *Registers) Pair(index uint8) uint16 {
	return uint16(regs.Read(index)) | uint16(regs.Read(index+1))<<8
}

// SetPair sets the 16-bit register pair R(n+1):Rn.
func (regs *Registers) SetPair(index uint8, value uint16) {
	regs.Write(index, byte(value))
	regs.Write(index+1, byte(value>>8))
}

// X returns the X index register.
func (regs *Registers) X() uint16 { return regs.Pair(regs.layout.PairX) }

// Y returns the Y index register.
func (regs *Registers) Y() uint16 { return regs.Pair(regs.layout.PairY) }

// Z returns the Z index register.
func (regs *Registers) Z() uint16 { return regs.Pair(regs.layout.PairZ) }

// ReadIo returns the I/O register at I/O address (data address - IoStart).
func (regs *Registers) ReadIo(addr uint8) byte {
	data := uint16(addr) + regs.layout.IoStart
	if data > regs.layout.IoEnd {
		fault(SPACE_IO, int(addr), int(regs.layout.IoEnd-regs.layout.IoStart)+1)
	}
	return regs.store.data[data]
}

// WriteIo sets the I/O register at I/O address (data address - IoStart).
func (regs *Registers) WriteIo(addr uint8, value byte) {
	data := uint16(addr) + regs.layout.IoStart
	if data > regs.layout.IoEnd {
		fault(SPACE_IO, int(addr), int(regs.layout.IoEnd-regs.layout.IoStart)+1)
	}
	regs.store.set(data, value)
}

// SREG returns the status register.
func (regs *Registers) SREG() byte {
	return regs.store.data[regs.layout.Sreg]
}

// SetSREG sets the status register.
func (regs *Registers) SetSREG(value byte) {
	regs.store.set(regs.layout.Sreg, value)
}

// Flag returns a single status register bit.
func (regs *Registers) Flag(fl Flag) bool {
	return regs.SREG()&(1<<fl) != 0
}

// SetFlag sets or clears a single status register bit.
func (regs *Registers) SetFlag(fl Flag, value bool) {
	regs.SetSREG(flags(regs.SREG(), 1<<fl, flagIf(value, 1<<fl)))
}

// SP returns the stack pointer.
func (regs *Registers) SP() uint16 {
	data := regs.store.data
	return uint16(data[regs.layout.Spl]) | uint16(data[regs.layout.Sph])<<8
}

// SetSP sets the stack pointer.
func (regs *Registers) SetSP(value uint16) {
	regs.store.set(regs.layout.Spl, byte(value))
	regs.store.set(regs.layout.Sph, byte(value>>8))
}

// PC returns the program counter, in words.
func (regs *Registers) PC() uint16 {
	return regs.pc
}

// SetPC sets the program counter, wrapping at the end of program memory.
func (regs *Registers) SetPC(value int) {
	words := regs.layout.ProgramWords
	value %= words
	if value < 0 {
		value += words
	}
	regs.pc = uint16(value)
}

// UpdatePc applies a program counter update.
func (regs *Registers) UpdatePc(update PcUpdate) {
	pc := int(regs.pc)
	switch update.Mode {
	case PC_NEXT:
		pc += 1
	case PC_SKIP:
		pc += 2
	case PC_RELATIVE:
		pc += update.Value
	case PC_ABSOLUTE:
		pc = update.Value
	}
	regs.SetPC(pc)
}

// Add sets Rd = Rd + value, updating C Z N V S H.
func (regs *Registers) Add(index uint8, value byte) (res byte) {
	var sreg byte
	res, sreg = aluAdd(regs.SREG(), regs.Read(index), value, false)
	regs.Write(index, res)
	regs.SetSREG(sreg)
	return
}

// Sub sets Rd = Rd - value, updating C Z N V S H.
func (regs *Registers) Sub(index uint8, value byte) (res byte) {
	var sreg byte
	res, sreg = aluSub(regs.SREG(), regs.Read(index), value, false, false)
	regs.Write(index, res)
	regs.SetSREG(sreg)
	return
}

// Mul sets Rd to the low byte of Rd * value. C is bit 15 of the full
// product and Z is set if the full product is zero.
func (regs *Registers) Mul(index uint8, value byte) (res byte) {
	product := uint16(regs.Read(index)) * uint16(value)
	res = byte(product)
	regs.Write(index, res)
	regs.SetSREG(aluMul(regs.SREG(), product))
	return
}

// Div sets Rd to the unsigned quotient Rd / value, clearing C and V.
// A zero divisor is a bounds fault.
func (regs *Registers) Div(index uint8, value byte) (res byte) {
	if value == 0 {
		fault(SPACE_DIVISOR, 0, 0)
	}
	var sreg byte
	res, sreg = aluDiv(regs.SREG(), regs.Read(index), value)
	regs.Write(index, res)
	regs.SetSREG(sreg)
	return
}
