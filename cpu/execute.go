package cpu

import (
	"fmt"
	"log"
)

// Cpu is the simulation context of the AVR core: the register file, the
// memory image sharing its data space, and the cycle counter.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Registers *Registers // Register file.
	Memory    *Memory    // Program and data memory.

	Cycles uint64 // Elapsed clock cycles.
}

// NewCpu creates a zeroed core for a board layout.
func NewCpu(layout Layout) (cpu *Cpu) {
	regs := NewRegisters(layout)
	cpu = &Cpu{
		Registers: regs,
		Memory:    NewMemory(regs),
	}

	return
}

// Reset the core state.
// - Clears the registers, I/O bank and SRAM.
// - Sets PC to 0 and SP to RAMEND.
// - Zeros the cycle counter.
//
// Program memory is kept.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.Memory.Reset()
	cpu.Cycles = 0
}

// Fetch returns the program word at a word index.
func (cpu *Cpu) Fetch(pc uint16) uint16 {
	return cpu.Memory.ProgramWord(pc)
}

// Decode decodes the instruction at the current PC.
func (cpu *Cpu) Decode() (inst Instruction, err error) {
	return Decode(cpu.Fetch, cpu.Registers.PC())
}

// String returns the current core state as a string.
func (cpu *Cpu) String() (text string) {
	regs := cpu.Registers

	var sreg string
	for fl := FLAG_I; ; fl-- {
		if regs.Flag(fl) {
			sreg += fl.String()
		} else {
			sreg += "-"
		}
		if fl == FLAG_C {
			break
		}
	}

	text += fmt.Sprintf("   pc: %04x\n", regs.PC())
	text += fmt.Sprintf("   sp: %04x\n", regs.SP())
	text += fmt.Sprintf(" sreg: %v\n", sreg)
	text += fmt.Sprintf("cycle: %d\n", cpu.Cycles)
	for row := 0; row < regs.layout.Registers; row += 8 {
		text += fmt.Sprintf("  r%02d:", row)
		for n := row; n < row+8 && n < regs.layout.Registers; n++ {
			text += fmt.Sprintf(" %02x", regs.Read(uint8(n)))
		}
		text += "\n"
	}

	return
}

// pair maps an index pointer of an instruction to the board's register pair.
func (cpu *Cpu) pair(ptr uint8) uint8 {
	layout := cpu.Registers.layout
	switch ptr {
	case PAIR_W:
		return layout.PairW
	case PAIR_X:
		return layout.PairX
	case PAIR_Y:
		return layout.PairY
	case PAIR_Z:
		return layout.PairZ
	}
	return ptr
}

// indirect computes the effective data address of an LD/ST, applying the
// pre-decrement or post-increment to the pointer register.
func (cpu *Cpu) indirect(inst Instruction) (addr uint16) {
	regs := cpu.Registers
	pair := cpu.pair(inst.Pointer)
	addr = regs.Pair(pair)

	switch inst.Mode {
	case MODE_PRE_DEC:
		addr--
		regs.SetPair(pair, addr)
	case MODE_POST_INC:
		regs.SetPair(pair, addr+1)
	}

	return
}

// skip returns the PC update and extra cycles to skip the next instruction.
func (cpu *Cpu) skip() (update PcUpdate, cycles int) {
	cycles = 1
	if TwoWord(cpu.Fetch(cpu.Registers.PC() + 1)) {
		cycles = 2
	}
	update = PcUpdate{Mode: PC_RELATIVE, Value: 1 + cycles}
	return
}

// signed widens a byte as a two's complement value.
func signed(value byte) int16 {
	return int16(int8(value))
}

// Execute executes a single decoded instruction at the current PC, and
// returns the clock cycles it consumed. Operand indices outside of their
// partitions are raised through the bounds policy.
func (cpu *Cpu) Execute(inst Instruction) (cycles int, err error) {
	if !inst.Op.Valid() {
		err = ErrInstructionInvalid
		return
	}

	regs := cpu.Registers
	mem := cpu.Memory
	pc := regs.PC()
	sreg := regs.SREG()

	if cpu.Verbose {
		log.Printf("cpu: %04x: %v", pc, inst)
	}

	cycles = inst.Op.Cycles()
	update := PcUpdate{Mode: PC_NEXT}
	if inst.Words() == 2 {
		update = PcUpdate{Mode: PC_SKIP}
	}

	// Register-to-register and register-immediate ALU operations.
	alu := func(res byte, out byte) {
		regs.Write(inst.Rd, res)
		regs.SetSREG(out)
	}
	carry := sreg&SREG_C != 0

	switch inst.Op {
	case OP_NOP, OP_SLEEP, OP_WDR:
		// pass
	case OP_BREAK:
		if cpu.Verbose {
			log.Printf("cpu: %04x: break", pc)
		}
	case OP_ADD:
		alu(aluAdd(sreg, regs.Read(inst.Rd), regs.Read(inst.Rr), false))
	case OP_ADC:
		alu(aluAdd(sreg, regs.Read(inst.Rd), regs.Read(inst.Rr), carry))
	case OP_SUB:
		alu(aluSub(sreg, regs.Read(inst.Rd), regs.Read(inst.Rr), false, false))
	case OP_SUBI:
		alu(aluSub(sreg, regs.Read(inst.Rd), inst.K, false, false))
	case OP_SBC:
		alu(aluSub(sreg, regs.Read(inst.Rd), regs.Read(inst.Rr), carry, true))
	case OP_SBCI:
		alu(aluSub(sreg, regs.Read(inst.Rd), inst.K, carry, true))
	case OP_CP:
		_, out := aluSub(sreg, regs.Read(inst.Rd), regs.Read(inst.Rr), false, false)
		regs.SetSREG(out)
	case OP_CPC:
		_, out := aluSub(sreg, regs.Read(inst.Rd), regs.Read(inst.Rr), carry, true)
		regs.SetSREG(out)
	case OP_CPI:
		_, out := aluSub(sreg, regs.Read(inst.Rd), inst.K, false, false)
		regs.SetSREG(out)
	case OP_AND, OP_ANDI, OP_OR, OP_ORI, OP_EOR:
		d := regs.Read(inst.Rd)
		var res byte
		switch inst.Op {
		case OP_AND:
			res = d & regs.Read(inst.Rr)
		case OP_ANDI:
			res = d & inst.K
		case OP_OR:
			res = d | regs.Read(inst.Rr)
		case OP_ORI:
			res = d | inst.K
		case OP_EOR:
			res = d ^ regs.Read(inst.Rr)
		}
		alu(res, aluLogic(sreg, res))
	case OP_COM:
		alu(aluCom(sreg, regs.Read(inst.Rd)))
	case OP_NEG:
		alu(aluNeg(sreg, regs.Read(inst.Rd)))
	case OP_INC:
		alu(aluInc(sreg, regs.Read(inst.Rd)))
	case OP_DEC:
		alu(aluDec(sreg, regs.Read(inst.Rd)))
	case OP_LSR:
		alu(aluLsr(sreg, regs.Read(inst.Rd)))
	case OP_ASR:
		alu(aluAsr(sreg, regs.Read(inst.Rd)))
	case OP_ROR:
		alu(aluRor(sreg, regs.Read(inst.Rd)))
	case OP_SWAP:
		d := regs.Read(inst.Rd)
		regs.Write(inst.Rd, d<<4|d>>4)
	case OP_ADIW:
		res, out := aluAdiw(sreg, regs.Pair(inst.Rd), uint16(inst.K))
		regs.SetPair(inst.Rd, res)
		regs.SetSREG(out)
	case OP_SBIW:
		res, out := aluSbiw(sreg, regs.Pair(inst.Rd), uint16(inst.K))
		regs.SetPair(inst.Rd, res)
		regs.SetSREG(out)
	case OP_MUL:
		product := uint16(regs.Read(inst.Rd)) * uint16(regs.Read(inst.Rr))
		regs.SetPair(0, product)
		regs.SetSREG(aluMul(sreg, product))
	case OP_MULS:
		product := uint16(signed(regs.Read(inst.Rd)) * signed(regs.Read(inst.Rr)))
		regs.SetPair(0, product)
		regs.SetSREG(aluMul(sreg, product))
	case OP_MULSU:
		product := uint16(signed(regs.Read(inst.Rd)) * int16(regs.Read(inst.Rr)))
		regs.SetPair(0, product)
		regs.SetSREG(aluMul(sreg, product))
	case OP_FMUL, OP_FMULS, OP_FMULSU:
		d, r := regs.Read(inst.Rd), regs.Read(inst.Rr)
		var product uint16
		switch inst.Op {
		case OP_FMUL:
			product = uint16(d) * uint16(r)
		case OP_FMULS:
			product = uint16(signed(d) * signed(r))
		case OP_FMULSU:
			product = uint16(signed(d) * int16(r))
		}
		res, out := aluFmul(sreg, product)
		regs.SetPair(0, res)
		regs.SetSREG(out)
	case OP_MOV:
		regs.Write(inst.Rd, regs.Read(inst.Rr))
	case OP_MOVW:
		regs.SetPair(inst.Rd, regs.Pair(inst.Rr))
	case OP_LDI:
		regs.Write(inst.Rd, inst.K)
	case OP_LD:
		regs.Write(inst.Rd, mem.Read(cpu.indirect(inst)))
	case OP_LDD:
		regs.Write(inst.Rd, mem.Read(regs.Pair(cpu.pair(inst.Pointer))+uint16(inst.Q)))
	case OP_LDS:
		regs.Write(inst.Rd, mem.Read(uint16(inst.Address)))
	case OP_ST:
		value := regs.Read(inst.Rr)
		mem.Write(cpu.indirect(inst), value)
	case OP_STD:
		mem.Write(regs.Pair(cpu.pair(inst.Pointer))+uint16(inst.Q), regs.Read(inst.Rr))
	case OP_STS:
		mem.Write(uint16(inst.Address), regs.Read(inst.Rr))
	case OP_LPM:
		pair := regs.layout.PairZ
		z := regs.Pair(pair)
		value := mem.ProgramByte(z)
		if inst.Implied {
			regs.Write(0, value)
		} else {
			regs.Write(inst.Rd, value)
		}
		if inst.Mode == MODE_POST_INC {
			regs.SetPair(pair, z+1)
		}
	case OP_PUSH:
		mem.Push(regs.Read(inst.Rr))
	case OP_POP:
		regs.Write(inst.Rd, mem.Pop())
	case OP_IN:
		regs.Write(inst.Rd, regs.ReadIo(inst.A))
	case OP_OUT:
		regs.WriteIo(inst.A, regs.Read(inst.Rr))
	case OP_SBI:
		regs.WriteIo(inst.A, regs.ReadIo(inst.A)|1<<inst.B)
	case OP_CBI:
		regs.WriteIo(inst.A, regs.ReadIo(inst.A)&^(1<<inst.B))
	case OP_BSET:
		regs.SetSREG(sreg | 1<<inst.B)
	case OP_BCLR:
		regs.SetSREG(sreg &^ (1 << inst.B))
	case OP_BST:
		regs.SetFlag(FLAG_T, bit(regs.Read(inst.Rd), uint(inst.B)))
	case OP_BLD:
		d := regs.Read(inst.Rd) &^ (1 << inst.B)
		if sreg&SREG_T != 0 {
			d |= 1 << inst.B
		}
		regs.Write(inst.Rd, d)
	case OP_RJMP:
		update = PcUpdate{Mode: PC_RELATIVE, Value: 1 + int(inst.Offset)}
	case OP_RCALL:
		mem.PushPc(pc + 1)
		update = PcUpdate{Mode: PC_RELATIVE, Value: 1 + int(inst.Offset)}
	case OP_JMP:
		update = PcUpdate{Mode: PC_ABSOLUTE, Value: int(inst.Address)}
	case OP_CALL:
		mem.PushPc(pc + 2)
		update = PcUpdate{Mode: PC_ABSOLUTE, Value: int(inst.Address)}
	case OP_IJMP:
		update = PcUpdate{Mode: PC_ABSOLUTE, Value: int(regs.Z())}
	case OP_ICALL:
		mem.PushPc(pc + 1)
		update = PcUpdate{Mode: PC_ABSOLUTE, Value: int(regs.Z())}
	case OP_RET:
		update = PcUpdate{Mode: PC_ABSOLUTE, Value: int(mem.PopPc())}
	case OP_RETI:
		update = PcUpdate{Mode: PC_ABSOLUTE, Value: int(mem.PopPc())}
		regs.SetFlag(FLAG_I, true)
	case OP_CPSE, OP_SBRC, OP_SBRS, OP_SBIC, OP_SBIS:
		var taken bool
		switch inst.Op {
		case OP_CPSE:
			taken = regs.Read(inst.Rd) == regs.Read(inst.Rr)
		case OP_SBRC:
			taken = !bit(regs.Read(inst.Rd), uint(inst.B))
		case OP_SBRS:
			taken = bit(regs.Read(inst.Rd), uint(inst.B))
		case OP_SBIC:
			taken = !bit(regs.ReadIo(inst.A), uint(inst.B))
		case OP_SBIS:
			taken = bit(regs.ReadIo(inst.A), uint(inst.B))
		}
		if taken {
			var extra int
			update, extra = cpu.skip()
			cycles += extra
		}
	case OP_BRBS, OP_BRBC:
		set := bit(sreg, uint(inst.B))
		if set == (inst.Op == OP_BRBS) {
			update = PcUpdate{Mode: PC_RELATIVE, Value: 1 + int(inst.Offset)}
			cycles++
		}
	}

	regs.UpdatePc(update)
	cpu.Cycles += uint64(cycles)

	return
}

// ExecuteWith executes an instruction under a bounds policy. With
// POLICY_CHECKED a bounds fault is returned as an *ErrBounds, and every
// register, memory, PC and cycle counter change made by the faulting
// instruction is undone.
func (cpu *Cpu) ExecuteWith(policy Policy, inst Instruction) (cycles int, err error) {
	if policy != POLICY_CHECKED {
		return cpu.Execute(inst)
	}

	st := cpu.Registers.store
	pc := cpu.Registers.pc
	elapsed := cpu.Cycles

	// Anything short of a clean finish, including a panic that is not a
	// bounds fault, leaves the state as it was.
	done := false
	st.begin()
	defer func() {
		if done {
			st.commit()
			return
		}
		st.rollback()
		cpu.Registers.pc = pc
		cpu.Cycles = elapsed
	}()

	fault := policy.Guard(func() {
		cycles, err = cpu.Execute(inst)
	})
	if fault != nil {
		cycles = 0
		err = fault
		if cpu.Verbose {
			log.Printf("cpu: %04x: %v: %v", pc, inst, fault)
		}
		return
	}
	done = true

	return
}
