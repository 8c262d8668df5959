package cpu

import (
	"fmt"
)

// Mode is the indirect addressing mode of LD, ST and LPM.
type Mode int

const (
	MODE_PLAIN    = Mode(0) // (ptr)
	MODE_POST_INC = Mode(1) // (ptr)+
	MODE_PRE_DEC  = Mode(2) // -(ptr)
)

// Instruction is a decoded instruction. Op is the tag; each Op reads only
// the operand fields it needs:
//
//	Rd, Rr       register operands (Rd is also the register of SBRC/SBRS/BST/BLD)
//	K            8-bit immediate, or the 6-bit ADIW/SBIW constant
//	A            I/O address (I/O space, not data space)
//	B            bit number; SREG bit for BSET/BCLR/BRBS/BRBC
//	Q            LDD/STD displacement
//	Pointer      index pair of LD/ST/LDD/STD (PAIR_X, PAIR_Y, PAIR_Z)
//	Mode         indirect addressing mode of LD/ST/LPM
//	Implied      LPM with the implied r0, Z form
//	Address      JMP/CALL word target, LDS/STS data address
//	Offset       RJMP/RCALL/BRBS/BRBC relative word offset
//
// Instructions are values, and are never modified once decoded.
type Instruction struct {
	Op      Op
	Rd      uint8
	Rr      uint8
	K       uint8
	A       uint8
	B       uint8
	Q       uint8
	Pointer uint8
	Mode    Mode
	Implied bool
	Address uint32
	Offset  int16
}

// Words returns the encoded length in words.
func (inst Instruction) Words() int {
	return inst.Op.Words()
}

// Pure returns true if the instruction only touches registers, flags and
// the program counter.
func (inst Instruction) Pure() bool {
	return !inst.Op.Effectful()
}

// Effectful returns true if the instruction touches data memory, the
// stack, the I/O space or program memory.
func (inst Instruction) Effectful() bool {
	return inst.Op.Effectful()
}

// pointerName returns the assembler name of an index pair.
func pointerName(ptr uint8) string {
	switch ptr {
	case PAIR_X:
		return "X"
	case PAIR_Y:
		return "Y"
	case PAIR_Z:
		return "Z"
	}
	return fmt.Sprintf("r%d", ptr)
}

func (inst Instruction) indirect() string {
	ptr := pointerName(inst.Pointer)
	switch inst.Mode {
	case MODE_POST_INC:
		return ptr + "+"
	case MODE_PRE_DEC:
		return "-" + ptr
	}
	return ptr
}

func relative(offset int16) string {
	return fmt.Sprintf(".%+d", int(offset)*2)
}

// String returns the assembly language representation of the instruction.
func (inst Instruction) String() string {
	name := inst.Op.String()

	switch inst.Op {
	case OP_NOP, OP_IJMP, OP_ICALL, OP_RET, OP_RETI, OP_SLEEP, OP_BREAK, OP_WDR:
		return name
	case OP_ADD, OP_ADC, OP_SUB, OP_SBC, OP_AND, OP_OR, OP_EOR, OP_MUL,
		OP_MULS, OP_MULSU, OP_FMUL, OP_FMULS, OP_FMULSU, OP_CP, OP_CPC,
		OP_CPSE, OP_MOV, OP_MOVW:
		return fmt.Sprintf("%v r%d, r%d", name, inst.Rd, inst.Rr)
	case OP_SUBI, OP_SBCI, OP_ANDI, OP_ORI, OP_CPI, OP_LDI:
		return fmt.Sprintf("%v r%d, 0x%02x", name, inst.Rd, inst.K)
	case OP_ADIW, OP_SBIW:
		return fmt.Sprintf("%v r%d, %d", name, inst.Rd, inst.K)
	case OP_COM, OP_NEG, OP_INC, OP_DEC, OP_LSR, OP_ASR, OP_ROR, OP_SWAP, OP_POP:
		return fmt.Sprintf("%v r%d", name, inst.Rd)
	case OP_PUSH:
		return fmt.Sprintf("%v r%d", name, inst.Rr)
	case OP_LD:
		return fmt.Sprintf("%v r%d, %v", name, inst.Rd, inst.indirect())
	case OP_ST:
		return fmt.Sprintf("%v %v, r%d", name, inst.indirect(), inst.Rr)
	case OP_LDD:
		return fmt.Sprintf("%v r%d, %v+%d", name, inst.Rd, pointerName(inst.Pointer), inst.Q)
	case OP_STD:
		return fmt.Sprintf("%v %v+%d, r%d", name, pointerName(inst.Pointer), inst.Q, inst.Rr)
	case OP_LDS:
		return fmt.Sprintf("%v r%d, 0x%04x", name, inst.Rd, inst.Address)
	case OP_STS:
		return fmt.Sprintf("%v 0x%04x, r%d", name, inst.Address, inst.Rr)
	case OP_LPM:
		if inst.Implied {
			return name
		}
		return fmt.Sprintf("%v r%d, %v", name, inst.Rd, inst.indirect())
	case OP_IN:
		return fmt.Sprintf("%v r%d, 0x%02x", name, inst.Rd, inst.A)
	case OP_OUT:
		return fmt.Sprintf("%v 0x%02x, r%d", name, inst.A, inst.Rr)
	case OP_SBI, OP_CBI, OP_SBIC, OP_SBIS:
		return fmt.Sprintf("%v 0x%02x, %d", name, inst.A, inst.B)
	case OP_SBRC, OP_SBRS, OP_BST, OP_BLD:
		return fmt.Sprintf("%v r%d, %d", name, inst.Rd, inst.B)
	case OP_BSET, OP_BCLR:
		return fmt.Sprintf("%v %d", name, inst.B)
	case OP_BRBS, OP_BRBC:
		return fmt.Sprintf("%v %d, %v", name, inst.B, relative(inst.Offset))
	case OP_RJMP, OP_RCALL:
		return fmt.Sprintf("%v %v", name, relative(inst.Offset))
	case OP_JMP, OP_CALL:
		return fmt.Sprintf("%v 0x%04x", name, inst.Address)
	}

	return name
}
