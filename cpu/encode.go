package cpu

import (
	"errors"
)

// Operand field insertion, the inverse of the decode field extractors.

func putD5(d uint8) uint16 { return uint16(d&0x1f) << 4 }
func putR5(r uint8) uint16 { return uint16(r&0xf) | uint16(r&0x10)<<5 }
func putD4(d uint8) uint16 { return uint16(d&0xf) << 4 }
func putK8(k uint8) uint16 { return uint16(k&0xf) | uint16(k&0xf0)<<4 }
func putA6(a uint8) uint16 { return uint16(a&0xf) | uint16(a&0x30)<<5 }
func putQ(q uint8) uint16 {
	return uint16(q&0x7) | uint16(q&0x18)<<7 | uint16(q&0x20)<<8
}

type operandCheck struct {
	err error
}

// reg checks a register operand is in [lo, hi], and optionally even.
func (oc *operandCheck) reg(r uint8, lo, hi uint8, even bool) {
	if oc.err == nil && (r < lo || r > hi || (even && r&1 != 0)) {
		oc.err = ErrRegisterInvalid
	}
}

// max checks an unsigned operand.
func (oc *operandCheck) max(value int, limit int) {
	if oc.err == nil && (value < 0 || value > limit) {
		oc.err = ErrOperandRange
	}
}

// span checks a signed operand fits in bits.
func (oc *operandCheck) span(value int16, bits uint) {
	lo := -(1 << (bits - 1))
	hi := (1 << (bits - 1)) - 1
	if oc.err == nil && (int(value) < lo || int(value) > hi) {
		oc.err = ErrOperandRange
	}
}

func (oc *operandCheck) pointer(ok bool) {
	if oc.err == nil && !ok {
		oc.err = ErrPointerInvalid
	}
}

var indirectNibble = map[[2]int]uint16{
	{int(PAIR_Z), int(MODE_POST_INC)}: 0x1,
	{int(PAIR_Z), int(MODE_PRE_DEC)}:  0x2,
	{int(PAIR_Y), int(MODE_POST_INC)}: 0x9,
	{int(PAIR_Y), int(MODE_PRE_DEC)}:  0xa,
	{int(PAIR_X), int(MODE_PLAIN)}:    0xc,
	{int(PAIR_X), int(MODE_POST_INC)}: 0xd,
	{int(PAIR_X), int(MODE_PRE_DEC)}:  0xe,
}

var oneOperandNibble = map[Op]uint16{
	OP_COM:  0x0,
	OP_NEG:  0x1,
	OP_SWAP: 0x2,
	OP_INC:  0x3,
	OP_ASR:  0x5,
	OP_LSR:  0x6,
	OP_ROR:  0x7,
	OP_DEC:  0xa,
}

var fixedWords = map[Op]uint16{
	OP_NOP:   0x0000,
	OP_RET:   0x9508,
	OP_RETI:  0x9518,
	OP_SLEEP: 0x9588,
	OP_BREAK: 0x9598,
	OP_WDR:   0x95a8,
	OP_IJMP:  0x9409,
	OP_ICALL: 0x9509,
}

var rdrrBase = map[Op]uint16{
	OP_CPC:  0x0400,
	OP_SBC:  0x0800,
	OP_ADD:  0x0c00,
	OP_CPSE: 0x1000,
	OP_CP:   0x1400,
	OP_SUB:  0x1800,
	OP_ADC:  0x1c00,
	OP_AND:  0x2000,
	OP_EOR:  0x2400,
	OP_OR:   0x2800,
	OP_MOV:  0x2c00,
	OP_MUL:  0x9c00,
}

var rdkBase = map[Op]uint16{
	OP_CPI:  0x3000,
	OP_SBCI: 0x4000,
	OP_SUBI: 0x5000,
	OP_ORI:  0x6000,
	OP_ANDI: 0x7000,
	OP_LDI:  0xe000,
}

var bitBase = map[Op]uint16{
	OP_CBI:  0x9800,
	OP_SBIC: 0x9900,
	OP_SBI:  0x9a00,
	OP_SBIS: 0x9b00,
	OP_BLD:  0xf800,
	OP_BST:  0xfa00,
	OP_SBRC: 0xfc00,
	OP_SBRS: 0xfe00,
}

var mulsuBase = map[Op]uint16{
	OP_MULSU:  0x0300,
	OP_FMUL:   0x0308,
	OP_FMULS:  0x0380,
	OP_FMULSU: 0x0388,
}

// Encode returns the machine words of an instruction. Operands outside of
// their encodable range return an error.
func Encode(inst Instruction) (words []uint16, err error) {
	oc := &operandCheck{}
	var word uint16

	defer func() {
		if err != nil {
			err = errors.Join(ErrInstructionInvalid, err)
			words = nil
		}
	}()

	if base, ok := fixedWords[inst.Op]; ok {
		return []uint16{base}, nil
	}

	if base, ok := rdrrBase[inst.Op]; ok {
		oc.reg(inst.Rd, 0, 31, false)
		oc.reg(inst.Rr, 0, 31, false)
		return []uint16{base | putD5(inst.Rd) | putR5(inst.Rr)}, oc.err
	}

	if base, ok := rdkBase[inst.Op]; ok {
		oc.reg(inst.Rd, 16, 31, false)
		return []uint16{base | putD4(inst.Rd) | putK8(inst.K)}, oc.err
	}

	if nibble, ok := oneOperandNibble[inst.Op]; ok {
		oc.reg(inst.Rd, 0, 31, false)
		return []uint16{0x9400 | putD5(inst.Rd) | nibble}, oc.err
	}

	if base, ok := mulsuBase[inst.Op]; ok {
		oc.reg(inst.Rd, 16, 23, false)
		oc.reg(inst.Rr, 16, 23, false)
		return []uint16{base | uint16(inst.Rd-16)<<4 | uint16(inst.Rr-16)}, oc.err
	}

	if base, ok := bitBase[inst.Op]; ok {
		oc.max(int(inst.B), 7)
		switch inst.Op {
		case OP_CBI, OP_SBIC, OP_SBI, OP_SBIS:
			oc.max(int(inst.A), 0x1f)
			word = base | uint16(inst.A)<<3 | uint16(inst.B)
		default:
			oc.reg(inst.Rd, 0, 31, false)
			word = base | putD5(inst.Rd) | uint16(inst.B)
		}
		return []uint16{word}, oc.err
	}

	switch inst.Op {
	case OP_MOVW:
		oc.reg(inst.Rd, 0, 30, true)
		oc.reg(inst.Rr, 0, 30, true)
		word = 0x0100 | uint16(inst.Rd/2)<<4 | uint16(inst.Rr/2)
	case OP_MULS:
		oc.reg(inst.Rd, 16, 31, false)
		oc.reg(inst.Rr, 16, 31, false)
		word = 0x0200 | putD4(inst.Rd) | uint16(inst.Rr&0xf)
	case OP_ADIW, OP_SBIW:
		oc.reg(inst.Rd, 24, 30, true)
		oc.max(int(inst.K), 63)
		word = 0x9600 | uint16((inst.Rd-24)/2)<<4 | uint16(inst.K&0xf) | uint16(inst.K&0x30)<<2
		if inst.Op == OP_SBIW {
			word |= 0x0100
		}
	case OP_LD, OP_ST:
		reg := inst.Rd
		if inst.Op == OP_ST {
			reg = inst.Rr
		}
		oc.reg(reg, 0, 31, false)
		if inst.Mode == MODE_PLAIN && (inst.Pointer == PAIR_Y || inst.Pointer == PAIR_Z) {
			word = 0x8000 | putD5(reg)
			if inst.Pointer == PAIR_Y {
				word |= 0x0008
			}
		} else {
			nibble, ok := indirectNibble[[2]int{int(inst.Pointer), int(inst.Mode)}]
			oc.pointer(ok)
			word = 0x9000 | putD5(reg) | nibble
		}
		if inst.Op == OP_ST {
			word |= 0x0200
		}
	case OP_LDD, OP_STD:
		reg := inst.Rd
		if inst.Op == OP_STD {
			reg = inst.Rr
			word = 0x0200
		}
		oc.reg(reg, 0, 31, false)
		oc.max(int(inst.Q), 63)
		oc.pointer(inst.Pointer == PAIR_Y || inst.Pointer == PAIR_Z)
		word |= 0x8000 | putD5(reg) | putQ(inst.Q)
		if inst.Pointer == PAIR_Y {
			word |= 0x0008
		}
	case OP_LDS:
		oc.reg(inst.Rd, 0, 31, false)
		oc.max(int(inst.Address), 0xffff)
		return []uint16{0x9000 | putD5(inst.Rd), uint16(inst.Address)}, oc.err
	case OP_STS:
		oc.reg(inst.Rr, 0, 31, false)
		oc.max(int(inst.Address), 0xffff)
		return []uint16{0x9200 | putD5(inst.Rr), uint16(inst.Address)}, oc.err
	case OP_LPM:
		if inst.Implied {
			return []uint16{0x95c8}, nil
		}
		oc.reg(inst.Rd, 0, 31, false)
		oc.pointer(inst.Pointer == PAIR_Z && inst.Mode != MODE_PRE_DEC)
		word = 0x9004 | putD5(inst.Rd)
		if inst.Mode == MODE_POST_INC {
			word |= 0x0001
		}
	case OP_PUSH:
		oc.reg(inst.Rr, 0, 31, false)
		word = 0x920f | putD5(inst.Rr)
	case OP_POP:
		oc.reg(inst.Rd, 0, 31, false)
		word = 0x900f | putD5(inst.Rd)
	case OP_IN:
		oc.reg(inst.Rd, 0, 31, false)
		oc.max(int(inst.A), 63)
		word = 0xb000 | putD5(inst.Rd) | putA6(inst.A)
	case OP_OUT:
		oc.reg(inst.Rr, 0, 31, false)
		oc.max(int(inst.A), 63)
		word = 0xb800 | putD5(inst.Rr) | putA6(inst.A)
	case OP_BSET, OP_BCLR:
		oc.max(int(inst.B), 7)
		word = 0x9408 | uint16(inst.B)<<4
		if inst.Op == OP_BCLR {
			word |= 0x0080
		}
	case OP_BRBS, OP_BRBC:
		oc.max(int(inst.B), 7)
		oc.span(inst.Offset, 7)
		word = 0xf000 | uint16(inst.Offset&0x7f)<<3 | uint16(inst.B)
		if inst.Op == OP_BRBC {
			word |= 0x0400
		}
	case OP_RJMP, OP_RCALL:
		oc.span(inst.Offset, 12)
		word = 0xc000 | uint16(inst.Offset)&0x0fff
		if inst.Op == OP_RCALL {
			word |= 0x1000
		}
	case OP_JMP, OP_CALL:
		oc.max(int(inst.Address), 0x3fffff)
		word = 0x940c | uint16(inst.Address>>17&0x1f)<<4 | uint16(inst.Address>>16&0x1)
		if inst.Op == OP_CALL {
			word |= 0x0002
		}
		return []uint16{word, uint16(inst.Address)}, oc.err
	default:
		err = ErrInstructionInvalid
		return
	}

	return []uint16{word}, oc.err
}
