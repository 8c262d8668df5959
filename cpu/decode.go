package cpu

// Fetch reads a program memory word at a word index.
type Fetch func(pc uint16) uint16

// Operand field extraction, per the AVR instruction set encoding.

// fieldD5 is the 5-bit ddddd field: xxxx xxxd dddd xxxx.
func fieldD5(word uint16) uint8 {
	return uint8((word >> 4) & 0x1f)
}

// fieldR5 is the 5-bit rrrrr field: xxxx xxrx xxxx rrrr.
func fieldR5(word uint16) uint8 {
	return uint8((word & 0xf) | ((word >> 5) & 0x10))
}

// fieldD4 is the upper register dddd field: xxxx xxxx dddd xxxx, r16-r31.
func fieldD4(word uint16) uint8 {
	return 16 + uint8((word>>4)&0xf)
}

// fieldK8 is the 8-bit immediate: xxxx KKKK xxxx KKKK.
func fieldK8(word uint16) uint8 {
	return uint8((word & 0xf) | ((word >> 4) & 0xf0))
}

// fieldA6 is the IN/OUT I/O address: xxxx xAAx xxxx AAAA.
func fieldA6(word uint16) uint8 {
	return uint8((word & 0xf) | ((word >> 5) & 0x30))
}

// fieldA5 is the SBI/CBI/SBIC/SBIS I/O address: xxxx xxxx AAAA Axxx.
func fieldA5(word uint16) uint8 {
	return uint8((word >> 3) & 0x1f)
}

// fieldQ is the LDD/STD displacement: xxqx qqxx xxxx xqqq.
func fieldQ(word uint16) uint8 {
	return uint8((word & 0x7) | ((word >> 7) & 0x18) | ((word >> 8) & 0x20))
}

// signExtend interprets the low bits of value as a two's complement number.
func signExtend(value uint16, bits uint) int16 {
	shift := 16 - bits
	return int16(value<<shift) >> shift
}

// TwoWord returns true if the word is the first word of a two-word
// instruction (LDS, STS, JMP, CALL).
func TwoWord(word uint16) bool {
	switch {
	case word&0xfe0f == 0x9000: // lds
		return true
	case word&0xfe0f == 0x9200: // sts
		return true
	case word&0xfe0c == 0x940c: // jmp, call
		return true
	}
	return false
}

// Decode decodes the instruction at pc. A word that matches no encoding
// returns an *ErrUnknownOpcode.
func Decode(fetch Fetch, pc uint16) (inst Instruction, err error) {
	word := fetch(pc)

	unknown := func() (Instruction, error) {
		return Instruction{}, &ErrUnknownOpcode{Pc: pc, Word: word}
	}

	// Common operand layouts
	rdrr := func(op Op) (Instruction, error) {
		return Instruction{Op: op, Rd: fieldD5(word), Rr: fieldR5(word)}, nil
	}
	rdk := func(op Op) (Instruction, error) {
		return Instruction{Op: op, Rd: fieldD4(word), K: fieldK8(word)}, nil
	}

	switch word >> 12 {
	case 0x0:
		switch {
		case word == 0x0000:
			return Instruction{Op: OP_NOP}, nil
		case word&0xff00 == 0x0100:
			return Instruction{Op: OP_MOVW, Rd: uint8((word>>4)&0xf) * 2, Rr: uint8(word&0xf) * 2}, nil
		case word&0xff00 == 0x0200:
			return Instruction{Op: OP_MULS, Rd: fieldD4(word), Rr: 16 + uint8(word&0xf)}, nil
		case word&0xff00 == 0x0300:
			d := 16 + uint8((word>>4)&0x7)
			r := 16 + uint8(word&0x7)
			op := [4]Op{OP_MULSU, OP_FMUL, OP_FMULS, OP_FMULSU}[((word>>6)&0x2)|((word>>3)&0x1)]
			return Instruction{Op: op, Rd: d, Rr: r}, nil
		case word&0xfc00 == 0x0400:
			return rdrr(OP_CPC)
		case word&0xfc00 == 0x0800:
			return rdrr(OP_SBC)
		case word&0xfc00 == 0x0c00:
			return rdrr(OP_ADD)
		}
		return unknown()
	case 0x1:
		return rdrr([4]Op{OP_CPSE, OP_CP, OP_SUB, OP_ADC}[(word>>10)&0x3])
	case 0x2:
		return rdrr([4]Op{OP_AND, OP_EOR, OP_OR, OP_MOV}[(word>>10)&0x3])
	case 0x3:
		return rdk(OP_CPI)
	case 0x4:
		return rdk(OP_SBCI)
	case 0x5:
		return rdk(OP_SUBI)
	case 0x6:
		return rdk(OP_ORI)
	case 0x7:
		return rdk(OP_ANDI)
	case 0x8, 0xa:
		return decodeDisplacement(word), nil
	case 0x9:
		return decodeNine(fetch, pc, word)
	case 0xb:
		if word&0x0800 == 0 {
			return Instruction{Op: OP_IN, Rd: fieldD5(word), A: fieldA6(word)}, nil
		}
		return Instruction{Op: OP_OUT, Rr: fieldD5(word), A: fieldA6(word)}, nil
	case 0xc:
		return Instruction{Op: OP_RJMP, Offset: signExtend(word, 12)}, nil
	case 0xd:
		return Instruction{Op: OP_RCALL, Offset: signExtend(word, 12)}, nil
	case 0xe:
		return rdk(OP_LDI)
	case 0xf:
		b := uint8(word & 0x7)
		switch (word >> 10) & 0x3 {
		case 0:
			return Instruction{Op: OP_BRBS, B: b, Offset: signExtend(word>>3, 7)}, nil
		case 1:
			return Instruction{Op: OP_BRBC, B: b, Offset: signExtend(word>>3, 7)}, nil
		}
		if word&0x0008 != 0 {
			return unknown()
		}
		op := [4]Op{OP_BLD, OP_BST, OP_SBRC, OP_SBRS}[(word>>9)&0x3]
		return Instruction{Op: op, Rd: fieldD5(word), B: b}, nil
	}

	return unknown()
}

// decodeDisplacement decodes 10q0 qqsd dddd yqqq: LDD/STD, and LD/ST
// through Y or Z without displacement.
func decodeDisplacement(word uint16) (inst Instruction) {
	ptr := PAIR_Z
	if word&0x0008 != 0 {
		ptr = PAIR_Y
	}
	q := fieldQ(word)
	store := word&0x0200 != 0
	reg := fieldD5(word)

	switch {
	case !store && q == 0:
		inst = Instruction{Op: OP_LD, Rd: reg, Pointer: ptr}
	case store && q == 0:
		inst = Instruction{Op: OP_ST, Rr: reg, Pointer: ptr}
	case !store:
		inst = Instruction{Op: OP_LDD, Rd: reg, Pointer: ptr, Q: q}
	default:
		inst = Instruction{Op: OP_STD, Rr: reg, Pointer: ptr, Q: q}
	}

	return
}

// Pointer and mode of the LD/ST 1001 00sr rrrr xxxx forms, by low nibble.
var indirectForms = map[uint16]struct {
	ptr  uint8
	mode Mode
}{
	0x1: {PAIR_Z, MODE_POST_INC},
	0x2: {PAIR_Z, MODE_PRE_DEC},
	0x9: {PAIR_Y, MODE_POST_INC},
	0xa: {PAIR_Y, MODE_PRE_DEC},
	0xc: {PAIR_X, MODE_PLAIN},
	0xd: {PAIR_X, MODE_POST_INC},
	0xe: {PAIR_X, MODE_PRE_DEC},
}

// decodeNine decodes the 1001 xxxx xxxx xxxx group.
func decodeNine(fetch Fetch, pc uint16, word uint16) (inst Instruction, err error) {
	reg := fieldD5(word)
	nibble := word & 0xf

	switch {
	case word&0xfe00 == 0x9000: // loads
		form, ok := indirectForms[nibble]
		switch {
		case ok:
			inst = Instruction{Op: OP_LD, Rd: reg, Pointer: form.ptr, Mode: form.mode}
		case nibble == 0x0:
			inst = Instruction{Op: OP_LDS, Rd: reg, Address: uint32(fetch(pc + 1))}
		case nibble == 0x4:
			inst = Instruction{Op: OP_LPM, Rd: reg, Pointer: PAIR_Z}
		case nibble == 0x5:
			inst = Instruction{Op: OP_LPM, Rd: reg, Pointer: PAIR_Z, Mode: MODE_POST_INC}
		case nibble == 0xf:
			inst = Instruction{Op: OP_POP, Rd: reg}
		default:
			err = &ErrUnknownOpcode{Pc: pc, Word: word}
		}
	case word&0xfe00 == 0x9200: // stores
		form, ok := indirectForms[nibble]
		switch {
		case ok:
			inst = Instruction{Op: OP_ST, Rr: reg, Pointer: form.ptr, Mode: form.mode}
		case nibble == 0x0:
			inst = Instruction{Op: OP_STS, Rr: reg, Address: uint32(fetch(pc + 1))}
		case nibble == 0xf:
			inst = Instruction{Op: OP_PUSH, Rr: reg}
		default:
			err = &ErrUnknownOpcode{Pc: pc, Word: word}
		}
	case word&0xfe00 == 0x9400: // one operand, control
		inst, err = decodeControl(fetch, pc, word)
	case word&0xff00 == 0x9600:
		inst = Instruction{Op: OP_ADIW, Rd: 24 + uint8((word>>4)&0x3)*2, K: uint8((word & 0xf) | ((word >> 2) & 0x30))}
	case word&0xff00 == 0x9700:
		inst = Instruction{Op: OP_SBIW, Rd: 24 + uint8((word>>4)&0x3)*2, K: uint8((word & 0xf) | ((word >> 2) & 0x30))}
	case word&0xfc00 == 0x9800:
		op := [4]Op{OP_CBI, OP_SBIC, OP_SBI, OP_SBIS}[(word>>8)&0x3]
		inst = Instruction{Op: op, A: fieldA5(word), B: uint8(word & 0x7)}
	default: // 1001 11rd dddd rrrr
		inst = Instruction{Op: OP_MUL, Rd: reg, Rr: fieldR5(word)}
	}

	return
}

var oneOperand = map[uint16]Op{
	0x0: OP_COM,
	0x1: OP_NEG,
	0x2: OP_SWAP,
	0x3: OP_INC,
	0x5: OP_ASR,
	0x6: OP_LSR,
	0x7: OP_ROR,
	0xa: OP_DEC,
}

var controlWords = map[uint16]Instruction{
	0x9508: {Op: OP_RET},
	0x9518: {Op: OP_RETI},
	0x9588: {Op: OP_SLEEP},
	0x9598: {Op: OP_BREAK},
	0x95a8: {Op: OP_WDR},
	0x95c8: {Op: OP_LPM, Pointer: PAIR_Z, Implied: true},
	0x9409: {Op: OP_IJMP},
	0x9509: {Op: OP_ICALL},
}

// decodeControl decodes 1001 010x xxxx xxxx.
func decodeControl(fetch Fetch, pc uint16, word uint16) (inst Instruction, err error) {
	nibble := word & 0xf

	if op, ok := oneOperand[nibble]; ok {
		inst = Instruction{Op: op, Rd: fieldD5(word)}
		return
	}

	switch {
	case word&0xff8f == 0x9408:
		inst = Instruction{Op: OP_BSET, B: uint8((word >> 4) & 0x7)}
		return
	case word&0xff8f == 0x9488:
		inst = Instruction{Op: OP_BCLR, B: uint8((word >> 4) & 0x7)}
		return
	case word&0x000e == 0x000c, word&0x000e == 0x000e:
		op := OP_JMP
		if word&0x0002 != 0 {
			op = OP_CALL
		}
		high := uint32((word>>4)&0x1f)<<17 | uint32(word&0x1)<<16
		inst = Instruction{Op: op, Address: high | uint32(fetch(pc+1))}
		return
	}

	if ctl, ok := controlWords[word]; ok {
		inst = ctl
		return
	}

	err = &ErrUnknownOpcode{Pc: pc, Word: word}
	return
}
