package cpu

// Status register bits.
const (
	SREG_C = byte(1 << 0) // Carry
	SREG_Z = byte(1 << 1) // Zero
	SREG_N = byte(1 << 2) // Negative
	SREG_V = byte(1 << 3) // Two's complement overflow
	SREG_S = byte(1 << 4) // Sign, N xor V
	SREG_H = byte(1 << 5) // Half carry
	SREG_T = byte(1 << 6) // Bit copy storage
	SREG_I = byte(1 << 7) // Global interrupt enable
)

// flags builds a status register from its previous value, replacing the
// bits in mask with the bits in set.
func flags(sreg byte, mask byte, set byte) byte {
	return (sreg &^ mask) | (set & mask)
}

func bit(value byte, n uint) bool {
	return (value>>n)&1 != 0
}

func flagIf(cond bool, flag byte) byte {
	if cond {
		return flag
	}
	return 0
}

// nzs computes N, Z and S for an 8-bit result and a known V.
func nzs(res byte, v bool) (set byte) {
	n := bit(res, 7)
	set |= flagIf(n, SREG_N)
	set |= flagIf(v, SREG_V)
	set |= flagIf(n != v, SREG_S)
	set |= flagIf(res == 0, SREG_Z)
	return
}

// aluAdd is ADD/ADC.
func aluAdd(sreg byte, d, r byte, carry bool) (res byte, out byte) {
	c := byte(0)
	if carry {
		c = 1
	}
	res = d + r + c

	d3, r3, n3 := bit(d, 3), bit(r, 3), !bit(res, 3)
	d7, r7, n7 := bit(d, 7), bit(r, 7), !bit(res, 7)

	h := d3 && r3 || r3 && n3 || n3 && d3
	v := d7 && r7 && n7 || !d7 && !r7 && !n7
	cy := d7 && r7 || r7 && n7 || n7 && d7

	set := nzs(res, v) | flagIf(h, SREG_H) | flagIf(cy, SREG_C)
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S|SREG_H, set)
	return
}

// aluSub is SUB/SUBI/CP/CPI, and with chain set, SBC/SBCI/CPC where the
// Z flag can only be cleared.
func aluSub(sreg byte, d, r byte, borrow bool, chain bool) (res byte, out byte) {
	c := byte(0)
	if borrow {
		c = 1
	}
	res = d - r - c

	d3, r3, n3 := bit(d, 3), bit(r, 3), bit(res, 3)
	d7, r7, n7 := bit(d, 7), bit(r, 7), bit(res, 7)

	h := !d3 && r3 || r3 && n3 || n3 && !d3
	v := d7 && !r7 && !n7 || !d7 && r7 && n7
	cy := !d7 && r7 || r7 && n7 || n7 && !d7

	set := nzs(res, v) | flagIf(h, SREG_H) | flagIf(cy, SREG_C)
	if chain && sreg&SREG_Z == 0 {
		set &^= SREG_Z
	}
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S|SREG_H, set)
	return
}

// aluLogic is AND/ANDI/OR/ORI/EOR: V cleared.
func aluLogic(sreg byte, res byte) byte {
	return flags(sreg, SREG_Z|SREG_N|SREG_V|SREG_S, nzs(res, false))
}

func aluCom(sreg byte, d byte) (res byte, out byte) {
	res = ^d
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S, nzs(res, false)|SREG_C)
	return
}

func aluNeg(sreg byte, d byte) (res byte, out byte) {
	res = 0 - d
	h := bit(res, 3) || bit(d, 3)
	set := nzs(res, res == 0x80) | flagIf(h, SREG_H) | flagIf(res != 0, SREG_C)
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S|SREG_H, set)
	return
}

func aluInc(sreg byte, d byte) (res byte, out byte) {
	res = d + 1
	out = flags(sreg, SREG_Z|SREG_N|SREG_V|SREG_S, nzs(res, res == 0x80))
	return
}

func aluDec(sreg byte, d byte) (res byte, out byte) {
	res = d - 1
	out = flags(sreg, SREG_Z|SREG_N|SREG_V|SREG_S, nzs(res, res == 0x7f))
	return
}

// aluShift is the common tail of LSR/ASR/ROR: C is the bit shifted out
// and V = N xor C.
func aluShift(sreg byte, d byte, res byte) byte {
	c := bit(d, 0)
	n := bit(res, 7)
	set := nzs(res, n != c) | flagIf(c, SREG_C)
	return flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S, set)
}

func aluLsr(sreg byte, d byte) (res byte, out byte) {
	res = d >> 1
	out = aluShift(sreg, d, res)
	return
}

func aluAsr(sreg byte, d byte) (res byte, out byte) {
	res = (d >> 1) | (d & 0x80)
	out = aluShift(sreg, d, res)
	return
}

func aluRor(sreg byte, d byte) (res byte, out byte) {
	res = d >> 1
	if sreg&SREG_C != 0 {
		res |= 0x80
	}
	out = aluShift(sreg, d, res)
	return
}

// aluAdiw is ADIW on a 16-bit register pair.
func aluAdiw(sreg byte, d uint16, k uint16) (res uint16, out byte) {
	res = d + k
	dh7 := d&0x8000 != 0
	r15 := res&0x8000 != 0
	v := !dh7 && r15
	set := flagIf(r15, SREG_N) | flagIf(v, SREG_V) | flagIf(r15 != v, SREG_S)
	set |= flagIf(res == 0, SREG_Z) | flagIf(!r15 && dh7, SREG_C)
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S, set)
	return
}

// aluSbiw is SBIW on a 16-bit register pair.
func aluSbiw(sreg byte, d uint16, k uint16) (res uint16, out byte) {
	res = d - k
	dh7 := d&0x8000 != 0
	r15 := res&0x8000 != 0
	v := dh7 && !r15
	set := flagIf(r15, SREG_N) | flagIf(v, SREG_V) | flagIf(r15 != v, SREG_S)
	set |= flagIf(res == 0, SREG_Z) | flagIf(r15 && !dh7, SREG_C)
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S, set)
	return
}

// aluMul computes the flags of the MUL family: C is bit 15 of the
// product, Z is set for a zero product.
func aluMul(sreg byte, product uint16) byte {
	set := flagIf(product&0x8000 != 0, SREG_C) | flagIf(product == 0, SREG_Z)
	return flags(sreg, SREG_C|SREG_Z, set)
}

// aluFmul is the FMUL family: the product is shifted left one bit, C is
// bit 15 of the unshifted product.
func aluFmul(sreg byte, product uint16) (res uint16, out byte) {
	res = product << 1
	set := flagIf(product&0x8000 != 0, SREG_C) | flagIf(res == 0, SREG_Z)
	out = flags(sreg, SREG_C|SREG_Z, set)
	return
}

// aluDiv is the unsigned 8-bit quotient. There is no AVR encoding for it;
// it backs the register file's Div helper.
func aluDiv(sreg byte, d byte, r byte) (res byte, out byte) {
	res = d / r
	out = flags(sreg, SREG_C|SREG_Z|SREG_N|SREG_V|SREG_S, nzs(res, false))
	return
}
