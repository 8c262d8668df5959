package cpu

import (
	"strings"
)

// Op identifies an instruction.
type Op int

const (
	OP_NOP = Op(iota) // nop

	// Arithmetic and logic
	OP_ADD    // add
	OP_ADC    // adc
	OP_ADIW   // adiw
	OP_SUB    // sub
	OP_SUBI   // subi
	OP_SBC    // sbc
	OP_SBCI   // sbci
	OP_SBIW   // sbiw
	OP_AND    // and
	OP_ANDI   // andi
	OP_OR     // or
	OP_ORI    // ori
	OP_EOR    // eor
	OP_COM    // com
	OP_NEG    // neg
	OP_INC    // inc
	OP_DEC    // dec
	OP_MUL    // mul
	OP_MULS   // muls
	OP_MULSU  // mulsu
	OP_FMUL   // fmul
	OP_FMULS  // fmuls
	OP_FMULSU // fmulsu
	OP_CP     // cp
	OP_CPC    // cpc
	OP_CPI    // cpi

	// Data transfer
	OP_MOV  // mov
	OP_MOVW // movw
	OP_LDI  // ldi
	OP_LD   // ld
	OP_LDD  // ldd
	OP_LDS  // lds
	OP_ST   // st
	OP_STD  // std
	OP_STS  // sts
	OP_LPM  // lpm
	OP_PUSH // push
	OP_POP  // pop
	OP_IN   // in
	OP_OUT  // out

	// Bit and bit-test
	OP_SBI  // sbi
	OP_CBI  // cbi
	OP_LSR  // lsr
	OP_ASR  // asr
	OP_ROR  // ror
	OP_SWAP // swap
	OP_BSET // bset
	OP_BCLR // bclr
	OP_BST  // bst
	OP_BLD  // bld

	// Branch
	OP_RJMP  // rjmp
	OP_RCALL // rcall
	OP_JMP   // jmp
	OP_CALL  // call
	OP_IJMP  // ijmp
	OP_ICALL // icall
	OP_RET   // ret
	OP_RETI  // reti
	OP_CPSE  // cpse
	OP_SBRC  // sbrc
	OP_SBRS  // sbrs
	OP_SBIC  // sbic
	OP_SBIS  // sbis
	OP_BRBS  // brbs
	OP_BRBC  // brbc

	// MCU control
	OP_SLEEP // sleep
	OP_BREAK // break
	OP_WDR   // wdr

	op_count
)

// opInfo is the static description of an Op.
type opInfo struct {
	name      string
	cycles    int  // Base cycle cost on ATmega328P.
	words     int  // Encoded length in words.
	effectful bool // Touches data memory, stack, I/O or program memory.
}

var opTable = [op_count]opInfo{
	OP_NOP:    {"nop", 1, 1, false},
	OP_ADD:    {"add", 1, 1, false},
	OP_ADC:    {"adc", 1, 1, false},
	OP_ADIW:   {"adiw", 2, 1, false},
	OP_SUB:    {"sub", 1, 1, false},
	OP_SUBI:   {"subi", 1, 1, false},
	OP_SBC:    {"sbc", 1, 1, false},
	OP_SBCI:   {"sbci", 1, 1, false},
	OP_SBIW:   {"sbiw", 2, 1, false},
	OP_AND:    {"and", 1, 1, false},
	OP_ANDI:   {"andi", 1, 1, false},
	OP_OR:     {"or", 1, 1, false},
	OP_ORI:    {"ori", 1, 1, false},
	OP_EOR:    {"eor", 1, 1, false},
	OP_COM:    {"com", 1, 1, false},
	OP_NEG:    {"neg", 1, 1, false},
	OP_INC:    {"inc", 1, 1, false},
	OP_DEC:    {"dec", 1, 1, false},
	OP_MUL:    {"mul", 2, 1, false},
	OP_MULS:   {"muls", 2, 1, false},
	OP_MULSU:  {"mulsu", 2, 1, false},
	OP_FMUL:   {"fmul", 2, 1, false},
	OP_FMULS:  {"fmuls", 2, 1, false},
	OP_FMULSU: {"fmulsu", 2, 1, false},
	OP_CP:     {"cp", 1, 1, false},
	OP_CPC:    {"cpc", 1, 1, false},
	OP_CPI:    {"cpi", 1, 1, false},
	OP_MOV:    {"mov", 1, 1, false},
	OP_MOVW:   {"movw", 1, 1, false},
	OP_LDI:    {"ldi", 1, 1, false},
	OP_LD:     {"ld", 2, 1, true},
	OP_LDD:    {"ldd", 2, 1, true},
	OP_LDS:    {"lds", 2, 2, true},
	OP_ST:     {"st", 2, 1, true},
	OP_STD:    {"std", 2, 1, true},
	OP_STS:    {"sts", 2, 2, true},
	OP_LPM:    {"lpm", 3, 1, true},
	OP_PUSH:   {"push", 2, 1, true},
	OP_POP:    {"pop", 2, 1, true},
	OP_IN:     {"in", 1, 1, true},
	OP_OUT:    {"out", 1, 1, true},
	OP_SBI:    {"sbi", 2, 1, true},
	OP_CBI:    {"cbi", 2, 1, true},
	OP_LSR:    {"lsr", 1, 1, false},
	OP_ASR:    {"asr", 1, 1, false},
	OP_ROR:    {"ror", 1, 1, false},
	OP_SWAP:   {"swap", 1, 1, false},
	OP_BSET:   {"bset", 1, 1, false},
	OP_BCLR:   {"bclr", 1, 1, false},
	OP_BST:    {"bst", 1, 1, false},
	OP_BLD:    {"bld", 1, 1, false},
	OP_RJMP:   {"rjmp", 2, 1, false},
	OP_RCALL:  {"rcall", 3, 1, true},
	OP_JMP:    {"jmp", 3, 2, false},
	OP_CALL:   {"call", 4, 2, true},
	OP_IJMP:   {"ijmp", 2, 1, false},
	OP_ICALL:  {"icall", 3, 1, true},
	OP_RET:    {"ret", 4, 1, true},
	OP_RETI:   {"reti", 4, 1, true},
	OP_CPSE:   {"cpse", 1, 1, false},
	OP_SBRC:   {"sbrc", 1, 1, false},
	OP_SBRS:   {"sbrs", 1, 1, false},
	OP_SBIC:   {"sbic", 1, 1, true},
	OP_SBIS:   {"sbis", 1, 1, true},
	OP_BRBS:   {"brbs", 1, 1, false},
	OP_BRBC:   {"brbc", 1, 1, false},
	OP_SLEEP:  {"sleep", 1, 1, false},
	OP_BREAK:  {"break", 1, 1, false},
	OP_WDR:    {"wdr", 1, 1, false},
}

// opByName is the reverse of opTable, for the assembler.
var opByName = func() map[string]Op {
	names := make(map[string]Op, op_count)
	for op := range op_count {
		names[opTable[op].name] = op
	}
	return names
}()

// ParseOp returns the Op for a mnemonic, ignoring case.
func ParseOp(name string) (op Op, ok bool) {
	op, ok = opByName[strings.ToLower(name)]
	return
}

func (op Op) String() string {
	if op >= 0 && op < op_count {
		return opTable[op].name
	}
	return f("op(%d)", int(op))
}

// Valid returns true for a known operation.
func (op Op) Valid() bool {
	return op >= 0 && op < op_count
}

// Cycles returns the base cycle cost of the operation. Taken branches and
// skips cost more; see Execute.
func (op Op) Cycles() int {
	return opTable[op].cycles
}

// Words returns the encoded length of the operation in 16-bit words.
func (op Op) Words() int {
	return opTable[op].words
}

// Effectful returns true if the operation touches data memory, the stack,
// the I/O space or program memory.
func (op Op) Effectful() bool {
	return opTable[op].effectful
}
