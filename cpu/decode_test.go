package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fetchFrom returns a Fetch over a word slice, zero beyond its end.
func fetchFrom(words ...uint16) Fetch {
	return func(pc uint16) uint16 {
		if int(pc) < len(words) {
			return words[pc]
		}
		return 0
	}
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		words []uint16
		inst  Instruction
		text  string
	}){
		{[]uint16{0x0000}, Instruction{Op: OP_NOP}, "nop"},
		{[]uint16{0x0c12}, Instruction{Op: OP_ADD, Rd: 1, Rr: 2}, "add r1, r2"},
		{[]uint16{0x1f01}, Instruction{Op: OP_ADC, Rd: 16, Rr: 17}, "adc r16, r17"},
		{[]uint16{0xe01a}, Instruction{Op: OP_LDI, Rd: 17, K: 0x0a}, "ldi r17, 0x0a"},
		{[]uint16{0x0211}, Instruction{Op: OP_MULS, Rd: 17, Rr: 17}, "muls r17, r17"},
		{[]uint16{0x0312}, Instruction{Op: OP_MULSU, Rd: 17, Rr: 18}, "mulsu r17, r18"},
		{[]uint16{0x0101}, Instruction{Op: OP_MOVW, Rd: 0, Rr: 2}, "movw r0, r2"},
		{[]uint16{0x9601}, Instruction{Op: OP_ADIW, Rd: 24, K: 1}, "adiw r24, 1"},
		{[]uint16{0x97b0}, Instruction{Op: OP_SBIW, Rd: 30, K: 0x20}, "sbiw r30, 32"},
		{[]uint16{0x940c, 0x1234}, Instruction{Op: OP_JMP, Address: 0x1234}, "jmp 0x1234"},
		{[]uint16{0x940e, 0x0100}, Instruction{Op: OP_CALL, Address: 0x0100}, "call 0x0100"},
		{[]uint16{0x9000, 0x0100}, Instruction{Op: OP_LDS, Address: 0x0100}, "lds r0, 0x0100"},
		{[]uint16{0x9310, 0x0200}, Instruction{Op: OP_STS, Rr: 17, Address: 0x0200}, "sts 0x0200, r17"},
		{[]uint16{0x923f}, Instruction{Op: OP_PUSH, Rr: 3}, "push r3"},
		{[]uint16{0x903f}, Instruction{Op: OP_POP, Rd: 3}, "pop r3"},
		{[]uint16{0x9508}, Instruction{Op: OP_RET}, "ret"},
		{[]uint16{0x9518}, Instruction{Op: OP_RETI}, "reti"},
		{[]uint16{0x9409}, Instruction{Op: OP_IJMP}, "ijmp"},
		{[]uint16{0xcfff}, Instruction{Op: OP_RJMP, Offset: -1}, "rjmp .-2"},
		{[]uint16{0xd003}, Instruction{Op: OP_RCALL, Offset: 3}, "rcall .+6"},
		{[]uint16{0xf409}, Instruction{Op: OP_BRBC, B: 1, Offset: 1}, "brbc 1, .+2"},
		{[]uint16{0xf3f9}, Instruction{Op: OP_BRBS, B: 1, Offset: -1}, "brbs 1, .-2"},
		{[]uint16{0x9478}, Instruction{Op: OP_BSET, B: 7}, "bset 7"},
		{[]uint16{0x94f8}, Instruction{Op: OP_BCLR, B: 7}, "bclr 7"},
		{[]uint16{0x8108}, Instruction{Op: OP_LD, Rd: 16, Pointer: PAIR_Y}, "ld r16, Y"},
		{[]uint16{0x910d}, Instruction{Op: OP_LD, Rd: 16, Pointer: PAIR_X, Mode: MODE_POST_INC}, "ld r16, X+"},
		{[]uint16{0x931a}, Instruction{Op: OP_ST, Rr: 17, Pointer: PAIR_Y, Mode: MODE_PRE_DEC}, "st -Y, r17"},
		{[]uint16{0x831a}, Instruction{Op: OP_STD, Rr: 17, Pointer: PAIR_Y, Q: 2}, "std Y+2, r17"},
		{[]uint16{0x8102}, Instruction{Op: OP_LDD, Rd: 16, Pointer: PAIR_Z, Q: 2}, "ldd r16, Z+2"},
		{[]uint16{0x95c8}, Instruction{Op: OP_LPM, Pointer: PAIR_Z, Implied: true}, "lpm"},
		{[]uint16{0x9105}, Instruction{Op: OP_LPM, Rd: 16, Pointer: PAIR_Z, Mode: MODE_POST_INC}, "lpm r16, Z+"},
		{[]uint16{0xb70f}, Instruction{Op: OP_IN, Rd: 16, A: 0x3f}, "in r16, 0x3f"},
		{[]uint16{0xbf0f}, Instruction{Op: OP_OUT, Rr: 16, A: 0x3f}, "out 0x3f, r16"},
		{[]uint16{0x9a2d}, Instruction{Op: OP_SBI, A: 0x05, B: 5}, "sbi 0x05, 5"},
		{[]uint16{0x9b2d}, Instruction{Op: OP_SBIS, A: 0x05, B: 5}, "sbis 0x05, 5"},
		{[]uint16{0xfd07}, Instruction{Op: OP_SBRC, Rd: 16, B: 7}, "sbrc r16, 7"},
		{[]uint16{0x1012}, Instruction{Op: OP_CPSE, Rd: 1, Rr: 2}, "cpse r1, r2"},
		{[]uint16{0x9503}, Instruction{Op: OP_INC, Rd: 16}, "inc r16"},
		{[]uint16{0x9c23}, Instruction{Op: OP_MUL, Rd: 2, Rr: 3}, "mul r2, r3"},
	}

	for _, entry := range table {
		inst, err := Decode(fetchFrom(entry.words...), 0)
		assert.NoError(err, entry.text)
		assert.Equal(entry.inst, inst, entry.text)
		assert.Equal(entry.text, inst.String())
		assert.Equal(len(entry.words), inst.Words(), entry.text)
		assert.Equal(len(entry.words) == 2, TwoWord(entry.words[0]), entry.text)
	}
}

func TestDecodeUnknown(t *testing.T) {
	assert := assert.New(t)

	for _, word := range []uint16{0x0001, 0x00ff, 0x9003, 0x9203, 0x9404, 0xffff, 0xf808} {
		_, err := Decode(fetchFrom(0, word), 1)
		assert.ErrorIs(err, ErrOpcodeUnknown, "0x%04x", word)

		var unknown *ErrUnknownOpcode
		if assert.True(errors.As(err, &unknown), "0x%04x", word) {
			assert.Equal(uint16(1), unknown.Pc)
			assert.Equal(word, unknown.Word)
		}
	}
}

func TestEncode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		inst Instruction
		err  error
	}){
		{"ldi_low", Instruction{Op: OP_LDI, Rd: 15}, ErrRegisterInvalid},
		{"movw_odd", Instruction{Op: OP_MOVW, Rd: 1, Rr: 2}, ErrRegisterInvalid},
		{"adiw_reg", Instruction{Op: OP_ADIW, Rd: 22, K: 1}, ErrRegisterInvalid},
		{"adiw_k", Instruction{Op: OP_ADIW, Rd: 24, K: 64}, ErrOperandRange},
		{"ldd_x", Instruction{Op: OP_LDD, Rd: 1, Pointer: PAIR_X, Q: 1}, ErrPointerInvalid},
		{"ld_w", Instruction{Op: OP_LD, Rd: 1, Pointer: PAIR_W}, ErrPointerInvalid},
		{"lpm_pre", Instruction{Op: OP_LPM, Rd: 1, Pointer: PAIR_Z, Mode: MODE_PRE_DEC}, ErrPointerInvalid},
		{"branch_far", Instruction{Op: OP_BRBS, B: 1, Offset: 64}, ErrOperandRange},
		{"rjmp_far", Instruction{Op: OP_RJMP, Offset: 2048}, ErrOperandRange},
		{"sbi_addr", Instruction{Op: OP_SBI, A: 0x20, B: 1}, ErrOperandRange},
		{"bit", Instruction{Op: OP_BST, Rd: 1, B: 8}, ErrOperandRange},
		{"op", Instruction{Op: op_count}, ErrInstructionInvalid},
	}

	for _, entry := range table {
		words, err := Encode(entry.inst)
		assert.ErrorIs(err, entry.err, entry.name)
		assert.ErrorIs(err, ErrInstructionInvalid, entry.name)
		assert.Nil(words, entry.name)
	}

	words, err := Encode(Instruction{Op: OP_CALL, Address: 0x3fffff})
	assert.NoError(err)
	assert.Equal([]uint16{0x95ff, 0xffff}, words)

	words, err = Encode(Instruction{Op: OP_RJMP, Offset: -2048})
	assert.NoError(err)
	assert.Equal([]uint16{0xc800}, words)
}

func FuzzDecodeEncode(f *testing.F) {
	for _, word := range []uint16{0x0000, 0x0c12, 0x940c, 0x9000, 0x8108, 0x95c8, 0xf409, 0xffff} {
		f.Add(word, uint16(0x1234))
	}

	f.Fuzz(func(t *testing.T, first uint16, second uint16) {
		assert := assert.New(t)

		inst, err := Decode(fetchFrom(first, second), 0)
		if err != nil {
			assert.ErrorIs(err, ErrOpcodeUnknown)
			return
		}

		words, err := Encode(inst)
		if !assert.NoError(err, "%v", inst) {
			return
		}
		assert.Equal(inst.Words(), len(words))

		again, err := Decode(fetchFrom(words...), 0)
		assert.NoError(err)
		assert.Equal(inst, again, "0x%04x 0x%04x", first, second)
	})
}
