package cpu

import (
	"iter"
)

// Opcode is a single assembled source line.
type Opcode struct {
	LineNo    int      // Source line number.
	Ip        int      // Word address of the first code word.
	Words     []string // Source words, after equate substitution.
	Codes     []uint16 // Machine words.
	LinkLabel string   // Label resolved when linking.
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode covering a word address.
func (prog *Program) Debug(pc uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(pc) >= op.Ip && int(pc) < op.Ip+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(pc) - op.Ip,
			}
			break
		}
	}

	return
}

// LineNo returns the source line of a word address, or 0 if unknown.
func (prog *Program) LineNo(pc uint16) int {
	dbg := prog.Debug(pc)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// Codes iterates over the machine words by word address.
func (prog *Program) Codes() iter.Seq2[uint16, uint16] {
	return func(yield func(pc uint16, word uint16) bool) {
		for _, op := range prog.Opcodes {
			pc := uint16(op.Ip)
			for n, code := range op.Codes {
				if !yield(pc+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Words returns the flat program memory image, starting at word 0.
// Gaps left by .org are zero filled (NOP).
func (prog *Program) Words() (words []uint16) {
	for pc, code := range prog.Codes() {
		for int(pc) >= len(words) {
			words = append(words, 0)
		}
		words[pc] = code
	}

	return
}
