// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/avrsim/internal"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates, for the default board.
var sysEquate = maps.Collect(internal.IterSeq2Concat(
	maps.All(map[string]string{"LINENO": "0"}),
	ATmega328P.Defines(),
))

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Assembler is a single pass macro assembler for the AVR instruction set.
//
// Syntax, one statement per line:
//
//	label:  mnemonic operand, operand   ; comment
//	.equ NAME VALUE                     ; also .def, and NAME = VALUE
//	.org WORD                           ; move to a word address
//	.dw VALUE, ...                      ; data words, or label addresses
//	.macro NAME arg...                  ; until .endm, @name is a local label
//
// $(...) is evaluated at assembly time as a starlark expression over the
// integer equates and the labels defined so far, with lo8() and hi8().
// Jump targets are labels, word addresses, or .+N / .-N byte offsets
// from the next instruction.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to word addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	ip         int                 // Current word address.
	pending    map[int]Instruction // Opcode index to instruction awaiting its label.
	pendingDw  map[int][]int       // Opcode index to .dw words awaiting labels.
	expansions int                 // Macro expansions so far.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word: a number or an integer equate,
// optionally inverted with ~.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}

	if equate, ok := asm.Equate[word]; ok {
		word = equate
	}

	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if invert {
		value = ^value
	}

	return
}

// byteOf is the lo8()/hi8() expression builtin.
func byteOf(shift uint) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var value int
		err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &value)
		if err != nil {
			return nil, err
		}
		return starlark.MakeInt((value >> shift) & 0xff), nil
	}
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"lo8": starlark.NewBuiltin("lo8", byteOf(0)),
		"hi8": starlark.NewBuiltin("hi8", byteOf(8)),
	}
	for key, str := range asm.Equate {
		v, verr := asm.valueOf(str)
		if verr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	for key, ip := range asm.Label {
		pred[key] = starlark.MakeInt(ip)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > math.MaxInt32 || st_int64 < math.MinInt32 {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// parseLine parses a single line into words, handling equates, labels
// and macro expansion.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return strconv.Itoa(value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE, .def CONST VALUE, or CONST = VALUE
	if len(words) == 3 && words[1] == "=" {
		words = []string{".equ", words[0], words[2]}
	}
	if directive := strings.ToLower(words[0]); directive == ".equ" || directive == ".def" {
		words = slices.DeleteFunc(words, func(word string) bool { return word == "=" })
		if len(words) != 3 || !reIdentifier.MatchString(words[1]) {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok && words[1] != "LINENO" {
			err = ErrEquateDuplicate
			return
		}
		if equate, ok := asm.Equate[words[2]]; ok {
			words[2] = equate
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !reIdentifier.MatchString(label) {
			err = ErrInstructionInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.ip
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		err = asm.expand(words[0], macro, words[1:])
		words = nil
		return
	}

	return
}

// expand assembles the lines of a macro, with its arguments bound as
// equates.
func (asm *Assembler) expand(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	// Turn args into equs
	old_equate := maps.Clone(asm.Equate)
	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}
	defer func() { asm.Equate = old_equate }()

	// Local labels are unique to each expansion.
	asm.expansions++
	local := fmt.Sprintf("%v_%v_", name, asm.expansions)

	for n, line := range macro.Lines {
		lineno := macro.LineNo + n

		line = strings.ReplaceAll(line, "@", local)

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			return
		}
	}

	return
}

// currentIp gets the current word address.
func (asm *Assembler) currentIp() int {
	return asm.ip
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			var syntax *ErrSyntax
			if !errors.As(err, &syntax) {
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.ip = 0
	asm.expansions = 0
	asm.pending = make(map[int]Instruction)
	asm.pendingDw = make(map[int][]int)
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = strings.Fields(strings.ReplaceAll(strings.Join(words[2:], " "), ",", " "))
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for _, n := range slices.Sorted(maps.Keys(asm.pending)) {
		op := &asm.Opcode[n]
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		ip, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}

		op.Codes, err = link(asm.pending[n], op.Ip, ip)
		if err != nil {
			return
		}
	}

	// Final linking of .dw label words.
	for _, n := range slices.Sorted(maps.Keys(asm.pendingDw)) {
		op := &asm.Opcode[n]
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		for _, index := range asm.pendingDw[n] {
			label := op.Words[1+index]
			ip, ok := asm.Label[label]
			if !ok {
				err = ErrLabelMissing(label)
				return
			}
			op.Codes[index] = uint16(ip)
		}
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// link resolves the target of a jump, call or branch at ip to a word
// address, and encodes it.
func link(inst Instruction, ip int, target int) (codes []uint16, err error) {
	switch inst.Op {
	case OP_JMP, OP_CALL:
		if target < 0 {
			err = ErrOperandRange
			return
		}
		inst.Address = uint32(target)
	default:
		offset := target - (ip + 1)
		if offset < math.MinInt16 || offset > math.MaxInt16 {
			err = ErrOperandRange
			return
		}
		inst.Offset = int16(offset)
	}

	codes, err = Encode(inst)
	return
}

// alias rewrites a pseudo-instruction into its machine instruction.
type alias func(asm *Assembler, args []string) (name string, out []string)

func same(name string) alias {
	return func(_ *Assembler, args []string) (string, []string) {
		if len(args) == 1 {
			args = []string{args[0], args[0]}
		}
		return name, args
	}
}

func prefixed(name string, first string) alias {
	return func(_ *Assembler, args []string) (string, []string) {
		return name, append([]string{first}, args...)
	}
}

var aliases = func() map[string]alias {
	table := map[string]alias{
		"lsl": same("add"),
		"rol": same("adc"),
		"tst": same("and"),
		"clr": same("eor"),
		"ser": func(_ *Assembler, args []string) (string, []string) {
			return "ldi", append(args, "0xff")
		},
		"sbr": func(_ *Assembler, args []string) (string, []string) {
			return "ori", args
		},
		"cbr": func(asm *Assembler, args []string) (string, []string) {
			if len(args) != 2 {
				return "andi", args
			}
			// The mask is the 8-bit complement; anything else is left
			// for andi to reject.
			mask, err := asm.valueOf(args[1])
			if err != nil || mask < 0 || mask > 0xff {
				return "andi", []string{args[0], "~" + args[1]}
			}
			return "andi", []string{args[0], fmt.Sprintf("0x%02x", 0xff&^mask)}
		},
	}

	branches := [8][2]string{
		{"brcs", "brcc"}, {"breq", "brne"}, {"brmi", "brpl"}, {"brvs", "brvc"},
		{"brlt", "brge"}, {"brhs", "brhc"}, {"brts", "brtc"}, {"brie", "brid"},
	}
	flags := [8][2]string{
		{"sec", "clc"}, {"sez", "clz"}, {"sen", "cln"}, {"sev", "clv"},
		{"ses", "cls"}, {"seh", "clh"}, {"set", "clt"}, {"sei", "cli"},
	}
	for b := range 8 {
		flag := strconv.Itoa(b)
		table[branches[b][0]] = prefixed("brbs", flag)
		table[branches[b][1]] = prefixed("brbc", flag)
		table[flags[b][0]] = prefixed("bset", flag)
		table[flags[b][1]] = prefixed("bclr", flag)
	}
	table["brlo"] = table["brcs"]
	table["brsh"] = table["brcc"]

	return table
}()

// operands parses the operand words of an instruction, keeping the first
// error.
type operands struct {
	asm  *Assembler
	args []string
	err  error
}

func (ops *operands) count(n int) bool {
	if ops.err == nil && len(ops.args) != n {
		ops.err = ErrOperandCount
	}
	return ops.err == nil
}

// reg parses r0-r31, or the low register of an rH:rL pair.
func (ops *operands) reg(n int) (reg uint8) {
	if ops.err != nil {
		return
	}
	word := strings.ToLower(ops.args[n])
	if _, low, ok := strings.Cut(word, ":"); ok {
		word = low
	}
	if len(word) < 2 || word[0] != 'r' {
		ops.err = ErrRegisterInvalid
		return
	}
	index, err := strconv.Atoi(word[1:])
	if err != nil || index < 0 || index > 31 {
		ops.err = ErrRegisterInvalid
		return
	}
	reg = uint8(index)
	return
}

func (ops *operands) num(n int, lo int, hi int) (value int) {
	if ops.err != nil {
		return
	}
	value, ops.err = ops.asm.valueOf(ops.args[n])
	if ops.err == nil && (value < lo || value > hi) {
		ops.err = ErrOperandRange
	}
	return
}

var pointerByName = map[string]uint8{
	"X": PAIR_X,
	"Y": PAIR_Y,
	"Z": PAIR_Z,
}

// ptr parses X, X+, -X, and the Y+q and Z+q displacements.
func (ops *operands) ptr(n int) (ptr uint8, mode Mode, q int, disp bool) {
	if ops.err != nil {
		return
	}

	word := ops.args[n]
	name := word
	var qtext string
	switch {
	case strings.HasPrefix(word, "-"):
		mode = MODE_PRE_DEC
		name = word[1:]
	case strings.HasSuffix(word, "+"):
		mode = MODE_POST_INC
		name = word[:len(word)-1]
	default:
		name, qtext, disp = strings.Cut(word, "+")
	}

	ptr, ok := pointerByName[strings.ToUpper(name)]
	if !ok {
		ops.err = ErrPointerInvalid
		return
	}

	if disp {
		if ptr == PAIR_X {
			ops.err = ErrPointerInvalid
			return
		}
		value, err := ops.asm.valueOf(qtext)
		switch {
		case err != nil:
			ops.err = err
		case value < 0 || value > 63:
			ops.err = ErrOperandRange
		}
		q = value
	}

	return
}

// target parses a jump target into a word address. A label is returned
// for resolution when linking.
func (ops *operands) target(n int) (addr int, label string) {
	if ops.err != nil {
		return
	}

	word := ops.args[n]
	if len(word) > 1 && word[0] == '.' {
		offset, err := ops.asm.valueOf(word[1:])
		switch {
		case err != nil:
			ops.err = err
		case offset%2 != 0:
			ops.err = ErrOperandRange
		default:
			addr = ops.asm.ip + 1 + offset/2
		}
		return
	}

	if value, err := ops.asm.valueOf(word); err == nil {
		addr = value
		return
	}

	if !reIdentifier.MatchString(word) {
		ops.err = ErrParseNumber(word)
		return
	}

	label = word
	return
}

// instruction builds an instruction from its operand words.
func (asm *Assembler) instruction(op Op, args []string) (inst Instruction, target int, label string, err error) {
	ops := &operands{asm: asm, args: args}
	inst.Op = op

	switch op {
	case OP_NOP, OP_IJMP, OP_ICALL, OP_RET, OP_RETI, OP_SLEEP, OP_BREAK, OP_WDR:
		ops.count(0)
	case OP_ADD, OP_ADC, OP_SUB, OP_SBC, OP_AND, OP_OR, OP_EOR, OP_CP, OP_CPC,
		OP_CPSE, OP_MOV, OP_MOVW, OP_MUL, OP_MULS, OP_MULSU, OP_FMUL, OP_FMULS, OP_FMULSU:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			inst.Rr = ops.reg(1)
		}
	case OP_SUBI, OP_SBCI, OP_ANDI, OP_ORI, OP_CPI, OP_LDI:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			inst.K = uint8(ops.num(1, -128, 255))
		}
	case OP_ADIW, OP_SBIW:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			inst.K = uint8(ops.num(1, 0, 63))
		}
	case OP_COM, OP_NEG, OP_INC, OP_DEC, OP_LSR, OP_ASR, OP_ROR, OP_SWAP, OP_POP:
		if ops.count(1) {
			inst.Rd = ops.reg(0)
		}
	case OP_PUSH:
		if ops.count(1) {
			inst.Rr = ops.reg(0)
		}
	case OP_LD, OP_LDD:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			var q int
			var disp bool
			inst.Pointer, inst.Mode, q, disp = ops.ptr(1)
			if disp || op == OP_LDD {
				inst.Op = OP_LDD
				inst.Q = uint8(q)
			}
		}
	case OP_ST, OP_STD:
		if ops.count(2) {
			var q int
			var disp bool
			inst.Pointer, inst.Mode, q, disp = ops.ptr(0)
			inst.Rr = ops.reg(1)
			if disp || op == OP_STD {
				inst.Op = OP_STD
				inst.Q = uint8(q)
			}
		}
	case OP_LDS:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			inst.Address = uint32(ops.num(1, 0, 0xffff))
		}
	case OP_STS:
		if ops.count(2) {
			inst.Address = uint32(ops.num(0, 0, 0xffff))
			inst.Rr = ops.reg(1)
		}
	case OP_LPM:
		if len(args) == 0 {
			inst.Pointer = PAIR_Z
			inst.Implied = true
			break
		}
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			var disp bool
			inst.Pointer, inst.Mode, _, disp = ops.ptr(1)
			if ops.err == nil && disp {
				ops.err = ErrPointerInvalid
			}
		}
	case OP_IN:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			inst.A = uint8(ops.num(1, 0, 63))
		}
	case OP_OUT:
		if ops.count(2) {
			inst.A = uint8(ops.num(0, 0, 63))
			inst.Rr = ops.reg(1)
		}
	case OP_SBI, OP_CBI, OP_SBIC, OP_SBIS:
		if ops.count(2) {
			inst.A = uint8(ops.num(0, 0, 31))
			inst.B = uint8(ops.num(1, 0, 7))
		}
	case OP_SBRC, OP_SBRS, OP_BST, OP_BLD:
		if ops.count(2) {
			inst.Rd = ops.reg(0)
			inst.B = uint8(ops.num(1, 0, 7))
		}
	case OP_BSET, OP_BCLR:
		if ops.count(1) {
			inst.B = uint8(ops.num(0, 0, 7))
		}
	case OP_BRBS, OP_BRBC:
		if ops.count(2) {
			inst.B = uint8(ops.num(0, 0, 7))
			target, label = ops.target(1)
		}
	case OP_RJMP, OP_RCALL, OP_JMP, OP_CALL:
		if ops.count(1) {
			target, label = ops.target(0)
		}
	default:
		ops.err = ErrInstructionInvalid
	}

	err = ops.err
	return
}

// jumps are the operations with a target operand.
func jumps(op Op) bool {
	switch op {
	case OP_BRBS, OP_BRBC, OP_RJMP, OP_RCALL, OP_JMP, OP_CALL:
		return true
	}
	return false
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []uint16
	var label string
	var inst Instruction
	var pending bool
	var dwLabels []int

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		if pending {
			asm.pending[len(asm.Opcode)] = inst
		}
		if len(dwLabels) > 0 {
			asm.pendingDw[len(asm.Opcode)] = dwLabels
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
		asm.ip += len(codes)
	}()

	name := strings.ToLower(words[0])
	args := words[1:]

	switch name {
	case ".org":
		if len(args) != 1 {
			err = ErrOrgSyntax
			return
		}
		var org int
		org, err = asm.valueOf(args[0])
		if err != nil {
			err = errors.Join(ErrOrgSyntax, err)
			return
		}
		if org < asm.ip {
			err = ErrOrgBackwards
			return
		}
		asm.ip = org
		return
	case ".dw":
		if len(args) == 0 {
			err = ErrOperandCount
			return
		}
		for _, arg := range args {
			value, verr := asm.valueOf(arg)
			switch {
			case verr == nil && (value < -0x8000 || value > 0xffff):
				err = ErrOperandRange
				return
			case verr == nil:
				codes = append(codes, uint16(value))
			case reIdentifier.MatchString(arg):
				if len(label) == 0 {
					label = arg
				}
				dwLabels = append(dwLabels, len(codes))
				codes = append(codes, 0)
			default:
				err = verr
				codes = nil
				return
			}
		}
		return
	}

	if alias, ok := aliases[name]; ok {
		name, args = alias(asm, args)
	}

	op, ok := ParseOp(name)
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	var target int
	inst, target, label, err = asm.instruction(op, args)
	if err != nil {
		return
	}

	switch {
	case len(label) > 0:
		// Placeholder until the label is resolved.
		pending = true
		codes, err = link(inst, asm.ip, asm.ip+1)
	case jumps(op):
		codes, err = link(inst, asm.ip, target)
	default:
		codes, err = Encode(inst)
	}

	if err != nil {
		codes = nil
	}

	return
}
