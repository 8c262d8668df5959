package cpu

import (
	"errors"

	"github.com/ezrec/avrsim/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrOpcodeUnknown = errors.New(f("unknown opcode"))
	ErrOutOfRange    = errors.New(f("out of range"))
	ErrProgramRange  = errors.New(f("program address out of range"))

	// Layout errors
	ErrLayoutRegisters = errors.New(f("layout register count"))
	ErrLayoutIo        = errors.New(f("layout io space"))
	ErrLayoutSram      = errors.New(f("layout sram space"))
	ErrLayoutProgram   = errors.New(f("layout program size"))
	ErrLayoutSpecial   = errors.New(f("layout special register"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrOrgBackwards       = errors.New(f(".org moves backwards"))
	ErrOperandCount       = errors.New(f("wrong operand count"))
	ErrOperandRange       = errors.New(f("operand out of range"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrPointerInvalid     = errors.New(f("pointer invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrUnknownOpcode reports a program word that matches no instruction
// encoding. It is recoverable: the machine state is left untouched.
type ErrUnknownOpcode struct {
	Pc   uint16 // Word address of the offending word.
	Word uint16 // The undecodable word.
}

func (err *ErrUnknownOpcode) Error() string {
	return f("bad opcode 0x%04x at 0x%04x", err.Word, err.Pc)
}

func (err *ErrUnknownOpcode) Is(target error) bool {
	return target == ErrOpcodeUnknown
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
