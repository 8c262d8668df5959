package emulator

import (
	"errors"

	"github.com/ezrec/avrsim/translate"
)

var f = translate.From

var (
	ErrHalted         = errors.New(f("machine halted, reset required"))
	ErrStepLimit      = errors.New(f("step limit reached"))
	ErrConditionType  = errors.New(f("condition is not a boolean"))
	ErrConditionEmpty = errors.New(f("condition is empty"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint16 // Word address of the failed instruction.
	LineNo int    // Source line, if the program was assembled.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo > 0 {
		return f("pc 0x%04x line %d %v", err.Pc, err.LineNo, err.Err)
	}
	return f("pc 0x%04x %v", err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
