package cpu

import (
	"errors"
)

// Policy selects how out-of-range register indices, data addresses and
// stack pointer values are handled.
//
// POLICY_PANIC aborts execution with a panic. Corrupted emulator state is
// never reported as an ordinary error. POLICY_CHECKED recovers the fault and
// returns it as an *ErrBounds, rolling back the partially executed
// instruction.
type Policy int

//go:generate go tool stringer -linecomment -type=Policy
const (
	POLICY_PANIC   = Policy(0) // panic
	POLICY_CHECKED = Policy(1) // checked
)

// Space identifies the index space of a bounds fault: a general purpose
// register index, an I/O register address, a data memory address, a stack
// pointer outside of SRAM, or a zero divisor.
type Space int

//go:generate go tool stringer -linecomment -type=Space
const (
	SPACE_REGISTER = Space(0) // register
	SPACE_IO       = Space(1) // io
	SPACE_DATA     = Space(2) // data
	SPACE_STACK    = Space(3) // stack
	SPACE_DIVISOR  = Space(4) // divisor
)

// ErrBounds is raised when the emulator state itself is corrupt: an index
// or address lies outside of its partition.
type ErrBounds struct {
	Space Space
	Index int // Offending index or address.
	Limit int // Size of the space.
}

func (err *ErrBounds) Error() string {
	return f("%v index 0x%04x out of range 0x%04x", err.Space, err.Index, err.Limit)
}

func (err *ErrBounds) Is(target error) bool {
	return target == ErrOutOfRange
}

// fault is the single point where bounds violations are raised.
func fault(space Space, index int, limit int) {
	panic(&ErrBounds{Space: space, Index: index, Limit: limit})
}

// Guard runs fn under the policy. With POLICY_CHECKED, a bounds fault
// raised inside fn is returned as an error; any other panic is re-raised.
// With POLICY_PANIC, fn runs without a recovery frame.
func (p Policy) Guard(fn func()) (err error) {
	if p != POLICY_CHECKED {
		fn()
		return
	}

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		bounds, ok := rec.(*ErrBounds)
		if !ok {
			panic(rec)
		}
		err = bounds
	}()

	fn()

	return
}

// IsBounds returns true if err is, or wraps, a bounds fault.
func IsBounds(err error) bool {
	var bounds *ErrBounds
	return errors.As(err, &bounds)
}
