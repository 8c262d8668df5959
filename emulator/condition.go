package emulator

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/avrsim/cpu"
)

// Condition is a stop condition for RunUntil, written as a starlark
// expression over the machine state:
//
//	pc sp sreg cycles    program counter, stack pointer, status, cycles
//	r0 .. r31            general purpose registers
//	x y z                index register pairs
//	C Z N V S H T I      status flags, as booleans
//	mem(addr)            data memory byte
//
// For example: "pc == 0x40 or (r16 == 0 and C)".
type Condition struct {
	Expr string

	err error // Last evaluation error, for Stop.
}

// ParseCondition checks the syntax of a stop condition.
func ParseCondition(expr string) (cond *Condition, err error) {
	if len(strings.TrimSpace(expr)) == 0 {
		err = ErrConditionEmpty
		return
	}

	opts := syntax.FileOptions{}
	_, err = opts.ParseExpr("condition", expr, 0)
	if err != nil {
		return
	}

	cond = &Condition{Expr: expr}
	return
}

// predeclared builds the condition variables for the machine state.
func predeclared(m *Machine) starlark.StringDict {
	regs := m.Registers()
	mem := m.Memory()

	pred := starlark.StringDict{
		"pc":     starlark.MakeInt(int(regs.PC())),
		"sp":     starlark.MakeInt(int(regs.SP())),
		"sreg":   starlark.MakeInt(int(regs.SREG())),
		"cycles": starlark.MakeUint64(m.Cycles()),
		"x":      starlark.MakeInt(int(regs.X())),
		"y":      starlark.MakeInt(int(regs.Y())),
		"z":      starlark.MakeInt(int(regs.Z())),
		"mem": starlark.NewBuiltin("mem", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var addr int
			err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &addr)
			if err != nil {
				return nil, err
			}
			if addr < 0 || addr >= m.layout.DataSize() {
				return nil, fmt.Errorf("mem: %w", &cpu.ErrBounds{Space: cpu.SPACE_DATA, Index: addr, Limit: m.layout.DataSize()})
			}
			return starlark.MakeInt(int(mem.Read(uint16(addr)))), nil
		}),
	}

	for n := range m.layout.Registers {
		pred[fmt.Sprintf("r%d", n)] = starlark.MakeInt(int(regs.Read(uint8(n))))
	}

	for fl := cpu.FLAG_C; fl <= cpu.FLAG_I; fl++ {
		pred[fl.String()] = starlark.Bool(regs.Flag(fl))
	}

	return pred
}

// Eval evaluates the condition against the machine state.
func (cond *Condition) Eval(m *Machine) (stop bool, err error) {
	thread := starlark.Thread{Name: "condition"}
	opts := syntax.FileOptions{}

	dict, err := starlark.ExecFileOptions(&opts, &thread, "condition", "rc=("+cond.Expr+")\n", predeclared(m))
	if err != nil {
		return
	}

	rc, ok := dict["rc"].(starlark.Bool)
	if !ok {
		err = errors.Join(ErrConditionType, fmt.Errorf("%v", dict["rc"]))
		return
	}

	stop = bool(rc)
	return
}

// Stop adapts the condition to RunUntil. An evaluation error stops the
// run, and is kept in Err.
func (cond *Condition) Stop(m *Machine) bool {
	stop, err := cond.Eval(m)
	if err != nil {
		cond.err = err
		if m.Verbose {
			log.Printf("emulator: condition %v: %v", cond.Expr, err)
		}
		return true
	}
	return stop
}

// Err returns the last evaluation error of Stop.
func (cond *Condition) Err() error {
	return cond.err
}
