// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs AVR programs on a simulated board.
package emulator

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/avrsim/cpu"
	"github.com/ezrec/avrsim/ihex"
	"github.com/ezrec/avrsim/internal"
)

// Trace is the record of one executed instruction.
type Trace struct {
	Pc          uint16          // Word address of the instruction.
	Instruction cpu.Instruction // The executed instruction.
	Cycles      int             // Clock cycles consumed.
}

func (tr Trace) String() string {
	return fmt.Sprintf("%04x: %v (%d)", tr.Pc, tr.Instruction, tr.Cycles)
}

// Option configures a Machine.
type Option func(m *Machine)

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(m *Machine) { m.Verbose = verbose }
}

// WithPolicy selects the bounds policy. The default is cpu.POLICY_PANIC.
func WithPolicy(policy cpu.Policy) Option {
	return func(m *Machine) { m.Policy = policy }
}

// WithLayout selects the board layout. The default is cpu.ATmega328P.
func WithLayout(layout cpu.Layout) Option {
	return func(m *Machine) { m.layout = layout }
}

// WithStepLimit bounds the steps of a single RunUntil. Zero is unlimited.
func WithStepLimit(steps int) Option {
	return func(m *Machine) { m.StepLimit = steps }
}

// Machine is one emulated board: an AVR core with its register file and
// memory image, and the program loaded into it.
type Machine struct {
	Verbose   bool         // If set, enables verbose logging.
	Policy    cpu.Policy   // Bounds policy for instruction execution.
	StepLimit int          // Maximum steps of a RunUntil, if not zero.
	Program   *cpu.Program // Listing of the assembled program, if any.

	layout cpu.Layout
	core   *cpu.Cpu
	halted error
}

// NewMachine creates a machine with zeroed state: PC 0, SP at RAMEND, and
// program memory full of NOP.
func NewMachine(opts ...Option) (m *Machine, err error) {
	m = &Machine{
		layout: cpu.ATmega328P,
	}

	for _, opt := range opts {
		opt(m)
	}

	err = m.layout.Validate()
	if err != nil {
		m = nil
		return
	}

	m.core = cpu.NewCpu(m.layout)

	return
}

// Defines returns an iterator over all of the assembler defines for the
// machine's board.
func (m *Machine) Defines() iter.Seq2[string, string] {
	board := map[string]string{
		"PROGRAM_WORDS": fmt.Sprintf("%d", m.layout.ProgramWords),
		"REGISTERS":     fmt.Sprintf("%d", m.layout.Registers),
	}
	return internal.IterSeq2Concat(maps.All(board), m.layout.Defines())
}

// Layout returns the board layout.
func (m *Machine) Layout() cpu.Layout {
	return m.layout
}

// Registers returns the register file.
func (m *Machine) Registers() *cpu.Registers {
	return m.core.Registers
}

// Memory returns the memory image.
func (m *Machine) Memory() *cpu.Memory {
	return m.core.Memory
}

// PC returns the program counter, in words.
func (m *Machine) PC() uint16 {
	return m.core.Registers.PC()
}

// Cycles returns the clock cycles since the last reset.
func (m *Machine) Cycles() uint64 {
	return m.core.Cycles
}

// Halted returns the error that halted the machine, or nil.
func (m *Machine) Halted() error {
	return m.halted
}

// String returns the current machine state as a string.
func (m *Machine) String() string {
	return m.core.String()
}

// LoadProgram replaces program memory with an Intel HEX image. Registers
// and data memory are untouched. On failure, the records before the failing
// one remain in program memory.
func (m *Machine) LoadProgram(hex []byte) (err error) {
	m.core.Memory.ClearProgram()
	m.Program = nil

	img, err := ihex.Load(bytes.NewReader(hex), m.core.Memory)
	if err != nil {
		return
	}

	if m.Verbose {
		log.Printf("emulator: loaded %v bytes in %v records", img.Size, img.Records)
	}

	return
}

// LoadWords replaces program memory with program words, starting at word 0.
func (m *Machine) LoadWords(words []uint16) (err error) {
	m.core.Memory.ClearProgram()
	m.Program = nil

	err = m.core.Memory.SetProgram(words)
	return
}

// Assemble assembles source text with the board's defines, and loads it.
// The listing is kept for runtime error line numbers.
func (m *Machine) Assemble(source io.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: m.Verbose}
	for equ, value := range m.Defines() {
		asm.Predefine(equ, value)
	}

	prog, err := asm.Parse(source)
	if err != nil {
		return
	}

	err = m.LoadWords(prog.Words())
	if err != nil {
		return
	}

	m.Program = prog
	return
}

// Reset zeroes the registers, I/O bank and SRAM, sets PC to 0 and SP to
// RAMEND, and clears a halted run.
func (m *Machine) Reset() {
	m.core.Verbose = m.Verbose
	m.core.Reset()
	m.halted = nil
}

// runtime wraps an error with its location.
func (m *Machine) runtime(pc uint16, err error) error {
	var lineno int
	if m.Program != nil {
		lineno = m.Program.LineNo(pc)
	}
	return &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
}

// Peek decodes the instruction at PC without executing it.
func (m *Machine) Peek() (inst cpu.Instruction, err error) {
	pc := m.PC()
	inst, err = m.core.Decode()
	if err != nil {
		err = m.runtime(pc, err)
	}
	return
}

// execute runs a decoded instruction at PC.
func (m *Machine) execute(inst cpu.Instruction) (trace Trace, err error) {
	m.core.Verbose = m.Verbose

	pc := m.PC()
	cycles, err := m.core.ExecuteWith(m.Policy, inst)
	if err != nil {
		err = m.runtime(pc, err)
		return
	}

	trace = Trace{Pc: pc, Instruction: inst, Cycles: cycles}
	return
}

// Step executes the instruction at PC. An undecodable word returns an
// error wrapping *cpu.ErrUnknownOpcode, and leaves the state untouched.
func (m *Machine) Step() (trace Trace, err error) {
	inst, err := m.Peek()
	if err != nil {
		return
	}

	return m.execute(inst)
}

// StepPure executes the instruction at PC only if it touches nothing but
// registers, flags and PC. ok is false if it was not executed.
func (m *Machine) StepPure() (trace Trace, ok bool, err error) {
	return m.stepIf(cpu.Instruction.Pure)
}

// StepEffectful executes the instruction at PC only if it touches data
// memory, the stack, the I/O space or program memory. ok is false if it was
// not executed.
func (m *Machine) StepEffectful() (trace Trace, ok bool, err error) {
	return m.stepIf(cpu.Instruction.Effectful)
}

func (m *Machine) stepIf(class func(cpu.Instruction) bool) (trace Trace, ok bool, err error) {
	inst, err := m.Peek()
	if err != nil || !class(inst) {
		return
	}

	trace, err = m.execute(inst)
	ok = err == nil
	return
}

// RunUntil steps the machine until stop returns true, checked before each
// step, or a step fails. The sequence yields each executed instruction;
// a failure is yielded last, and halts the machine until Reset.
//
// A nil stop runs until failure or the step limit.
func (m *Machine) RunUntil(stop func(m *Machine) bool) iter.Seq2[Trace, error] {
	return func(yield func(Trace, error) bool) {
		if m.halted != nil {
			yield(Trace{}, ErrHalted)
			return
		}

		for steps := 0; ; steps++ {
			if stop != nil && stop(m) {
				return
			}

			if m.StepLimit > 0 && steps >= m.StepLimit {
				yield(Trace{}, ErrStepLimit)
				return
			}

			trace, err := m.Step()
			if err != nil {
				m.halted = err
				if m.Verbose {
					log.Printf("emulator: halted: %v", err)
				}
				yield(trace, err)
				return
			}

			if !yield(trace, nil) {
				return
			}
		}
	}
}
