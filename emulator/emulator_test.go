package emulator

import (
	"bytes"
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/avrsim/cpu"
	"github.com/ezrec/avrsim/ihex"
)

func newMachine(t *testing.T, source string, opts ...Option) (m *Machine) {
	m, err := NewMachine(opts...)
	require.NoError(t, err)
	require.NoError(t, m.Assemble(strings.NewReader(source)))
	return
}

type state struct {
	Pc     uint16
	Cycles uint64
	Data   []byte
}

func stateOf(m *Machine) state {
	return state{
		Pc:     m.PC(),
		Cycles: m.Cycles(),
		Data:   m.Memory().Slice(0, m.Layout().DataSize()),
	}
}

func TestNewMachine(t *testing.T) {
	assert := assert.New(t)

	m, err := NewMachine()
	require.NoError(t, err)

	assert.Equal(cpu.ATmega328P, m.Layout())
	assert.Equal(cpu.POLICY_PANIC, m.Policy)
	assert.Equal(uint16(0), m.PC())
	assert.Equal(uint16(0x08ff), m.Registers().SP())
	assert.Equal(uint64(0), m.Cycles())
	assert.NoError(m.Halted())

	inst, err := m.Peek()
	assert.NoError(err)
	assert.Equal(cpu.OP_NOP, inst.Op)

	layout := cpu.ATmega328P
	layout.Registers = 0
	m, err = NewMachine(WithLayout(layout))
	assert.Nil(m)
	assert.ErrorIs(err, cpu.ErrLayoutRegisters)
}

func TestMachineDefines(t *testing.T) {
	assert := assert.New(t)

	m, err := NewMachine()
	require.NoError(t, err)

	defines := maps.Collect(m.Defines())
	assert.Equal("16384", defines["PROGRAM_WORDS"])
	assert.Equal("32", defines["REGISTERS"])
	assert.Equal("0x08ff", defines["RAMEND"])
	assert.Equal("0x3f", defines["SREG"])
}

func TestTraceString(t *testing.T) {
	assert := assert.New(t)

	tr := Trace{Pc: 0x12, Instruction: cpu.Instruction{Op: cpu.OP_NOP}, Cycles: 1}
	assert.Equal("0012: nop (1)", tr.String())
}

func TestMachineStep(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, strings.Join([]string{
		"ldi r16, 0x0a",
		"ldi r17, 0x05",
		"add r16, r17",
	}, "\n"))

	for range 3 {
		_, err := m.Step()
		require.NoError(t, err)
	}

	assert.Equal(byte(0x0f), m.Registers().Read(16))
	assert.Equal(uint16(3), m.PC())
	assert.Equal(uint64(3), m.Cycles())
	assert.False(m.Registers().Flag(cpu.FLAG_Z))
	assert.False(m.Registers().Flag(cpu.FLAG_C))
}

func TestMachineUnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	m, err := NewMachine()
	require.NoError(t, err)
	require.NoError(t, m.LoadWords([]uint16{0xffff}))

	before := stateOf(m)
	_, err = m.Step()
	assert.ErrorIs(err, cpu.ErrOpcodeUnknown)

	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(uint16(0), runtime.Pc)
		assert.Equal(0, runtime.LineNo)
	}

	var unknown *cpu.ErrUnknownOpcode
	if assert.True(errors.As(err, &unknown)) {
		assert.Equal(uint16(0xffff), unknown.Word)
	}

	assert.Empty(cmp.Diff(before, stateOf(m)))
}

func TestMachineRuntimeLine(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "nop\n.dw 0xffff\n")

	var err error
	for _, err = range m.RunUntil(nil) {
		if err != nil {
			break
		}
	}

	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(uint16(1), runtime.Pc)
		assert.Equal(2, runtime.LineNo)
	}
}

func TestMachineRunUntil(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, strings.Join([]string{
		"      ldi r16, 5",
		"loop: dec r16",
		"      brne loop",
		"done: rjmp done",
	}, "\n"))

	cond, err := ParseCondition("pc == 3")
	require.NoError(t, err)

	var traces []Trace
	for trace, err := range m.RunUntil(cond.Stop) {
		require.NoError(t, err)
		traces = append(traces, trace)
	}
	assert.NoError(cond.Err())

	assert.Len(traces, 11)
	assert.Equal(Trace{Pc: 0, Instruction: cpu.Instruction{Op: cpu.OP_LDI, Rd: 16, K: 5}, Cycles: 1}, traces[0])
	assert.Equal(2, traces[2].Cycles)
	assert.Equal(1, traces[10].Cycles)

	assert.Equal(uint16(3), m.PC())
	assert.Equal(uint64(15), m.Cycles())
	assert.Equal(byte(0), m.Registers().Read(16))
	assert.True(m.Registers().Flag(cpu.FLAG_Z))

	// The condition already holds: nothing runs.
	count := 0
	for range m.RunUntil(cond.Stop) {
		count++
	}
	assert.Equal(0, count)
}

func TestMachineRunUntilBreak(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "rjmp .-2")

	count := 0
	for _, err := range m.RunUntil(nil) {
		require.NoError(t, err)
		count++
		if count == 4 {
			break
		}
	}

	assert.Equal(uint64(8), m.Cycles())
	assert.NoError(m.Halted())
}

func TestMachineStepLimit(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "rjmp .-2", WithStepLimit(3))

	var errs []error
	for _, err := range m.RunUntil(nil) {
		errs = append(errs, err)
	}

	assert.Equal([]error{nil, nil, nil, ErrStepLimit}, errs)
	assert.NoError(m.Halted())
	assert.Equal(uint64(6), m.Cycles())

	// Each run starts counting again.
	errs = nil
	for _, err := range m.RunUntil(nil) {
		errs = append(errs, err)
	}
	assert.Len(errs, 4)
}

func TestMachineHalted(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "nop\n.dw 0xffff\n")

	var errs []error
	for _, err := range m.RunUntil(nil) {
		errs = append(errs, err)
	}
	if assert.Len(errs, 2) {
		assert.NoError(errs[0])
		assert.ErrorIs(errs[1], cpu.ErrOpcodeUnknown)
	}
	assert.ErrorIs(m.Halted(), cpu.ErrOpcodeUnknown)

	errs = nil
	for _, err := range m.RunUntil(nil) {
		errs = append(errs, err)
	}
	assert.Equal([]error{ErrHalted}, errs)

	m.Reset()
	assert.NoError(m.Halted())
	assert.Equal(uint16(0), m.PC())
	assert.Equal(uint64(0), m.Cycles())

	_, err := m.Step()
	assert.NoError(err)
}

func TestMachinePolicy(t *testing.T) {
	assert := assert.New(t)

	source := strings.Join([]string{
		"ldi r26, 0x00",
		"ldi r27, 0x09",
		"ld r16, X+",
	}, "\n")

	m := newMachine(t, source, WithPolicy(cpu.POLICY_CHECKED))
	for range 2 {
		_, err := m.Step()
		require.NoError(t, err)
	}

	before := stateOf(m)
	_, err := m.Step()
	assert.ErrorIs(err, cpu.ErrOutOfRange)

	var bounds *cpu.ErrBounds
	if assert.True(errors.As(err, &bounds)) {
		assert.Equal(cpu.SPACE_DATA, bounds.Space)
		assert.Equal(0x0900, bounds.Index)
	}

	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(uint16(2), runtime.Pc)
		assert.Equal(3, runtime.LineNo)
	}

	assert.Empty(cmp.Diff(before, stateOf(m)))
	assert.Equal(uint16(0x0900), m.Registers().X())

	m = newMachine(t, source)
	for range 2 {
		_, err := m.Step()
		require.NoError(t, err)
	}
	assert.Panics(func() { _, _ = m.Step() })
}

func TestMachineStepClass(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, "ldi r16, 0x42\npush r16\n")

	_, ok, err := m.StepEffectful()
	assert.NoError(err)
	assert.False(ok)
	assert.Equal(uint16(0), m.PC())

	trace, ok, err := m.StepPure()
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(cpu.OP_LDI, trace.Instruction.Op)

	_, ok, err = m.StepPure()
	assert.NoError(err)
	assert.False(ok)
	assert.Equal(uint16(1), m.PC())

	trace, ok, err = m.StepEffectful()
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(2, trace.Cycles)
	assert.Equal(uint16(0x08fe), m.Registers().SP())
	assert.Equal(byte(0x42), m.Memory().Read(0x08ff))
}

func TestMachineLoadProgram(t *testing.T) {
	assert := assert.New(t)

	m, err := NewMachine()
	require.NoError(t, err)

	m.Registers().Write(17, 0x99)

	buf := &bytes.Buffer{}
	require.NoError(t, ihex.EncodeWords(buf, []uint16{0xe005, 0x0000}, 16))
	assert.NoError(m.LoadProgram(buf.Bytes()))
	assert.Nil(m.Program)

	_, err = m.Step()
	assert.NoError(err)
	assert.Equal(byte(0x05), m.Registers().Read(16))
	assert.Equal(byte(0x99), m.Registers().Read(17))

	// Loading replaces what was there before.
	require.NoError(t, m.LoadWords([]uint16{0x0000, 0x0000, 0xe1f0}))
	assert.NoError(m.LoadProgram([]byte(":020000000000FE\n:00000001FF\n")))
	assert.Equal(uint16(0), m.Memory().ProgramWord(2))

	err = m.LoadProgram([]byte(":040000000C9400015C\n:00000001FF\n"))
	assert.ErrorIs(err, ihex.ErrRecordChecksum)

	err = m.LoadProgram([]byte(":040000000C9400015B\n"))
	assert.ErrorIs(err, ihex.ErrMissingEOF)
	assert.Equal(uint16(0x940c), m.Memory().ProgramWord(0))
}

func TestMachineAssemble(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, strings.Join([]string{
		"ldi r16, $(lo8(RAMEND))",
		"out SPL, r16",
		"ldi r17, $(REGISTERS)",
	}, "\n"))
	if assert.NotNil(m.Program) {
		assert.Len(m.Program.Opcodes, 3)
	}

	for range 3 {
		_, err := m.Step()
		require.NoError(t, err)
	}
	assert.Equal(uint16(0x08ff), m.Registers().SP())
	assert.Equal(byte(32), m.Registers().Read(17))

	err := m.Assemble(strings.NewReader("bogus"))
	assert.ErrorIs(err, cpu.ErrInstructionInvalid)
}
