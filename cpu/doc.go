// Package cpu implements the microprocessor core and assembler for an 8-bit
// AVR (ATmega328P-class) microcontroller.
//
// The core consists of a register file (r0-r31, SREG, SP, PC and the I/O
// register bank), a Harvard memory image (word-addressed program memory and
// byte-addressed data memory), an instruction decoder for the fixed-width
// 16-bit encoding, and an executor that applies each instruction's register,
// flag and memory side effects.
//
// The register file and the I/O bank are mirrored at the bottom of data
// memory, exactly as on the hardware: they share storage with the first
// 0x100 bytes of the data space.
//
// The assembler provides a small AVR assembly language with labels, macros,
// equates, and compile-time expression evaluation.
package cpu
