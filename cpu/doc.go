// Package cpu implements the CHIP-8 instruction-execution core and its
// assembler.
//
// The CPU consists of a 12-bit program counter, 16 8-bit general-purpose
// registers (v0-vf, with vf doubling as the carry flag), 4096 bytes of
// flat memory, and a 16-entry subroutine return stack. Execution is a
// synchronous fetch, decode, execute loop over big-endian 16-bit
// instruction words; any malformed instruction or stack violation is a
// fatal fault that stops the loop and reports the offending word.
//
// The assembler provides a line-oriented assembly language for the
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package cpu
