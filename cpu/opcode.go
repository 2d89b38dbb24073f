package cpu

import (
	"fmt"
)

// CpuState is the execution state of the Cpu.
type CpuState int

//go:generate go tool stringer -linecomment -type=CpuState
const (
	STATE_RUNNING = CpuState(0) // running
	STATE_HALTED  = CpuState(1) // halted
	STATE_FAULTED = CpuState(2) // faulted
)

// CodeClass is the primary opcode class, the top nibble of the
// instruction word.
type CodeClass int

//go:generate go tool stringer -linecomment -type=CodeClass
const (
	OP_SYS     = CodeClass(0x0) // sys
	OP_JP      = CodeClass(0x1) // jp
	OP_CALL    = CodeClass(0x2) // call
	OP_SE_IMM  = CodeClass(0x3) // se
	OP_SNE_IMM = CodeClass(0x4) // sne
	OP_SE_REG  = CodeClass(0x5) // se
	OP_LD_IMM  = CodeClass(0x6) // ld
	OP_ADD_IMM = CodeClass(0x7) // add
	OP_ALU     = CodeClass(0x8) // alu
)

// CodeAluOp is the minor opcode within the ALU class, the bottom nibble
// of the instruction word.
type CodeAluOp int

//go:generate go tool stringer -linecomment -type=CodeAluOp
const (
	ALU_OP_LD  = CodeAluOp(0x0) // ld
	ALU_OP_OR  = CodeAluOp(0x1) // or
	ALU_OP_AND = CodeAluOp(0x2) // and
	ALU_OP_XOR = CodeAluOp(0x3) // xor
	ALU_OP_ADD = CodeAluOp(0x4) // add
)

// The three zero-operand instructions, matched on the full word.
const (
	CODE_HALT = Code(0x0000) // Stop execution.
	CODE_CLS  = Code(0x00e0) // Clear the display.
	CODE_RET  = Code(0x00ee) // Return from subroutine.
)

// Code is a single 16-bit instruction word. The field accessors are
// views over the word; every bit pattern decodes, validity is judged
// by Cpu.Execute().
type Code uint16

// MakeCodeJp creates an absolute jump instruction.
func MakeCodeJp(addr uint16) Code {
	return Code(uint16(OP_JP)<<12 | (addr & 0xfff))
}

// MakeCodeCall creates a subroutine call instruction.
func MakeCodeCall(addr uint16) Code {
	return Code(uint16(OP_CALL)<<12 | (addr & 0xfff))
}

// MakeCodeSeImm creates a skip-if-equal-immediate instruction.
func MakeCodeSeImm(x uint8, imm uint8) Code {
	return makeImm(OP_SE_IMM, x, imm)
}

// MakeCodeSneImm creates a skip-if-not-equal-immediate instruction.
func MakeCodeSneImm(x uint8, imm uint8) Code {
	return makeImm(OP_SNE_IMM, x, imm)
}

// MakeCodeSeReg creates a skip-if-registers-equal instruction.
func MakeCodeSeReg(x, y uint8) Code {
	return Code(uint16(OP_SE_REG)<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4)
}

// MakeCodeLdImm creates a load-immediate instruction.
func MakeCodeLdImm(x uint8, imm uint8) Code {
	return makeImm(OP_LD_IMM, x, imm)
}

// MakeCodeAddImm creates an add-immediate instruction. The immediate
// form does not touch the carry flag.
func MakeCodeAddImm(x uint8, imm uint8) Code {
	return makeImm(OP_ADD_IMM, x, imm)
}

// MakeCodeAlu creates a register-register ALU instruction.
func MakeCodeAlu(op CodeAluOp, x, y uint8) Code {
	return Code(uint16(OP_ALU)<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4 | uint16(op)&0xf)
}

func makeImm(class CodeClass, x uint8, imm uint8) Code {
	return Code(uint16(class)<<12 | uint16(x&0xf)<<8 | uint16(imm))
}

// Class returns the primary opcode class from the instruction word.
func (code Code) Class() CodeClass {
	return CodeClass((uint16(code) >> 12) & 0xf)
}

// X returns the first operand register index (bits 8-11).
func (code Code) X() uint8 {
	return uint8((uint16(code) >> 8) & 0xf)
}

// Y returns the second operand register index (bits 4-7).
func (code Code) Y() uint8 {
	return uint8((uint16(code) >> 4) & 0xf)
}

// AluOp returns the minor opcode (bits 0-3) as an ALU operation.
func (code Code) AluOp() CodeAluOp {
	return CodeAluOp(uint16(code) & 0xf)
}

// Imm returns the immediate byte operand (bits 0-7).
func (code Code) Imm() uint8 {
	return uint8(code)
}

// Addr returns the 12-bit address operand (bits 0-11).
func (code Code) Addr() uint16 {
	return uint16(code) & 0xfff
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	switch code {
	case CODE_HALT:
		return "halt"
	case CODE_CLS:
		return "cls"
	case CODE_RET:
		return "ret"
	}

	class := code.Class()

	switch class {
	case OP_JP, OP_CALL:
		out = fmt.Sprintf("%v 0x%03x", class.String(), code.Addr())
	case OP_SE_IMM, OP_SNE_IMM, OP_LD_IMM, OP_ADD_IMM:
		out = fmt.Sprintf("%v v%x 0x%02x", class.String(), code.X(), code.Imm())
	case OP_SE_REG:
		if uint16(code)&0xf != 0 {
			out = fmt.Sprintf("0x%04x", uint16(code))
			break
		}
		out = fmt.Sprintf("%v v%x v%x", class.String(), code.X(), code.Y())
	case OP_ALU:
		op := code.AluOp()
		if op > ALU_OP_ADD {
			out = fmt.Sprintf("0x%04x", uint16(code))
			break
		}
		out = fmt.Sprintf("%v v%x v%x", op.String(), code.X(), code.Y())
	default:
		out = fmt.Sprintf("0x%04x", uint16(code))
	}

	return
}
