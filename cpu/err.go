package cpu

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrPcRange     = errors.New(f("pc out of range"))
	ErrMemoryRange = errors.New(f("memory address out of range"))
	ErrStackEmpty  = errors.New(f("stack empty"))
	ErrStackFull   = errors.New(f("stack full"))
	ErrNotRunning  = errors.New(f("cpu not running"))

	// Instruction decode errors
	ErrOpcodeUnknown = errors.New(f("unknown opcode"))
	ErrOpcodeAlu     = errors.New(f("alu"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrWordSyntax         = errors.New(f(".word syntax"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrAddressInvalid     = errors.New(f("address invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcode reports the literal instruction word that faulted and the
// address it was fetched from.
type ErrOpcode struct {
	Code Code
	Pc   uint16
}

func (eo *ErrOpcode) Error() string {
	return f("bad opcode 0x%04x at 0x%03x", uint16(eo.Code), eo.Pc)
}

func (eo *ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(*ErrOpcode)
	return
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

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("'%v' is not a value or register", string(err))
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
