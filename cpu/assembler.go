// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%#v", MEMORY_SIZE),
	"STACK_LIMIT": fmt.Sprintf("%#v", STACK_LIMIT),
}

// Assembler is a single pass macro assembler for the CHIP-8 instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	pc        int                 // Current assembly address.
	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	v64, err := strconv.ParseInt(word, 0, 17)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 {
		value = uint16(0xffff + (v64 + 1))
	} else {
		value = uint16(v64)
	}

	if invert {
		value = ^value
	}

	return
}

// The 16 register names.
var regMap = map[string]uint8{
	"v0": 0x0,
	"v1": 0x1,
	"v2": 0x2,
	"v3": 0x3,
	"v4": 0x4,
	"v5": 0x5,
	"v6": 0x6,
	"v7": 0x7,
	"v8": 0x8,
	"v9": 0x9,
	"va": 0xa,
	"vb": 0xb,
	"vc": 0xc,
	"vd": 0xd,
	"ve": 0xe,
	"vf": 0xf,
}

// getReg returns the register index for a word.
func (asm *Assembler) getReg(word string) (reg uint8, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrRegisterInvalid
	}

	return
}

// getByte returns an immediate byte operand for a word.
func (asm *Assembler) getByte(word string) (value uint8, err error) {
	v16, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v16 > 0xff {
		err = ErrParseValue(word)
		return
	}

	value = uint8(v16)
	return
}

// getAddr returns a 12-bit address operand for a word.
func (asm *Assembler) getAddr(word string) (addr uint16, err error) {
	addr, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if addr > 0xfff {
		err = ErrAddressInvalid
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// .org ADDRESS
	if words[0] == ".org" {
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var addr uint16
		addr, err = asm.getAddr(words[1])
		if err != nil {
			return
		}
		asm.pc = int(addr)
		words = words[:0]
		return
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.pc
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, body := range macro.Lines {
			body_lineno := macro.LineNo + n

			// '@' expands to a per-invocation prefix, keeping
			// macro-local labels unique.
			body = strings.ReplaceAll(body, "@", fmt.Sprintf("%v_%v_", name, lineno))
			words, err = asm.parseLine(body, body_lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: body_lineno, Err: err}
				err = &ErrSyntax{LineNo: body_lineno, Line: body, Err: err}
				return
			}

			err = asm.parseWords(words, body_lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: body_lineno, Err: err}
				err = &ErrSyntax{LineNo: body_lineno, Line: body, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.pc = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		all_words := strings.Split(line, " ")

		var words []string
		for _, single := range all_words {
			if len(single) > 0 {
				words = append(words, single)
			}
		}

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}

		linked := &op.Codes[len(op.Codes)-1]
		*linked |= Code(uint16(addr) & 0xfff)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps the register-register ALU opcode names.
var aluMap = map[string]CodeAluOp{
	"or":  ALU_OP_OR,
	"and": ALU_OP_AND,
	"xor": ALU_OP_XOR,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Pc: asm.pc, Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
		asm.pc += 2 * len(codes)
	}()

	switch words[0] {
	case ".word":
		if len(words) < 2 {
			err = ErrWordSyntax
			return
		}
		for _, word := range words[1:] {
			var value uint16
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			codes = append(codes, Code(value))
		}
	case "halt", "cls", "ret":
		if len(words) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		switch words[0] {
		case "halt":
			codes = append(codes, CODE_HALT)
		case "cls":
			codes = append(codes, CODE_CLS)
		case "ret":
			codes = append(codes, CODE_RET)
		}
	case "jp", "call":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}

		make_code := MakeCodeJp
		if words[0] == "call" {
			make_code = MakeCodeCall
		}

		addr, addr_err := asm.getAddr(words[1])
		switch addr_err.(type) {
		case nil:
			codes = append(codes, make_code(addr))
		case ErrParseNumber:
			// Not a number - link as a label.
			codes = append(codes, make_code(0))
			label = words[1]
		default:
			err = addr_err
			return
		}
	case "se", "sne", "ld", "add":
		if len(words) < 3 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(words) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}

		var x uint8
		x, err = asm.getReg(words[1])
		if err != nil {
			return
		}

		y, reg_ok := regMap[words[2]]
		if reg_ok {
			switch words[0] {
			case "se":
				codes = append(codes, MakeCodeSeReg(x, y))
			case "ld":
				codes = append(codes, MakeCodeAlu(ALU_OP_LD, x, y))
			case "add":
				codes = append(codes, MakeCodeAlu(ALU_OP_ADD, x, y))
			default:
				// No register-register form of sne.
				err = ErrInstructionInvalid
				return
			}
			return
		}

		var imm uint8
		imm, err = asm.getByte(words[2])
		if err != nil {
			return
		}
		switch words[0] {
		case "se":
			codes = append(codes, MakeCodeSeImm(x, imm))
		case "sne":
			codes = append(codes, MakeCodeSneImm(x, imm))
		case "ld":
			codes = append(codes, MakeCodeLdImm(x, imm))
		case "add":
			codes = append(codes, MakeCodeAddImm(x, imm))
		}
	case "or", "and", "xor":
		if len(words) < 3 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(words) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}

		op := aluMap[words[0]]
		var x, y uint8
		x, err = asm.getReg(words[1])
		if err != nil {
			return
		}
		y, err = asm.getReg(words[2])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAlu(op, x, y))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
