package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location
// and generated instructions.
type Opcode struct {
	LineNo    int
	Pc        int
	Words     []string
	Codes     []Code
	LinkLabel string
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

func (prog *Program) Debug(pc uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(pc) >= op.Pc && int(pc) < op.Pc+2*len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  (int(pc) - op.Pc) / 2,
			}
			break
		}
	}

	return
}

// Binary renders the program as a big-endian memory image, zero filled
// between opcodes.
func (prog *Program) Binary() (image []uint8) {
	for pc, code := range prog.Codes() {
		end := int(pc) + 2
		if end > len(image) {
			image = append(image, make([]uint8, end-len(image))...)
		}
		image[pc] = uint8(uint16(code) >> 8)
		image[pc+1] = uint8(code)
	}

	return
}

func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(pc uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			pc := uint16(op.Pc)
			for n, code := range op.Codes {
				if !yield(pc+uint16(2*n), code) {
					return
				}
			}
		}
	}
}
