package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

const (
	REGISTER_COUNT = 16  // General purpose registers v0-vf
	REG_FLAG       = 0xf // vf doubles as the carry flag
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("%#v", MEMORY_SIZE),
	"STACK_LIMIT":    fmt.Sprintf("%#v", STACK_LIMIT),
	"REGISTER_COUNT": fmt.Sprintf("%#v", REGISTER_COUNT),
}

// Cpu is the CHIP-8 execution core: the register file, memory, program
// counter, and call stack, driven by Tick(). A Cpu is exclusively owned
// by its caller; two instances share nothing.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc       uint16                // Address of the next instruction to fetch.
	Register [REGISTER_COUNT]uint8 // Register bank v0-vf.
	Memory   Memory                // Flat memory space.
	Stack    Stack                 // Subroutine return stack.
	State    CpuState              // Running, halted, or faulted.

	Ticks int // Instructions executed counter.
}

// NewCpu creates a new CPU in the running state with zeroed registers
// and memory.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("   pc: %03x (%v)\n", cpu.Pc, cpu.State)

	for n, val := range cpu.Register {
		text += fmt.Sprintf("   v%x: %02x\n", n, val)
	}

	top, ok := cpu.Stack.Peek()
	if ok {
		text += fmt.Sprintf("stack: %03x (depth %v)\n", top, len(cpu.Stack.Data))
	} else {
		text += "stack: --- (depth 0)\n"
	}

	return
}

// Reset the CPU state.
// - Clears the registers, memory, and stack.
// - Zeros the tick counter.
// - Sets the program counter to the entry point.
// - Returns the CPU to the running state.
func (cpu *Cpu) Reset(entry uint16) {
	if cpu.Verbose {
		log.Printf("cpu: reset, entry 0x%03x", entry)
	}

	clear(cpu.Register[:])
	cpu.Memory.Reset()
	cpu.Stack.Reset()
	cpu.Pc = entry
	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
}

// FetchCode fetches the big-endian instruction word at the program
// counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	code, err = cpu.Memory.ReadCode(cpu.Pc)
	if err != nil {
		err = errors.Join(ErrPcRange, err)
	}

	return
}

// Tick executes a single fetch, decode, execute cycle. Any error is a
// fatal fault: the CPU transitions to the faulted state and the error
// carries the literal instruction word and the address it was fetched
// from.
func (cpu *Cpu) Tick() (err error) {
	if cpu.State != STATE_RUNNING {
		return ErrNotRunning
	}

	pc := cpu.Pc

	var code Code
	defer func() {
		if err != nil {
			cpu.State = STATE_FAULTED
			err = errors.Join(&ErrOpcode{Code: code, Pc: pc}, err)
		}
	}()

	code, err = cpu.FetchCode()
	if err != nil {
		return
	}

	// Advance before the handler runs. Control transfers overwrite an
	// already-advanced counter; skips add a further +2 on top of it.
	cpu.Pc += 2

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks += 1

	return
}

// Run drives the execution loop until the CPU leaves the running state.
// A clean halt returns nil; a fault returns the error that stopped the
// loop. A program that never halts never returns - a caller wanting a
// bound must impose its own tick budget.
func (cpu *Cpu) Run() (err error) {
	for cpu.State == STATE_RUNNING {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Execute executes a single decoded instruction. The zero-operand
// instructions match on the full word; everything else dispatches on
// the class nibble, with the ALU class matching again on the minor
// nibble.
func (cpu *Cpu) Execute(code Code) (err error) {
	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc-2, code)
	}

	switch code {
	case CODE_HALT:
		cpu.State = STATE_HALTED
		return
	case CODE_CLS:
		// The display is an external collaborator. Nothing to clear.
		return
	case CODE_RET:
		addr, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		cpu.Pc = addr
		return
	}

	x := code.X()
	y := code.Y()

	switch code.Class() {
	case OP_SYS:
		// Machine code routines on the original hardware.
		err = ErrOpcodeUnknown
	case OP_JP:
		cpu.Pc = code.Addr()
	case OP_CALL:
		if cpu.Stack.Full() {
			err = ErrStackFull
			return
		}
		cpu.Stack.Push(cpu.Pc)
		cpu.Pc = code.Addr()
	case OP_SE_IMM:
		if cpu.Register[x] == code.Imm() {
			cpu.Pc += 2
		}
	case OP_SNE_IMM:
		if cpu.Register[x] != code.Imm() {
			cpu.Pc += 2
		}
	case OP_SE_REG:
		if uint16(code)&0xf != 0 {
			err = ErrOpcodeUnknown
			return
		}
		if cpu.Register[x] == cpu.Register[y] {
			cpu.Pc += 2
		}
	case OP_LD_IMM:
		cpu.Register[x] = code.Imm()
	case OP_ADD_IMM:
		// The immediate form never touches the carry flag.
		cpu.Register[x] += code.Imm()
	case OP_ALU:
		err = cpu.executeAlu(code.AluOp(), x, y)
	default:
		err = ErrOpcodeUnknown
	}

	return
}

// executeAlu performs the requested register-register ALU operation.
func (cpu *Cpu) executeAlu(op CodeAluOp, x, y uint8) (err error) {
	switch op {
	case ALU_OP_LD:
		cpu.Register[x] = cpu.Register[y]
	case ALU_OP_OR:
		cpu.Register[x] |= cpu.Register[y]
	case ALU_OP_AND:
		cpu.Register[x] &= cpu.Register[y]
	case ALU_OP_XOR:
		cpu.Register[x] ^= cpu.Register[y]
	case ALU_OP_ADD:
		// Result first, flag second: add vf vy leaves vf holding the
		// carry, not the sum.
		sum := uint16(cpu.Register[x]) + uint16(cpu.Register[y])
		cpu.Register[x] = uint8(sum)
		if sum > 0xff {
			cpu.Register[REG_FLAG] = 1
		} else {
			cpu.Register[REG_FLAG] = 0
		}
	default:
		err = errors.Join(ErrOpcodeAlu, ErrOpcodeUnknown)
	}

	return
}
