// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
)

const (
	ENTRY_DEFAULT = 0x000 // Default entry point address.
)

var _emulator_defines = map[string]string{
	"ENTRY_DEFAULT": fmt.Sprintf("%#v", ENTRY_DEFAULT),
}

// Emulator state. CPU + program image.
//
// The emulator is the embedding contract around the execution core: it
// loads the assembled program image into memory, sets the entry point,
// drives the loop, and maps faults back to source lines.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Entry uint16 // Entry point address applied on Reset.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
		Entry:   ENTRY_DEFAULT,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the emulator. Resets the CPU to the entry point and loads the
// program image into memory at address 0.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset(emu.Entry)

	err = emu.Cpu.Memory.Load(0, emu.Program.Binary())

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns the current program counter.
func (emu *Emulator) Pc() int {
	return int(emu.Cpu.Pc)
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	for pc, code := range emu.Program.Codes() {
		if emu.Cpu.Pc == pc {
			return code
		}
	}

	return cpu.Code(0)
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = emu.Cpu.State != cpu.STATE_RUNNING

	return
}

// Run drives the emulator until the program halts or faults.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
