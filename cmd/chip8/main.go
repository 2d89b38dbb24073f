// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
)

func main() {
	var compile string
	var entry uint
	var verbose bool

	flag.StringVar(&compile, "c", "", ".c8 file to assemble")
	flag.UintVar(&entry, "e", emulator.ENTRY_DEFAULT, "Entry point address")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Entry = uint16(entry)

	// Assemble a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}

		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	err := emu.Reset()
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	for done, err := emu.Tick(); !done; done, err = emu.Tick() {
		if err != nil {
			log.Fatal(err)
		}
	}

	// The final register file is the program's result.
	fmt.Print(emu.Cpu.String())
}
