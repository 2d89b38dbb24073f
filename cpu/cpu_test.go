package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// loadProgram writes instruction words into memory starting at addr.
func loadProgram(cpu *Cpu, addr uint16, codes ...Code) {
	for n, code := range codes {
		err := cpu.Memory.WriteCode(addr+uint16(2*n), code)
		if err != nil {
			panic(err)
		}
	}
}

func TestCpu_AddChain(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[0] = 5
	cpu.Register[1] = 10
	cpu.Register[2] = 10
	cpu.Register[3] = 10

	loadProgram(cpu, 0,
		MakeCodeAlu(ALU_OP_ADD, 0, 1),
		MakeCodeAlu(ALU_OP_ADD, 0, 2),
		MakeCodeAlu(ALU_OP_ADD, 0, 3),
		CODE_HALT,
	)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(uint8(35), cpu.Register[0])
	assert.Equal(4, cpu.Ticks)
}

func TestCpu_CallChain(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[0] = 5
	cpu.Register[1] = 16

	loadProgram(cpu, 0,
		MakeCodeCall(0x100),
		MakeCodeCall(0x100),
		CODE_HALT,
	)
	loadProgram(cpu, 0x100,
		MakeCodeAlu(ALU_OP_ADD, 0, 1),
		MakeCodeAlu(ALU_OP_ADD, 0, 1),
		CODE_RET,
	)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(uint8(69), cpu.Register[0])
	assert.True(cpu.Stack.Empty())
}

func TestCpu_UnknownAluMinor(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0, Code(0x8019))

	err := cpu.Run()
	assert.ErrorIs(err, ErrOpcodeUnknown)
	assert.ErrorIs(err, ErrOpcodeAlu)
	assert.Equal(STATE_FAULTED, cpu.State)

	// The fault names the literal word and its fetch address.
	var eo *ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(Code(0x8019), eo.Code)
	assert.Equal(uint16(0), eo.Pc)
}

func TestCpu_AddRegisterCarry(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		a, b  uint8
		sum   uint8
		carry uint8
	}){
		{"no_carry", 3, 4, 7, 0},
		{"zero", 0, 0, 0, 0},
		{"carry", 200, 100, 44, 1},
		{"carry_edge", 0xff, 1, 0, 1},
		{"no_carry_edge", 0xfe, 1, 0xff, 0},
		{"carry_max", 0xff, 0xff, 0xfe, 1},
	}

	for _, entry := range table {
		cpu := NewCpu()
		cpu.Register[0] = entry.a
		cpu.Register[1] = entry.b
		cpu.Register[REG_FLAG] = 0xaa // must be overwritten either way

		err := cpu.Execute(MakeCodeAlu(ALU_OP_ADD, 0, 1))
		assert.NoError(err, entry.name)
		assert.Equal(entry.sum, cpu.Register[0], entry.name)
		assert.Equal(entry.carry, cpu.Register[REG_FLAG], entry.name)
	}
}

func TestCpu_AddRegisterSame(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[2] = 0x90

	err := cpu.Execute(MakeCodeAlu(ALU_OP_ADD, 2, 2))
	assert.NoError(err)
	assert.Equal(uint8(0x20), cpu.Register[2])
	assert.Equal(uint8(1), cpu.Register[REG_FLAG])
}

func TestCpu_AddRegisterFlagTarget(t *testing.T) {
	assert := assert.New(t)

	// add vf vy writes the sum and then the carry; the carry wins.
	cpu := NewCpu()
	cpu.Register[REG_FLAG] = 200
	cpu.Register[1] = 100

	err := cpu.Execute(MakeCodeAlu(ALU_OP_ADD, REG_FLAG, 1))
	assert.NoError(err)
	assert.Equal(uint8(1), cpu.Register[REG_FLAG])
}

func TestCpu_AddImmediateNoFlag(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		a    uint8
		imm  uint8
		sum  uint8
	}){
		{"plain", 5, 10, 15},
		{"wrap", 0xff, 2, 1},
		{"wrap_edge", 0x80, 0x80, 0},
	}

	for _, entry := range table {
		cpu := NewCpu()
		cpu.Register[0] = entry.a
		cpu.Register[REG_FLAG] = 0xaa

		err := cpu.Execute(MakeCodeAddImm(0, entry.imm))
		assert.NoError(err, entry.name)
		assert.Equal(entry.sum, cpu.Register[0], entry.name)
		// The immediate form never touches the flag, even on wrap.
		assert.Equal(uint8(0xaa), cpu.Register[REG_FLAG], entry.name)
	}
}

func TestCpu_Bitwise(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		op   CodeAluOp
		want uint8
	}){
		{ALU_OP_AND, 0x2},
		{ALU_OP_OR, 0xe},
		{ALU_OP_XOR, 0xc},
	}

	for _, entry := range table {
		cpu := NewCpu()
		cpu.Register[0] = 0xa
		cpu.Register[1] = 0x6
		cpu.Register[REG_FLAG] = 0xaa

		err := cpu.Execute(MakeCodeAlu(entry.op, 0, 1))
		assert.NoError(err, entry.op.String())
		assert.Equal(entry.want, cpu.Register[0], entry.op.String())
		assert.Equal(uint8(0x6), cpu.Register[1], entry.op.String())
		assert.Equal(uint8(0xaa), cpu.Register[REG_FLAG], entry.op.String())
	}
}

func TestCpu_Load(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()

	err := cpu.Execute(MakeCodeLdImm(3, 0x42))
	assert.NoError(err)
	assert.Equal(uint8(0x42), cpu.Register[3])

	err = cpu.Execute(MakeCodeAlu(ALU_OP_LD, 4, 3))
	assert.NoError(err)
	assert.Equal(uint8(0x42), cpu.Register[4])
	assert.Equal(uint8(0x42), cpu.Register[3])
}

func TestCpu_SkipImmediate(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		code Code
		reg  uint8
		pc   uint16
	}){
		{"se_taken", MakeCodeSeImm(0, 0x55), 0x55, 4},
		{"se_not_taken", MakeCodeSeImm(0, 0x55), 0x54, 2},
		{"sne_taken", MakeCodeSneImm(0, 0x55), 0x54, 4},
		{"sne_not_taken", MakeCodeSneImm(0, 0x55), 0x55, 2},
	}

	for _, entry := range table {
		cpu := NewCpu()
		cpu.Register[0] = entry.reg
		loadProgram(cpu, 0, entry.code)

		err := cpu.Tick()
		assert.NoError(err, entry.name)
		assert.Equal(entry.pc, cpu.Pc, entry.name)
		assert.Equal(STATE_RUNNING, cpu.State, entry.name)
	}
}

func TestCpu_SkipRegister(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[1] = 7
	cpu.Register[2] = 7
	loadProgram(cpu, 0, MakeCodeSeReg(1, 2))

	err := cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(4), cpu.Pc)

	cpu.Reset(0)
	cpu.Register[1] = 7
	cpu.Register[2] = 8
	loadProgram(cpu, 0, MakeCodeSeReg(1, 2))

	err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(2), cpu.Pc)
}

func TestCpu_SkipOverSkipped(t *testing.T) {
	assert := assert.New(t)

	// The skipped instruction must not execute.
	cpu := NewCpu()
	cpu.Register[0] = 1
	loadProgram(cpu, 0,
		MakeCodeSeImm(0, 1),
		MakeCodeLdImm(1, 0xff), // skipped
		CODE_HALT,
	)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(uint8(0), cpu.Register[1])
}

func TestCpu_Jump(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0, MakeCodeJp(0x234))
	loadProgram(cpu, 0x234, CODE_HALT)

	err := cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x234), cpu.Pc)

	err = cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
}

func TestCpu_CallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0, MakeCodeCall(0x100))
	loadProgram(cpu, 0x100, CODE_RET)

	err := cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(0x100), cpu.Pc)
	assert.Equal(1, len(cpu.Stack.Data))

	// Return lands at the instruction directly after the call.
	err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(uint16(2), cpu.Pc)
	assert.True(cpu.Stack.Empty())
}

func TestCpu_CallNesting(t *testing.T) {
	assert := assert.New(t)

	// A call that calls itself: 16 nested calls fit, the 17th is a
	// fatal overflow.
	cpu := NewCpu()
	loadProgram(cpu, 0, MakeCodeCall(0))

	for n := 0; n < STACK_LIMIT; n++ {
		err := cpu.Tick()
		assert.NoError(err)
	}
	assert.Equal(STACK_LIMIT, len(cpu.Stack.Data))

	err := cpu.Tick()
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal(STATE_FAULTED, cpu.State)
	assert.Equal(STACK_LIMIT, len(cpu.Stack.Data))
}

func TestCpu_ReturnUnderflow(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0, CODE_RET)

	err := cpu.Run()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.Equal(STATE_FAULTED, cpu.State)

	var eo *ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(CODE_RET, eo.Code)
}

func TestCpu_UnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	table := []Code{
		0x0001, // sys class, not halt/cls/ret
		0x00e1,
		0x5ab1, // se register form with nonzero minor
		0x9120, // unassigned class
		0xa123,
		0xffff,
	}

	for _, code := range table {
		cpu := NewCpu()
		loadProgram(cpu, 0, code)

		err := cpu.Run()
		assert.ErrorIs(err, ErrOpcodeUnknown, code.String())
		assert.Equal(STATE_FAULTED, cpu.State, code.String())

		var eo *ErrOpcode
		assert.True(errors.As(err, &eo), code.String())
		assert.Equal(code, eo.Code, code.String())
	}
}

func TestCpu_ClearScreen(t *testing.T) {
	assert := assert.New(t)

	// The display is external; cls executes as a no-op.
	cpu := NewCpu()
	cpu.Register[0] = 0x12
	loadProgram(cpu, 0, CODE_CLS, CODE_HALT)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(uint8(0x12), cpu.Register[0])
}

func TestCpu_FetchRange(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Pc = MEMORY_SIZE - 1

	err := cpu.Tick()
	assert.ErrorIs(err, ErrPcRange)
	assert.ErrorIs(err, ErrMemoryRange)
	assert.Equal(STATE_FAULTED, cpu.State)

	// The final aligned word is fetchable.
	cpu = NewCpu()
	cpu.Pc = MEMORY_SIZE - 2

	err = cpu.Tick()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
}

func TestCpu_TickNotRunning(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0, CODE_HALT)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)

	err = cpu.Tick()
	assert.ErrorIs(err, ErrNotRunning)
	assert.Equal(STATE_HALTED, cpu.State)
}

func TestCpu_EntryPoint(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0x200,
		MakeCodeLdImm(0, 0x42),
		CODE_HALT,
	)
	cpu.Pc = 0x200

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal(uint8(0x42), cpu.Register[0])
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	loadProgram(cpu, 0, MakeCodeCall(0x100))
	loadProgram(cpu, 0x100, Code(0x8019))

	err := cpu.Run()
	assert.ErrorIs(err, ErrOpcodeUnknown)
	assert.Equal(STATE_FAULTED, cpu.State)

	cpu.Reset(0x10)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.Equal(uint16(0x10), cpu.Pc)
	assert.Equal(0, cpu.Ticks)
	assert.True(cpu.Stack.Empty())
	assert.Equal(uint8(0), cpu.Memory.Data[0])
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Register[0] = 0x35

	text := cpu.String()
	assert.Contains(text, "pc: 000 (running)")
	assert.Contains(text, "v0: 35")
	assert.Contains(text, "depth 0")

	cpu.Stack.Push(0x123)
	text = cpu.String()
	assert.Contains(text, "stack: 123 (depth 1)")
}
