package cpu

const (
	MEMORY_SIZE = 0x1000 // Bytes of addressable memory
)

// Memory is the flat byte-addressable memory space. Program bytecode
// and program data share the same 4096 bytes. All access is
// bounds-checked; there is no wrapping.
type Memory struct {
	Data [MEMORY_SIZE]uint8
}

// ReadByte reads a single byte of memory.
func (mem *Memory) ReadByte(addr uint16) (value uint8, err error) {
	if int(addr) >= len(mem.Data) {
		err = ErrMemoryRange
		return
	}

	value = mem.Data[addr]
	return
}

// WriteByte writes a single byte of memory.
func (mem *Memory) WriteByte(addr uint16, value uint8) (err error) {
	if int(addr) >= len(mem.Data) {
		err = ErrMemoryRange
		return
	}

	mem.Data[addr] = value
	return
}

// ReadCode reads a big-endian 16-bit instruction word. The word must
// lie entirely within memory.
func (mem *Memory) ReadCode(addr uint16) (code Code, err error) {
	if int(addr)+1 >= len(mem.Data) {
		err = ErrMemoryRange
		return
	}

	code = Code(uint16(mem.Data[addr])<<8 | uint16(mem.Data[addr+1]))
	return
}

// WriteCode writes a big-endian 16-bit instruction word.
func (mem *Memory) WriteCode(addr uint16, code Code) (err error) {
	if int(addr)+1 >= len(mem.Data) {
		err = ErrMemoryRange
		return
	}

	mem.Data[addr] = uint8(uint16(code) >> 8)
	mem.Data[addr+1] = uint8(code)
	return
}

// Load copies a program image into memory starting at addr.
func (mem *Memory) Load(addr uint16, image []uint8) (err error) {
	if int(addr)+len(image) > len(mem.Data) {
		err = ErrMemoryRange
		return
	}

	copy(mem.Data[addr:], image)
	return
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
}
