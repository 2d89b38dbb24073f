package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_ReadWriteByte(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}

	err := mem.WriteByte(0x123, 0xa5)
	assert.NoError(err)

	val, err := mem.ReadByte(0x123)
	assert.NoError(err)
	assert.Equal(uint8(0xa5), val)
}

func TestMemory_Bounds(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}

	_, err := mem.ReadByte(MEMORY_SIZE)
	assert.ErrorIs(err, ErrMemoryRange)

	err = mem.WriteByte(MEMORY_SIZE, 0)
	assert.ErrorIs(err, ErrMemoryRange)

	// The last byte is addressable.
	err = mem.WriteByte(MEMORY_SIZE-1, 0xff)
	assert.NoError(err)
}

func TestMemory_ReadCode(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}
	mem.Data[0x100] = 0x80
	mem.Data[0x101] = 0x14

	// First fetched byte is the high-order byte.
	code, err := mem.ReadCode(0x100)
	assert.NoError(err)
	assert.Equal(Code(0x8014), code)
}

func TestMemory_ReadCode_Bounds(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}

	// A word fetch at the final byte would read past the end.
	_, err := mem.ReadCode(MEMORY_SIZE - 1)
	assert.ErrorIs(err, ErrMemoryRange)

	_, err = mem.ReadCode(MEMORY_SIZE - 2)
	assert.NoError(err)
}

func TestMemory_WriteCode(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}

	err := mem.WriteCode(0x10, Code(0x1abc))
	assert.NoError(err)
	assert.Equal(uint8(0x1a), mem.Data[0x10])
	assert.Equal(uint8(0xbc), mem.Data[0x11])

	err = mem.WriteCode(MEMORY_SIZE-1, Code(0x1abc))
	assert.ErrorIs(err, ErrMemoryRange)
}

func TestMemory_Load(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}

	err := mem.Load(0x200, []uint8{0x80, 0x14, 0x00, 0x00})
	assert.NoError(err)
	assert.Equal(uint8(0x80), mem.Data[0x200])
	assert.Equal(uint8(0x14), mem.Data[0x201])

	err = mem.Load(MEMORY_SIZE-2, []uint8{1, 2, 3})
	assert.ErrorIs(err, ErrMemoryRange)
}

func TestMemory_Reset(t *testing.T) {
	assert := assert.New(t)

	mem := &Memory{}
	mem.Data[0] = 0xff
	mem.Data[MEMORY_SIZE-1] = 0xff

	mem.Reset()
	assert.Equal(uint8(0), mem.Data[0])
	assert.Equal(uint8(0), mem.Data[MEMORY_SIZE-1])
}
