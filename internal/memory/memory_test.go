package memory

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestMemory_ReadMemoryWord(t *testing.T) {
	mem := New()
	mem.WriteMemory(0x8000, 0x34)
	mem.WriteMemory(0x8001, 0x12)
	assert.Equal(t, uint16(0x1234), mem.ReadMemoryWord(0x8000))

	// high byte wraps to address 0
	mem.WriteMemory(0xFFFF, 0xCD)
	mem.WriteMemory(0x0000, 0xAB)
	assert.Equal(t, uint16(0xABCD), mem.ReadMemoryWord(0xFFFF))
}

func TestMemory_Load(t *testing.T) {
	mem := New()

	assert.NoError(t, mem.Load(0xFFFE, []byte{0x01, 0x02}))
	assert.Equal(t, byte(0x01), mem.ReadMemory(0xFFFE))
	assert.Equal(t, byte(0x02), mem.ReadMemory(0xFFFF))

	err := mem.Load(0xFFFF, []byte{0x01, 0x02})
	assert.ErrorContains(t, err, "does not fit")
}

func TestMemory_Bytes(t *testing.T) {
	mem := New()
	mem.WriteMemory(0xFFFF, 0x11)
	mem.WriteMemory(0x0000, 0x22)

	assert.Equal(t, []byte{0x11, 0x22}, mem.Bytes(0xFFFF, 2))
}
