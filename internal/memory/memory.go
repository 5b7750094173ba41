// Package memory provides the 64K address space that the analyser works on.
package memory

import "fmt"

// Size is the number of addressable bytes of the Z80 address space.
const Size = 1 << 16

// Reader provides read access to the address space. Addresses wrap at 16 bits.
type Reader interface {
	// ReadMemory reads a byte from memory at the given address.
	ReadMemory(address uint16) byte
	// ReadMemoryWord reads a little-endian word from memory at the given address.
	ReadMemoryWord(address uint16) uint16
}

// Writer provides write access to the address space.
type Writer interface {
	// WriteMemory writes a byte to memory at the given address.
	WriteMemory(address uint16, value byte)
}

// ReadWriter groups the Reader and Writer interfaces.
type ReadWriter interface {
	Reader
	Writer
}

// Loader loads images into the address space.
type Loader interface {
	Reader
	// Load copies data into memory starting at the given address.
	Load(address uint16, data []byte) error
}

// Memory implements a flat 64K RAM.
type Memory struct {
	buf [Size]byte
}

// New returns a new zeroed memory.
func New() *Memory {
	return &Memory{}
}

// ReadMemory reads a byte from memory at the given address.
func (m *Memory) ReadMemory(address uint16) byte {
	return m.buf[address]
}

// ReadMemoryWord reads a little-endian word, the high byte address wraps around.
func (m *Memory) ReadMemoryWord(address uint16) uint16 {
	low := uint16(m.buf[address])
	high := uint16(m.buf[address+1])
	return high<<8 | low
}

// WriteMemory writes a byte to memory at the given address.
func (m *Memory) WriteMemory(address uint16, value byte) {
	m.buf[address] = value
}

// Load copies data into memory starting at the given address.
func (m *Memory) Load(address uint16, data []byte) error {
	if len(data) > Size-int(address) {
		return fmt.Errorf("image of %d bytes does not fit at address $%04X", len(data), address)
	}
	copy(m.buf[address:], data)
	return nil
}

// Bytes returns a copy of size bytes starting at address, wrapping at the end of the address space.
func (m *Memory) Bytes(address uint16, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.buf[address+uint16(i)]
	}
	return data
}
