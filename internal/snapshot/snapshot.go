// Package snapshot retains a copy of memory and compares it against the live
// memory to find the addresses that changed.
package snapshot

import "github.com/retroenv/z80analyser/internal/memory"

// Start addresses of the snapshot range.
const (
	VideoMemoryStart     = 0x4000 // ZX Spectrum screen memory
	SystemVariablesStart = 0x5C00 // first address after screen and printer buffer
)

// Change is a single memory address that differs between two states.
type Change struct {
	Address uint16
	Old     byte
	New     byte
}

// Reader provides bulk read access to memory.
type Reader interface {
	Bytes(address uint16, size int) []byte
}

// Engine retains the current snapshot and the result of the last diff.
type Engine struct {
	mem Reader

	start     int
	data      []byte
	available bool
	changes   []Change
}

// New returns a new snapshot engine for the memory.
func New(mem Reader) *Engine {
	return &Engine{
		mem: mem,
	}
}

// Take copies the memory range into the retained snapshot and clears the
// result of the previous diff. The range starts at the video memory if it
// is included.
func (e *Engine) Take(includeVideoMemory bool) {
	e.start = SystemVariablesStart
	if includeVideoMemory {
		e.start = VideoMemoryStart
	}

	e.data = e.mem.Bytes(uint16(e.start), memory.Size-e.start)
	e.available = true
	e.changes = nil
}

// Available returns whether a snapshot has been taken.
func (e *Engine) Available() bool {
	return e.available
}

// Start returns the first address of the snapshot range.
func (e *Engine) Start() uint16 {
	return uint16(e.start)
}

// Diff compares the snapshot against the live memory and returns all changed
// addresses in ascending order. The snapshot itself is not modified. Without
// a snapshot the result is empty.
func (e *Engine) Diff() []Change {
	if !e.available {
		return nil
	}

	live := e.mem.Bytes(uint16(e.start), len(e.data))
	e.changes = Compare(e.data, live, e.start)
	return e.changes
}

// Changes returns the result of the last diff.
func (e *Engine) Changes() []Change {
	return e.changes
}

// Compare returns all positions where previous and current differ as
// changes, start is the address of the first byte of both slices.
func Compare(previous, current []byte, start int) []Change {
	var changes []Change
	size := min(len(previous), len(current))
	for i := range size {
		if previous[i] == current[i] {
			continue
		}
		changes = append(changes, Change{
			Address: uint16(start + i),
			Old:     previous[i],
			New:     current[i],
		})
	}
	return changes
}
