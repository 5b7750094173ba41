package machine

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/z80analyser/internal/bus"
	"github.com/retroenv/z80analyser/internal/memory"
)

func TestCapture(t *testing.T) {
	mem := memory.New()
	assert.NoError(t, mem.Load(0xFFF0, []byte{0x03, 0x80, 0x10, 0x90}))

	var state State
	regs := Registers{PC: 0x9000, SP: 0xFFF0, HL: 0x1234}
	Capture(&state, regs, mem)

	assert.Equal(t, regs, state.Registers)
	assert.Equal(t, uint16(0x8003), state.Stack[0])
	assert.Equal(t, uint16(0x9010), state.Stack[1])
	assert.Equal(t, uint16(0xFFF0), state.StackPointer())
}

func TestPool(t *testing.T) {
	pool := NewPool()

	first := pool.Acquire()
	second := pool.Acquire()
	assert.Equal(t, 2, pool.InUse())
	assert.Equal(t, 2, pool.Allocated())

	pool.ReleaseAll()
	assert.Equal(t, 0, pool.InUse())

	reused := pool.Acquire()
	assert.True(t, reused == first || reused == second)
	assert.Equal(t, 2, pool.Allocated())
}

func TestTracer(t *testing.T) {
	mem := memory.New()
	pool := NewPool()
	tracer := NewTracer(mem, pool, 2)

	_, ok := tracer.Frame(0)
	assert.False(t, ok)

	tracer.AddInstruction(Registers{PC: 0x8000, SP: 0xFF00})
	tracer.AddInstruction(Registers{PC: 0x8001, SP: 0xFF00})
	assert.Len(t, tracer.States(), 2)
	assert.False(t, tracer.OnMemoryBusCycle(0x8001, 3, bus.New(0x4000, 0xAA, bus.MREQ|bus.WR)))
	tracer.OnMemoryBusCycle(0x8001, 3, bus.New(0x5800, 0x38, bus.MREQ|bus.WR))
	tracer.OnMemoryBusCycle(0x8001, 3, bus.New(0x5800, 0x38, bus.MREQ|bus.RD))
	mem.WriteMemory(0x4000, 0xAA)
	tracer.CaptureFrame(Registers{PC: 0x8002, SP: 0xFF00})

	assert.Equal(t, 0, pool.InUse())
	assert.Empty(t, tracer.States())

	frame, ok := tracer.Frame(0)
	assert.True(t, ok)
	assert.Equal(t, 0, frame.Number)
	assert.Equal(t, []uint16{0x8000, 0x8001}, frame.Instructions)
	assert.Equal(t, []Access{{PC: 0x8001, Address: 0x4000, Value: 0xAA}}, frame.PixelWrites)
	assert.Len(t, frame.AttributeWrites, 1)
	assert.Empty(t, frame.Changes)
	assert.Equal(t, uint16(0x8002), frame.State.PC)

	mem.WriteMemory(0x9000, 0x01)
	tracer.CaptureFrame(Registers{PC: 0x8002})
	frame, _ = tracer.Frame(0)
	assert.Equal(t, 1, frame.Number)
	assert.Len(t, frame.Changes, 1)
	assert.Equal(t, uint16(0x9000), frame.Changes[0].Address)

	// ring keeps the two most recent frames
	tracer.CaptureFrame(Registers{PC: 0x8002})
	assert.Equal(t, 2, tracer.FrameCount())
	oldest, ok := tracer.Frame(1)
	assert.True(t, ok)
	assert.Equal(t, 1, oldest.Number)
	_, ok = tracer.Frame(2)
	assert.False(t, ok)
}
