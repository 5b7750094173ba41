package machine

import (
	"github.com/retroenv/z80analyser/internal/bus"
	"github.com/retroenv/z80analyser/internal/memory"
	"github.com/retroenv/z80analyser/internal/snapshot"
)

// DefaultFrameCount is the default number of frames kept by a tracer.
const DefaultFrameCount = 300

// ZX Spectrum screen layout.
const (
	screenPixelStart     = 0x4000
	screenAttributeStart = 0x5800
	screenEnd            = 0x5AFF
)

// Memory provides the memory access that the tracer needs.
type Memory interface {
	memory.Reader
	Bytes(address uint16, size int) []byte
}

// Access is a single observed memory write.
type Access struct {
	PC      uint16
	Address uint16
	Value   byte
}

// Frame is the trace of a single completed frame.
type Frame struct {
	Number           int
	State            State // machine state at the end of the frame
	Instructions     []uint16
	PixelWrites      []Access
	AttributeWrites  []Access
	Memory           []byte // memory at the end of the frame
	Changes          []snapshot.Change
	InstructionCount int
}

// Tracer records the instructions and screen writes of the running frame and
// keeps a ring of the most recent completed frames.
type Tracer struct {
	mem  Memory
	pool *Pool

	frames  []Frame
	next    int
	count   int
	number  int
	current Frame
	states  []*State // per instruction machine states of the running frame
}

// NewTracer returns a new tracer that keeps up to size frames.
func NewTracer(mem Memory, pool *Pool, size int) *Tracer {
	if size <= 0 {
		size = DefaultFrameCount
	}
	return &Tracer{
		mem:    mem,
		pool:   pool,
		frames: make([]Frame, size),
	}
}

// AddInstruction records an executed instruction of the running frame and
// captures the machine state before its execution.
func (t *Tracer) AddInstruction(regs Registers) {
	t.current.Instructions = append(t.current.Instructions, regs.PC)

	state := t.pool.Acquire()
	Capture(state, regs, t.mem)
	t.states = append(t.states, state)
}

// OnMemoryBusCycle records writes to the screen memory. It never requests a
// debugger break.
func (t *Tracer) OnMemoryBusCycle(pc uint16, _ int, pins bus.Pins) bool {
	if !pins.IsWrite() {
		return false
	}

	address := pins.Address()
	access := Access{PC: pc, Address: address, Value: pins.Data()}
	switch {
	case address >= screenPixelStart && address < screenAttributeStart:
		t.current.PixelWrites = append(t.current.PixelWrites, access)
	case address >= screenAttributeStart && address <= screenEnd:
		t.current.AttributeWrites = append(t.current.AttributeWrites, access)
	}
	return false
}

// States returns the captured per instruction machine states of the running
// frame. They are valid until the next call of CaptureFrame.
func (t *Tracer) States() []*State {
	return t.states
}

// CaptureFrame completes the running frame: the machine state and the memory
// are captured and compared against the previous frame. All machine states
// of the frame are returned to the pool.
func (t *Tracer) CaptureFrame(regs Registers) {
	frame := t.current
	frame.Number = t.number
	frame.InstructionCount = len(frame.Instructions)
	Capture(&frame.State, regs, t.mem)
	frame.Memory = t.mem.Bytes(0, memory.Size)

	if previous, ok := t.Frame(0); ok {
		frame.Changes = snapshot.Compare(previous.Memory, frame.Memory, 0)
	}

	t.frames[t.next] = frame
	t.next = (t.next + 1) % len(t.frames)
	t.count = min(t.count+1, len(t.frames))
	t.number++

	t.current = Frame{}
	t.states = t.states[:0]
	t.pool.ReleaseAll()
}

// Frame returns a completed frame, back 0 is the most recent one.
func (t *Tracer) Frame(back int) (*Frame, bool) {
	if back < 0 || back >= t.count {
		return nil, false
	}
	index := (t.next - 1 - back + len(t.frames)) % len(t.frames)
	return &t.frames[index], true
}

// FrameCount returns the number of completed frames that are kept.
func (t *Tracer) FrameCount() int {
	return t.count
}
