// Package machine captures CPU machine states and traces complete frames of
// execution.
package machine

import "github.com/retroenv/z80analyser/internal/memory"

// StackEntries is the number of stack words captured with a machine state.
const StackEntries = 8

// Registers contains the Z80 register file.
type Registers struct {
	AF, BC, DE, HL     uint16
	AltAF, AltBC       uint16
	AltDE, AltHL       uint16
	IX, IY             uint16
	SP, PC             uint16
	I, R               byte
	IM                 int
	IFF1, IFF2, Halted bool
}

// StackPointer returns the SP register.
func (r Registers) StackPointer() uint16 {
	return r.SP
}

// State is a captured machine state: the registers and the top of the stack.
type State struct {
	Registers
	Stack [StackEntries]uint16
}

// Capture copies the registers into the state and reads the words at the top
// of the stack, starting with the most recently pushed one.
func Capture(state *State, regs Registers, mem memory.Reader) {
	state.Registers = regs
	for i := range state.Stack {
		state.Stack[i] = mem.ReadMemoryWord(regs.SP + uint16(i*2))
	}
}

// Pool recycles captured machine states. All states acquired during a frame
// are returned to the pool by ReleaseAll at the frame boundary.
type Pool struct {
	free      []*State
	used      []*State
	allocated int
}

// NewPool returns a new empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire returns a state from the pool, a new one is allocated if the pool
// has no free state left.
func (p *Pool) Acquire() *State {
	var state *State
	if n := len(p.free); n > 0 {
		state = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		state = &State{}
		p.allocated++
	}
	p.used = append(p.used, state)
	return state
}

// ReleaseAll returns all acquired states to the pool. States must not be
// used after they have been released.
func (p *Pool) ReleaseAll() {
	p.free = append(p.free, p.used...)
	clear(p.used)
	p.used = p.used[:0]
}

// InUse returns the number of acquired states.
func (p *Pool) InUse() int {
	return len(p.used)
}

// Allocated returns the number of states that the pool ever allocated.
func (p *Pool) Allocated() int {
	return p.allocated
}
