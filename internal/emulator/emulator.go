// Package emulator drives a Z80 CPU core and reports every retired
// instruction and every memory bus cycle to the analysis components.
package emulator

import (
	"context"
	"errors"

	cpu "github.com/koron-go/z80"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/analysis"
	"github.com/retroenv/z80analyser/internal/arch/z80"
	"github.com/retroenv/z80analyser/internal/bus"
	"github.com/retroenv/z80analyser/internal/machine"
	"github.com/retroenv/z80analyser/internal/memory"
)

// ErrBreak is returned by Run if a bus observer requested a debugger break.
var ErrBreak = errors.New("debugger break requested")

// DefaultInstructionsPerFrame approximates the instructions that a 48K ZX
// Spectrum executes during one 50 Hz frame.
const DefaultInstructionsPerFrame = 17472

// Recorder is notified about every retired instruction.
type Recorder interface {
	SetRegisters(regs analysis.Registers)
	OnInstructionRetired(pc, nextPC uint16) bool
}

// BusObserver is notified about every memory bus cycle.
type BusObserver interface {
	OnMemoryBusCycle(pc uint16, ticks int, pins bus.Pins) bool
}

// Tracer records executed instructions and completes frames.
type Tracer interface {
	AddInstruction(regs machine.Registers)
	CaptureFrame(regs machine.Registers)
}

// Machine is an emulated Z80 with the analysis hooks attached.
type Machine struct {
	logger    *log.Logger
	mem       memory.ReadWriter
	cpu       *cpu.CPU
	bus       *busMemory
	recorder  Recorder
	observers []BusObserver

	tracer               Tracer
	instructionsPerFrame int
	frameInstructions    int
	steps                int
}

// New returns a new machine that executes the memory. The recorder and the
// observers are optional.
func New(logger *log.Logger, mem memory.ReadWriter, recorder Recorder, observers ...BusObserver) *Machine {
	m := &Machine{
		logger:               logger,
		mem:                  mem,
		recorder:             recorder,
		observers:            observers,
		instructionsPerFrame: DefaultInstructionsPerFrame,
	}
	m.bus = &busMemory{machine: m}
	m.cpu = &cpu.CPU{
		Memory: m.bus,
		IO:     portIO{},
	}
	return m
}

// SetTracer attaches a frame tracer that completes a frame every
// instructionsPerFrame instructions.
func (m *Machine) SetTracer(tracer Tracer, instructionsPerFrame int) {
	m.tracer = tracer
	if instructionsPerFrame > 0 {
		m.instructionsPerFrame = instructionsPerFrame
	}
}

// Reset resets the CPU registers and the step counters.
func (m *Machine) Reset() {
	m.cpu.States = cpu.States{}
	m.cpu.HALT = false
	m.frameInstructions = 0
	m.steps = 0
}

// SetPC sets the program counter.
func (m *Machine) SetPC(pc uint16) {
	m.cpu.PC = pc
}

// PC returns the program counter.
func (m *Machine) PC() uint16 {
	return m.cpu.PC
}

// Halted returns whether the CPU executed a HALT instruction.
func (m *Machine) Halted() bool {
	return m.cpu.HALT
}

// Steps returns the number of executed instructions since the last reset.
func (m *Machine) Steps() int {
	return m.steps
}

// Registers returns the current register values.
func (m *Machine) Registers() machine.Registers {
	s := &m.cpu.States
	return machine.Registers{
		AF:     pair(s.AF),
		BC:     pair(s.BC),
		DE:     pair(s.DE),
		HL:     pair(s.HL),
		AltAF:  pair(s.Alternate.AF),
		AltBC:  pair(s.Alternate.BC),
		AltDE:  pair(s.Alternate.DE),
		AltHL:  pair(s.Alternate.HL),
		IX:     s.IX,
		IY:     s.IY,
		SP:     s.SP,
		PC:     s.PC,
		I:      s.IR.Hi,
		R:      s.IR.Lo,
		IM:     s.IM,
		IFF1:   s.IFF1,
		IFF2:   s.IFF2,
		Halted: m.cpu.HALT,
	}
}

// SetRegisters sets all register values.
func (m *Machine) SetRegisters(regs machine.Registers) {
	s := &m.cpu.States
	s.AF = register(regs.AF)
	s.BC = register(regs.BC)
	s.DE = register(regs.DE)
	s.HL = register(regs.HL)
	s.Alternate.AF = register(regs.AltAF)
	s.Alternate.BC = register(regs.AltBC)
	s.Alternate.DE = register(regs.AltDE)
	s.Alternate.HL = register(regs.AltHL)
	s.IX = regs.IX
	s.IY = regs.IY
	s.SP = regs.SP
	s.PC = regs.PC
	s.IR = cpu.Register{Hi: regs.I, Lo: regs.R}
	s.IM = regs.IM
	s.IFF1 = regs.IFF1
	s.IFF2 = regs.IFF2
	m.cpu.HALT = regs.Halted
}

func pair(r cpu.Register) uint16 {
	return uint16(r.Hi)<<8 | uint16(r.Lo)
}

func register(value uint16) cpu.Register {
	return cpu.Register{Hi: uint8(value >> 8), Lo: uint8(value)}
}

// Step executes a single instruction. It returns true if a bus observer
// requested a debugger break while the instruction executed.
func (m *Machine) Step() bool {
	pc := m.cpu.PC
	regs := m.Registers()

	m.bus.begin(pc, z80.InstructionLength(m.mem, pc))
	if m.tracer != nil {
		m.tracer.AddInstruction(regs)
	}

	m.cpu.Step()
	m.steps++

	if m.recorder != nil {
		m.recorder.SetRegisters(regs)
		m.recorder.OnInstructionRetired(pc, m.cpu.PC)
	}

	m.frameInstructions++
	if m.frameInstructions >= m.instructionsPerFrame {
		m.frameInstructions = 0
		if m.tracer != nil {
			m.tracer.CaptureFrame(m.Registers())
		}
	}

	return m.bus.breakRequested
}

// Run executes instructions until the CPU halts, a debugger break is
// requested, maxSteps instructions were executed or the context is canceled.
// A maxSteps value of 0 does not limit the number of instructions.
func (m *Machine) Run(ctx context.Context, maxSteps int) error {
	for executed := 0; maxSteps == 0 || executed < maxSteps; executed++ {
		if executed%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if m.cpu.HALT {
			m.logger.Debug("CPU halted", log.Hex("pc", m.cpu.PC), log.Int("steps", m.steps))
			return nil
		}

		pc := m.cpu.PC
		if m.Step() {
			m.logger.Debug("Debugger break", log.Hex("pc", pc), log.Int("steps", m.steps))
			return ErrBreak
		}
	}
	return nil
}

// busMemory connects the CPU core to the memory and converts every memory
// access into a bus cycle for the observers.
type busMemory struct {
	machine *Machine

	pc             uint16
	length         int
	fetched        int // instruction bytes fetched so far
	cycle          int
	breakRequested bool
}

func (b *busMemory) begin(pc uint16, length int) {
	b.pc = pc
	b.length = length
	b.fetched = 0
	b.cycle = 0
	b.breakRequested = false
}

// Get reads a byte. The sequential reads of the bytes of the current
// instruction are instruction fetches, later reads are data reads even if
// they access the instruction itself.
func (b *busMemory) Get(addr uint16) uint8 {
	value := b.machine.mem.ReadMemory(addr)

	control := bus.MREQ | bus.RD
	if b.fetched < b.length && addr == b.pc+uint16(b.fetched) {
		control |= bus.M1
		b.fetched++
	}
	b.notify(bus.New(addr, value, control))
	return value
}

// Set writes a byte.
func (b *busMemory) Set(addr uint16, value uint8) {
	b.machine.mem.WriteMemory(addr, value)
	b.notify(bus.New(addr, value, bus.MREQ|bus.WR))
}

func (b *busMemory) notify(pins bus.Pins) {
	b.cycle++
	for _, observer := range b.machine.observers {
		if observer.OnMemoryBusCycle(b.pc, b.cycle, pins) {
			b.breakRequested = true
		}
	}
}

// portIO is an unconnected IO bus, reads return a floating bus value.
type portIO struct{}

func (portIO) In(uint8) uint8 {
	return 0xFF
}

func (portIO) Out(uint8, uint8) {
}
