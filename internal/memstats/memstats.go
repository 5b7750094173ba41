// Package memstats aggregates per address memory access statistics from bus
// cycles and reduces them into memory blocks of code and data.
package memstats

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/arch/z80"
	"github.com/retroenv/z80analyser/internal/bus"
	"github.com/retroenv/z80analyser/internal/memory"
)

// Use defines how an address has been used during execution.
type Use int

// Memory uses.
const (
	Unknown Use = iota
	Code
	Data
)

func (u Use) String() string {
	switch u {
	case Code:
		return "code"
	case Data:
		return "data"
	default:
		return "unknown"
	}
}

// Block is a maximal run of addresses sharing the same use.
type Block struct {
	Start uint16
	End   uint16 // inclusive
	Use   Use
}

// Size returns the number of bytes of the block.
func (b Block) Size() int {
	return int(b.End) - int(b.Start) + 1
}

// Analysis is the result of a block analysis pass.
type Analysis struct {
	Blocks       []Block
	SelfModified []uint16 // addresses that were executed and written to, ascending
}

// Stats contains the memory access counters of all addresses and the
// registered access handlers.
type Stats struct {
	logger *log.Logger
	mem    memory.Reader

	execCount  [memory.Size]int
	readCount  [memory.Size]int
	writeCount [memory.Size]int

	handlers []*Handler
	analysis Analysis
}

// New returns a new statistics aggregator. The memory is used to decode the
// length of executed instructions.
func New(logger *log.Logger, mem memory.Reader) *Stats {
	return &Stats{
		logger: logger,
		mem:    mem,
	}
}

// OnMemoryBusCycle processes a single bus cycle that happened while executing
// the instruction at pc. It returns true if a handler requests a debugger break.
func (s *Stats) OnMemoryBusCycle(pc uint16, _ int, pins bus.Pins) bool {
	length := z80.InstructionLength(s.mem, pc)
	for i := range length {
		s.execCount[pc+uint16(i)]++
	}

	address := pins.Address()
	switch {
	case pins.IsRead():
		s.readCount[address]++
	case pins.IsWrite():
		s.writeCount[address]++
	}

	for _, h := range s.handlers {
		if !h.matches(pc, pins) {
			continue
		}

		h.record(pc, pins)
		if h.Callback != nil {
			h.Callback(h, pc, pins)
		}
		if h.Break {
			s.logger.Debug("Memory handler break",
				log.String("handler", h.Name),
				log.Hex("pc", pc),
				log.Stringer("cycle", pins))
			return true
		}
	}

	return false
}

// AddHandler registers a memory access handler, handlers are evaluated in
// registration order.
func (s *Stats) AddHandler(h *Handler) {
	s.handlers = append(s.handlers, h)
}

// Handlers returns all registered handlers.
func (s *Stats) Handlers() []*Handler {
	return s.handlers
}

// Handler returns the handler with the given name or nil.
func (s *Stats) Handler(name string) *Handler {
	for _, h := range s.handlers {
		if h.Name == name {
			return h
		}
	}
	return nil
}

// ExecCount returns the execution counter of the address.
func (s *Stats) ExecCount(address uint16) int {
	return s.execCount[address]
}

// ReadCount returns the read counter of the address.
func (s *Stats) ReadCount(address uint16) int {
	return s.readCount[address]
}

// WriteCount returns the write counter of the address.
func (s *Stats) WriteCount(address uint16) int {
	return s.writeCount[address]
}

// Use returns the use of the address and whether the address contains self
// modifying code.
func (s *Stats) Use(address uint16) (Use, bool) {
	executed := s.execCount[address] > 0
	written := s.writeCount[address] > 0
	selfModified := executed && written

	switch {
	case executed:
		return Code, selfModified
	case written || s.readCount[address] > 0:
		return Data, false
	default:
		return Unknown, false
	}
}

// Analyse rebuilds the memory block list and the self modified code list
// from the current counters.
func (s *Stats) Analyse() Analysis {
	var result Analysis

	current := Block{Start: 0}
	current.Use, _ = s.Use(0)

	for i := range memory.Size {
		address := uint16(i)
		use, selfModified := s.Use(address)
		if selfModified {
			result.SelfModified = append(result.SelfModified, address)
		}
		if use == current.Use {
			continue
		}

		current.End = address - 1
		result.Blocks = append(result.Blocks, current)
		current = Block{Start: address, Use: use}
	}

	current.End = memory.Size - 1
	result.Blocks = append(result.Blocks, current)

	s.analysis = result
	return result
}

// Analysis returns the result of the last analysis pass.
func (s *Stats) Analysis() Analysis {
	return s.analysis
}

// ResetStatistics clears all address counters and the result of the last
// analysis pass. Handler counters are kept.
func (s *Stats) ResetStatistics() {
	s.execCount = [memory.Size]int{}
	s.readCount = [memory.Size]int{}
	s.writeCount = [memory.Size]int{}
	s.analysis = Analysis{}
}
