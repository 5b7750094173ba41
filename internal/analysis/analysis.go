// Package analysis implements the execution trace recorder that reconstructs
// the call stack from observed execution and annotates the analysis database.
package analysis

import (
	"sort"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/arch/z80"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/memory"
)

// Registers provides read access to the CPU registers.
type Registers interface {
	StackPointer() uint16
}

// Database is the part of the analysis database that the recorder annotates.
type Database interface {
	CodeInfo(address uint16) *database.CodeInfo
	DataInfo(address uint16) *database.DataInfo
	SetDirty()
}

// FunctionCall is a single entry of the reconstructed call stack.
type FunctionCall struct {
	CallAddress     uint16
	FunctionAddress uint16
	ReturnAddress   uint16
}

// FunctionInfo contains the statistics of an observed function.
type FunctionInfo struct {
	Address    uint16
	CallCount  int
	Callers    map[uint16]int // call instruction address to count
	ExitPoints map[uint16]int // return instruction address to count
}

// State is the execution trace recorder state of an emulation session.
type State struct {
	logger *log.Logger
	mem    memory.Reader
	db     Database
	regs   Registers

	stackMin uint16
	stackMax uint16

	callStack []FunctionCall
	functions map[uint16]*FunctionInfo
}

// New returns a new recorder state. The valid stack window is empty until
// SetStackRange is called.
func New(logger *log.Logger, mem memory.Reader, db Database) *State {
	return &State{
		logger:    logger,
		mem:       mem,
		db:        db,
		stackMin:  0xFFFF,
		functions: make(map[uint16]*FunctionInfo),
	}
}

// SetRegisters sets the register accessor that is used to locate the stack
// slot of push class instructions. The values have to reflect the state
// before the retired instruction executed.
func (s *State) SetRegisters(regs Registers) {
	s.regs = regs
}

// SetStackRange sets the inclusive address window that is considered to be
// the stack.
func (s *State) SetStackRange(minAddress, maxAddress uint16) {
	s.stackMin = minAddress
	s.stackMax = maxAddress
}

// OnInstructionRetired processes an executed instruction at pc, nextPC is the
// address of the next instruction to execute. It never requests a debugger
// break and always returns false.
func (s *State) OnInstructionRetired(pc, nextPC uint16) bool {
	c := z80.Classify(s.mem, pc)

	if c.IsPush {
		s.annotateStackSlot(pc)
	}

	switch {
	case c.IsCall:
		fallThrough := pc + uint16(c.Length)
		if nextPC == fallThrough {
			return false // condition not met or intercepted before the transfer
		}
		s.annotateStackSlot(pc)
		s.pushCall(FunctionCall{
			CallAddress:     pc,
			FunctionAddress: nextPC,
			ReturnAddress:   fallThrough,
		})

	case c.IsReturn:
		if nextPC == pc+1 {
			return false
		}
		s.popCall(pc)
	}

	return false
}

// annotateStackSlot types the stack slot that the instruction at pc pushed
// to as word and attaches the comment of the instruction.
func (s *State) annotateStackSlot(pc uint16) {
	if s.regs == nil {
		return
	}
	slot := s.regs.StackPointer() - 2
	if slot < s.stackMin || slot > s.stackMax {
		return
	}

	info := s.db.DataInfo(slot)
	if info.DataType != database.Word {
		info.DataType = database.Word
		info.ByteSize = 2
		s.db.SetDirty()
	}
	comment := ""
	if code := s.db.CodeInfo(pc); code != nil {
		comment = code.Comment
	}
	info.Comment = comment
}

func (s *State) pushCall(call FunctionCall) {
	s.callStack = append(s.callStack, call)

	fn := s.function(call.FunctionAddress)
	fn.CallCount++
	fn.Callers[call.CallAddress]++
}

func (s *State) popCall(pc uint16) {
	if len(s.callStack) == 0 {
		s.logger.Debug("Ignoring return without recorded call", log.Hex("pc", pc))
		return
	}

	top := s.callStack[len(s.callStack)-1]
	s.callStack = s.callStack[:len(s.callStack)-1]
	s.function(top.FunctionAddress).ExitPoints[pc]++
}

func (s *State) function(address uint16) *FunctionInfo {
	fn, ok := s.functions[address]
	if !ok {
		fn = &FunctionInfo{
			Address:    address,
			Callers:    make(map[uint16]int),
			ExitPoints: make(map[uint16]int),
		}
		s.functions[address] = fn
	}
	return fn
}

// CallStack returns a copy of the reconstructed call stack, the innermost
// call is the last entry.
func (s *State) CallStack() []FunctionCall {
	stack := make([]FunctionCall, len(s.callStack))
	copy(stack, s.callStack)
	return stack
}

// Functions returns the statistics of all observed functions sorted by address.
func (s *State) Functions() []*FunctionInfo {
	functions := make([]*FunctionInfo, 0, len(s.functions))
	for _, fn := range s.functions {
		functions = append(functions, fn)
	}
	sort.Slice(functions, func(i, j int) bool {
		return functions[i].Address < functions[j].Address
	})
	return functions
}

// Reset clears the call stack and all function statistics.
func (s *State) Reset() {
	s.callStack = s.callStack[:0]
	s.functions = make(map[uint16]*FunctionInfo)
}
