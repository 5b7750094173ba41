package disasm

import (
	"context"
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/arch/z80"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/memory"
)

// TraceCode follows the execution flow from the passed entry points without
// running the code and registers all reachable instructions in the database.
func (dis *Disasm) TraceCode(ctx context.Context, entries ...uint16) error {
	for _, address := range entries {
		dis.addAddressToParse(address, false)
	}
	return dis.followExecutionFlow(ctx)
}

// ProcessStatistics registers all instructions that were executed during
// emulation and continues tracing the code flow from them.
func (dis *Disasm) ProcessStatistics(ctx context.Context) error {
	for address := 0; address < memory.Size; {
		pc := uint16(address)
		if dis.stats.ExecCount(pc) == 0 || dis.codeOffsets.Contains(pc) {
			address++
			continue
		}

		dis.addAddressToParse(pc, false)
		address += z80.InstructionLength(dis.mem, pc)
	}
	return dis.followExecutionFlow(ctx)
}

func (dis *Disasm) followExecutionFlow(ctx context.Context) error {
	parsed := 0
	for addr, ok := dis.addressToDisassemble(); ok; addr, ok = dis.addressToDisassemble() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("tracing code at $%04X: %w", addr, err)
		}
		if dis.processInstruction(addr) {
			parsed++
		}
	}

	dis.logger.Debug("Code traced", log.Int("instructions", parsed))
	return nil
}

// processInstruction decodes the instruction at pc and queues all addresses
// that the instruction can continue execution at. It returns whether a new
// instruction was registered.
func (dis *Disasm) processInstruction(pc uint16) bool {
	if pc < dis.options.ExportStart || pc > dis.options.ExportEnd || dis.db.CodeInfo(pc) != nil {
		return false
	}

	c := z80.Classify(dis.mem, pc)
	if !c.Defined {
		// consider an undefined instruction as start of data
		dis.logger.Debug("Undefined opcode", log.Hex("address", pc))
		return false
	}

	if dis.codeOffsets.Contains(pc) {
		dis.handleJumpIntoInstruction(pc)
	}
	if dis.checkInstructionOverlap(pc, c.Length) {
		return false
	}

	dis.db.SetCodeInfo(&database.CodeInfo{
		Address:  pc,
		ByteSize: c.Length,
	})
	for i := range c.Length {
		dis.codeOffsets.Add(pc + uint16(i))
	}

	switch {
	case c.IsJump:
		dis.addBranchDestination(c.Target, c.IsCall)
	case c.Ref == z80.RefIndirect:
		dis.addDataReference(c.Target)
	}

	if c.FallsThrough {
		dis.addAddressToParse(pc+uint16(c.Length), c.IsCall)
	}
	return true
}

// checkInstructionOverlap returns whether the instruction at pc overlaps with
// the start of an already traced instruction. The instruction is kept as data
// in that case.
func (dis *Disasm) checkInstructionOverlap(pc uint16, length int) bool {
	for i := 1; i < length; i++ {
		following := dis.db.CodeInfo(pc + uint16(i))
		if following == nil || following.Disabled {
			continue
		}

		info := dis.db.DataInfo(pc)
		info.Comment = "branch into instruction detected"
		dis.logger.Debug("Instruction overlaps traced code",
			log.Hex("address", pc),
			log.Hex("overlap", pc+uint16(i)))
		return true
	}
	return false
}

// handleJumpIntoInstruction disables the already traced instruction that
// contains the address, the instruction gets output as data.
func (dis *Disasm) handleJumpIntoInstruction(address uint16) {
	// look backwards for instruction start
	start := address - 1
	for i := 1; i < z80.MaxInstructionLength; i++ {
		if dis.db.CodeInfo(start) != nil {
			break
		}
		start--
	}

	code := dis.db.CodeInfo(start)
	if code == nil || code.Disabled {
		return
	}

	code.Disabled = true
	dis.db.DataInfo(start).Comment = "branch into instruction detected"
	for i := range code.ByteSize {
		delete(dis.codeOffsets, start+uint16(i))
	}
	dis.db.SetDirty()
}

// addBranchDestination labels the destination of a jump or call and queues
// it for tracing. Destinations outside of the exported range, for example
// ROM routines, are not traced.
func (dis *Disasm) addBranchDestination(address uint16, isCall bool) {
	if address < dis.options.ExportStart || address > dis.options.ExportEnd {
		return
	}

	if isCall {
		dis.db.EnsureLabel(address, database.FunctionLabel)
	} else {
		dis.db.EnsureLabel(address, database.CodeLabel)
	}
	dis.addAddressToParse(address, false)
}

// addDataReference labels the address that an instruction reads from or
// writes to as data.
func (dis *Disasm) addDataReference(address uint16) {
	if address < dis.options.ExportStart || address > dis.options.ExportEnd {
		return
	}
	if dis.codeOffsets.Contains(address) {
		return // self modifying code writes into operands
	}

	dis.db.EnsureLabel(address, database.DataLabel)
	dis.db.DataInfo(address)
}

// addressToDisassemble returns the next address to disassemble. Addresses
// that follow a call have the lowest priority, as a called function might
// consume inline data that follows the call.
func (dis *Disasm) addressToDisassemble() (uint16, bool) {
	if len(dis.offsetsToParse) > 0 {
		addr := dis.offsetsToParse[0]
		dis.offsetsToParse = dis.offsetsToParse[1:]
		return addr, true
	}

	for len(dis.functionReturnsToParse) > 0 {
		addr := dis.functionReturnsToParse[0]
		dis.functionReturnsToParse = dis.functionReturnsToParse[1:]

		// if the address was removed from the set it marks the address as not being parsed anymore,
		// this way is more efficient than iterating the slice to delete the element
		if !dis.functionReturnsToParseAdded.Contains(addr) {
			continue
		}
		delete(dis.functionReturnsToParseAdded, addr)
		return addr, true
	}

	return 0, false
}

// addAddressToParse adds an address to the list to be processed if the address has not been processed yet.
func (dis *Disasm) addAddressToParse(address uint16, afterCall bool) {
	if dis.offsetsToParseAdded.Contains(address) {
		return
	}
	dis.offsetsToParseAdded.Add(address)

	if afterCall {
		dis.functionReturnsToParse = append(dis.functionReturnsToParse, address)
		dis.functionReturnsToParseAdded.Add(address)
	} else {
		dis.offsetsToParse = append(dis.offsetsToParse, address)
	}
}
