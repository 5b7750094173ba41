// Package z80 decodes and classifies Z80 instructions directly from memory.
//
// All queries are pure: they read the instruction bytes at the given program
// counter through a memory.Reader and never execute anything. Decoding never
// fails, undefined opcodes classify as plain instructions without any
// reference or control transfer.
//
// Supported encodings:
//   - unprefixed opcodes
//   - CB bit instructions
//   - ED extended instructions
//   - DD and FD index register instructions including displacements
//   - DD CB and FD CB indexed bit instructions
package z80

import "github.com/retroenv/z80analyser/internal/memory"

// MaxInstructionLength is the byte length of the longest Z80 instruction.
const MaxInstructionLength = 4

// RefKind describes what an instruction does with a literal 16 bit address.
type RefKind int

// Reference kinds.
const (
	RefNone      RefKind = iota
	RefIndirect          // dereferences a literal address
	RefImmediate         // loads a literal address into a register pair
	RefJump              // absolute or relative branch target
	RefCall              // call target
	RefRestart           // restart target
)

func (k RefKind) String() string {
	switch k {
	case RefIndirect:
		return "indirect"
	case RefImmediate:
		return "immediate"
	case RefJump:
		return "jump"
	case RefCall:
		return "call"
	case RefRestart:
		return "restart"
	default:
		return "none"
	}
}

// decoded is a single decoded instruction.
type decoded struct {
	info      opcodeInfo
	opcode    byte   // opcode byte after all prefixes
	prefix    byte   // first byte if the instruction is prefixed, 0 otherwise
	operandAt uint16 // address of the first literal operand byte
	dispAt    uint16 // address of the index displacement byte
}

func decode(r memory.Reader, pc uint16) decoded {
	op := r.ReadMemory(pc)

	switch op {
	case 0xCB:
		second := r.ReadMemory(pc + 1)
		return decoded{info: bitOpcodes[second], opcode: second, prefix: op}

	case 0xED:
		second := r.ReadMemory(pc + 1)
		return decoded{info: extendedOpcodes[second], opcode: second, prefix: op, operandAt: pc + 2}

	case 0xDD, 0xFD:
		second := r.ReadMemory(pc + 1)
		if second == 0xCB {
			last := r.ReadMemory(pc + 3)
			return decoded{info: indexedBitOpcodes[last], opcode: last, prefix: op, dispAt: pc + 2}
		}

		d := decoded{info: indexedOpcodes[second], opcode: second, prefix: op, operandAt: pc + 2, dispAt: pc + 2}
		if d.info.has(flagMemoryHL) {
			d.operandAt++
		}
		return d

	default:
		return decoded{info: baseOpcodes[op], opcode: op, operandAt: pc + 1}
	}
}

// indexRegister returns the name of the index register selected by the prefix.
func (d decoded) indexRegister() string {
	if d.prefix == 0xFD {
		return "IY"
	}
	return "IX"
}

// InstructionLength returns the byte length of the instruction at pc.
func InstructionLength(r memory.Reader, pc uint16) int {
	return decode(r, pc).info.length
}

// PointerIndirection returns the literal address that the instruction at pc
// uses as a memory location, for example LD A,(nn) or LD (nn),HL.
func PointerIndirection(r memory.Reader, pc uint16) (uint16, bool) {
	d := decode(r, pc)
	if !d.info.has(flagIndirect) {
		return 0, false
	}
	return r.ReadMemoryWord(d.operandAt), true
}

// PointerReference returns the literal address that the instruction at pc
// dereferences or loads into a register pair, for example LD HL,nn.
func PointerReference(r memory.Reader, pc uint16) (uint16, bool) {
	d := decode(r, pc)
	if !d.info.has(flagIndirect | flagImmediate) {
		return 0, false
	}
	return r.ReadMemoryWord(d.operandAt), true
}

// JumpTarget returns the target of an absolute jump or call, a relative branch
// or a restart instruction at pc.
func JumpTarget(r memory.Reader, pc uint16) (uint16, bool) {
	return jumpTarget(r, pc, decode(r, pc))
}

func jumpTarget(r memory.Reader, pc uint16, d decoded) (uint16, bool) {
	switch {
	case d.info.has(flagRestart):
		return uint16(d.opcode & 0x38), true
	case d.info.has(flagRelative):
		displacement := int8(r.ReadMemory(d.operandAt))
		return pc + uint16(d.info.length) + uint16(displacement), true
	case d.info.has(flagJump):
		return r.ReadMemoryWord(d.operandAt), true
	default:
		return 0, false
	}
}

// IsCall returns whether the instruction at pc pushes a return address and
// transfers control to a direct target: CALL nn, CALL cc,nn and RST.
func IsCall(r memory.Reader, pc uint16) bool {
	return decode(r, pc).info.has(flagCall)
}

// IsStop returns whether linear disassembly should not continue into the byte
// following the instruction at pc.
func IsStop(r memory.Reader, pc uint16) bool {
	return decode(r, pc).info.has(flagStop)
}

// IsReturn returns whether the instruction at pc is a RET or RET cc.
func IsReturn(r memory.Reader, pc uint16) bool {
	return decode(r, pc).info.has(flagReturn)
}

// IsPush returns whether the instruction at pc pushes a register pair,
// including all index prefixed forms.
func IsPush(r memory.Reader, pc uint16) bool {
	return decode(r, pc).info.has(flagPush)
}

// FallsThrough returns whether execution can continue with the instruction
// following the one at pc. Calls fall through as they are expected to return.
func FallsThrough(r memory.Reader, pc uint16) bool {
	return !decode(r, pc).info.has(flagAlways)
}

// Classification is the result of classifying a single instruction.
type Classification struct {
	Length       int
	Defined      bool // false for opcodes without a documented instruction
	Ref          RefKind
	IsPointerRef bool
	IsJump       bool
	IsCall       bool
	IsReturn     bool
	IsPush       bool
	IsStop       bool
	FallsThrough bool
	Target       uint16 // jump target or referenced address
}

// Classify decodes the instruction at pc once and returns all of its properties.
func Classify(r memory.Reader, pc uint16) Classification {
	d := decode(r, pc)
	c := Classification{
		Length:       d.info.length,
		Defined:      d.info.name != "",
		IsCall:       d.info.has(flagCall),
		IsReturn:     d.info.has(flagReturn),
		IsPush:       d.info.has(flagPush),
		IsStop:       d.info.has(flagStop),
		FallsThrough: !d.info.has(flagAlways),
	}

	if target, ok := jumpTarget(r, pc, d); ok {
		c.IsJump = true
		c.Target = target
		switch {
		case d.info.has(flagRestart):
			c.Ref = RefRestart
		case d.info.has(flagCall):
			c.Ref = RefCall
		default:
			c.Ref = RefJump
		}
		return c
	}

	switch {
	case d.info.has(flagIndirect):
		c.Ref = RefIndirect
	case d.info.has(flagImmediate):
		c.Ref = RefImmediate
	default:
		return c
	}
	c.IsPointerRef = true
	c.Target = r.ReadMemoryWord(d.operandAt)
	return c
}
