package z80

import (
	"fmt"
	"strings"
)

// opcodeFlag describes the control flow and addressing behavior of an opcode.
type opcodeFlag uint16

const (
	flagCall      opcodeFlag = 1 << iota // pushes a return address and transfers control
	flagJump                             // absolute jump target operand
	flagRelative                         // signed 8 bit branch displacement operand
	flagRestart                          // fixed low memory target encoded in the opcode
	flagReturn                           // RET or RET cc
	flagStop                             // linear disassembly must not continue blindly
	flagAlways                           // never falls through to the next instruction
	flagPush                             // pushes a register pair
	flagIndirect                         // literal address operand used as memory location
	flagImmediate                        // literal address operand loaded into a register pair
	flagMemoryHL                         // uses (HL), becomes (IX+d) with an index prefix
	flagUsesHL                           // uses HL, H or L and is affected by an index prefix
)

// Mnemonic templates use these operand placeholders:
//
//	%w  16 bit literal
//	%b  8 bit literal
//	%r  relative branch target
//	%d  signed index displacement
//	%x  index register
const (
	placeholderDisplacement = "%d"
	placeholderIndex        = "%x"
)

// opcodeInfo contains the decoding information for a single opcode of a table.
type opcodeInfo struct {
	name   string // mnemonic template, empty for an undefined opcode
	length int    // full instruction length including prefix bytes
	flags  opcodeFlag
}

func (o opcodeInfo) has(flag opcodeFlag) bool {
	return o.flags&flag != 0
}

var (
	reg8     = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	reg16    = [4]string{"BC", "DE", "HL", "SP"}
	reg16AF  = [4]string{"BC", "DE", "HL", "AF"}
	cond     = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	alu      = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	rotation = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	accuOps  = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	imModes  = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}
	edMisc   = [8]string{"LD I,A", "LD R,A", "LD A,I", "LD A,R", "RRD", "RLD", "NOP", "NOP"}
	blockOps = [4][4]string{
		{"LDI", "CPI", "INI", "OUTI"},
		{"LDD", "CPD", "IND", "OUTD"},
		{"LDIR", "CPIR", "INIR", "OTIR"},
		{"LDDR", "CPDR", "INDR", "OTDR"},
	}
)

// Opcode tables, one per prefix.
var (
	baseOpcodes       [256]opcodeInfo
	bitOpcodes        [256]opcodeInfo // CB prefix
	extendedOpcodes   [256]opcodeInfo // ED prefix
	indexedOpcodes    [256]opcodeInfo // DD and FD prefix
	indexedBitOpcodes [256]opcodeInfo // DD CB and FD CB prefix
)

func init() {
	for i := range 256 {
		op := byte(i)
		baseOpcodes[i] = decodeBase(op)
		bitOpcodes[i] = decodeBit(op)
		extendedOpcodes[i] = decodeExtended(op)
	}
	for i := range 256 {
		op := byte(i)
		indexedOpcodes[i] = decodeIndexed(op)
		indexedBitOpcodes[i] = decodeIndexedBit(op)
	}
}

// fields splits an opcode into the x, y and z bit fields as well as p and q derived from y.
func fields(op byte) (x, y, z, p, q byte) {
	x = op >> 6
	y = (op >> 3) & 7
	z = op & 7
	return x, y, z, y >> 1, y & 1
}

func decodeBase(op byte) opcodeInfo {
	x, y, z, _, _ := fields(op)

	var info opcodeInfo
	switch x {
	case 0:
		info = decodeBaseX0(op)
	case 1:
		info = opcodeInfo{name: "LD " + reg8[y] + "," + reg8[z], length: 1}
		if op == 0x76 {
			info.name = "HALT"
		}
	case 2:
		info = opcodeInfo{name: alu[y] + reg8[z], length: 1}
	case 3:
		info = decodeBaseX3(op)
	}

	info.flags |= registerFlags(op, info.name)
	return info
}

func decodeBaseX0(op byte) opcodeInfo {
	_, y, z, p, q := fields(op)

	switch z {
	case 0:
		switch y {
		case 0:
			return opcodeInfo{name: "NOP", length: 1}
		case 1:
			return opcodeInfo{name: "EX AF,AF'", length: 1}
		case 2:
			return opcodeInfo{name: "DJNZ %r", length: 2, flags: flagRelative}
		case 3:
			return opcodeInfo{name: "JR %r", length: 2, flags: flagRelative | flagStop | flagAlways}
		default:
			return opcodeInfo{name: "JR " + cond[y-4] + ",%r", length: 2, flags: flagRelative}
		}

	case 1:
		if q == 0 {
			return opcodeInfo{name: "LD " + reg16[p] + ",%w", length: 3, flags: flagImmediate}
		}
		return opcodeInfo{name: "ADD HL," + reg16[p], length: 1}

	case 2:
		return decodeIndirectLoad(p, q)

	case 3:
		if q == 0 {
			return opcodeInfo{name: "INC " + reg16[p], length: 1}
		}
		return opcodeInfo{name: "DEC " + reg16[p], length: 1}

	case 4:
		return opcodeInfo{name: "INC " + reg8[y], length: 1}
	case 5:
		return opcodeInfo{name: "DEC " + reg8[y], length: 1}
	case 6:
		return opcodeInfo{name: "LD " + reg8[y] + ",%b", length: 2}
	default:
		return opcodeInfo{name: accuOps[y], length: 1}
	}
}

func decodeIndirectLoad(p, q byte) opcodeInfo {
	store := [4]opcodeInfo{
		{name: "LD (BC),A", length: 1},
		{name: "LD (DE),A", length: 1},
		{name: "LD (%w),HL", length: 3, flags: flagIndirect},
		{name: "LD (%w),A", length: 3, flags: flagIndirect},
	}
	load := [4]opcodeInfo{
		{name: "LD A,(BC)", length: 1},
		{name: "LD A,(DE)", length: 1},
		{name: "LD HL,(%w)", length: 3, flags: flagIndirect},
		{name: "LD A,(%w)", length: 3, flags: flagIndirect},
	}
	if q == 0 {
		return store[p]
	}
	return load[p]
}

func decodeBaseX3(op byte) opcodeInfo {
	_, y, z, p, q := fields(op)

	switch z {
	case 0:
		return opcodeInfo{name: "RET " + cond[y], length: 1, flags: flagReturn | flagStop}

	case 1:
		if q == 0 {
			return opcodeInfo{name: "POP " + reg16AF[p], length: 1}
		}
		switch p {
		case 0:
			return opcodeInfo{name: "RET", length: 1, flags: flagReturn | flagStop | flagAlways}
		case 1:
			return opcodeInfo{name: "EXX", length: 1}
		case 2:
			return opcodeInfo{name: "JP (HL)", length: 1, flags: flagStop | flagAlways}
		default:
			return opcodeInfo{name: "LD SP,HL", length: 1}
		}

	case 2:
		return opcodeInfo{name: "JP " + cond[y] + ",%w", length: 3, flags: flagJump}

	case 3:
		misc := [8]opcodeInfo{
			{name: "JP %w", length: 3, flags: flagJump | flagStop | flagAlways},
			{}, // CB prefix
			{name: "OUT (%b),A", length: 2},
			{name: "IN A,(%b)", length: 2},
			{name: "EX (SP),HL", length: 1},
			{name: "EX DE,HL", length: 1},
			{name: "DI", length: 1},
			{name: "EI", length: 1},
		}
		return misc[y]

	case 4:
		return opcodeInfo{name: "CALL " + cond[y] + ",%w", length: 3, flags: flagCall | flagJump | flagStop}

	case 5:
		if q == 0 {
			return opcodeInfo{name: "PUSH " + reg16AF[p], length: 1, flags: flagPush}
		}
		if p == 0 {
			return opcodeInfo{name: "CALL %w", length: 3, flags: flagCall | flagJump | flagStop}
		}
		return opcodeInfo{} // DD, ED and FD prefixes

	case 6:
		return opcodeInfo{name: alu[y] + "%b", length: 2}

	default:
		return opcodeInfo{
			name:   fmt.Sprintf("RST $%02X", y*8),
			length: 1,
			flags:  flagCall | flagRestart | flagStop,
		}
	}
}

// registerFlags returns the flags describing how the instruction uses the HL register.
func registerFlags(op byte, name string) opcodeFlag {
	switch op {
	case 0xEB: // EX DE,HL is not affected by an index prefix
		return 0
	case 0xE9: // JP (HL) has no displacement
		return flagUsesHL
	}

	_, operands, found := strings.Cut(name, " ")
	if !found {
		return 0
	}

	var flags opcodeFlag
	for operand := range strings.SplitSeq(operands, ",") {
		switch operand {
		case "(HL)":
			flags |= flagMemoryHL | flagUsesHL
		case "HL", "H", "L":
			flags |= flagUsesHL
		}
	}
	return flags
}

func decodeBit(op byte) opcodeInfo {
	x, y, z, _, _ := fields(op)

	var name string
	switch x {
	case 0:
		name = rotation[y] + " " + reg8[z]
	case 1:
		name = fmt.Sprintf("BIT %d,%s", y, reg8[z])
	case 2:
		name = fmt.Sprintf("RES %d,%s", y, reg8[z])
	default:
		name = fmt.Sprintf("SET %d,%s", y, reg8[z])
	}
	return opcodeInfo{name: name, length: 2}
}

func decodeExtended(op byte) opcodeInfo {
	x, y, z, p, q := fields(op)

	switch {
	case x == 1:
		return decodeExtendedX1(y, z, p, q)
	case x == 2 && z <= 3 && y >= 4:
		return opcodeInfo{name: blockOps[y-4][z], length: 2}
	default:
		return opcodeInfo{length: 2} // undefined, acts as a two byte NOP
	}
}

func decodeExtendedX1(y, z, p, q byte) opcodeInfo {
	switch z {
	case 0:
		if y == 6 {
			return opcodeInfo{name: "IN (C)", length: 2}
		}
		return opcodeInfo{name: "IN " + reg8[y] + ",(C)", length: 2}
	case 1:
		if y == 6 {
			return opcodeInfo{name: "OUT (C),0", length: 2}
		}
		return opcodeInfo{name: "OUT (C)," + reg8[y], length: 2}
	case 2:
		if q == 0 {
			return opcodeInfo{name: "SBC HL," + reg16[p], length: 2}
		}
		return opcodeInfo{name: "ADC HL," + reg16[p], length: 2}
	case 3:
		if q == 0 {
			return opcodeInfo{name: "LD (%w)," + reg16[p], length: 4, flags: flagIndirect}
		}
		return opcodeInfo{name: "LD " + reg16[p] + ",(%w)", length: 4, flags: flagIndirect}
	case 4:
		return opcodeInfo{name: "NEG", length: 2}
	case 5:
		if y == 1 {
			return opcodeInfo{name: "RETI", length: 2, flags: flagStop | flagAlways}
		}
		return opcodeInfo{name: "RETN", length: 2, flags: flagStop | flagAlways}
	case 6:
		return opcodeInfo{name: "IM " + imModes[y], length: 2}
	default:
		return opcodeInfo{name: edMisc[y], length: 2}
	}
}

// decodeIndexed derives the DD and FD prefixed form of a base opcode.
// Opcodes that do not use HL ignore the prefix, only the push class is kept
// for them as control flow of such forms is not followed.
func decodeIndexed(op byte) opcodeInfo {
	switch op {
	case 0xCB:
		return opcodeInfo{length: 4} // resolved through indexedBitOpcodes
	case 0xDD, 0xED, 0xFD:
		return opcodeInfo{length: 1} // the prefix alone acts as a NOP
	}

	base := baseOpcodes[op]
	info := opcodeInfo{
		name:   base.name,
		length: base.length + 1,
		flags:  base.flags & (flagPush | flagMemoryHL | flagUsesHL),
	}
	if !base.has(flagUsesHL) {
		return info
	}

	switch op {
	case 0x21:
		info.flags |= flagImmediate
	case 0x22, 0x2A:
		info.flags |= flagIndirect
	case 0xE9:
		info.name = "JP (" + placeholderIndex + ")"
		info.flags |= flagStop | flagAlways
		return info
	}

	if base.has(flagMemoryHL) {
		info.length++
		info.name = strings.ReplaceAll(info.name, "(HL)", "("+placeholderIndex+placeholderDisplacement+")")
		return info
	}

	_, operands, _ := strings.Cut(info.name, " ")
	replaced := make([]string, 0, 2)
	for operand := range strings.SplitSeq(operands, ",") {
		switch operand {
		case "HL":
			operand = placeholderIndex
		case "H":
			operand = placeholderIndex + "H"
		case "L":
			operand = placeholderIndex + "L"
		}
		replaced = append(replaced, operand)
	}
	mnemonic, _, _ := strings.Cut(info.name, " ")
	info.name = mnemonic + " " + strings.Join(replaced, ",")
	return info
}

// decodeIndexedBit decodes the opcode byte of a DD CB d op or FD CB d op sequence.
func decodeIndexedBit(op byte) opcodeInfo {
	x, y, z, _, _ := fields(op)
	target := "(" + placeholderIndex + placeholderDisplacement + ")"

	var name string
	switch x {
	case 0:
		name = rotation[y] + " " + target
	case 1:
		return opcodeInfo{name: fmt.Sprintf("BIT %d,%s", y, target), length: 4, flags: flagMemoryHL}
	case 2:
		name = fmt.Sprintf("RES %d,%s", y, target)
	default:
		name = fmt.Sprintf("SET %d,%s", y, target)
	}
	if z != 6 { // undocumented forms that also copy the result into a register
		name += "," + reg8[z]
	}
	return opcodeInfo{name: name, length: 4, flags: flagMemoryHL}
}
