package z80

import (
	"fmt"
	"strings"

	"github.com/retroenv/z80analyser/internal/memory"
)

// AddressFormatter formats an address operand, for example as a label name.
type AddressFormatter func(address uint16) string

// Instruction is a disassembled instruction.
type Instruction struct {
	Address   uint16
	Length    int
	Bytes     []byte
	Text      string // mnemonic with operands, for example LD A,($5C00)
	Target    uint16 // address operand of jumps and pointer references
	HasTarget bool
}

// FormatAddress is the default address formatter.
func FormatAddress(address uint16) string {
	return fmt.Sprintf("$%04X", address)
}

// Disassemble decodes the instruction at pc into its text form. Address
// operands are formatted by the passed formatter, FormatAddress is used
// if it is nil.
func Disassemble(r memory.Reader, pc uint16, formatter AddressFormatter) Instruction {
	if formatter == nil {
		formatter = FormatAddress
	}

	d := decode(r, pc)
	ins := Instruction{
		Address: pc,
		Length:  d.info.length,
		Bytes:   make([]byte, d.info.length),
	}
	for i := range ins.Bytes {
		ins.Bytes[i] = r.ReadMemory(pc + uint16(i))
	}

	if d.info.name == "" {
		ins.Text = defineBytes(ins.Bytes)
		return ins
	}

	if target, ok := jumpTarget(r, pc, d); ok {
		ins.Target = target
		ins.HasTarget = true
	} else if d.info.has(flagIndirect | flagImmediate) {
		ins.Target = r.ReadMemoryWord(d.operandAt)
		ins.HasTarget = true
	}

	var sb strings.Builder
	name := d.info.name
	for i := 0; i < len(name); i++ {
		if name[i] != '%' || i+1 == len(name) {
			sb.WriteByte(name[i])
			continue
		}
		i++
		switch name[i] {
		case 'w':
			sb.WriteString(formatter(r.ReadMemoryWord(d.operandAt)))
		case 'b':
			fmt.Fprintf(&sb, "$%02X", r.ReadMemory(d.operandAt))
		case 'r':
			sb.WriteString(formatter(ins.Target))
		case 'd':
			sb.WriteString(formatDisplacement(int8(r.ReadMemory(d.dispAt))))
		case 'x':
			sb.WriteString(d.indexRegister())
		}
	}
	ins.Text = sb.String()
	return ins
}

func formatDisplacement(d int8) string {
	if d < 0 {
		return fmt.Sprintf("-$%02X", -int(d))
	}
	return fmt.Sprintf("+$%02X", d)
}

func defineBytes(data []byte) string {
	values := make([]string, len(data))
	for i, b := range data {
		values[i] = fmt.Sprintf("$%02X", b)
	}
	return "DEFB " + strings.Join(values, ",")
}
