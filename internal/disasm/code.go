package disasm

import (
	"github.com/retroenv/z80analyser/internal/arch/z80"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/memstats"
	"github.com/retroenv/z80analyser/internal/program"
)

const dataBytesPerLine = 8

// buildOffset creates the program offset for the item at the address and
// returns its entry directive and whether the item is an instruction that
// never continues with the following instruction.
func (dis *Disasm) buildOffset(address, end uint16) (*program.Offset, program.Directive, bool) {
	code := dis.db.CodeInfo(address)
	if code != nil && !code.Disabled && int(address)+code.ByteSize-1 <= int(end) {
		offset, stop := dis.codeOffset(code)
		return offset, program.CodeDirective, stop
	}

	offset, directive := dis.dataOffset(address, end)
	return offset, directive, false
}

func (dis *Disasm) codeOffset(code *database.CodeInfo) (*program.Offset, bool) {
	c := z80.Classify(dis.mem, code.Address)
	ins := z80.Disassemble(dis.mem, code.Address, dis.operandFormatter(c))

	offset := &program.Offset{
		Address:      code.Address,
		Data:         ins.Bytes,
		Type:         program.CodeOffset,
		Code:         ins.Text,
		Comment:      code.Comment,
		CommentBlock: dis.db.CommentBlock(code.Address),
	}
	dis.setLabel(offset)

	for i := range code.ByteSize {
		if _, selfModified := dis.stats.Use(code.Address + uint16(i)); selfModified {
			offset.SetType(program.SelfModified)
			break
		}
	}
	return offset, c.IsStop
}

// operandFormatter returns the formatter for the address operands of the
// classified instruction. Addresses are replaced by label or constant names,
// generated names are only used if enabled.
func (dis *Disasm) operandFormatter(c z80.Classification) z80.AddressFormatter {
	return func(address uint16) string {
		if c.Ref == z80.RefNone {
			return z80.FormatAddress(address)
		}
		if label := dis.db.Label(address); label != nil {
			if dis.options.GeneratedNames || label.Name != database.GenerateLabelName(label.Type, address) {
				return label.Name
			}
		}
		if !dis.options.GeneratedNames {
			return z80.FormatAddress(address)
		}
		if name, ok := dis.constants.ReplaceAddress(address, c.IsJump); ok {
			return name
		}
		return z80.FormatAddress(address)
	}
}

func (dis *Disasm) dataOffset(address, end uint16) (*program.Offset, program.Directive) {
	offset := &program.Offset{
		Address:      address,
		Type:         program.DataOffset,
		CommentBlock: dis.db.CommentBlock(address),
	}
	dis.setLabel(offset)

	if dis.db.HasDataInfo(address) {
		info := dis.db.DataInfo(address)
		size := min(max(info.ByteSize, 1), int(end)-int(address)+1)

		offset.Data = dis.mem.Bytes(address, size)
		offset.Code = dataText(dis.mem, info.DataType, address, size)
		offset.Comment = info.Comment
		if info.DataType == database.Word && address >= dis.options.StackMin && address <= dis.options.StackMax {
			offset.SetType(program.StackData)
		}
		return offset, dataDirective(info.DataType)
	}

	// bundle untyped bytes of the same use
	use, _ := dis.stats.Use(address)
	size := 1
	for size < dataBytesPerLine && int(address)+size <= int(end) {
		next := address + uint16(size)
		if !dis.isPlainByte(next) {
			break
		}
		if nextUse, _ := dis.stats.Use(next); nextUse != use {
			break
		}
		size++
	}

	offset.Data = dis.mem.Bytes(address, size)
	offset.Code = dataText(dis.mem, database.ByteArray, address, size)

	if use == memstats.Unknown {
		return offset, program.UnusedDirective
	}
	return offset, program.DataDirective
}

// isPlainByte returns whether the address has no annotations and can be
// bundled with preceding bytes.
func (dis *Disasm) isPlainByte(address uint16) bool {
	if code := dis.db.CodeInfo(address); code != nil && !code.Disabled {
		return false
	}
	return !dis.db.HasDataInfo(address) &&
		dis.db.Label(address) == nil &&
		dis.db.CommentBlock(address) == ""
}

func (dis *Disasm) setLabel(offset *program.Offset) {
	label := dis.db.Label(offset.Address)
	if label == nil {
		return
	}

	offset.Label = label.Name
	offset.LabelGenerated = label.Name == database.GenerateLabelName(label.Type, label.Address)

	switch label.Type {
	case database.FunctionLabel:
		offset.SetType(program.CallDestination)
	case database.CodeLabel:
		offset.SetType(program.JumpDestination)
	}
}

func dataDirective(typ database.DataType) program.Directive {
	switch typ {
	case database.Word, database.WordArray:
		return program.WordDirective
	case database.Text:
		return program.TextDirective
	default:
		return program.DataDirective
	}
}
