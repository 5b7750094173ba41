package disasm

import (
	"fmt"
	"strings"

	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/memory"
)

// dataText returns the assembler text of a data item of the given size.
func dataText(mem memory.Reader, typ database.DataType, address uint16, size int) string {
	switch typ {
	case database.Byte:
		return fmt.Sprintf("DEFB $%02X", mem.ReadMemory(address))

	case database.Word:
		return fmt.Sprintf("DEFW $%04X", mem.ReadMemoryWord(address))

	case database.WordArray:
		values := make([]string, 0, size/2)
		for i := 0; i+1 < size; i += 2 {
			values = append(values, fmt.Sprintf("$%04X", mem.ReadMemoryWord(address+uint16(i))))
		}
		if len(values) == 0 {
			return fmt.Sprintf("DEFB $%02X", mem.ReadMemory(address))
		}
		return "DEFW " + strings.Join(values, ",")

	case database.Text:
		return textData(mem, address, size)

	default:
		values := make([]string, size)
		for i := range size {
			values[i] = fmt.Sprintf("$%02X", mem.ReadMemory(address+uint16(i)))
		}
		return "DEFB " + strings.Join(values, ",")
	}
}

// textData renders a text item, characters with bit 7 set mark the end of
// a string and are output as character plus $80. Items that do not contain
// any printable characters are output as bytes.
func textData(mem memory.Reader, address uint16, size int) string {
	var items []string
	var text strings.Builder
	containsText := false

	flush := func() {
		if text.Len() > 0 {
			items = append(items, `"`+text.String()+`"`)
			text.Reset()
		}
	}

	for i := range size {
		ch := mem.ReadMemory(address + uint16(i))
		if !isSpectrumChar(ch & 0x7F) {
			flush()
			items = append(items, fmt.Sprintf("$%02X", ch))
			continue
		}

		containsText = true
		if ch&0x80 != 0 {
			flush()
			items = append(items, fmt.Sprintf(`"%c"+$80`, ch&0x7F))
			continue
		}
		text.WriteByte(ch)
	}
	flush()

	if !containsText {
		return "DEFB " + strings.Join(items, ",")
	}
	return "DEFM " + strings.Join(items, ",")
}

// isSpectrumChar returns whether the character is printable and has the same
// meaning in the Spectrum character set as in ASCII.
func isSpectrumChar(ch byte) bool {
	return ch >= 32 && ch < 127 && ch != '^' && ch != '`'
}
