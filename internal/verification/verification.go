// Package verification verifies that the generated program recreates the
// analysed memory.
package verification

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/program"
)

// maxLoggedMismatches is the number of mismatching addresses that get logged.
const maxLoggedMismatches = 10

// Memory provides bulk read access to the analysed memory.
type Memory interface {
	Bytes(address uint16, size int) []byte
}

// VerifyOutput verifies that the program lines cover the exported address
// range without gaps or overlaps and that their bytes match the memory.
func VerifyOutput(logger *log.Logger, app *program.Program, mem Memory) error {
	output, err := assemble(app)
	if err != nil {
		return err
	}

	size := int(app.End) - int(app.Start) + 1
	input := mem.Bytes(app.Start, size)
	if err := checkBufferEqual(logger, app.Start, input, output); err != nil {
		return fmt.Errorf("comparing program with memory: %w", err)
	}
	return nil
}

// assemble concatenates the bytes of all program lines.
func assemble(app *program.Program) ([]byte, error) {
	var output []byte
	next := int(app.Start)

	for _, offset := range app.Offsets() {
		if int(offset.Address) != next {
			return nil, fmt.Errorf("line at $%04X does not continue at expected address $%04X", offset.Address, next)
		}
		if len(offset.Data) == 0 {
			return nil, fmt.Errorf("line at $%04X has no data", offset.Address)
		}
		output = append(output, offset.Data...)
		next += len(offset.Data)
	}

	if end := int(app.End) + 1; next != end {
		return nil, fmt.Errorf("program ends at $%04X instead of $%04X", next-1, app.End)
	}
	return output, nil
}

func checkBufferEqual(logger *log.Logger, start uint16, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs <= maxLoggedMismatches {
			logger.Error("Address mismatch",
				log.Hex("address", start+uint16(i)),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d address mismatches", diffs)
}
