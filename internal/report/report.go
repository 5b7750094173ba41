// Package report prints a human readable summary of an analysis session.
package report

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/retroenv/z80analyser/internal/analysis"
	"github.com/retroenv/z80analyser/internal/memstats"
	"github.com/retroenv/z80analyser/internal/snapshot"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	blockWidth   = 27 // "$XXXX-$XXXX unknown  65536"
	columnGap    = 3
	maxCallers   = 4
)

// Summary contains the session results to report.
type Summary struct {
	Name      string
	Steps     int
	Analysis  memstats.Analysis
	Functions []*analysis.FunctionInfo
	Handlers  []*memstats.Handler
	Changes   []snapshot.Change
}

// Report writes summaries laid out for the output width.
type Report struct {
	writer io.Writer
	width  int
}

// New returns a new report writer. If the writer is a terminal, the output
// is laid out for the terminal width.
func New(writer io.Writer) *Report {
	return &Report{
		writer: writer,
		width:  terminalWidth(writer),
	}
}

// NewWithWidth returns a new report writer that uses a fixed output width.
func NewWithWidth(writer io.Writer, width int) *Report {
	return &Report{
		writer: writer,
		width:  max(width, blockWidth),
	}
}

func terminalWidth(writer io.Writer) int {
	file, ok := writer.(*os.File)
	if !ok {
		return defaultWidth
	}
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width < blockWidth {
		return defaultWidth
	}
	return width
}

// Write outputs the summary.
func (r *Report) Write(summary Summary) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Memory use summary of %s after %d instructions\n", summary.Name, summary.Steps)
	r.writeUseTotals(&sb, summary.Analysis)
	r.writeBlocks(&sb, summary.Analysis.Blocks)

	if n := len(summary.Analysis.SelfModified); n > 0 {
		fmt.Fprintf(&sb, "\nSelf modifying code: %d addresses\n", n)
		r.writeAddresses(&sb, summary.Analysis.SelfModified)
	}

	writeFunctions(&sb, summary.Functions)
	writeHandlers(&sb, summary.Handlers)

	if len(summary.Changes) > 0 {
		fmt.Fprintf(&sb, "\nMemory changes since snapshot: %d addresses\n", len(summary.Changes))
	}

	if _, err := io.WriteString(r.writer, sb.String()); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func (r *Report) writeUseTotals(sb *strings.Builder, a memstats.Analysis) {
	var bytes, blocks [3]int
	for _, block := range a.Blocks {
		bytes[block.Use] += block.Size()
		blocks[block.Use]++
	}

	for _, use := range []memstats.Use{memstats.Code, memstats.Data, memstats.Unknown} {
		fmt.Fprintf(sb, "%-8s %6d bytes in %d blocks\n", use.String()+":", bytes[use], blocks[use])
	}
}

// writeBlocks lists all blocks in as many columns as fit the output width.
func (r *Report) writeBlocks(sb *strings.Builder, blocks []memstats.Block) {
	if len(blocks) == 0 {
		return
	}

	sb.WriteString("\nBlocks:\n")
	columns := r.columns(blockWidth)
	for i, block := range blocks {
		fmt.Fprintf(sb, "$%04X-$%04X %-8s %6d", block.Start, block.End, block.Use, block.Size())
		if (i+1)%columns == 0 || i == len(blocks)-1 {
			sb.WriteByte('\n')
		} else {
			sb.WriteString(strings.Repeat(" ", columnGap))
		}
	}
}

func (r *Report) writeAddresses(sb *strings.Builder, addresses []uint16) {
	const addressWidth = 5
	columns := r.columns(addressWidth)
	for i, address := range addresses {
		fmt.Fprintf(sb, "$%04X", address)
		if (i+1)%columns == 0 || i == len(addresses)-1 {
			sb.WriteByte('\n')
		} else {
			sb.WriteString(strings.Repeat(" ", columnGap))
		}
	}
}

func (r *Report) columns(itemWidth int) int {
	return max(1, (r.width+columnGap)/(itemWidth+columnGap))
}

func writeFunctions(sb *strings.Builder, functions []*analysis.FunctionInfo) {
	if len(functions) == 0 {
		return
	}

	fmt.Fprintf(sb, "\nFunctions: %d\n", len(functions))
	for _, fn := range functions {
		fmt.Fprintf(sb, "$%04X called %d times, callers %s, exits %s\n",
			fn.Address, fn.CallCount, addressList(fn.Callers), addressList(fn.ExitPoints))
	}
}

func writeHandlers(sb *strings.Builder, handlers []*memstats.Handler) {
	if len(handlers) == 0 {
		return
	}

	sb.WriteString("\nHandlers:\n")
	for _, h := range handlers {
		fmt.Fprintf(sb, "%-16s %-7s $%04X-$%04X %d accesses",
			h.Name, h.Type, h.Start, h.End, h.TotalCount)

		callers := h.Callers()
		if len(callers) > 0 {
			if len(callers) > maxCallers {
				callers = callers[:maxCallers]
			}
			parts := make([]string, 0, len(callers))
			for _, pc := range callers {
				parts = append(parts, fmt.Sprintf("$%04X", pc))
			}
			fmt.Fprintf(sb, " from %s", strings.Join(parts, ","))
		}
		sb.WriteByte('\n')
	}
}

// addressList formats the addresses of a count map in ascending order.
func addressList(counts map[uint16]int) string {
	if len(counts) == 0 {
		return "-"
	}

	addresses := make([]uint16, 0, len(counts))
	for address := range counts {
		addresses = append(addresses, address)
	}
	slices.Sort(addresses)

	parts := make([]string, 0, len(addresses))
	for _, address := range addresses {
		parts = append(parts, fmt.Sprintf("$%04X", address))
	}
	return strings.Join(parts, ",")
}
