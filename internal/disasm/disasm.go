// Package disasm converts the analysis database and the memory access
// statistics into a program that can be written by an output writer.
package disasm

import (
	"context"
	"fmt"
	"hash/crc32"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/z80analyser/internal/consts"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/memory"
	"github.com/retroenv/z80analyser/internal/memstats"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/program"
)

// Memory provides the memory content to disassemble.
type Memory interface {
	memory.Reader
	Bytes(address uint16, size int) []byte
}

// Statistics provides the observed memory accesses of an emulation run.
type Statistics interface {
	ExecCount(address uint16) int
	ReadCount(address uint16) int
	WriteCount(address uint16) int
	Use(address uint16) (memstats.Use, bool)
}

// Disasm implements a disassembler.
type Disasm struct {
	logger    *log.Logger
	options   options.Analyser
	mem       Memory
	db        *database.Database
	stats     Statistics
	constants *consts.Consts

	codeOffsets set.Set[uint16] // all bytes that are part of a traced instruction

	offsetsToParse      []uint16
	offsetsToParseAdded set.Set[uint16]

	functionReturnsToParse      []uint16
	functionReturnsToParseAdded set.Set[uint16]
}

// New creates a new disassembler.
func New(logger *log.Logger, mem Memory, db *database.Database, stats Statistics,
	constants *consts.Consts, options options.Analyser) *Disasm {

	return &Disasm{
		logger:                      logger,
		options:                     options,
		mem:                         mem,
		db:                          db,
		stats:                       stats,
		constants:                   constants,
		codeOffsets:                 set.New[uint16](),
		offsetsToParseAdded:         set.New[uint16](),
		functionReturnsToParseAdded: set.New[uint16](),
	}
}

// Process converts the configured export range into a program.
func (dis *Disasm) Process(ctx context.Context, name string) (*program.Program, error) {
	start, end := dis.options.ExportStart, dis.options.ExportEnd
	if start > end {
		return nil, fmt.Errorf("invalid export range $%04X-$%04X", start, end)
	}

	app := program.New(name, start, end)
	app.Entry = dis.options.StartAddress

	var entry *program.Entry
	previousStop := false

	for address := int(start); address <= int(end); {
		if address&0xFFF == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("processing address $%04X: %w", address, err)
			}
		}

		offset, directive, stop := dis.buildOffset(uint16(address), uint16(end))

		label := dis.db.Label(offset.Address)
		newEntry := entry == nil || entry.Directive != directive || previousStop ||
			(label != nil && label.Type == database.FunctionLabel)
		if newEntry {
			entry = app.AddEntry(directive, offset.Address)
		}

		entry.Offsets = append(entry.Offsets, offset)
		previousStop = stop
		address += len(offset.Data)
	}

	size := int(end) - int(start) + 1
	app.Checksum = crc32.Checksum(dis.mem.Bytes(start, size), crc32.MakeTable(crc32.IEEE))
	dis.constants.SetToProgram(app)

	dis.logger.Debug("Program created",
		log.Hex("start", start),
		log.Hex("end", end),
		log.Int("entries", len(app.Entries)))
	return app, nil
}
