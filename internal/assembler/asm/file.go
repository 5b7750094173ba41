// Package asm writes Z80 assembler source that sjasmplus and pasmo can assemble.
package asm

import (
	"fmt"
	"io"

	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/program"
	"github.com/retroenv/z80analyser/internal/writer"
)

const indentation = "    "

// FileWriter writes the assembly file content.
type FileWriter struct {
	app        *program.Program
	options    options.Analyser
	mainWriter io.Writer
	writer     *writer.Writer
}

type segmentWrite struct {
	address uint16
}

type entryWrite struct {
	entry *program.Entry
}

type customWrite func() error

// New creates a new file writer.
// nolint: ireturn
func New(app *program.Program, options options.Analyser, mainWriter io.Writer) writer.AssemblerWriter {
	opts := writer.Options{
		HexComments: options.HexComments,
	}
	return FileWriter{
		app:        app,
		options:    options,
		mainWriter: mainWriter,
		writer:     writer.New(app, mainWriter, opts),
	}
}

// Write writes the assembly file content including header, constants, code and data.
func (f FileWriter) Write() error {
	writes := []any{
		customWrite(f.writer.WriteCommentHeader),
		customWrite(f.writeConstants),
		segmentWrite{address: f.app.Start},
	}
	for _, entry := range f.app.Entries {
		writes = append(writes, entryWrite{entry: entry})
	}

	for _, write := range writes {
		switch t := write.(type) {
		case segmentWrite:
			if _, err := fmt.Fprintf(f.mainWriter, "%sORG $%04X\n", indentation, t.address); err != nil {
				return fmt.Errorf("writing segment: %w", err)
			}

		case customWrite:
			if err := t(); err != nil {
				return err
			}

		case entryWrite:
			if err := f.writeEntry(t.entry); err != nil {
				return err
			}
		}
	}

	return nil
}

// writeConstants writes constant aliases to the output.
func (f FileWriter) writeConstants() error {
	if err := f.writer.OutputAliasMap(f.app.Constants); err != nil {
		return fmt.Errorf("writing constants output alias map: %w", err)
	}
	return nil
}

func (f FileWriter) writeEntry(entry *program.Entry) error {
	if _, err := fmt.Fprintln(f.mainWriter); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}

	for _, offset := range entry.Offsets {
		if err := f.writer.WriteCommentBlock(offset.CommentBlock); err != nil {
			return err
		}
		if offset.Label != "" {
			if _, err := fmt.Fprintf(f.mainWriter, "%s:\n", offset.Label); err != nil {
				return fmt.Errorf("writing label: %w", err)
			}
		}

		comment, err := f.writer.Comment(offset)
		if err != nil {
			return err
		}
		if err := f.writer.WriteLine(indentation, offset.Code, comment); err != nil {
			return fmt.Errorf("writing offset $%04X: %w", offset.Address, err)
		}
	}
	return nil
}
