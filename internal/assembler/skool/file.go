// Package skool writes SkoolKit skool files.
package skool

import (
	"fmt"
	"io"

	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/program"
	"github.com/retroenv/z80analyser/internal/writer"
)

var entryTitles = map[program.Directive]string{
	program.CodeDirective:      "Routine at $%04X",
	program.DataDirective:      "Data block at $%04X",
	program.WordDirective:      "Word data at $%04X",
	program.TextDirective:      "Message at $%04X",
	program.UnusedDirective:    "Unused $%04X",
	program.GameStateDirective: "Game status buffer entry at $%04X",
}

// FileWriter writes the skool file content.
type FileWriter struct {
	app        *program.Program
	options    options.Analyser
	mainWriter io.Writer
	writer     *writer.Writer
}

// New creates a new file writer.
// nolint: ireturn
func New(app *program.Program, options options.Analyser, mainWriter io.Writer) writer.AssemblerWriter {
	return FileWriter{
		app:        app,
		options:    options,
		mainWriter: mainWriter,
		writer:     writer.New(app, mainWriter, writer.Options{}),
	}
}

// Write writes all entries of the program.
func (f FileWriter) Write() error {
	if _, err := fmt.Fprintf(f.mainWriter, "@start\n@org=$%04X\n", f.app.Start); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, entry := range f.app.Entries {
		if err := f.writeEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (f FileWriter) writeEntry(entry *program.Entry) error {
	if _, err := fmt.Fprintln(f.mainWriter); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}

	for i, offset := range entry.Offsets {
		if i == 0 {
			// the comment block of the first instruction becomes the entry title
			title := offset.CommentBlock
			if title == "" {
				title = fmt.Sprintf(entryTitles[entry.Directive], entry.Address)
			}
			if err := f.writer.WriteCommentBlock(title); err != nil {
				return err
			}
		} else if err := f.writer.WriteCommentBlock(offset.CommentBlock); err != nil {
			return err
		}

		if offset.Label != "" && !offset.LabelGenerated {
			if _, err := fmt.Fprintf(f.mainWriter, "@label=%s\n", offset.Label); err != nil {
				return fmt.Errorf("writing label: %w", err)
			}
		}

		prefix := " "
		switch {
		case i == 0:
			prefix = string(entry.Directive)
		case offset.IsType(program.JumpDestination):
			prefix = "*"
		}

		comment, err := f.writer.Comment(offset)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s$%04X ", prefix, offset.Address)
		if err := f.writer.WriteLine(line, offset.Code, comment); err != nil {
			return fmt.Errorf("writing offset $%04X: %w", offset.Address, err)
		}
	}
	return nil
}
