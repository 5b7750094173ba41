// Package writer implements common output file writing functionality.
package writer

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/retroenv/z80analyser/internal/program"
)

const selfModifiedComment = "self modifying code"

// AssemblerWriter defines a shared interface used by the different output format packages.
// Their constructors need to return this shared interface, having them return the actual type instead of
// the interface results in compiler errors for the constructor variable that they are assigned to.
type AssemblerWriter interface {
	Write() error
}

// Writer implements common output file writing functionality.
type Writer struct {
	app     *program.Program
	options Options
	writer  io.Writer
}

// Options of the writer.
type Options struct {
	HexComments bool // append the opcode bytes of instructions to comments
}

// New creates a new writer.
func New(app *program.Program, writer io.Writer, options Options) *Writer {
	return &Writer{
		app:     app,
		options: options,
		writer:  writer,
	}
}

// OutputAliasMap outputs an alias map of constants.
func (w Writer) OutputAliasMap(aliases map[string]uint16) error {
	if len(aliases) == 0 {
		return nil
	}

	// sort the aliases by name before outputting to avoid random map order
	names := make([]string, 0, len(aliases))
	for constant := range aliases {
		names = append(names, constant)
	}
	slices.Sort(names)

	for _, constant := range names {
		address := aliases[constant]
		if _, err := fmt.Fprintf(w.writer, "%-16s EQU $%04X\n", constant, address); err != nil {
			return fmt.Errorf("writing alias: %w", err)
		}
	}

	if _, err := fmt.Fprintln(w.writer); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// WriteCommentHeader writes the CRC32 checksum and the address range as comments to the output.
func (w Writer) WriteCommentHeader() error {
	if _, err := fmt.Fprintf(w.writer, "; %s\n", w.app.Name); err != nil {
		return fmt.Errorf("writing name: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; CRC32 checksum: %08x\n", w.app.Checksum); err != nil {
		return fmt.Errorf("writing checksum: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Address range: $%04X-$%04X\n", w.app.Start, w.app.End); err != nil {
		return fmt.Errorf("writing address range: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Entry point: $%04X\n\n", w.app.Entry); err != nil {
		return fmt.Errorf("writing entry point: %w", err)
	}
	return nil
}

// WriteCommentBlock writes every line of the comment as comment line.
func (w Writer) WriteCommentBlock(comment string) error {
	if comment == "" {
		return nil
	}

	for line := range strings.SplitSeq(comment, "\n") {
		line = strings.TrimRight(line, " \r")
		if line == "" {
			if _, err := fmt.Fprintln(w.writer, ";"); err != nil {
				return fmt.Errorf("writing comment line: %w", err)
			}
			continue
		}
		if _, err := fmt.Fprintf(w.writer, "; %s\n", line); err != nil {
			return fmt.Errorf("writing comment line: %w", err)
		}
	}
	return nil
}

// WriteLine writes an instruction or data line with an optional comment.
func (w Writer) WriteLine(prefix, code, comment string) error {
	var err error
	if comment == "" {
		_, err = fmt.Fprintf(w.writer, "%s%s\n", prefix, code)
	} else {
		_, err = fmt.Fprintf(w.writer, "%s%-30s ; %s\n", prefix, code, comment)
	}
	if err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// Comment returns the combined comment of an offset.
func (w Writer) Comment(offset *program.Offset) (string, error) {
	var parts []string

	if w.options.HexComments && offset.IsType(program.CodeOffset) {
		hexCodeComment, err := offset.HexCodeComment()
		if err != nil {
			return "", fmt.Errorf("creating hex comment: %w", err)
		}
		parts = append(parts, hexCodeComment)
	}
	if offset.Comment != "" {
		parts = append(parts, offset.Comment)
	}
	if offset.IsType(program.SelfModified) {
		parts = append(parts, selfModifiedComment)
	}

	return strings.Join(parts, "  "), nil
}
