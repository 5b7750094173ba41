// Package program represents an analysed Z80 program that is ready to be
// written by an output writer.
package program

import (
	"fmt"
	"strings"
)

// Directive defines the type of an entry, it matches the skool file block
// directives.
type Directive byte

// entry directives.
const (
	CodeDirective      Directive = 'c'
	DataDirective      Directive = 'b'
	WordDirective      Directive = 'w'
	TextDirective      Directive = 't'
	UnusedDirective    Directive = 'u'
	GameStateDirective Directive = 'g'
)

// Offset defines the content of an offset in a program that can represent data or code.
type Offset struct {
	Address uint16
	Data    []byte // data bytes or all opcode bytes that are part of the instruction

	Type OffsetType

	Label          string // name of label if the offset is referenced
	LabelGenerated bool   // label name was generated from the address
	Code           string // asm output of this instruction or data item
	Comment        string
	CommentBlock   string // comment lines preceding the offset
}

// Entry is a block of consecutive offsets of the same directive, functions
// always start a new entry.
type Entry struct {
	Directive Directive
	Address   uint16
	Offsets   []*Offset
}

// Program defines a Z80 program that contains code or data.
type Program struct {
	Name     string
	Start    uint16
	End      uint16 // inclusive
	Entry    uint16 // address where execution starts
	Checksum uint32 // CRC32 of the exported memory range

	Entries []*Entry

	// references to ROM routines and system variables that are used by the code
	Constants map[string]uint16
}

// New creates a new program for the inclusive address range.
func New(name string, start, end uint16) *Program {
	return &Program{
		Name:      name,
		Start:     start,
		End:       end,
		Constants: map[string]uint16{},
	}
}

// AddEntry starts a new entry at the address.
func (p *Program) AddEntry(directive Directive, address uint16) *Entry {
	entry := &Entry{
		Directive: directive,
		Address:   address,
	}
	p.Entries = append(p.Entries, entry)
	return entry
}

// Offsets returns all offsets of all entries in address order.
func (p *Program) Offsets() []*Offset {
	var offsets []*Offset
	for _, entry := range p.Entries {
		offsets = append(offsets, entry.Offsets...)
	}
	return offsets
}

// HexCodeComment returns the data bytes of the offset as hex string.
func (o *Offset) HexCodeComment() (string, error) {
	buf := &strings.Builder{}

	for _, b := range o.Data {
		if _, err := fmt.Fprintf(buf, "%02X ", b); err != nil {
			return "", fmt.Errorf("writing hex comment: %w", err)
		}
	}

	comment := strings.TrimRight(buf.String(), " ")
	return comment, nil
}
