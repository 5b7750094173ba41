// Package pok reads .pok cheat files.
//
// A .pok file contains a list of cheats, each starting with a description
// line followed by its poke lines:
//
//	NInfinite lives
//	Z  8 35136   0 53
//	Y
//
// Poke lines start with M if more pokes follow and with Z for the last poke
// of a cheat. The fields are the memory bank, the address, the value to poke
// and the original value. A value of 256 has to be entered by the user.
// The file ends with a Y line.
package pok

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/retroenv/z80analyser/internal/memory"
)

const userDefinedValue = 256

// ErrMissingEnd is returned for files without end marker.
var ErrMissingEnd = errors.New("missing end of file marker")

// Entry is a single poke of a cheat.
type Entry struct {
	Address     uint16
	Value       byte
	Original    byte
	UserDefined bool
}

// Cheat is a named group of pokes.
type Cheat struct {
	Description           string
	Entries               []Entry
	HasUserDefinedEntries bool
}

// Parse reads all cheats of a .pok file.
func Parse(reader io.Reader) ([]Cheat, error) {
	var cheats []Cheat
	inCheat := false

	scanner := bufio.NewScanner(reader)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		switch line[0] {
		case 'N':
			cheats = append(cheats, Cheat{Description: strings.TrimSpace(line[1:])})
			inCheat = true

		case 'M', 'Z':
			if !inCheat {
				return nil, fmt.Errorf("line %d: poke without cheat description", lineNumber)
			}
			entry, err := parseEntry(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}

			cheat := &cheats[len(cheats)-1]
			cheat.Entries = append(cheat.Entries, entry)
			if entry.UserDefined {
				cheat.HasUserDefinedEntries = true
			}
			if line[0] == 'Z' {
				inCheat = false
			}

		case 'Y':
			return cheats, nil

		default:
			return nil, fmt.Errorf("line %d: unsupported token '%c'", lineNumber, line[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pok file: %w", err)
	}
	return nil, ErrMissingEnd
}

func parseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Entry{}, fmt.Errorf("poke needs at least 4 fields but has %d", len(fields))
	}

	address, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing poke address: %w", err)
	}
	value, err := strconv.ParseUint(fields[3], 10, 16)
	if err != nil || value > userDefinedValue {
		return Entry{}, fmt.Errorf("invalid poke value '%s'", fields[3])
	}

	entry := Entry{Address: uint16(address)}
	if value == userDefinedValue {
		entry.UserDefined = true
	} else {
		entry.Value = byte(value)
	}

	if len(fields) > 4 {
		original, err := strconv.ParseUint(fields[4], 10, 8)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing original value: %w", err)
		}
		entry.Original = byte(original)
	}
	return entry, nil
}

// Apply writes all pokes of the cheat into memory. User defined entries are
// set to the passed value.
func (c Cheat) Apply(mem memory.Writer, userValue byte) {
	for _, entry := range c.Entries {
		value := entry.Value
		if entry.UserDefined {
			value = userValue
		}
		mem.WriteMemory(entry.Address, value)
	}
}

// Revert restores the original values of all pokes of the cheat.
func (c Cheat) Revert(mem memory.Writer) {
	for _, entry := range c.Entries {
		mem.WriteMemory(entry.Address, entry.Original)
	}
}
