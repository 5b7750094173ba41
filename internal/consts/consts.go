// Package consts manages constants in the disassembled program.
package consts

import (
	"fmt"
	"sort"

	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/z80analyser/internal/program"
)

// Constant is a named address of the system, either a ROM routine or a
// system variable.
type Constant struct {
	Address uint16
	Name    string
	Routine bool
}

// Consts manages constants in the disassembled program.
type Consts struct {
	constants     map[uint16]Constant
	usedConstants set.Set[uint16]
}

type system interface {
	Constants() (map[uint16]Constant, error)
}

// New creates a new constants manager.
func New(sys system) (*Consts, error) {
	constants, err := sys.Constants()
	if err != nil {
		return nil, fmt.Errorf("getting constants: %w", err)
	}

	return &Consts{
		constants:     constants,
		usedConstants: set.New[uint16](),
	}, nil
}

// Get returns the constant for the address.
func (c *Consts) Get(address uint16) (Constant, bool) {
	constant, ok := c.constants[address]
	return constant, ok
}

// ReplaceAddress returns the constant name for an address operand and marks
// the constant as used. Routines are only used as jump or call targets and
// system variables only as data references.
func (c *Consts) ReplaceAddress(address uint16, isJump bool) (string, bool) {
	constant, ok := c.constants[address]
	if !ok || constant.Routine != isJump {
		return "", false
	}

	c.usedConstants.Add(address)
	return constant.Name, true
}

// MarkUsed marks the constant of the address as used.
func (c *Consts) MarkUsed(address uint16) {
	if _, ok := c.constants[address]; ok {
		c.usedConstants.Add(address)
	}
}

// IsUsed returns whether the constant of the address is used.
func (c *Consts) IsUsed(address uint16) bool {
	return c.usedConstants.Contains(address)
}

// Used returns all used constants sorted by address.
func (c *Consts) Used() []Constant {
	constants := make([]Constant, 0, len(c.usedConstants))
	for address := range c.usedConstants {
		constants = append(constants, c.constants[address])
	}
	sort.Slice(constants, func(i, j int) bool {
		return constants[i].Address < constants[j].Address
	})
	return constants
}

// SetToProgram sets the used constants in the program for outputting.
func (c *Consts) SetToProgram(app *program.Program) {
	for address := range c.usedConstants {
		app.Constants[c.constants[address].Name] = address
	}
}
