package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Address is a 16 bit address that is stored as hex string in config files.
type Address uint16

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%04X", uint16(a))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, decimal, hex and
// octal notations with Go prefixes are accepted.
func (a *Address) UnmarshalText(text []byte) error {
	value, err := strconv.ParseUint(string(text), 0, 16)
	if err != nil {
		return errors.Wrapf(err, "invalid address '%s'", text)
	}
	*a = Address(value)
	return nil
}

// Handler configures a memory access handler.
type Handler struct {
	Name   string  `json:"Name"`
	Type   string  `json:"Type"` // execute, read or write
	Start  Address `json:"Start"`
	End    Address `json:"End"`
	Break  bool    `json:"Break,omitempty"`
	Script string  `json:"Script,omitempty"` // Lua source called on every match
}

// Label configures a named address.
type Label struct {
	Address  Address `json:"Address"`
	Name     string  `json:"Name"`
	Function bool    `json:"Function,omitempty"`
	Data     bool    `json:"Data,omitempty"`
}

// Comment configures a comment block preceding an address.
type Comment struct {
	Address Address `json:"Address"`
	Text    string  `json:"Text"`
}

// Game is the per game configuration of an analysis session.
type Game struct {
	Name               string    `json:"Name"`
	SnapshotFile       string    `json:"SnapshotFile"`
	LoadAddress        Address   `json:"LoadAddress"`
	StartAddress       Address   `json:"StartAddress"`
	StackMin           Address   `json:"StackMin"`
	StackMax           Address   `json:"StackMax"`
	IncludeVideoMemory bool      `json:"IncludeVideoMemory"`
	PokFile            string    `json:"PokFile,omitempty"`
	Handlers           []Handler `json:"Handlers,omitempty"`
	Labels             []Label   `json:"Labels,omitempty"`
	Comments           []Comment `json:"Comments,omitempty"`
}

// NewGame returns a game config with default values.
func NewGame(name string) *Game {
	return &Game{
		Name:               name,
		LoadAddress:        0x8000,
		StartAddress:       0x8000,
		StackMin:           0x5D00,
		StackMax:           0xFFFF,
		IncludeVideoMemory: true,
	}
}

// Validate checks the config for inconsistent values.
func (g *Game) Validate() error {
	if g.StackMin > g.StackMax {
		return fmt.Errorf("stack range 0x%04X-0x%04X is empty", uint16(g.StackMin), uint16(g.StackMax))
	}
	for _, h := range g.Handlers {
		if h.Start > h.End {
			return fmt.Errorf("handler '%s' has an empty address range", h.Name)
		}
	}
	return nil
}

// LoadGame reads a game config file.
func LoadGame(fileName string) (*Game, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "reading game config '%s'", fileName)
	}

	game := NewGame("")
	if err := json.Unmarshal(data, game); err != nil {
		return nil, errors.Wrapf(err, "parsing game config '%s'", fileName)
	}
	if err := game.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating game config '%s'", fileName)
	}
	return game, nil
}

// SaveGame writes a game config file.
func SaveGame(fileName string, game *Game) error {
	data, err := json.MarshalIndent(game, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "encoding game config '%s'", game.Name)
	}
	data = append(data, '\n')

	if err := os.WriteFile(fileName, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing game config '%s'", fileName)
	}
	return nil
}
