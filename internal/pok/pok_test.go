package pok

import (
	"errors"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/z80analyser/internal/memory"
)

const testFile = `NInfinite lives
M  8 35136   0 53
Z  8 35137 201 58
NStart level
Z  8 34084 256 0
Y
`

func TestParse(t *testing.T) {
	cheats, err := Parse(strings.NewReader(testFile))
	assert.NoError(t, err)
	assert.Len(t, cheats, 2)

	assert.Equal(t, "Infinite lives", cheats[0].Description)
	assert.Equal(t, []Entry{
		{Address: 35136, Value: 0, Original: 53},
		{Address: 35137, Value: 201, Original: 58},
	}, cheats[0].Entries)
	assert.False(t, cheats[0].HasUserDefinedEntries)

	assert.True(t, cheats[1].HasUserDefinedEntries)
	assert.True(t, cheats[1].Entries[0].UserDefined)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{"missing end", "NCheat\nZ 8 100 1 0\n", "missing end"},
		{"poke without cheat", "Z 8 100 1 0\nY\n", "without cheat"},
		{"short poke", "NCheat\nZ 8 100\nY\n", "at least 4 fields"},
		{"invalid value", "NCheat\nZ 8 100 300 0\nY\n", "invalid poke value"},
		{"invalid address", "NCheat\nZ 8 70000 1 0\nY\n", "poke address"},
		{"unknown token", "NCheat\nX\nY\n", "unsupported token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.err)
		})
	}

	_, err := Parse(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrMissingEnd))
}

func TestCheat_ApplyRevert(t *testing.T) {
	cheats, err := Parse(strings.NewReader(testFile))
	assert.NoError(t, err)

	mem := memory.New()
	cheats[0].Apply(mem, 0)
	assert.Equal(t, byte(0), mem.ReadMemory(35136))
	assert.Equal(t, byte(201), mem.ReadMemory(35137))

	cheats[1].Apply(mem, 7)
	assert.Equal(t, byte(7), mem.ReadMemory(34084))

	cheats[0].Revert(mem)
	assert.Equal(t, byte(53), mem.ReadMemory(35136))
	assert.Equal(t, byte(58), mem.ReadMemory(35137))
}
