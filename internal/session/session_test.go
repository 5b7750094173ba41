package session

import (
	"context"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/config"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/pok"
	"github.com/retroenv/z80analyser/internal/program"
)

var testProgram = []byte{
	0x31, 0x00, 0xFF, // 8000 LD SP,$FF00
	0x3E, 0x05, // 8003 LD A,$05
	0x32, 0x00, 0x90, // 8005 LD ($9000),A
	0xCD, 0x10, 0x80, // 8008 CALL $8010
	0x76,                   // 800B HALT
	0x00, 0x00, 0x00, 0x00, // 800C
	0x3D, // 8010 DEC A
	0xC9, // 8011 RET
}

func newTestSession(t *testing.T) *Session {
	t.Helper()

	opts := options.NewAnalyser("asm")
	opts.ExportStart = 0x8000
	opts.ExportEnd = 0x8000 + uint16(len(testProgram)) - 1

	s, err := New(log.NewTestLogger(t), opts)
	assert.NoError(t, err)
	t.Cleanup(s.Close)

	assert.NoError(t, s.Memory.Load(0x8000, testProgram))
	return s
}

func testGame() *config.Game {
	game := config.NewGame("test")
	game.Handlers = []config.Handler{
		{
			Name:   "lives",
			Type:   "write",
			Start:  0x9000,
			End:    0x9000,
			Script: "local name, pc, address, value = ...\nlast = value",
		},
	}
	game.Labels = []config.Label{
		{Address: 0x8010, Name: "decrement", Function: true},
	}
	game.Comments = []config.Comment{
		{Address: 0x8000, Text: "start"},
	}
	return game
}

func TestSession_RunAndAnalyse(t *testing.T) {
	s := newTestSession(t)
	assert.NoError(t, s.ApplyGame(testGame()))
	assert.NoError(t, s.Run(context.Background(), 100))

	assert.True(t, s.Machine.Halted())
	assert.Equal(t, 7, s.Machine.Steps())
	assert.Equal(t, "5", s.Scripts.Global("last"))

	handler := s.Stats.Handler("lives")
	assert.NotNil(t, handler)
	assert.Equal(t, 1, handler.TotalCount)
	assert.Equal(t, 1, handler.CallerCounts[0x8005])

	app, err := s.Analyse(context.Background(), "test")
	assert.NoError(t, err)
	assert.False(t, s.Database.Dirty())

	first := app.Entries[0]
	assert.Equal(t, program.CodeDirective, first.Directive)
	assert.Equal(t, "start", first.Offsets[0].CommentBlock)

	var call *program.Offset
	for _, offset := range app.Offsets() {
		if offset.Address == 0x8008 {
			call = offset
		}
	}
	assert.NotNil(t, call)
	assert.Equal(t, "CALL decrement", call.Code)

	summary := s.Summary("test")
	assert.Equal(t, 7, summary.Steps)
	assert.Len(t, summary.Functions, 1)
	assert.Equal(t, uint16(0x8010), summary.Functions[0].Address)
	assert.Equal(t, 1, summary.Functions[0].CallCount)
	assert.Len(t, summary.Handlers, 1)
	assert.NotEmpty(t, summary.Analysis.Blocks)

	// lives value and the pushed return address
	assert.Len(t, summary.Changes, 3)
	assert.Equal(t, uint16(0x9000), summary.Changes[0].Address)
}

func TestSession_ApplyGame(t *testing.T) {
	tests := []struct {
		name   string
		modify func(game *config.Game)
		err    string
	}{
		{
			name: "invalid handler type",
			modify: func(game *config.Game) {
				game.Handlers[0].Type = "fetch"
			},
			err: "handler 'lives'",
		},
		{
			name: "script compile error",
			modify: func(game *config.Game) {
				game.Handlers[0].Script = "local x = "
			},
			err: "compiling script",
		},
		{
			name: "duplicate label name",
			modify: func(game *config.Game) {
				game.Labels = append(game.Labels, config.Label{Address: 0x8011, Name: "decrement"})
			},
			err: "adding label 'decrement'",
		},
		{
			name: "empty stack range",
			modify: func(game *config.Game) {
				game.StackMin = 0xFFFF
				game.StackMax = 0x8000
			},
			err: "validating game config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			game := testGame()
			tt.modify(game)
			assert.ErrorContains(t, s.ApplyGame(game), tt.err)
		})
	}
}

func TestSession_ApplyGameOptions(t *testing.T) {
	s := newTestSession(t)
	game := testGame()
	game.StartAddress = 0x8003
	game.StackMin = 0x6000
	game.IncludeVideoMemory = false
	assert.NoError(t, s.ApplyGame(game))

	opts := s.Options()
	assert.True(t, opts.HasStart)
	assert.Equal(t, uint16(0x8003), opts.StartAddress)
	assert.Equal(t, uint16(0x6000), opts.StackMin)
	assert.False(t, opts.IncludeVideoMemory)

	label := s.Database.Label(0x8010)
	assert.NotNil(t, label)
	assert.Equal(t, database.FunctionLabel, label.Type)
}

func TestSession_ApplyCheats(t *testing.T) {
	s := newTestSession(t)
	cheats := []pok.Cheat{
		{
			Description: "infinite lives",
			Entries: []pok.Entry{
				{Address: 0x8004, Value: 9},
				{Address: 0x9001, UserDefined: true},
			},
			HasUserDefinedEntries: true,
		},
	}

	s.ApplyCheats(cheats, 3)
	assert.Equal(t, byte(9), s.Memory.ReadMemory(0x8004))
	assert.Equal(t, byte(3), s.Memory.ReadMemory(0x9001))
}
