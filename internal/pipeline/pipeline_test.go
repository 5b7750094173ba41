package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/config"
	"github.com/retroenv/z80analyser/internal/loader"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/program"
)

var testCode = []byte{
	0x31, 0x00, 0xFF, // 8000 LD SP,$FF00
	0x3E, 0x05, // 8003 LD A,$05
	0x32, 0x00, 0x90, // 8005 LD ($9000),A
	0xCD, 0x0C, 0x80, // 8008 CALL $800C
	0x76, // 800B HALT
	0x3D, // 800C DEC A
	0xC9, // 800D RET
}

func testOptions(format string) options.Analyser {
	opts := options.NewAnalyser(format)
	opts.GeneratedNames = true
	opts.ExportStart = 0x8000
	opts.ExportEnd = 0x8000 + uint16(len(testCode)) - 1
	return opts
}

func TestNew(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger)

	assert.NotNil(t, p)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.detector)
	assert.NotNil(t, p.loader)
}

func TestExecuteWithImage(t *testing.T) {
	p := New(log.NewTestLogger(t))
	var summary bytes.Buffer
	p.SetSummaryWriter(&summary)

	programOpts := options.Program{
		Parameters: options.Parameters{Input: "test.bin"},
		Flags:      options.Flags{Quiet: true, Summary: true, Verify: true},
	}

	var buf bytes.Buffer
	app, err := p.ExecuteWithImage(context.Background(), testCode, loader.Raw, nil,
		programOpts, testOptions("asm"), &buf)
	assert.NoError(t, err)
	assert.Equal(t, "test.bin", app.Name)
	assert.Equal(t, program.CodeDirective, app.Entries[0].Directive)

	output := buf.String()
	assert.Contains(t, output, "    ORG $8000")
	assert.Contains(t, output, "function_800C:")
	assert.Contains(t, output, "CALL function_800C")
	assert.Contains(t, summary.String(), "Memory use summary of test.bin after 7 instructions")
}

func TestExecuteWithImage_Skool(t *testing.T) {
	p := New(log.NewTestLogger(t))

	var buf bytes.Buffer
	_, err := p.ExecuteWithImage(context.Background(), testCode, loader.Raw, nil,
		options.Program{}, testOptions("skool"), &buf)
	assert.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "@org=$8000")
	assert.Contains(t, output, "c$8000 LD SP,$FF00")
}

func TestExecuteWithImage_Errors(t *testing.T) {
	p := New(log.NewTestLogger(t))

	_, err := p.ExecuteWithImage(context.Background(), testCode, loader.Raw, nil,
		options.Program{}, testOptions("ca65"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = p.ExecuteWithImage(context.Background(), testCode, loader.SNA, nil,
		options.Program{}, testOptions("asm"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "loading image")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ExecuteWithImage(ctx, testCode, loader.Raw, nil,
		options.Program{}, testOptions("asm"), &bytes.Buffer{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecute_GameConfig(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "game.bin"), testCode, 0600))
	// poke the value loaded into A
	pokData := "NMore lives\nZ  8 32772   7 5\nY\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "game.pok"), []byte(pokData), 0600))

	game := config.NewGame("game")
	game.SnapshotFile = "game.bin"
	game.PokFile = "game.pok"
	game.Labels = []config.Label{{Address: 0x800C, Name: "lose_life", Function: true}}
	configFile := filepath.Join(dir, "game.json")
	assert.NoError(t, config.SaveGame(configFile, game))

	programOpts := options.Program{
		Parameters: options.Parameters{Config: configFile},
		Flags:      options.Flags{Quiet: true},
	}

	var buf bytes.Buffer
	app, err := New(log.NewTestLogger(t)).Execute(context.Background(), programOpts, testOptions("asm"), &buf)
	assert.NoError(t, err)
	assert.Equal(t, "game.bin", app.Name)

	output := buf.String()
	assert.Contains(t, output, "LD A,$07")
	assert.Contains(t, output, "CALL lose_life")
}

func TestExecute_MissingInput(t *testing.T) {
	p := New(log.NewTestLogger(t))

	_, err := p.Execute(context.Background(), options.Program{}, testOptions("asm"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "no input file")

	programOpts := options.Program{Parameters: options.Parameters{Input: "/nonexistent/game.sna"}}
	_, err = p.Execute(context.Background(), programOpts, testOptions("asm"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "reading image")
}

func TestInitializeAssembler(t *testing.T) {
	p := New(log.NewTestLogger(t))

	tests := []struct {
		format  string
		wantErr bool
	}{
		{"asm", false},
		{"SKOOL", false},
		{"nesasm", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			constructor, err := p.initializeAssembler(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, constructor)
		})
	}
}
