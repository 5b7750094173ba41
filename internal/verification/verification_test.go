package verification

import (
	"bytes"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/memory"
	"github.com/retroenv/z80analyser/internal/program"
)

func testProgram(offsets ...*program.Offset) *program.Program {
	app := program.New("test", 0x8000, 0x8003)
	entry := app.AddEntry(program.CodeDirective, 0x8000)
	entry.Offsets = offsets
	return app
}

func TestVerifyOutput(t *testing.T) {
	mem := memory.New()
	assert.NoError(t, mem.Load(0x8000, []byte{0x3E, 0x01, 0x18, 0xFE}))

	tests := []struct {
		name    string
		offsets []*program.Offset
		err     string
		logged  string
	}{
		{
			name: "matching program",
			offsets: []*program.Offset{
				{Address: 0x8000, Data: []byte{0x3E, 0x01}},
				{Address: 0x8002, Data: []byte{0x18, 0xFE}},
			},
		},
		{
			name: "gap",
			offsets: []*program.Offset{
				{Address: 0x8000, Data: []byte{0x3E}},
				{Address: 0x8002, Data: []byte{0x18, 0xFE}},
			},
			err: "does not continue at expected address $8001",
		},
		{
			name: "missing end",
			offsets: []*program.Offset{
				{Address: 0x8000, Data: []byte{0x3E, 0x01}},
			},
			err: "program ends at $8001",
		},
		{
			name: "empty line",
			offsets: []*program.Offset{
				{Address: 0x8000},
			},
			err: "has no data",
		},
		{
			name: "changed bytes",
			offsets: []*program.Offset{
				{Address: 0x8000, Data: []byte{0x3E, 0x02}},
				{Address: 0x8002, Data: []byte{0x18, 0xFD}},
			},
			err:    "2 address mismatches",
			logged: "Address mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			logger := log.NewWithConfig(log.Config{Output: &output, TimeFormat: "-"})

			err := VerifyOutput(logger, testProgram(tt.offsets...), mem)
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.err)
			assert.Contains(t, output.String(), tt.logged)
		})
	}
}
