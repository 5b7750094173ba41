package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/z80analyser/internal/analysis"
	"github.com/retroenv/z80analyser/internal/memstats"
	"github.com/retroenv/z80analyser/internal/snapshot"
)

func testSummary() Summary {
	handler := memstats.NewHandler("lives", memstats.Write, 0x9000, 0x9000)
	handler.TotalCount = 3
	handler.CallerCounts[0x8010] = 2
	handler.CallerCounts[0x8020] = 1

	return Summary{
		Name:  "game.sna",
		Steps: 1000,
		Analysis: memstats.Analysis{
			Blocks: []memstats.Block{
				{Start: 0x0000, End: 0x3FFF, Use: memstats.Unknown},
				{Start: 0x4000, End: 0x4FFF, Use: memstats.Data},
				{Start: 0x5000, End: 0xFFFF, Use: memstats.Code},
			},
			SelfModified: []uint16{0x8001, 0x8005},
		},
		Functions: []*analysis.FunctionInfo{
			{
				Address:    0x8100,
				CallCount:  2,
				Callers:    map[uint16]int{0x8006: 1, 0x8003: 1},
				ExitPoints: map[uint16]int{0x8105: 2},
			},
		},
		Handlers: []*memstats.Handler{handler},
		Changes:  []snapshot.Change{{Address: 0x9000, Old: 3, New: 2}},
	}
}

func TestReport_Write(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithWidth(&buf, 60)
	assert.NoError(t, r.Write(testSummary()))

	lines := strings.Split(buf.String(), "\n")
	expected := []string{
		"Memory use summary of game.sna after 1000 instructions",
		"code:     45056 bytes in 1 blocks",
		"data:      4096 bytes in 1 blocks",
		"unknown:  16384 bytes in 1 blocks",
		"",
		"Blocks:",
		"$0000-$3FFF unknown   16384   $4000-$4FFF data       4096",
		"$5000-$FFFF code      45056",
		"",
		"Self modifying code: 2 addresses",
		"$8001   $8005",
		"",
		"Functions: 1",
		"$8100 called 2 times, callers $8003,$8006, exits $8105",
		"",
		"Handlers:",
		"lives            write   $9000-$9000 3 accesses from $8010,$8020",
		"",
		"Memory changes since snapshot: 1 addresses",
		"",
	}
	assert.Equal(t, expected, lines)
}

func TestReport_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithWidth(&buf, 80)
	assert.NoError(t, r.Write(Summary{Name: "empty"}))

	output := buf.String()
	assert.Contains(t, output, "after 0 instructions")
	assert.False(t, strings.Contains(output, "Blocks:"))
	assert.False(t, strings.Contains(output, "Handlers:"))
}

func TestReport_Columns(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		expected int
	}{
		{"narrow", 10, 1},
		{"one block", 56, 1},
		{"two blocks", 57, 2},
		{"terminal", 120, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithWidth(&bytes.Buffer{}, tt.width)
			assert.Equal(t, tt.expected, r.columns(blockWidth))
		})
	}
}

func TestNew_NonTerminal(t *testing.T) {
	r := New(&bytes.Buffer{})
	assert.Equal(t, defaultWidth, r.width)
}
